package reconcile

// State is the controller's lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateBackfillPending
	StateBackfilling
	StateLiveOnly
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBackfillPending:
		return "backfill_pending"
	case StateBackfilling:
		return "backfilling"
	case StateLiveOnly:
		return "live"
	default:
		return "unknown"
	}
}
