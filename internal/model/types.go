package model

// -----------------------------------------------------------------------------
// Reconciled Types
// -----------------------------------------------------------------------------

// Sample is one normalized telemetry point.
type Sample struct {
	TimestampMs int64   `json:"timestampMs"`
	Hashrate10m float64 `json:"hashrate10m"` // H/s
	Hashrate1h  float64 `json:"hashrate1h"`  // H/s
	Hashrate1d  float64 `json:"hashrate1d"`  // H/s
}

// Series is an ordered run of samples, ascending by TimestampMs with no
// repeated timestamps.
type Series []Sample

// First returns the oldest sample.
func (s Series) First() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[0], true
}

// Last returns the newest sample.
func (s Series) Last() (Sample, bool) {
	if len(s) == 0 {
		return Sample{}, false
	}
	return s[len(s)-1], true
}

// SpanMs returns last.TimestampMs - first.TimestampMs, or 0 for fewer than two samples.
func (s Series) SpanMs() int64 {
	if len(s) < 2 {
		return 0
	}
	return s[len(s)-1].TimestampMs - s[0].TimestampMs
}

// Clone returns an independent copy.
func (s Series) Clone() Series {
	if s == nil {
		return Series{}
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// -----------------------------------------------------------------------------
// Raw Device Payloads
// -----------------------------------------------------------------------------

// HistoryPayload is the body of the device history endpoint. Parallel arrays,
// units depend on the firmware revision (see normalize.DetectRevision).
type HistoryPayload struct {
	TimestampBase *int64    `json:"timestampBase,omitempty"`
	Timestamps    []int64   `json:"timestamps"`
	Hashrate10m   []float64 `json:"hashrate_10m"`
	Hashrate1h    []float64 `json:"hashrate_1h"`
	Hashrate1d    []float64 `json:"hashrate_1d"`
}

// SystemInfo is the body of the device info endpoint: one live sample plus
// auxiliary telemetry in device units.
type SystemInfo struct {
	Hostname string `json:"hostname"`
	Version  string `json:"version"`

	// Hashrate in GH/s
	HashRate10m       float64 `json:"hashRate_10m"`
	HashRate1h        float64 `json:"hashRate_1h"`
	HashRate1d        float64 `json:"hashRate_1d"`
	HashRateTimestamp int64   `json:"hashRateTimestamp"` // ms, device clock

	Power             float64 `json:"power"`             // W
	Voltage           float64 `json:"voltage"`           // mV
	Current           float64 `json:"current"`           // mA
	CoreVoltage       float64 `json:"coreVoltage"`       // mV
	CoreVoltageActual float64 `json:"coreVoltageActual"` // mV
	Temp              float64 `json:"temp"`              // °C
	VRTemp            float64 `json:"vrTemp"`            // °C

	Frequency      float64 `json:"frequency"` // MHz
	SmallCoreCount int     `json:"smallCoreCount"`
	AsicCount      int     `json:"asicCount"`

	StratumURL  string `json:"stratumURL"`
	StratumUser string `json:"stratumUser"`
}

// HistoryRangeEnd is the body of the device history range endpoint.
type HistoryRangeEnd struct {
	LastTimestamp int64 `json:"lastTimestamp"`
}

// -----------------------------------------------------------------------------
// Outward Types
// -----------------------------------------------------------------------------

// DisplayInfo is SystemInfo converted to display units and rounded.
type DisplayInfo struct {
	Hostname          string  `json:"hostname"`
	Version           string  `json:"version"`
	Power             float64 `json:"power"`             // W, 1 decimal
	Voltage           float64 `json:"voltage"`           // V, 1 decimal
	Current           float64 `json:"current"`           // A, 1 decimal
	CoreVoltage       float64 `json:"coreVoltage"`       // V, 2 decimals
	CoreVoltageActual float64 `json:"coreVoltageActual"` // V, 2 decimals
	Temp              float64 `json:"temp"`              // °C, 1 decimal
	VRTemp            float64 `json:"vrTemp"`            // °C, 1 decimal
}

// Update is published to subscribers whenever the reconciled series changes.
type Update struct {
	State            string       `json:"state"`
	Sample           *Sample      `json:"sample,omitempty"`
	Series           Series       `json:"series"`
	Info             *DisplayInfo `json:"info,omitempty"`
	ExpectedHashRate float64      `json:"expectedHashRate"` // GH/s
	PoolURL          string       `json:"poolURL,omitempty"`
}
