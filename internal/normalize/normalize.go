package normalize

import (
	"errors"
	"fmt"
	"math"

	"github.com/rickgao/hashwatch/internal/model"
)

// ErrInvalidPayload marks a device response that cannot be converted.
var ErrInvalidPayload = errors.New("invalid payload")

// GigaHash is the device's hashrate unit in H/s.
const GigaHash = 1e9

// compressionFactor is applied upstream to history values in the compressed revision.
const compressionFactor = 100.0

// Revision identifies the history payload encoding.
type Revision int

const (
	// RevisionAbsolute: absolute microsecond timestamps, raw GH/s values.
	RevisionAbsolute Revision = iota
	// RevisionCompressed: millisecond offsets from timestampBase, GH/s ×100.
	RevisionCompressed
)

func (r Revision) String() string {
	switch r {
	case RevisionAbsolute:
		return "absolute"
	case RevisionCompressed:
		return "compressed"
	default:
		return fmt.Sprintf("revision(%d)", int(r))
	}
}

// DetectRevision reports which encoding a history payload uses.
func DetectRevision(p *model.HistoryPayload) Revision {
	if p != nil && p.TimestampBase != nil {
		return RevisionCompressed
	}
	return RevisionAbsolute
}

// Live converts one info response into a sample.
func Live(info *model.SystemInfo) (model.Sample, error) {
	if info == nil {
		return model.Sample{}, fmt.Errorf("%w: nil info", ErrInvalidPayload)
	}
	if info.HashRateTimestamp <= 0 {
		return model.Sample{}, fmt.Errorf("%w: hashRateTimestamp %d", ErrInvalidPayload, info.HashRateTimestamp)
	}
	return model.Sample{
		TimestampMs: info.HashRateTimestamp,
		Hashrate10m: info.HashRate10m * GigaHash,
		Hashrate1h:  info.HashRate1h * GigaHash,
		Hashrate1d:  info.HashRate1d * GigaHash,
	}, nil
}

// HistoryBatch converts a history payload into samples, in payload order.
func HistoryBatch(p *model.HistoryPayload) ([]model.Sample, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil history payload", ErrInvalidPayload)
	}
	// An empty page still carries its arrays; an object without them is malformed.
	if p.Timestamps == nil && p.TimestampBase == nil {
		return nil, fmt.Errorf("%w: missing timestamps", ErrInvalidPayload)
	}

	n := len(p.Timestamps)
	if len(p.Hashrate10m) != n || len(p.Hashrate1h) != n || len(p.Hashrate1d) != n {
		return nil, fmt.Errorf("%w: array lengths timestamps=%d 10m=%d 1h=%d 1d=%d",
			ErrInvalidPayload, n, len(p.Hashrate10m), len(p.Hashrate1h), len(p.Hashrate1d))
	}
	if n == 0 {
		return nil, nil
	}

	rev := DetectRevision(p)
	out := make([]model.Sample, n)
	for i := 0; i < n; i++ {
		var ts int64
		var scale float64
		switch rev {
		case RevisionCompressed:
			ts = *p.TimestampBase + p.Timestamps[i]
			scale = compressionFactor
		default:
			ts = p.Timestamps[i] / 1000
			scale = 1
		}
		if ts <= 0 {
			return nil, fmt.Errorf("%w: timestamp[%d] = %d", ErrInvalidPayload, i, ts)
		}
		out[i] = model.Sample{
			TimestampMs: ts,
			Hashrate10m: p.Hashrate10m[i] * GigaHash / scale,
			Hashrate1h:  p.Hashrate1h[i] * GigaHash / scale,
			Hashrate1d:  p.Hashrate1d[i] * GigaHash / scale,
		}
	}
	return out, nil
}

// Display converts auxiliary telemetry to display units. The rounding is
// cosmetic and never feeds back into stored samples.
func Display(info *model.SystemInfo) model.DisplayInfo {
	if info == nil {
		return model.DisplayInfo{}
	}
	return model.DisplayInfo{
		Hostname:          info.Hostname,
		Version:           info.Version,
		Power:             round(info.Power, 1),
		Voltage:           round(info.Voltage/1000, 1),
		Current:           round(info.Current/1000, 1),
		CoreVoltage:       round(info.CoreVoltage/1000, 2),
		CoreVoltageActual: round(info.CoreVoltageActual/1000, 2),
		Temp:              round(info.Temp, 1),
		VRTemp:            round(info.VRTemp, 1),
	}
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
