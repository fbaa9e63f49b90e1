package series

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/hashwatch/internal/model"
)

// ErrCorruptSnapshot is returned by Decode for envelopes that cannot be trusted.
var ErrCorruptSnapshot = errors.New("corrupt series snapshot")

// Envelope is the persisted form of a series: parallel arrays.
type Envelope struct {
	Labels    []int64   `json:"labels"`
	Window10m []float64 `json:"window10m"`
	Window1h  []float64 `json:"window1h"`
	Window1d  []float64 `json:"window1d"`
}

// ToEnvelope splits a series into parallel arrays.
func ToEnvelope(s model.Series) Envelope {
	env := Envelope{
		Labels:    make([]int64, len(s)),
		Window10m: make([]float64, len(s)),
		Window1h:  make([]float64, len(s)),
		Window1d:  make([]float64, len(s)),
	}
	for i, p := range s {
		env.Labels[i] = p.TimestampMs
		env.Window10m[i] = p.Hashrate10m
		env.Window1h[i] = p.Hashrate1h
		env.Window1d[i] = p.Hashrate1d
	}
	return env
}

// Series rebuilds the series, failing closed on unequal lengths or
// timestamps that are not strictly increasing.
func (e Envelope) Series() (model.Series, error) {
	n := len(e.Labels)
	if len(e.Window10m) != n || len(e.Window1h) != n || len(e.Window1d) != n {
		return nil, fmt.Errorf("%w: array lengths labels=%d 10m=%d 1h=%d 1d=%d",
			ErrCorruptSnapshot, n, len(e.Window10m), len(e.Window1h), len(e.Window1d))
	}
	out := make(model.Series, n)
	for i := 0; i < n; i++ {
		if i > 0 && e.Labels[i] <= e.Labels[i-1] {
			return nil, fmt.Errorf("%w: labels not increasing at %d", ErrCorruptSnapshot, i)
		}
		out[i] = model.Sample{
			TimestampMs: e.Labels[i],
			Hashrate10m: e.Window10m[i],
			Hashrate1h:  e.Window1h[i],
			Hashrate1d:  e.Window1d[i],
		}
	}
	return out, nil
}

// Encode marshals a series into its JSON envelope.
func Encode(s model.Series) ([]byte, error) {
	return json.Marshal(ToEnvelope(s))
}

// Decode parses a JSON envelope.
func Decode(data []byte) (model.Series, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return env.Series()
}
