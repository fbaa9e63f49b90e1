package normalize

import (
	"errors"
	"testing"

	"github.com/rickgao/hashwatch/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }

func TestDetectRevision(t *testing.T) {
	tests := []struct {
		name string
		p    *model.HistoryPayload
		want Revision
	}{
		{"nil payload", nil, RevisionAbsolute},
		{"no base", &model.HistoryPayload{}, RevisionAbsolute},
		{"zero base still compressed", &model.HistoryPayload{TimestampBase: int64Ptr(0)}, RevisionCompressed},
		{"base present", &model.HistoryPayload{TimestampBase: int64Ptr(1_700_000_000_000)}, RevisionCompressed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectRevision(tt.p); got != tt.want {
				t.Errorf("DetectRevision() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHistoryBatch_Compressed(t *testing.T) {
	p := &model.HistoryPayload{
		TimestampBase: int64Ptr(1_700_000_000_000),
		Timestamps:    []int64{0, 5000},
		Hashrate10m:   []float64{5.0, 600},
		Hashrate1h:    []float64{10.0, 700},
		Hashrate1d:    []float64{20.0, 800},
	}

	got, err := HistoryBatch(p)
	if err != nil {
		t.Fatalf("HistoryBatch() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	if got[0].TimestampMs != 1_700_000_000_000 {
		t.Errorf("TimestampMs[0] = %d, want 1700000000000", got[0].TimestampMs)
	}
	if got[1].TimestampMs != 1_700_000_005_000 {
		t.Errorf("TimestampMs[1] = %d, want 1700000005000", got[1].TimestampMs)
	}
	if got[0].Hashrate10m != 5e7 {
		t.Errorf("Hashrate10m[0] = %v, want 5e7", got[0].Hashrate10m)
	}
	if got[0].Hashrate1h != 1e8 {
		t.Errorf("Hashrate1h[0] = %v, want 1e8", got[0].Hashrate1h)
	}
	if got[1].Hashrate1d != 8e9 {
		t.Errorf("Hashrate1d[1] = %v, want 8e9", got[1].Hashrate1d)
	}
}

func TestHistoryBatch_Absolute(t *testing.T) {
	p := &model.HistoryPayload{
		Timestamps:  []int64{1_700_000_000_000_000, 1_700_000_001_500_000},
		Hashrate10m: []float64{5.0, 6.0},
		Hashrate1h:  []float64{5.5, 6.5},
		Hashrate1d:  []float64{4.0, 4.5},
	}

	got, err := HistoryBatch(p)
	if err != nil {
		t.Fatalf("HistoryBatch() error: %v", err)
	}

	if got[0].TimestampMs != 1_700_000_000_000 {
		t.Errorf("TimestampMs[0] = %d, want 1700000000000", got[0].TimestampMs)
	}
	if got[1].TimestampMs != 1_700_000_001_500 {
		t.Errorf("TimestampMs[1] = %d, want 1700000001500", got[1].TimestampMs)
	}
	if got[0].Hashrate10m != 5e9 {
		t.Errorf("Hashrate10m[0] = %v, want 5e9", got[0].Hashrate10m)
	}
	if got[1].Hashrate1d != 4.5e9 {
		t.Errorf("Hashrate1d[1] = %v, want 4.5e9", got[1].Hashrate1d)
	}
}

func TestHistoryBatch_Invalid(t *testing.T) {
	tests := []struct {
		name string
		p    *model.HistoryPayload
	}{
		{"nil", nil},
		{"empty object", &model.HistoryPayload{}},
		{
			name: "short 10m",
			p: &model.HistoryPayload{
				Timestamps:  []int64{1, 2},
				Hashrate10m: []float64{1},
				Hashrate1h:  []float64{1, 2},
				Hashrate1d:  []float64{1, 2},
			},
		},
		{
			name: "missing 1d",
			p: &model.HistoryPayload{
				TimestampBase: int64Ptr(1000),
				Timestamps:    []int64{1},
				Hashrate10m:   []float64{1},
				Hashrate1h:    []float64{1},
			},
		},
		{
			name: "non-positive timestamp",
			p: &model.HistoryPayload{
				TimestampBase: int64Ptr(-10),
				Timestamps:    []int64{5},
				Hashrate10m:   []float64{1},
				Hashrate1h:    []float64{1},
				Hashrate1d:    []float64{1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HistoryBatch(tt.p)
			if !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("HistoryBatch() error = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestHistoryBatch_Empty(t *testing.T) {
	tests := []struct {
		name string
		p    *model.HistoryPayload
	}{
		{"compressed", &model.HistoryPayload{TimestampBase: int64Ptr(1000)}},
		{"absolute", &model.HistoryPayload{
			Timestamps:  []int64{},
			Hashrate10m: []float64{},
			Hashrate1h:  []float64{},
			Hashrate1d:  []float64{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HistoryBatch(tt.p)
			if err != nil {
				t.Fatalf("HistoryBatch() error: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("len = %d, want 0", len(got))
			}
		})
	}
}

func TestLive(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s, err := Live(&model.SystemInfo{
			HashRate10m:       1.5,
			HashRate1h:        2,
			HashRate1d:        0.5,
			HashRateTimestamp: 1_700_000_000_123,
		})
		if err != nil {
			t.Fatalf("Live() error: %v", err)
		}
		if s.TimestampMs != 1_700_000_000_123 {
			t.Errorf("TimestampMs = %d, want 1700000000123", s.TimestampMs)
		}
		if s.Hashrate10m != 1.5e9 {
			t.Errorf("Hashrate10m = %v, want 1.5e9", s.Hashrate10m)
		}
		if s.Hashrate1h != 2e9 {
			t.Errorf("Hashrate1h = %v, want 2e9", s.Hashrate1h)
		}
		if s.Hashrate1d != 5e8 {
			t.Errorf("Hashrate1d = %v, want 5e8", s.Hashrate1d)
		}
	})

	t.Run("nil", func(t *testing.T) {
		if _, err := Live(nil); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("Live(nil) error = %v, want ErrInvalidPayload", err)
		}
	})

	t.Run("missing timestamp", func(t *testing.T) {
		if _, err := Live(&model.SystemInfo{HashRate10m: 1}); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("Live() error = %v, want ErrInvalidPayload", err)
		}
	})
}

func TestDisplay(t *testing.T) {
	info := &model.SystemInfo{
		Hostname:          "bitaxe",
		Power:             14.8732,
		Voltage:           5123.4,
		Current:           2987.6,
		CoreVoltage:       1200,
		CoreVoltageActual: 1187.6,
		Temp:              55.25,
		VRTemp:            61.04,
	}

	got := Display(info)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"Power", got.Power, 14.9},
		{"Voltage", got.Voltage, 5.1},
		{"Current", got.Current, 3.0},
		{"CoreVoltage", got.CoreVoltage, 1.2},
		{"CoreVoltageActual", got.CoreVoltageActual, 1.19},
		{"Temp", got.Temp, 55.3},
		{"VRTemp", got.VRTemp, 61.0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if got.Hostname != "bitaxe" {
		t.Errorf("Hostname = %q, want %q", got.Hostname, "bitaxe")
	}

	if Display(nil) != (model.DisplayInfo{}) {
		t.Error("Display(nil) should be zero value")
	}
}
