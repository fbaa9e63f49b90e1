package model

import "testing"

func TestSeries_FirstLast(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var s Series
		if _, ok := s.First(); ok {
			t.Error("First() ok = true on empty series")
		}
		if _, ok := s.Last(); ok {
			t.Error("Last() ok = true on empty series")
		}
		if s.SpanMs() != 0 {
			t.Errorf("SpanMs() = %d, want 0", s.SpanMs())
		}
	})

	t.Run("populated", func(t *testing.T) {
		s := Series{{TimestampMs: 100}, {TimestampMs: 250}, {TimestampMs: 400}}
		first, _ := s.First()
		last, _ := s.Last()
		if first.TimestampMs != 100 {
			t.Errorf("First().TimestampMs = %d, want 100", first.TimestampMs)
		}
		if last.TimestampMs != 400 {
			t.Errorf("Last().TimestampMs = %d, want 400", last.TimestampMs)
		}
		if s.SpanMs() != 300 {
			t.Errorf("SpanMs() = %d, want 300", s.SpanMs())
		}
	})
}

func TestSeries_Clone(t *testing.T) {
	s := Series{{TimestampMs: 1, Hashrate10m: 5}}
	c := s.Clone()
	c[0].Hashrate10m = 99

	if s[0].Hashrate10m != 5 {
		t.Errorf("source mutated through clone: Hashrate10m = %v", s[0].Hashrate10m)
	}

	var nilSeries Series
	if got := nilSeries.Clone(); got == nil || len(got) != 0 {
		t.Errorf("Clone() of nil = %v, want empty non-nil", got)
	}
}
