package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Cursor persists the timestamp of the newest absorbed sample.
// It does not enforce monotonicity; callers must never store a regression.
type Cursor struct {
	kv KV
}

// NewCursor returns a Cursor stored in kv under KeyCursorTimestamp.
func NewCursor(kv KV) *Cursor {
	return &Cursor{kv: kv}
}

// Load returns the stored timestamp. ok is false when nothing usable is
// stored; an unparsable value counts as absent.
func (c *Cursor) Load(ctx context.Context) (ts int64, ok bool, err error) {
	data, err := c.kv.Get(ctx, KeyCursorTimestamp)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	ts, perr := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if perr != nil {
		return 0, false, nil
	}
	return ts, true, nil
}

// Store writes ts.
func (c *Cursor) Store(ctx context.Context, ts int64) error {
	return c.kv.Set(ctx, KeyCursorTimestamp, []byte(strconv.FormatInt(ts, 10)))
}

// Clear removes the stored cursor.
func (c *Cursor) Clear(ctx context.Context) error {
	return c.kv.Delete(ctx, KeyCursorTimestamp)
}
