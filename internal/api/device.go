package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rickgao/hashwatch/internal/model"
)

// ErrRangeEndUnsupported is returned by GetHistoryRangeEnd on firmware that
// has no range endpoint.
var ErrRangeEndUnsupported = errors.New("history range end not supported by device")

// GetInfo fetches the current telemetry sample. It is not retried: a failed
// live poll is simply superseded by the next tick.
func (c *Client) GetInfo(ctx context.Context) (*model.SystemInfo, error) {
	var info model.SystemInfo
	if err := c.getOnce(ctx, "/api/system/info", nil, &info); err != nil {
		return nil, fmt.Errorf("get system info: %w", err)
	}
	return &info, nil
}

// GetHistory fetches history samples at or after startMs. The result may be empty.
func (c *Client) GetHistory(ctx context.Context, startMs int64) (*model.HistoryPayload, error) {
	query := url.Values{}
	query.Set("start_timestamp", strconv.FormatInt(startMs, 10))

	var payload model.HistoryPayload
	if err := c.get(ctx, "/api/history", query, &payload); err != nil {
		return nil, fmt.Errorf("get history from %d: %w", startMs, err)
	}
	return &payload, nil
}

// GetHistoryRangeEnd returns the newest timestamp the history endpoint can serve.
func (c *Client) GetHistoryRangeEnd(ctx context.Context) (int64, error) {
	var resp model.HistoryRangeEnd
	if err := c.get(ctx, "/api/history/end", nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return 0, ErrRangeEndUnsupported
		}
		return 0, fmt.Errorf("get history range end: %w", err)
	}
	return resp.LastTimestamp, nil
}
