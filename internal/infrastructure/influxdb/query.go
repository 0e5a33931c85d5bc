package influxdb

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HistoryPoint is one stored datapoint value.
type HistoryPoint struct {
	Time  time.Time `json:"time"`
	Value any       `json:"value"`
}

// PropertyHistory returns the values recorded for a property since the given
// time, oldest first, capped at limit rows (0 means 1000).
func (c *Client) PropertyHistory(ctx context.Context, dsn, property string, since time.Time, limit int) ([]HistoryPoint, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	result, err := c.queryAPI.Query(ctx, historyQuery(c.cfg.Bucket, dsn, property, since, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	var points []HistoryPoint
	for result.Next() {
		rec := result.Record()
		points = append(points, HistoryPoint{Time: rec.Time(), Value: rec.Value()})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return points, nil
}

func historyQuery(bucket, dsn, property string, since time.Time, limit int) string {
	if limit <= 0 {
		limit = 1000
	}
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s)
  |> filter(fn: (r) => r._measurement == %q and r.dsn == %q and r.property == %q and r._field == "value")
  |> sort(columns: ["_time"])
  |> limit(n: %d)`,
		bucket, since.UTC().Format(time.RFC3339), measurementDatapoint,
		fluxEscape(dsn), fluxEscape(property), limit)
}

// fluxEscape strips characters that %q would not neutralise inside Flux.
func fluxEscape(s string) string {
	return strings.NewReplacer("$", "", "{", "", "}", "").Replace(s)
}
