// Automod component for counting moderation actions, per user, over a few fixed time windows.
//
// Includes an interface and implementations using redis and in-process memory. Counters are keyed by a namespace ("name", eg "automod-mute") and a value (eg a user ID).
package countstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

var AllPeriods = []string{PeriodTotal, PeriodDay, PeriodHour}

type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	// Increments the counter in every period bucket.
	Increment(ctx context.Context, name, val string) error
	// Number of distinct values seen in a bucket (eg, distinct groups a user was muted in).
	GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error)
	IncrementDistinct(ctx context.Context, name, bucket, val string) error
}

func periodBucket(now time.Time, name, val, period string) string {
	now = now.UTC()
	switch period {
	case PeriodTotal:
		return fmt.Sprintf("%s/%s", name, val)
	case PeriodDay:
		return fmt.Sprintf("%s/%s/%s", name, val, now.Format(time.DateOnly))
	case PeriodHour:
		return fmt.Sprintf("%s/%s/%s", name, val, now.Format("2006-01-02T15"))
	default:
		slog.Warn("unhandled counter period", "period", period)
		return fmt.Sprintf("%s/%s", name, val)
	}
}

// Snapshot of one counter across all periods.
type Summary struct {
	Total int
	Day   int
	Hour  int
}

func Summarize(ctx context.Context, cs CountStore, name, val string) (Summary, error) {
	var s Summary
	var err error
	if s.Total, err = cs.GetCount(ctx, name, val, PeriodTotal); err != nil {
		return s, err
	}
	if s.Day, err = cs.GetCount(ctx, name, val, PeriodDay); err != nil {
		return s, err
	}
	if s.Hour, err = cs.GetCount(ctx, name, val, PeriodHour); err != nil {
		return s, err
	}
	return s, nil
}
