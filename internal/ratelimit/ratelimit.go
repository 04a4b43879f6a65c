// Package ratelimit tracks recent authorization attempts per card within a
// sliding time window.
package ratelimit

import (
	"context"
	"time"
)

// Counter counts authorization attempts per card. The window is half-open:
// an attempt exactly `window` old is excluded, everything strictly newer up
// to and including asOf counts. Implementations must not lose concurrent
// RecordAttempt calls for the same card; slight staleness on reads is
// acceptable, silently dropped attempts are not.
type Counter interface {
	RecentAttemptCount(ctx context.Context, cardNumber string, asOf time.Time, window time.Duration) (int, error)
	RecordAttempt(ctx context.Context, cardNumber string, at time.Time) error
}
