package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// RetryPolicy retries an operation with a fixed delay and no attempt
// ceiling. Remote outages are assumed transient, so an operation keeps
// retrying until it succeeds or the context is cancelled.
type RetryPolicy struct {
	Interval time.Duration
}

// DefaultRetryPolicy waits 5 seconds between attempts.
var DefaultRetryPolicy = RetryPolicy{Interval: 5 * time.Second}

// Do runs fn until it succeeds, logging a warning before each retry.
func (p RetryPolicy) Do(ctx context.Context, logger *logrus.Logger, operation string, fn func() error) error {
	bo := backoff.WithContext(backoff.NewConstantBackOff(p.Interval), ctx)

	return backoff.RetryNotify(fn, bo, func(err error, wait time.Duration) {
		logger.WithError(err).WithFields(logrus.Fields{
			"operation": operation,
			"retry_in":  wait,
		}).Warn("Operation failed, retrying")
	})
}
