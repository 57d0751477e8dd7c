// Package retry runs remote calls under an exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type Policy struct {
	// MaxTries counts the first attempt; 1 disables retrying.
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Retryable decides which errors earn another attempt. Nil retries nothing.
	Retryable func(error) bool
}

// Do runs op until it succeeds, returns a non-retryable error, or the policy is
// exhausted. When ctx ends between attempts the last attempt's error is kept in the chain.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}

	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}

	var lastErr error
	res, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if p.Retryable == nil || !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(tries))
	if err == nil {
		return res, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if lastErr != nil && !errors.Is(err, lastErr) {
		return res, fmt.Errorf("%w (%v)", lastErr, err)
	}
	return res, err
}
