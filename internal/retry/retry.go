package retry

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

type r struct {
	rand        *rand.Rand
	curInterval time.Duration
	maxInterval time.Duration
	jitter      time.Duration
	failAfter   time.Duration
	elapsedTime time.Duration
}

func (r *r) nextInterval() time.Duration {
	var random int64
	if r.jitter > 0 {
		if r.rand == nil {
			random = rand.Int63n(int64(r.jitter))
		} else {
			random = r.rand.Int63n(int64(r.jitter))
		}
	}

	curInterval := r.curInterval + time.Duration(random)

	r.elapsedTime += curInterval

	r.curInterval *= 2
	if r.curInterval > r.maxInterval {
		r.curInterval = r.maxInterval
	}

	return curInterval
}

func (r *r) finished() bool {
	return r.failAfter < r.elapsedTime
}

func (r *r) wait(ctx context.Context) error {
	t := time.NewTimer(r.nextInterval())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Void struct{}

var V = Void{}

// Retry calls fn until it succeeds, backing off exponentially from 200ms up to
// 5s. It gives up with the last error once failAfter has been spent waiting or
// ctx is done.
func Retry[T any](ctx context.Context, fn func() (T, error), failAfter time.Duration) (T, error) {
	rr := r{
		curInterval: 200 * time.Millisecond,
		maxInterval: 5 * time.Second,
		jitter:      200 * time.Millisecond,
		failAfter:   failAfter,
	}

	for {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if rr.finished() {
			return *new(T), err
		}

		slog.Debug("Retrying...", slog.Any("error", err))

		if werr := rr.wait(ctx); werr != nil {
			return *new(T), err
		}
	}
}
