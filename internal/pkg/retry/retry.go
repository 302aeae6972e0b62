package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Policy wraps an external call with bounded retries. Classify decides
// whether an error is transient; everything else propagates immediately.
// The wait before attempt n is 2^n * BaseDelay plus up to one BaseDelay
// of jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Classify    func(error) bool

	sleep func(ctx context.Context, d time.Duration) error
}

func NewPolicy(maxAttempts int, baseDelay time.Duration, classify func(error) bool) Policy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Classify:    classify,
		sleep:       sleepContext,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if p.Classify != nil && !p.Classify(err) {
			return err
		}
		if attempt >= p.MaxAttempts {
			return err
		}
		wait := p.backoff(attempt)
		logutil.GetLogger(ctx).Warn("transient error, backing off",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if serr := sleep(ctx, wait); serr != nil {
			return err
		}
	}
}

func (p Policy) backoff(attempt int) time.Duration {
	exp := math.Pow(2, float64(attempt))
	jitter := rand.Float64()
	return time.Duration((exp + jitter) * float64(p.BaseDelay))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
