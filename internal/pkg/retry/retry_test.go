package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func instantPolicy(maxAttempts int, classify func(error) bool) Policy {
	p := NewPolicy(maxAttempts, time.Millisecond, classify)
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	p := instantPolicy(3, func(error) bool { return true })
	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	p := instantPolicy(3, func(error) bool { return true })
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterBudget(t *testing.T) {
	calls := 0
	p := instantPolicy(3, func(error) bool { return true })
	err := p.Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("still failing")
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
}

func TestDo_NonTransientFailsImmediately(t *testing.T) {
	calls := 0
	p := instantPolicy(3, func(error) bool { return false })
	err := p.Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("fatal")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestBackoff_GrowsExponentially(t *testing.T) {
	p := NewPolicy(5, time.Second, nil)
	first := p.backoff(1)
	second := p.backoff(2)
	require.GreaterOrEqual(t, first, 2*time.Second)
	require.Less(t, first, 3*time.Second)
	require.GreaterOrEqual(t, second, 4*time.Second)
	require.Less(t, second, 5*time.Second)
}
