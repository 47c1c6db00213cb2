package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sgx-labs/notevault/internal/vaulterr"
)

func TestDoSuccessFirstAttempt(t *testing.T) {
	p := Policy{TimeoutMs: 1000, MaxRetries: 3, BaseDelayMs: 1, MaxDelayMs: 5}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	p := Policy{TimeoutMs: 5000, MaxRetries: 3, BaseDelayMs: 1, MaxDelayMs: 5}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	p := Policy{TimeoutMs: 5000, MaxRetries: 2, BaseDelayMs: 1, MaxDelayMs: 5}

	boom := errors.New("boom")
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want original error", err)
	}
	// MaxRetries retries on top of the initial attempt.
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoOnRetryAttemptNumbers(t *testing.T) {
	var attempts []int
	p := Policy{
		TimeoutMs: 5000, MaxRetries: 2, BaseDelayMs: 1, MaxDelayMs: 5,
		OnRetry: func(attempt int, err error) {
			attempts = append(attempts, attempt)
		},
	}

	p.Do(context.Background(), func(context.Context) error {
		return errors.New("always")
	})

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", attempts)
	}
}

func TestDoTimeout(t *testing.T) {
	p := Policy{TimeoutMs: 30, MaxRetries: 10, BaseDelayMs: 10, MaxDelayMs: 20}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !vaulterr.Is(err, vaulterr.Timeout) {
		t.Errorf("code = %v, want TIMEOUT_ERROR", vaulterr.CodeOf(err))
	}
}

func TestMergeLayering(t *testing.T) {
	hook := func(int, error) {}
	base := Default()

	merged := Merge(base, Policy{TimeoutMs: 9000, OnRetry: hook}, Policy{MaxRetries: 7})
	if merged.TimeoutMs != 9000 {
		t.Errorf("TimeoutMs = %d", merged.TimeoutMs)
	}
	if merged.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d", merged.MaxRetries)
	}
	if merged.BaseDelayMs != base.BaseDelayMs || merged.MaxDelayMs != base.MaxDelayMs {
		t.Errorf("base delays should survive: %+v", merged)
	}
	if merged.OnRetry == nil {
		t.Error("OnRetry from an earlier layer should survive")
	}
}

func TestDefault(t *testing.T) {
	p := Default()
	if p.TimeoutMs != 5000 || p.MaxRetries != 2 {
		t.Errorf("Default = %+v", p)
	}
	if p.Timeout() != 5*time.Second {
		t.Errorf("Timeout() = %v", p.Timeout())
	}
}
