package resilience

import (
	"testing"
	"time"
)

func TestConfigNormalizeDefaults(t *testing.T) {
	got := Config{}.normalize()
	def := DefaultConfig()

	if got.RetryMaxAttempts != def.RetryMaxAttempts ||
		got.RetryInitialBackoff != def.RetryInitialBackoff ||
		got.RetryMaxBackoff != def.RetryMaxBackoff ||
		got.RetryMultiplier != def.RetryMultiplier {
		t.Fatalf("retry defaults not applied: %+v", got)
	}
	if got.BreakerEnabled {
		t.Fatalf("normalize must not enable the breaker on its own")
	}
	if got.BreakerMinRequests != def.BreakerMinRequests ||
		got.BreakerFailureRatio != def.BreakerFailureRatio ||
		got.BreakerOpenTimeout != def.BreakerOpenTimeout ||
		got.BreakerHalfOpenMaxCalls != def.BreakerHalfOpenMaxCalls {
		t.Fatalf("breaker defaults not applied: %+v", got)
	}
}

func TestConfigNormalizeRaisesBackoffCap(t *testing.T) {
	got := Config{
		RetryInitialBackoff: 5 * time.Second,
		RetryMaxBackoff:     time.Second,
	}.normalize()

	if got.RetryMaxBackoff != 5*time.Second {
		t.Fatalf("max backoff = %v, want raised to the 5s initial delay", got.RetryMaxBackoff)
	}
}

func TestConfigNormalizeRejectsBadRatio(t *testing.T) {
	got := Config{BreakerFailureRatio: 1.5}.normalize()

	if got.BreakerFailureRatio != DefaultConfig().BreakerFailureRatio {
		t.Fatalf("failure ratio = %v, want default", got.BreakerFailureRatio)
	}
}
