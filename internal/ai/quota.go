package ai

import (
	"errors"
	"sync"
	"time"
)

// ErrQuotaExceeded is returned when a request would exceed the tier budget.
var ErrQuotaExceeded = errors.New("gemini quota exceeded: wait before retry")

type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

// TierLimits holds the generation and embedding quotas of a tier. The
// provider meters them separately.
type TierLimits struct {
	Generate RateLimits
	Embed    RateLimits
}

func getRateLimits(tier string) TierLimits {
	switch tier {
	case "tier1":
		return TierLimits{
			Generate: RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000},
			Embed:    RateLimits{RPM: 3000, TPM: 5000000, RPD: 1000000},
		}
	case "tier2":
		return TierLimits{
			Generate: RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000},
			Embed:    RateLimits{RPM: 5000, TPM: 10000000, RPD: 2000000},
		}
	default:
		return TierLimits{
			Generate: RateLimits{RPM: 15, TPM: 1000000, RPD: 1500},
			Embed:    RateLimits{RPM: 1500, TPM: 1000000, RPD: 100000},
		}
	}
}

// TokenCounter tracks request and token usage in minute and day windows.
type TokenCounter struct {
	mu              sync.Mutex
	limits          RateLimits
	minuteTokens    int
	dailyTokens     int
	minuteRequests  int
	dailyRequests   int
	lastMinuteReset time.Time
	lastDayReset    time.Time
	now             func() time.Time
}

func NewTokenCounter(limits RateLimits) *TokenCounter {
	return &TokenCounter{limits: limits, now: time.Now}
}

func (tc *TokenCounter) resetExpired() {
	now := tc.now()

	if now.Sub(tc.lastMinuteReset) >= time.Minute {
		tc.minuteTokens = 0
		tc.minuteRequests = 0
		tc.lastMinuteReset = now
	}

	if now.Sub(tc.lastDayReset) >= 24*time.Hour {
		tc.dailyTokens = 0
		tc.dailyRequests = 0
		tc.lastDayReset = now
	}
}

// CanConsume reports whether the usage fits in the current windows.
func (tc *TokenCounter) CanConsume(tokens, requests int) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.resetExpired()

	if tc.minuteRequests+requests > tc.limits.RPM {
		return false
	}
	if tc.minuteTokens+tokens > tc.limits.TPM {
		return false
	}
	if tc.dailyRequests+requests > tc.limits.RPD {
		return false
	}

	return true
}

func (tc *TokenCounter) RecordUsage(tokens, requests int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.resetExpired()

	tc.minuteTokens += tokens
	tc.minuteRequests += requests
	tc.dailyTokens += tokens
	tc.dailyRequests += requests
}
