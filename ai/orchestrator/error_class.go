// Package orchestrator owns the provider fallback chain: it invokes backend
// adapters in user-priority order, classifies failures, and decides whether
// to fall back to the next provider or abort.
package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/finsight-ai/finsight/ai/llm"
)

// ErrorClass represents the category of a provider failure for fallback
// decisions.
type ErrorClass int

const (
	// ErrorClassRateLimited marks quota/rate-limit failures. The chain
	// continues with the next provider.
	ErrorClassRateLimited ErrorClass = iota

	// ErrorClassFatal marks every other provider failure. The chain aborts
	// immediately without trying further providers.
	ErrorClassFatal

	// ErrorClassConfig marks a missing-credential failure raised before any
	// network attempt. The chain skips to the next provider.
	ErrorClassConfig
)

// String returns the string representation of ErrorClass.
func (e ErrorClass) String() string {
	switch e {
	case ErrorClassRateLimited:
		return "rate_limited"
	case ErrorClassFatal:
		return "fatal"
	case ErrorClassConfig:
		return "config"
	default:
		return "unknown"
	}
}

// rateLimitPatterns are matched case-insensitively against provider error
// text to recognize quota exhaustion across heterogeneous providers.
var rateLimitPatterns = []string{
	"429",
	"quota",
	"rate limit",
	"rate_limit",
	"rate-limit",
	"resource-exhausted",
	"resource_exhausted",
	"too many requests",
	"insufficient_quota",
	"overloaded",
	"throttl",
}

// Classify determines whether a provider failure should trigger fallback.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorClassFatal
	}

	var configErr *llm.ConfigError
	if errors.As(err, &configErr) {
		return ErrorClassConfig
	}

	var providerErr *llm.ProviderError
	if errors.As(err, &providerErr) && providerErr.StatusCode == 429 {
		return ErrorClassRateLimited
	}

	errMsg := strings.ToLower(err.Error())
	for _, pattern := range rateLimitPatterns {
		if strings.Contains(errMsg, pattern) {
			return ErrorClassRateLimited
		}
	}

	return ErrorClassFatal
}

// ExhaustionError reports that every attempted provider failed. It carries
// the last provider tried and its error.
type ExhaustionError struct {
	Attempts     int
	LastProvider string
	Err          error
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("all %d provider attempts failed; last provider %s: %v",
		e.Attempts, e.LastProvider, e.Err)
}

func (e *ExhaustionError) Unwrap() error {
	return e.Err
}

// ErrNoProviders is returned when the priority order contains no provider
// with a configured credential.
var ErrNoProviders = errors.New("no configured providers available")
