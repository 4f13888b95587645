package orchestrator

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/time/rate"

	"github.com/finsight-ai/finsight/ai/llm"
)

// maxAttempts caps a single orchestrated call at this many providers, no
// matter how long the priority list is.
const maxAttempts = 3

// Notifier surfaces transient fallback messages to the user-facing layer.
// Optional; a nil notifier drops the events.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Observer receives per-attempt outcomes for metrics. Optional.
type Observer interface {
	RecordAttempt(provider, outcome string)
	RecordFallback(provider string)
}

// Result is the outcome of a successful orchestrated call.
type Result struct {
	Text     string
	Provider string
	Attempt  int // 1-based; >1 means a fallback served the call
}

// Fallback reports whether a provider other than the first choice answered.
func (r *Result) Fallback() bool {
	return r.Attempt > 1
}

// Orchestrator invokes backend adapters sequentially in priority order.
// Attempts are strictly sequential: the fallback decision depends on the
// prior attempt's failure classification, so there is no concurrency and no
// mid-chain cancellation beyond the caller's context.
type Orchestrator struct {
	registry map[string]llm.Adapter
	priority func() []string
	limiters map[string]*rate.Limiter
	notifier Notifier
	observer Observer
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier installs a sink for fallback notifications.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithObserver installs a metrics observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithRateLimiter installs a client-side limiter for one provider. A denied
// token is treated like a rate-limited failure and consumes an attempt.
func WithRateLimiter(provider string, limiter *rate.Limiter) Option {
	return func(o *Orchestrator) { o.limiters[provider] = limiter }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an Orchestrator over a registry of adapters keyed by provider
// id. priority is read on every call so user reordering takes effect
// immediately.
func New(registry map[string]llm.Adapter, priority func() []string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		priority: priority,
		limiters: make(map[string]*rate.Limiter),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Providers returns the registered provider ids, sorted for stable output.
func (o *Orchestrator) Providers() []string {
	ids := make([]string, 0, len(o.registry))
	for id := range o.registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// attemptOrder builds the providers to try: the user priority order filtered
// to registered adapters with a configured credential, capped at maxAttempts.
func (o *Orchestrator) attemptOrder() []llm.Adapter {
	var order []llm.Adapter
	for _, id := range o.priority() {
		adapter, ok := o.registry[id]
		if !ok || !adapter.Configured() {
			continue
		}
		order = append(order, adapter)
		if len(order) == maxAttempts {
			break
		}
	}
	return order
}

// Call runs the fallback chain for one prompt. It returns on the first
// successful provider; a rate-limited or configuration failure moves on to
// the next provider, any other failure aborts the whole chain with that
// error. Exhaustion yields an *ExhaustionError naming the last provider.
func (o *Orchestrator) Call(ctx context.Context, prompt string, metadata string) (*Result, error) {
	order := o.attemptOrder()
	if len(order) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	var lastProvider string

	for i, adapter := range order {
		attempt := i + 1
		lastProvider = adapter.Name()

		if limiter, ok := o.limiters[adapter.Name()]; ok && !limiter.Allow() {
			o.logger.Warn("orchestrator: provider throttled locally",
				"provider", adapter.Name(), "attempt", attempt)
			o.recordAttempt(adapter.Name(), "throttled")
			lastErr = &llm.ProviderError{
				Provider: adapter.Name(),
				Model:    adapter.Model(),
				Message:  "client-side rate limit exceeded",
			}
			continue
		}

		text, err := adapter.Call(ctx, prompt, metadata)
		if err == nil {
			o.recordAttempt(adapter.Name(), "success")
			if attempt > 1 {
				o.logger.Info("orchestrator: fallback provider succeeded",
					"provider", adapter.Name(), "attempt", attempt)
				if o.observer != nil {
					o.observer.RecordFallback(adapter.Name())
				}
				if o.notifier != nil {
					o.notifier.Notify(ctx, "Primary provider unavailable; answered via "+adapter.Name())
				}
			}
			return &Result{Text: text, Provider: adapter.Name(), Attempt: attempt}, nil
		}

		lastErr = err
		class := Classify(err)
		o.recordAttempt(adapter.Name(), class.String())
		o.logger.Warn("orchestrator: provider attempt failed",
			"provider", adapter.Name(),
			"attempt", attempt,
			"class", class.String(),
			"error", err,
		)

		switch class {
		case ErrorClassRateLimited, ErrorClassConfig:
			continue
		default:
			// Fatal failures abort the entire chain, not just this provider.
			return nil, err
		}
	}

	return nil, &ExhaustionError{
		Attempts:     len(order),
		LastProvider: lastProvider,
		Err:          lastErr,
	}
}

func (o *Orchestrator) recordAttempt(provider, outcome string) {
	if o.observer != nil {
		o.observer.RecordAttempt(provider, outcome)
	}
}
