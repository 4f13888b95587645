package llm

import (
	"errors"
	"fmt"
)

// ConfigError reports a provider that cannot be used because no credential is
// configured. It is raised before any network attempt and is never retried
// against the same provider.
type ConfigError struct {
	Provider string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %s: no API key configured", e.Provider)
}

// ProviderError reports a failed provider call, embedding provider name,
// model and the service's message.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int // HTTP status when known, 0 otherwise
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s (model %s): %d %s", e.Provider, e.Model, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s (model %s): %s", e.Provider, e.Model, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func asAPIError(err error, target any) bool {
	return errors.As(err, target)
}
