package llm

import (
	"errors"
	"fmt"
)

// Failure kinds for completion service calls, mirroring the embedding
// package so callers apply one retry policy across both services.
var (
	ErrRateLimited  = errors.New("llm: rate limited")
	ErrTimeout      = errors.New("llm: request timed out")
	ErrTransport    = errors.New("llm: transport failure")
	ErrUnauthorized = errors.New("llm: authentication failed")
	ErrEmptyPrompt  = errors.New("llm: prompt cannot be empty")

	// ErrNoContext is returned by the synthesizer when there are no
	// retrieved passages and no fallback answer is configured.
	ErrNoContext = errors.New("llm: no context available for synthesis")
)

// ServiceError is the typed error returned by completion clients.
type ServiceError struct {
	Kind     error  // one of the Err* sentinels above
	Provider string // client name, e.g. "openai"
	Err      error  // underlying cause, may be nil
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v (provider=%s): %v", e.Kind, e.Provider, e.Err)
	}
	return fmt.Sprintf("%v (provider=%s)", e.Kind, e.Provider)
}

func (e *ServiceError) Unwrap() error { return e.Err }

func (e *ServiceError) Is(target error) bool { return target == e.Kind }

func newServiceError(provider string, kind, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Provider: provider, Err: cause}
}
