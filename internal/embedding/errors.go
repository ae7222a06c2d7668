package embedding

import (
	"errors"
	"fmt"
)

// Failure kinds for embedding service calls. Rate limiting and
// timeouts are transient and may be retried by the caller; the client
// itself never retries.
var (
	ErrRateLimited  = errors.New("embedding: rate limited")
	ErrTimeout      = errors.New("embedding: request timed out")
	ErrTransport    = errors.New("embedding: transport failure")
	ErrUnauthorized = errors.New("embedding: authentication failed")
	ErrInvalidInput = errors.New("embedding: invalid input")
	ErrEmptyInput   = errors.New("embedding: input text cannot be empty")
)

// ServiceError is the typed error returned by embedding clients. It
// binds a failure kind to the provider and underlying cause so callers
// can route retry policy with errors.Is.
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
