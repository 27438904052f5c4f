package llm

import "fmt"

// ErrorKind classifies a provider failure for HTTP status mapping.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "AUTHENTICATION"
	KindRateLimit      ErrorKind = "RATE_LIMIT"
	KindValidation     ErrorKind = "VALIDATION"
	KindUnavailable    ErrorKind = "UNAVAILABLE"
)

// ModelError is a typed provider failure. Status is the upstream HTTP status
// when one was received, zero for transport-level failures.
type ModelError struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Err      error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s provider %s (status %d)", e.Provider, e.Kind, e.Status)
}

func (e *ModelError) Unwrap() error { return e.Err }

// classifyStatus maps an upstream HTTP status to an error kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return KindAuthentication
	case status == 429:
		return KindRateLimit
	case status == 400 || status == 422:
		return KindValidation
	default:
		return KindUnavailable
	}
}
