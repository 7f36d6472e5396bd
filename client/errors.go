package client

import "fmt"

// UnknownModelError is returned when a model name is not in the
// registry.  With a fixed catalog this indicates a configuration
// error, not a user error.
type UnknownModelError struct {
	Model string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("model %q not found", e.Model)
}

// MissingKeyError is returned before any network call is made when the
// credential slot for the selected model is empty.
type MissingKeyError struct {
	Provider string
	Slot     string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("no API key configured for %s -- use the key command to set %s", e.Provider, e.Slot)
}

// ProviderError is returned when a provider responds with a non-2xx
// status.  Message is the provider-supplied error message verbatim if
// one could be parsed from the response body, otherwise a generic
// provider-specific fallback.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// MalformedResponseError is returned when a provider responds with a
// 2xx status but the body is missing the fields we extract the reply
// from.  This is a recoverable per-turn failure, not a fault.
type MalformedResponseError struct {
	Provider string
	Detail   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Provider, e.Detail)
}

// TransportError is returned for network-level failures below the HTTP
// layer.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
