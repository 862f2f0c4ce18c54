package protect

import "fmt"

// AuthError means the login handshake or credential check failed. It is
// fatal to the dispatch that triggered it.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protect auth: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("protect auth: %s", e.Op)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError means the controller does not know the requested event.
type NotFoundError struct {
	EventID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("protect: event %s not found", e.EventID)
}

// TransportError covers network failures, timeouts, and unexpected statuses
// from the controller.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protect: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("protect: %s: unexpected status %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }
