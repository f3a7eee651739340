package backend

import "fmt"

// AppError is an application-level rejection: the collaborator answered with
// a JSON error envelope. Status carries the HTTP code it arrived with.
type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}

// TransportError is everything below the application: network failures,
// undecodable bodies, and non-2xx responses without an error envelope.
// Status is zero when the request never produced a response.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend: %s: unexpected status %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }
