package sheets

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a Store call failed.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindUnreachable ErrorKind = "unreachable"
	KindStatus      ErrorKind = "status"
	KindDecode      ErrorKind = "decode"
)

// ErrTimeout matches any StoreError caused by the abandon timer firing.
var ErrTimeout = errors.New("store request timed out")

// StoreError is returned for every failed Store call.
type StoreError struct {
	Action     string
	Kind       ErrorKind
	StatusCode int
	Body       string // truncated response body, for logs
	Err        error
}

func (e *StoreError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("store %s: status %d: %s", e.Action, e.StatusCode, e.Body)
	default:
		if e.Err != nil {
			return fmt.Sprintf("store %s: %s: %v", e.Action, e.Kind, e.Err)
		}
		return fmt.Sprintf("store %s: %s", e.Action, e.Kind)
	}
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrTimeout) match timeouts.
func (e *StoreError) Is(target error) bool {
	return target == ErrTimeout && e.Kind == KindTimeout
}

// IsTimeout reports whether err came from the abandon timer.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// KindOf returns the failure kind of err, or "" when err is not a StoreError.
func KindOf(err error) ErrorKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
