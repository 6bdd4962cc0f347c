package servicestatus

import (
	"fmt"

	"golang.org/x/xerrors"
)

var (
	// ErrNotStarted is returned by every registry operation while the registry is not running.
	ErrNotStarted = xerrors.New("not started")
	// ErrAlreadyRegistered is returned when registering a name that already has a live record.
	ErrAlreadyRegistered = xerrors.New("already registered")
	// ErrNotRegistered is returned when an operation targets a name without a live record.
	ErrNotRegistered = xerrors.New("not registered")
	// ErrIllegalTransition is reported when an event is not valid in the current status.
	ErrIllegalTransition = xerrors.New("illegal transition")
	// ErrInvalidStatus is returned when registering a service in an undeclared status.
	ErrInvalidStatus = xerrors.New("invalid status")
	// ErrTimeout is returned when the registry did not answer within the request timeout.
	//
	// A timed out request may still be processed by the registry.
	ErrTimeout = xerrors.New("request timed out")
)

// NotStartedError is returned when a registry is called while it is not running.
type NotStartedError struct {
	Registry string
}

func (e *NotStartedError) Error() string {
	return fmt.Sprintf("registry %s: %v", e.Registry, ErrNotStarted)
}

// Is reports whether target is ErrNotStarted.
func (e *NotStartedError) Is(target error) bool {
	return target == ErrNotStarted
}

// AlreadyRegisteredError is returned on duplicate registration of Name.
type AlreadyRegisteredError struct {
	Name string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("service %s: %v", e.Name, ErrAlreadyRegistered)
}

// Is reports whether target is ErrAlreadyRegistered.
func (e *AlreadyRegisteredError) Is(target error) bool {
	return target == ErrAlreadyRegistered
}

// NotRegisteredError is returned when Name has no live record.
type NotRegisteredError struct {
	Name string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("service %s: %v", e.Name, ErrNotRegistered)
}

// Is reports whether target is ErrNotRegistered.
func (e *NotRegisteredError) Is(target error) bool {
	return target == ErrNotRegistered
}
