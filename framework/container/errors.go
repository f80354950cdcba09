package container

import (
	"errors"
	"fmt"
)

var (
	// ErrRequiredInjection marks a required config/external marker that could
	// not be resolved or type-matched.
	ErrRequiredInjection = errors.New("container: required injection failed")

	// ErrStartupFailed marks an aborted prepare(). A container that returned it
	// can never be prepared again.
	ErrStartupFailed = errors.New("container: startup failed")

	// ErrNotPrepared is returned by lookups on a container that is not Ready.
	ErrNotPrepared = errors.New("container: not prepared")

	// ErrNoBinding is returned when nothing is bound under a key.
	ErrNoBinding = errors.New("container: no binding")

	ErrCircularDependency = errors.New("container: circular dependency")
	ErrDuplicateBinding   = errors.New("container: duplicate binding")
	ErrInvalidDescriptor  = errors.New("container: invalid descriptor")
)

// InjectionError describes one failed injection point.
type InjectionError struct {
	Component string // concrete type name
	Target    string // field or method name
	Key       string
	Required  bool
	Reason    string
	Cause     error
}

func (e *InjectionError) Error() string {
	kind := "optional"
	if e.Required {
		kind = "required"
	}
	return fmt.Sprintf("container: %s injection failed on %s#%s (key %q): %s",
		kind, e.Component, e.Target, e.Key, e.Reason)
}

// Is reports required failures as ErrRequiredInjection.
func (e *InjectionError) Is(target error) bool {
	return target == ErrRequiredInjection && e.Required
}

func (e *InjectionError) Unwrap() error { return e.Cause }

// StartupError wraps the failure that aborted a preload.
type StartupError struct {
	Trooper string
	Key     Key
	Cause   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("container %s: startup failed while preloading %s: %v", e.Trooper, e.Key, e.Cause)
}

func (e *StartupError) Unwrap() error { return e.Cause }

func (e *StartupError) Is(target error) bool { return target == ErrStartupFailed }

// panicError converts a recovered panic into an error.
func panicError(where string, r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%s: panic: %w", where, err)
	}
	return fmt.Errorf("%s: panic: %v", where, r)
}

// guard runs fn, turning a panic into an error.
func guard(where string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(where, r)
		}
	}()
	return fn()
}
