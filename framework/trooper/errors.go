package trooper

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

var (
	// ErrTeardownFailed is matched by every LifecycleError.
	ErrTeardownFailed = errors.New("trooper: teardown failed")

	// ErrRestartAfterFailedStop is returned by Start once a Stop has failed.
	ErrRestartAfterFailedStop = errors.New("trooper: cannot restart after a failed stop")
)

// Kind says what failed during a stop.
type Kind string

const (
	KindListener Kind = "listener"
	KindTrooper  Kind = "trooper"
)

// Failure is one failed listener or trooper.
type Failure struct {
	Kind Kind
	Name string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Kind, f.Name, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// LifecycleError aggregates every failure of one Stop call.
type LifecycleError struct {
	Failures []Failure
	combined error
}

func newLifecycleError(listeners, troopers []Failure) *LifecycleError {
	e := &LifecycleError{}
	for _, f := range append(append([]Failure{}, listeners...), troopers...) {
		e.Failures = append(e.Failures, f)
		e.combined = multierr.Append(e.combined, f)
	}
	return e
}

func (e *LifecycleError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "trooper: stop failed with %d error(s):", len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("\n  - ")
		b.WriteString(f.Error())
	}
	return b.String()
}

func (e *LifecycleError) Unwrap() []error { return multierr.Errors(e.combined) }

func (e *LifecycleError) Is(target error) bool { return target == ErrTeardownFailed }

// Names returns the names of the failed listeners or troopers of kind k.
func (e *LifecycleError) Names(k Kind) []string {
	var out []string
	for _, f := range e.Failures {
		if f.Kind == k {
			out = append(out, f.Name)
		}
	}
	return out
}

// guard runs fn, turning a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", rerr)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
