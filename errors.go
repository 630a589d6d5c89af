package gentloop

import (
	"errors"
	"fmt"
)

var (
	// ErrToolNotFound is returned when a tool name is absent from a registry.
	ErrToolNotFound = errors.New("gentloop: tool not found")

	// ErrInvalidArguments marks a tool call whose arguments failed schema validation.
	ErrInvalidArguments = errors.New("gentloop: invalid tool arguments")

	// ErrNoDriver is returned when a loop is built without a decision source.
	ErrNoDriver = errors.New("gentloop: no driver configured")

	// ErrFatal marks an error that must stop the loop with [StatusFailed].
	// Tools wrap errors with [Fatal] to escalate them; all other tool errors are
	// recorded on the step and the loop keeps going.
	ErrFatal = errors.New("gentloop: fatal")
)

// fatalError carries the original error while matching [ErrFatal].
type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) Unwrap() []error {
	return []error{ErrFatal, e.err}
}

// Fatal wraps err so that the loop treats it as unrecoverable.
// Returns nil if err is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrFatal) {
		return err
	}
	return &fatalError{err: err}
}

// Fatalf is like [Fatal] with a formatted message.
func Fatalf(format string, args ...any) error {
	return Fatal(fmt.Errorf(format, args...))
}

// IsFatal reports whether err was marked with [Fatal].
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
