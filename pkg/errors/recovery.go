// Panic recovery. A panic inside Fit or Predict becomes a PanicError carrying
// the stack at the point of failure, and the estimator is left untrained.

package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// PanicError は回復されたpanicから作られたエラーです。
type PanicError struct {
	// PanicValue is the value passed to panic.
	PanicValue interface{}

	// StackTrace is the stack of the panicking goroutine.
	StackTrace string

	// Operation names the method that recovered the panic.
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// ErrorKind implements the kind classification.
func (e *PanicError) ErrorKind() Kind { return KindInternal }

// String includes the stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// MarshalZerologObject はzerologのイベントにpanic情報を追加します。
func (e *PanicError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("operation", e.Operation).
		Str("panic_value", fmt.Sprint(e.PanicValue)).
		Str("stacktrace", e.StackTrace)
}

// NewPanicError records panicValue together with the current stack.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover converts a panic into an error assigned to *err. Use it with defer
// on a named error result:
//
//	func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "DecisionTreeClassifier.Fit")
//	    ...
//	}
//
// An error already stored in *err is kept as the cause.
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
		return
	}
	*err = NewPanicError(operation, r)
}
