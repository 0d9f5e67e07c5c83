package errors

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecover_WithPanic(t *testing.T) {
	grow := func() (err error) {
		defer Recover(&err, "DecisionTreeClassifier.Fit")
		panic("node index out of range")
	}

	err := grow()
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "DecisionTreeClassifier.Fit", panicErr.Operation)
	assert.Equal(t, "node index out of range", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in DecisionTreeClassifier.Fit: node index out of range", panicErr.Error())
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestRecover_WithoutPanic(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err, "Predict")
		return nil
	}
	assert.NoError(t, fn())
}

func TestRecover_WithExistingError(t *testing.T) {
	originalErr := fmt.Errorf("original error")

	fn := func() (err error) {
		defer Recover(&err, "Fit")
		err = originalErr
		panic("panic after error")
	}

	err := fn()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in Fit")
	assert.Contains(t, err.Error(), "original error")
	assert.True(t, errors.Is(err, originalErr))
}

func TestPanicError_Interface(t *testing.T) {
	panicErr := NewPanicError("TestOp", "test value")
	var buf bytes.Buffer

	assert.Equal(t, "panic in TestOp: test value", panicErr.Error())
	assert.Contains(t, panicErr.String(), "Stack trace:")
	assert.Contains(t, panicErr.String(), "panic in TestOp: test value")
	assert.Nil(t, panicErr.Unwrap())

	logger := zerolog.New(&buf)
	ev := logger.Info()
	panicErr.MarshalZerologObject(ev)
	ev.Send()
	assert.Contains(t, buf.String(), `"operation":"TestOp"`)
	assert.Contains(t, buf.String(), `"panic_value":"test value"`)

	cause := NewMemoryError("grow", 64)
	wrapped := NewPanicError("Fit", cause)
	assert.Equal(t, cause, wrapped.Unwrap())
}

func TestRecover_DifferentPanicTypes(t *testing.T) {
	testCases := []struct {
		name          string
		panicValue    interface{}
		expectedValue interface{}
	}{
		{"string panic", "string panic", "string panic"},
		{"int panic", 42, 42},
		{"error panic", fmt.Errorf("error as panic"), fmt.Errorf("error as panic")},
		{"nil panic", nil, "panic called with nil argument"},
		{"struct panic", struct{ Msg string }{"struct message"}, struct{ Msg string }{"struct message"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fn := func() (err error) {
				defer Recover(&err, "TypeTest")
				panic(tc.panicValue)
			}

			var panicErr *PanicError
			require.True(t, errors.As(fn(), &panicErr))
			assert.Contains(t, fmt.Sprintf("%v", panicErr.PanicValue), fmt.Sprintf("%v", tc.expectedValue))
		})
	}
}

func BenchmarkRecover_NoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		func() (err error) {
			defer Recover(&err, "BenchmarkOp")
			return nil
		}()
	}
}
