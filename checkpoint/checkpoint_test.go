package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

var errSentinel = errors.New("the thing broke")

type timeoutError struct{}

func (timeoutError) Error() string { return "timed out" }

func TestFrom(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if err := From(nil); err != nil {
			t.Errorf("From(nil) = %v, want nil", err)
		}
	})

	t.Run("io.EOF passes through unwrapped", func(t *testing.T) {
		if err := From(io.EOF); err != io.EOF {
			t.Errorf("From(io.EOF) = %v, want io.EOF", err)
		}
		if err := From(io.ErrUnexpectedEOF); err != io.ErrUnexpectedEOF {
			t.Errorf("From(io.ErrUnexpectedEOF) = %v, want io.ErrUnexpectedEOF", err)
		}
	})

	t.Run("stays checkable", func(t *testing.T) {
		err := From(errSentinel)
		if !errors.Is(err, errSentinel) {
			t.Errorf("errors.Is() = false for the wrapped error")
		}
	})

	t.Run("records the caller", func(t *testing.T) {
		err := From(errSentinel)
		if !strings.Contains(err.Error(), "checkpoint_test.go") {
			t.Errorf("Error() = %q, want the caller position in it", err.Error())
		}
		if !strings.Contains(err.Error(), errSentinel.Error()) {
			t.Errorf("Error() = %q, want the original message in it", err.Error())
		}
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if err := Wrap(nil, errSentinel); err != nil {
			t.Errorf("Wrap(nil, ...) = %v, want nil", err)
		}
	})

	t.Run("io.EOF passes through unwrapped", func(t *testing.T) {
		if err := Wrap(io.EOF, errSentinel); err != io.EOF {
			t.Errorf("Wrap(io.EOF, ...) = %v, want io.EOF", err)
		}
	})

	t.Run("both errors stay checkable", func(t *testing.T) {
		cause := errors.New("seek failed")
		err := Wrap(cause, errSentinel)
		if !errors.Is(err, errSentinel) {
			t.Errorf("errors.Is() = false for the attached error")
		}
		if !errors.Is(err, cause) {
			t.Errorf("errors.Is() = false for the previous error")
		}
	})

	t.Run("stacked checkpoints keep the whole chain checkable", func(t *testing.T) {
		inner := From(errors.New("read failed"))
		middle := Wrap(inner, errSentinel)
		outer := From(middle)

		if !errors.Is(outer, errSentinel) {
			t.Errorf("errors.Is() = false for the sentinel in the middle")
		}
		if !errors.Is(outer, inner) {
			t.Errorf("errors.Is() = false for the innermost checkpoint")
		}
	})

	t.Run("errors.As reaches the attached error", func(t *testing.T) {
		err := From(Wrap(errors.New("read failed"), timeoutError{}))

		var target timeoutError
		if !errors.As(err, &target) {
			t.Errorf("errors.As() = false, want the attached error type")
		}
	})
}

func TestCheckpoint_Error(t *testing.T) {
	cause := fmt.Errorf("read sector 7: %w", errors.New("device gone"))
	err := Wrap(cause, errSentinel)

	text := err.Error()
	for _, want := range []string{"checkpoint_test.go", errSentinel.Error(), cause.Error()} {
		if !strings.Contains(text, want) {
			t.Errorf("Error() = %q, want %q in it", text, want)
		}
	}
}
