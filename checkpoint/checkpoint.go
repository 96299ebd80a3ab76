// Package checkpoint decorates errors with the file and line of the caller,
// which results in something similar to a stacktrace when checkpoints stack
// up along the return path. Both the decorated error and every error added
// on the way stay checkable by errors.Is and retrievable by errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From wraps an error by a new checkpoint which records the caller position.
// It returns nil if err == nil.
func From(err error) error {
	// io.EOF and io.ErrUnexpectedEOF must be returned unwrapped, the
	// standard library compares them by identity in several places.
	// https://github.com/golang/go/issues/39155
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return err
	}
	if err == nil {
		return nil
	}

	return newCheckpoint(err, nil)
}

// Wrap records a checkpoint for prev and attaches err as an additional
// describing error. It returns nil if prev == nil.
//
// This allows predefining sentinel errors and attaching them on the way up:
//  var ErrBrokenThing = errors.New("the thing broke")
//  func do() error {
//  	return checkpoint.Wrap(somethingFailed(), ErrBrokenThing)
//  }
// The result matches errors.Is for both ErrBrokenThing and whatever
// somethingFailed returned.
func Wrap(prev, err error) error {
	if prev == io.EOF {
		return io.EOF
	}
	if prev == nil {
		return nil
	}

	return newCheckpoint(err, prev)
}

func newCheckpoint(err, prev error) *checkpoint {
	c := &checkpoint{
		err:  err,
		prev: prev,
	}

	// Skip newCheckpoint and the exported wrapper.
	if _, file, line, ok := runtime.Caller(2); ok {
		c.caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	return c
}

type checkpoint struct {
	err    error
	prev   error
	caller string
}

func (e *checkpoint) Error() string {
	caller := e.caller
	if caller == "" {
		caller = "unknown"
	}

	if e.prev == nil {
		return fmt.Sprintf("File: %s\n\t%v", caller, e.err)
	}

	// Indent the previous error unless it is a checkpoint itself, which
	// already formats its own position line.
	prevText := e.prev.Error()
	if _, ok := e.prev.(*checkpoint); !ok {
		prevText = "File: unknown\n\t" + strings.ReplaceAll(prevText, "\n", "\n\t")
	}

	return fmt.Sprintf("File: %s\n\t%v\n%v", caller, e.err, prevText)
}

func (e *checkpoint) Unwrap() error {
	return e.prev
}

func (e *checkpoint) Is(target error) bool {
	return errors.Is(e.err, target)
}

func (e *checkpoint) As(target interface{}) bool {
	return errors.As(e.err, target)
}
