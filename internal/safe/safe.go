// Package safe implements the two fault-containment policies used by
// procman helpers.
//
// OrDefault is the legacy convention: the body runs inside a scoped
// recover block and any error or panic is replaced by a fixed default.
// Callers of an OrDefault helper cannot tell a computed default apart from
// a fault that was defaulted. That ambiguity is part of the contract and is
// only acceptable for display helpers whose output is never acted upon.
//
// Try is the tagged alternative: it returns a Result that must be checked
// with OK or Err before the value is trusted. New helpers use Try.
package safe

import (
	"fmt"

	"github.com/shinji-kodama/procman/internal/model"
)

// OrDefault runs fn and returns its value, or def if fn returns an error
// or panics. The fault is discarded: a returned def may be a genuine
// result or a swallowed failure, and nothing distinguishes the two.
func OrDefault[T any](def T, fn func() (T, error)) (out T) {
	defer func() {
		if r := recover(); r != nil {
			out = def
		}
	}()

	v, err := fn()
	if err != nil {
		return def
	}
	return v
}

// Result is a tagged outcome: either a value or an error, never both.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// OK reports whether the result holds a value.
func (r Result[T]) OK() bool {
	return r.ok
}

// Value returns the held value. It is the zero value when OK is false.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the fault that produced this result, or nil.
func (r Result[T]) Err() error {
	return r.err
}

// Unpack returns the value and the error in the usual Go order.
func (r Result[T]) Unpack() (T, error) {
	return r.value, r.err
}

// Or returns the held value, or def when the result is a fault.
// Unlike OrDefault, the caller chose to discard the fault explicitly.
func (r Result[T]) Or(def T) T {
	if !r.ok {
		return def
	}
	return r.value
}

// Ok wraps a value in a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Fail wraps an error in a failed Result.
func Fail[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Try runs fn inside a scoped recover block. Errors are returned as-is in
// the Result; a panic becomes a CustomError fault describing the
// recovered value.
func Try[T any](fn func() (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Fail[T](Recovered(r))
		}
	}()

	v, err := fn()
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// Guard runs fn and converts a panic into a CustomError fault.
func Guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Recovered(r)
		}
	}()
	fn()
	return nil
}

// Recovered converts a value obtained from recover into a fault.
// An error value is kept in the chain.
func Recovered(r any) error {
	if err, ok := r.(error); ok {
		return model.WrapFault(model.CustomError, "recovered panic", err)
	}
	return model.NewFault(model.CustomError, fmt.Sprintf("recovered panic: %v", r))
}
