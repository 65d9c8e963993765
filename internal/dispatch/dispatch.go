// Package dispatch hands execution units to freshly spawned goroutines.
//
// Two entry points exist:
//   - Join runs the unit on a new goroutine and blocks until it has fully
//     returned. Everything the unit did is visible to the caller afterwards.
//   - Detach runs the unit on a new goroutine and returns at once. It is
//     fire-and-forget: no completion or failure signal ever comes back
//     through Detach. A unit that can fail must report through a side
//     channel such as a manager.Sink, or its failure is lost.
//
// Neither entry point cancels, retries or times out a unit by default. Each
// unit runs exactly once per call.
package dispatch

import (
	"errors"
	"time"

	"github.com/shinji-kodama/procman/internal/manager"
	"github.com/shinji-kodama/procman/internal/safe"
)

// ErrTimeout is returned by JoinTimeout when the unit outlives the wait.
// The unit keeps running.
var ErrTimeout = errors.New("dispatch: join timed out")

// Unit is a schedulable piece of work with a single entry point.
type Unit interface {
	Execute()
}

// UnitFunc adapts a plain function to the Unit interface.
type UnitFunc func()

// Execute calls f.
func (f UnitFunc) Execute() {
	f()
}

// Join spawns a goroutine for unit and blocks until it returns. If the
// unit panics, the panic is re-raised on the calling goroutine after the
// spawned goroutine has finished.
func Join(unit Unit) {
	var recovered any
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			recovered = recover()
		}()
		unit.Execute()
	}()

	<-done
	if recovered != nil {
		panic(recovered)
	}
}

// JoinTimeout is Join with an upper bound on the wait. When d elapses first
// it returns ErrTimeout and leaves the unit running. A non-positive d
// waits without bound, exactly like Join. A panic inside the unit is
// returned as a CustomError fault instead of being re-raised.
func JoinTimeout(unit Unit, d time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- safe.Guard(unit.Execute)
	}()

	if d <= 0 {
		return <-done
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return ErrTimeout
	}
}

// Detach spawns a goroutine for unit and returns without waiting. The
// caller's wait does not depend on how long the unit takes.
//
// A panic inside a detached unit is recovered so it cannot take the
// process down, and is then dropped. Use a Gateway with a sink to have it
// reported.
func Detach(unit Unit) {
	go func() {
		_ = safe.Guard(unit.Execute)
	}()
}

// report forwards a detached unit's panic to sink.
func report(sink manager.Sink, err error) {
	if err != nil {
		manager.Notify(sink, "detached unit failed", "error", err)
	}
}
