package runner

import (
	"context"
	"sync"

	"github.com/shinji-kodama/procman/internal/model"
)

// Call is one invocation observed by a Recorder.
type Call struct {
	Argv model.Command
	Dir  string
}

// Recorder is a Runner that records every call and answers with scripted
// results. Unscripted calls succeed with empty output. It is safe for
// concurrent use.
type Recorder struct {
	mu      sync.Mutex
	calls   []Call
	results map[string]Result
	errs    map[string]error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		results: make(map[string]Result),
		errs:    make(map[string]error),
	}
}

// Respond scripts the result returned for an exact argv.
func (r *Recorder) Respond(argv model.Command, res Result) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[argv.String()] = res
	return r
}

// Fail scripts a start error returned for an exact argv.
func (r *Recorder) Fail(argv model.Command, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[argv.String()] = err
	return r
}

// Run records the call and returns the scripted outcome.
func (r *Recorder) Run(_ context.Context, argv []string, dir string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := model.Command(argv).Clone()
	r.calls = append(r.calls, Call{Argv: cmd, Dir: dir})

	if err, ok := r.errs[cmd.String()]; ok {
		return Result{ExitStatus: -1}, err
	}
	return r.results[cmd.String()], nil
}

// Calls returns a copy of the recorded calls in invocation order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Argvs returns just the argv of each recorded call.
func (r *Recorder) Argvs() []model.Command {
	calls := r.Calls()
	out := make([]model.Command, len(calls))
	for i, c := range calls {
		out[i] = c.Argv
	}
	return out
}
