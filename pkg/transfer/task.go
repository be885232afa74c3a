// Package transfer runs cancelable, pausable units of work off the caller's
// goroutine and reports their progress.
package transfer

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrCancelled is returned by Checkpoint once the task has been cancelled.
var ErrCancelled = errors.New("transfer cancelled")

// IsCancelled reports whether err is a cooperative stop rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// State is the lifecycle position of a Task.
type State int

const (
	StatePending State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Gate is consulted by streaming loops once per chunk. It blocks while the
// work is paused and fails once it is cancelled.
type Gate interface {
	Checkpoint(ctx context.Context) error
}

type nopGate struct{}

func (nopGate) Checkpoint(ctx context.Context) error { return ctx.Err() }

// NopGate never pauses and only honours ctx.
var NopGate Gate = nopGate{}

// Canceller is implemented by results that represent a cooperative stop,
// such as a declined overwrite.
type Canceller interface {
	WasCancelled() bool
}

// Func is a unit of work. It must call t.Checkpoint between chunks to be
// stoppable.
type Func func(ctx context.Context, t *Task) (interface{}, error)

// Handlers receive task notifications. Any of them may be nil. OnResult and
// OnError are not called for a cancelled task; OnFinished always is.
type Handlers struct {
	OnProgress func(percent int)
	OnResult   func(result interface{})
	OnError    func(err error)
	OnFinished func(state State)
}

// Task is one unit of work with a cooperative cancel/pause flag pair.
type Task struct {
	ID   string
	Name string

	fn       Func
	handlers Handlers

	mu        sync.Mutex
	state     State
	cancelled bool
	paused    bool
	resume    chan struct{}
	progress  int
	result    interface{}
	err       error
	cancelCtx context.CancelFunc
	done      chan struct{}
}

// NewTask creates a pending task. It does nothing until Run is called.
func NewTask(name string, fn Func, h Handlers) *Task {
	return &Task{
		ID:       uuid.NewString(),
		Name:     name,
		fn:       fn,
		handlers: h,
		state:    StatePending,
		done:     make(chan struct{}),
	}
}

// Run executes the task on the calling goroutine and returns its final state.
func (t *Task) Run(ctx context.Context) State {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return t.finish(nil, ErrCancelled)
	}
	t.state = StateRunning
	t.cancelCtx = cancel
	t.mu.Unlock()

	result, err := t.fn(ctx, t)
	return t.finish(result, err)
}

func (t *Task) finish(result interface{}, err error) State {
	t.mu.Lock()
	var state State
	switch {
	case t.cancelled || IsCancelled(err):
		state = StateCancelled
	case err != nil:
		state = StateFailed
	default:
		state = StateCompleted
		if c, ok := result.(Canceller); ok && c.WasCancelled() {
			state = StateCancelled
		}
	}
	t.state = state
	t.paused = false
	t.result = result
	t.err = err
	if state == StateCompleted {
		t.progress = 100
	}
	t.cancelCtx = nil
	t.mu.Unlock()

	switch state {
	case StateCompleted:
		if t.handlers.OnResult != nil {
			t.handlers.OnResult(result)
		}
	case StateFailed:
		if t.handlers.OnError != nil {
			t.handlers.OnError(err)
		}
	}
	if t.handlers.OnFinished != nil {
		t.handlers.OnFinished(state)
	}
	close(t.done)
	return state
}

// Cancel stops the task. It is monotonic: a cancelled task never resumes.
// A paused task is released so it can observe the cancellation.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.state.Terminal() {
		return
	}
	t.cancelled = true
	if t.paused {
		t.paused = false
		close(t.resume)
	}
	if t.cancelCtx != nil {
		t.cancelCtx()
	}
}

// Pause blocks the task at its next checkpoint. Only a running task can be
// paused.
func (t *Task) Pause() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning || t.cancelled {
		return false
	}
	t.paused = true
	t.resume = make(chan struct{})
	t.state = StatePaused
	return true
}

// Resume releases a paused task.
func (t *Task) Resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePaused {
		return false
	}
	t.paused = false
	close(t.resume)
	t.state = StateRunning
	return true
}

// Checkpoint implements Gate.
func (t *Task) Checkpoint(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.cancelled {
			t.mu.Unlock()
			return ErrCancelled
		}
		if !t.paused {
			t.mu.Unlock()
			return ctx.Err()
		}
		resume := t.resume
		t.mu.Unlock()

		select {
		case <-resume:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Report converts a byte count into a percentage and notifies OnProgress
// when it changes.
func (t *Task) Report(done, total int64) {
	if total <= 0 {
		return
	}
	percent := int(done * 100 / total)
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	if percent == t.progress {
		t.mu.Unlock()
		return
	}
	t.progress = percent
	t.mu.Unlock()

	if t.handlers.OnProgress != nil {
		t.handlers.OnProgress(percent)
	}
}

// Done is closed once the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (State, error) {
	select {
	case <-t.done:
		return t.State(), nil
	case <-ctx.Done():
		return t.State(), ctx.Err()
	}
}

func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

func (t *Task) IsPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Result returns the value and error the work finished with.
func (t *Task) Result() (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// Snapshot is a point-in-time view of a task for listings.
type Snapshot struct {
	ID       string
	Name     string
	State    State
	Progress int
	Err      error
}

func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{ID: t.ID, Name: t.Name, State: t.state, Progress: t.progress, Err: t.err}
}
