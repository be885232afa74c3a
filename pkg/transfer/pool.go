package transfer

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"pan123/pkg/metrics"
)

// DefaultPoolSize bounds how many tasks run at once.
const DefaultPoolSize = 64

// Pool executes tasks with bounded concurrency and keeps them addressable
// by id until removed.
type Pool struct {
	sem     chan struct{}
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
	wg    sync.WaitGroup
}

// NewPool creates a pool running at most size tasks concurrently.
func NewPool(size int, logger *zap.Logger, m *metrics.Metrics) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		sem:     make(chan struct{}, size),
		logger:  logger,
		metrics: m,
		tasks:   make(map[string]*Task),
	}
}

// Submit queues fn and returns its task immediately. The task stays
// pending until a slot frees up.
func (p *Pool) Submit(ctx context.Context, name string, fn Func, h Handlers) *Task {
	t := NewTask(name, fn, h)

	p.mu.Lock()
	p.tasks[t.ID] = t
	p.order = append(p.order, t.ID)
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.sem <- struct{}{}:
		case <-ctx.Done():
			t.Cancel()
			t.Run(ctx)
			return
		}
		defer func() { <-p.sem }()

		p.metrics.TaskStarted()
		p.logger.Debug("Task started", zap.String("task_id", t.ID), zap.String("name", name))

		state := t.Run(ctx)

		p.metrics.TaskFinished(state.String())
		if _, err := t.Result(); err != nil && state == StateFailed {
			p.logger.Warn("Task failed", zap.String("task_id", t.ID), zap.String("name", name), zap.Error(err))
		} else {
			p.logger.Debug("Task finished", zap.String("task_id", t.ID), zap.Stringer("state", state))
		}
	}()

	return t
}

// Get returns the task with id.
func (p *Pool) Get(id string) (*Task, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tasks[id]
	return t, ok
}

func (p *Pool) lookup(id string) (*Task, error) {
	t, ok := p.Get(id)
	if !ok {
		return nil, fmt.Errorf("task %q not found", id)
	}
	return t, nil
}

// Cancel cancels the task with id.
func (p *Pool) Cancel(id string) error {
	t, err := p.lookup(id)
	if err != nil {
		return err
	}
	t.Cancel()
	return nil
}

// Pause pauses the running task with id.
func (p *Pool) Pause(id string) error {
	t, err := p.lookup(id)
	if err != nil {
		return err
	}
	if !t.Pause() {
		return fmt.Errorf("task %q is %s, not running", id, t.State())
	}
	return nil
}

// Resume resumes the paused task with id.
func (p *Pool) Resume(id string) error {
	t, err := p.lookup(id)
	if err != nil {
		return err
	}
	if !t.Resume() {
		return fmt.Errorf("task %q is %s, not paused", id, t.State())
	}
	return nil
}

// Remove forgets a finished task.
func (p *Pool) Remove(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[id]
	if !ok {
		return fmt.Errorf("task %q not found", id)
	}
	if !t.State().Terminal() {
		return fmt.Errorf("task %q is still %s", id, t.State())
	}
	delete(p.tasks, id)
	for i, tid := range p.order {
		if tid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns snapshots in submission order.
func (p *Pool) List() []Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Snapshot, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.tasks[id].Snapshot())
	}
	return out
}

// CancelAll cancels every task that has not finished.
func (p *Pool) CancelAll() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, t := range p.tasks {
		t.Cancel()
	}
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
