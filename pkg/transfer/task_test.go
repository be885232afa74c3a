package transfer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type declined struct{}

func (declined) WasCancelled() bool { return true }

func TestTask_CompletesWithResult(t *testing.T) {
	var got interface{}
	var finished State
	task := NewTask("ok", func(ctx context.Context, t *Task) (interface{}, error) {
		return "done", nil
	}, Handlers{
		OnResult:   func(r interface{}) { got = r },
		OnFinished: func(s State) { finished = s },
	})

	assert.Equal(t, StatePending, task.State())
	assert.Equal(t, StateCompleted, task.Run(context.Background()))
	assert.Equal(t, "done", got)
	assert.Equal(t, StateCompleted, finished)
	assert.Equal(t, 100, task.Snapshot().Progress)
}

func TestTask_FailureReportsError(t *testing.T) {
	boom := errors.New("boom")
	var gotErr error
	task := NewTask("fail", func(ctx context.Context, t *Task) (interface{}, error) {
		return nil, boom
	}, Handlers{OnError: func(err error) { gotErr = err }})

	assert.Equal(t, StateFailed, task.Run(context.Background()))
	assert.Equal(t, boom, gotErr)
	_, err := task.Result()
	assert.Equal(t, boom, err)
}

func TestTask_CancelledResultIsNotAnError(t *testing.T) {
	called := false
	task := NewTask("declined", func(ctx context.Context, t *Task) (interface{}, error) {
		return declined{}, nil
	}, Handlers{
		OnResult: func(interface{}) { called = true },
		OnError:  func(error) { called = true },
	})

	assert.Equal(t, StateCancelled, task.Run(context.Background()))
	assert.False(t, called)
}

func TestTask_CancelBeforeRun(t *testing.T) {
	ran := false
	task := NewTask("never", func(ctx context.Context, t *Task) (interface{}, error) {
		ran = true
		return nil, nil
	}, Handlers{})

	task.Cancel()
	assert.Equal(t, StateCancelled, task.Run(context.Background()))
	assert.False(t, ran)
}

func TestTask_CancelIsMonotonic(t *testing.T) {
	started := make(chan struct{})
	task := NewTask("loop", func(ctx context.Context, t *Task) (interface{}, error) {
		close(started)
		for {
			if err := t.Checkpoint(ctx); err != nil {
				return nil, err
			}
			time.Sleep(time.Millisecond)
		}
	}, Handlers{})

	go task.Run(context.Background())
	<-started
	task.Cancel()
	assert.False(t, task.Pause(), "a cancelled task cannot be paused")
	assert.False(t, task.Resume())

	state, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, state)
	assert.True(t, task.IsCancelled())
}

func TestTask_PauseBlocksCheckpoint(t *testing.T) {
	var chunks atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	task := NewTask("pausable", func(ctx context.Context, t *Task) (interface{}, error) {
		close(started)
		for i := 0; i < 3; i++ {
			<-release
			if err := t.Checkpoint(ctx); err != nil {
				return nil, err
			}
			chunks.Add(1)
		}
		return nil, nil
	}, Handlers{})

	assert.False(t, task.Pause(), "pending tasks cannot be paused")

	go task.Run(context.Background())
	<-started
	require.True(t, task.Pause())
	assert.Equal(t, StatePaused, task.State())
	assert.True(t, task.IsPaused())

	release <- struct{}{}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(0), chunks.Load(), "checkpoint must block while paused")

	require.True(t, task.Resume())
	assert.Equal(t, StateRunning, task.State())
	release <- struct{}{}
	release <- struct{}{}

	state, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.Equal(t, int64(3), chunks.Load())
}

func TestTask_CancelReleasesPausedTask(t *testing.T) {
	started := make(chan struct{})
	task := NewTask("paused", func(ctx context.Context, t *Task) (interface{}, error) {
		close(started)
		for {
			if err := t.Checkpoint(ctx); err != nil {
				return nil, err
			}
			time.Sleep(time.Millisecond)
		}
	}, Handlers{})

	go task.Run(context.Background())
	<-started
	require.True(t, task.Pause())
	task.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	state, err := task.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, state)
}

func TestTask_CancelAbortsContext(t *testing.T) {
	started := make(chan struct{})
	task := NewTask("blocked-io", func(ctx context.Context, t *Task) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}, Handlers{})

	go task.Run(context.Background())
	<-started
	task.Cancel()

	state, err := task.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, state)
}

func TestTask_Report(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	task := NewTask("progress", nil, Handlers{OnProgress: func(p int) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	}})

	task.Report(0, 0)
	task.Report(10, 100)
	task.Report(10, 100)
	task.Report(55, 100)
	task.Report(150, 100)

	assert.Equal(t, []int{10, 55, 100}, seen)
}

func TestNopGate(t *testing.T) {
	assert.NoError(t, NopGate.Checkpoint(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, IsCancelled(NopGate.Checkpoint(ctx)))
}

func TestProgress_ConcurrentAdds(t *testing.T) {
	var last atomic.Int64
	p := NewProgress(8000, func(done, total int64) {
		assert.Equal(t, int64(8000), total)
		for {
			cur := last.Load()
			if done <= cur || last.CompareAndSwap(cur, done) {
				break
			}
		}
	})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				p.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(8000), p.Done())
	assert.Equal(t, int64(8000), last.Load())
	assert.Equal(t, int64(8000), p.Total())
}
