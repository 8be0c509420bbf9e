package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TaskStatus is the lifecycle state of a background task.
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskFinished = errors.New("task already finished")
	// ErrTaskRunning is returned by Start when a task of the same kind is in flight.
	ErrTaskRunning = errors.New("task already running")
)

// Task is a snapshot of a background run.
type Task struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     TaskStatus `json:"status"`
	Output     string     `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// TaskFunc does the work; its output is kept for polling.
type TaskFunc func(ctx context.Context) (string, error)

type taskEntry struct {
	task   Task
	cancel context.CancelFunc
}

// TaskRegistry runs tasks in the background and remembers their outcome.
// It is in-memory only; history is lost on restart.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*taskEntry
	wg    sync.WaitGroup
	base  context.Context
	stop  context.CancelFunc
	log   zerolog.Logger
	nowFn func() time.Time
}

func NewTaskRegistry(log zerolog.Logger) *TaskRegistry {
	base, stop := context.WithCancel(context.Background())
	return &TaskRegistry{
		tasks: map[string]*taskEntry{},
		base:  base,
		stop:  stop,
		log:   log,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Start launches fn unless a task of the same kind is still running, in which
// case that task is returned with ErrTaskRunning.
func (r *TaskRegistry) Start(kind string, fn TaskFunc) (Task, error) {
	r.mu.Lock()
	for _, e := range r.tasks {
		if e.task.Kind == kind && e.task.Status == TaskRunning {
			t := e.task
			r.mu.Unlock()
			return t, ErrTaskRunning
		}
	}
	ctx, cancel := context.WithCancel(r.base)
	e := &taskEntry{
		task:   Task{ID: uuid.NewString(), Kind: kind, Status: TaskRunning, StartedAt: r.nowFn()},
		cancel: cancel,
	}
	r.tasks[e.task.ID] = e
	snapshot := e.task
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(ctx, e, fn)
	r.log.Info().Str("task_id", snapshot.ID).Str("kind", kind).Msg("task started")
	return snapshot, nil
}

func (r *TaskRegistry) run(ctx context.Context, e *taskEntry, fn TaskFunc) {
	defer r.wg.Done()
	defer e.cancel()

	out, err := fn(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	finished := r.nowFn()
	e.task.FinishedAt = &finished
	e.task.Output = out
	switch {
	case ctx.Err() != nil:
		e.task.Status = TaskCancelled
		e.task.Error = ctx.Err().Error()
	case err != nil:
		e.task.Status = TaskFailed
		e.task.Error = err.Error()
	default:
		e.task.Status = TaskSucceeded
	}
	r.log.Info().Str("task_id", e.task.ID).Str("status", string(e.task.Status)).Msg("task finished")
}

func (r *TaskRegistry) Get(id string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return e.task, nil
}

// List returns every known task, newest first.
func (r *TaskRegistry) List() []Task {
	r.mu.RLock()
	out := make([]Task, 0, len(r.tasks))
	for _, e := range r.tasks {
		out = append(out, e.task)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Cancel asks a running task to stop. The task records its final status once
// its function returns.
func (r *TaskRegistry) Cancel(id string) error {
	r.mu.RLock()
	e, ok := r.tasks[id]
	var running bool
	if ok {
		running = e.task.Status == TaskRunning
	}
	r.mu.RUnlock()
	if !ok {
		return ErrTaskNotFound
	}
	if !running {
		return ErrTaskFinished
	}
	e.cancel()
	return nil
}

// Shutdown cancels every running task and waits for them, or for ctx.
func (r *TaskRegistry) Shutdown(ctx context.Context) error {
	r.stop()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
