package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/event"
	"github.com/randalmurphal/eventflow/pkg/eventflow/lifecycle"
)

// ErrNoTask is returned by NewTaskHandler when neither a task nor a task
// provider is configured.
var ErrNoTask = errors.New("task handler requires a task or a task provider")

// Task is a unit of work run with a context value of type C.
type Task[C any] interface {
	Execute(ctx context.Context, c C) error
}

// TaskFunc adapts a function to Task.
type TaskFunc[C any] func(ctx context.Context, c C) error

// Execute calls f.
func (f TaskFunc[C]) Execute(ctx context.Context, c C) error {
	return f(ctx, c)
}

// TaskConfig configures a TaskHandler. Either Task or TaskProvider is
// required; TaskProvider wins when both are set. ContextProvider likewise
// overrides the static Context.
type TaskConfig[C any] struct {
	Task            Task[C]
	TaskProvider    Extractor[Task[C]]
	Context         C
	ContextProvider Extractor[C]
}

// TaskHandler runs a task in response to each event.
type TaskHandler[C any] struct {
	*lifecycle.Service
	task    Extractor[Task[C]]
	context Extractor[C]
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler[C any](cfg TaskConfig[C], opts ...Option) (*TaskHandler[C], error) {
	s := newSettings(opts)

	task := cfg.TaskProvider
	if task == nil {
		if cfg.Task == nil {
			return nil, ErrNoTask
		}
		static := cfg.Task
		task = func(context.Context, *event.Event) (Task[C], error) { return static, nil }
	}
	taskCtx := cfg.ContextProvider
	if taskCtx == nil {
		static := cfg.Context
		taskCtx = func(context.Context, *event.Event) (C, error) { return static, nil }
	}

	return &TaskHandler[C]{
		Service: lifecycle.NewService("task-handler", s.service...),
		task:    task,
		context: taskCtx,
	}, nil
}

// Handle resolves the task and its context for e, then runs it.
func (h *TaskHandler[C]) Handle(ctx context.Context, e *event.Event) error {
	inv := h.Begin(ctx, e)

	task, err := h.task(ctx, e)
	if err != nil {
		return inv.Fail(fmt.Errorf("provide task: %w", err))
	}
	if task == nil {
		return inv.Fail(ErrNoTask)
	}
	c, err := h.context(ctx, e)
	if err != nil {
		return inv.Fail(fmt.Errorf("provide task context: %w", err))
	}
	if err := task.Execute(ctx, c); err != nil {
		return inv.Fail(err)
	}
	inv.Processed(nil)
	return nil
}
