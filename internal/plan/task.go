// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"context"
	"log/slog"

	"github.com/podenv/podenv/internal/issue"
)

// Task is a host-side action run outside the container, before or after the
// pod executes.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Execute runs the task and wraps any failure in a HostTaskError.
func (t Task) Execute(ctx context.Context) error {
	if t.Run == nil {
		return nil
	}
	slog.Debug("running host task", "task", t.Name)
	if err := t.Run(ctx); err != nil {
		return &issue.HostTaskError{Task: t.Name, Cause: err}
	}
	return nil
}

// RunTasks executes tasks sequentially in declared order and stops at the
// first failure.
func RunTasks(ctx context.Context, tasks []Task) error {
	for _, t := range tasks {
		if err := t.Execute(ctx); err != nil {
			return err
		}
	}
	return nil
}
