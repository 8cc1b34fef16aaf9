// SPDX-License-Identifier: MPL-2.0

package plan

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/podenv/podenv/internal/issue"
)

func TestRunTasksSequentialAndStopsOnFailure(t *testing.T) {
	t.Parallel()

	var order []string
	record := func(name string, err error) Task {
		return Task{Name: name, Run: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}

	tasks := []Task{
		record("first", nil),
		record("second", errors.New("disk full")),
		record("third", nil),
	}

	err := RunTasks(context.Background(), tasks)
	if !errors.Is(err, issue.ErrHostTask) {
		t.Fatalf("RunTasks() error = %v, want a host task error", err)
	}
	var hte *issue.HostTaskError
	if !errors.As(err, &hte) || hte.Task != "second" {
		t.Errorf("failing task = %+v, want second", hte)
	}
	if !slices.Equal(order, []string{"first", "second"}) {
		t.Errorf("order = %q", order)
	}
}

func TestTaskWithoutRunIsNoop(t *testing.T) {
	t.Parallel()

	if err := (Task{Name: "empty"}).Execute(context.Background()); err != nil {
		t.Errorf("Execute() = %v", err)
	}
}
