package db

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateTaskSequentialNumbers(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")

	for want := int64(1); want <= 5; want++ {
		task, err := d.CreateTask(ctx, p.ID, fmt.Sprintf("task %d", want), "")
		require.NoError(t, err)
		require.Equal(t, want, task.TaskNumber)
	}
}

func TestCreateTaskMissingProject(t *testing.T) {
	d := newTestDB(t)
	_, err := d.CreateTask(context.Background(), 999, "orphan", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTaskNumbersScopedPerProject(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p1 := seedProject(t, d, owner.ID, "Alpha")
	p2 := seedProject(t, d, owner.ID, "Bravo")

	a, err := d.CreateTask(ctx, p1.ID, "a", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), a.TaskNumber)

	// Each project starts its own sequence at 1.
	b, err := d.CreateTask(ctx, p2.ID, "b", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), b.TaskNumber)

	a2, err := d.CreateTask(ctx, p1.ID, "a2", "")
	require.NoError(t, err)
	require.Equal(t, int64(2), a2.TaskNumber)
}

func TestTaskNumberNotReusedAfterDelete(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")

	for i := 0; i < 3; i++ {
		_, err := d.CreateTask(ctx, p.ID, "t", "")
		require.NoError(t, err)
	}
	require.NoError(t, d.DeleteTask(ctx, p.ID, 3))

	task, err := d.CreateTask(ctx, p.ID, "after delete", "")
	require.NoError(t, err)
	require.Equal(t, int64(4), task.TaskNumber)
}

func TestCreateTaskConcurrent(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")

	const n = 20
	var wg sync.WaitGroup
	numbers := make(chan int64, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := d.CreateTask(ctx, p.ID, "concurrent", "")
			if err != nil {
				errs <- err
				return
			}
			numbers <- task.TaskNumber
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := map[int64]bool{}
	for num := range numbers {
		require.False(t, seen[num], "task number %d allocated twice", num)
		seen[num] = true
	}
	require.Len(t, seen, n)
}

func TestUpdateTaskPartial(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")

	task, err := d.CreateTask(ctx, p.ID, "original", "desc")
	require.NoError(t, err)

	name := "renamed"
	updated, err := d.UpdateTask(ctx, p.ID, task.TaskNumber, &name, nil)
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)
	require.Equal(t, "desc", updated.Description)

	_, err = d.UpdateTask(ctx, p.ID, 999, &name, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTaskCascadesToTodos(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")

	task, err := d.CreateTask(ctx, p.ID, "t", "")
	require.NoError(t, err)
	todo, err := d.CreateTodo(ctx, p.ID, task.TaskNumber, "check valves", nil)
	require.NoError(t, err)

	require.NoError(t, d.DeleteTask(ctx, p.ID, task.TaskNumber))
	_, err = d.GetTodo(ctx, p.ID, task.TaskNumber, todo.TodoNumber)
	require.ErrorIs(t, err, ErrNotFound)
}
