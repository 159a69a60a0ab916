package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedTask(t *testing.T, d *DB, projectID int64) *Task {
	t.Helper()
	task, err := d.CreateTask(context.Background(), projectID, "task", "")
	require.NoError(t, err)
	return task
}

func TestCreateTodoSequentialNumbers(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	task := seedTask(t, d, p.ID)

	for want := int64(1); want <= 4; want++ {
		todo, err := d.CreateTodo(ctx, p.ID, task.TaskNumber, "step", nil)
		require.NoError(t, err)
		require.Equal(t, want, todo.TodoNumber)
	}
}

func TestTodoNumbersScopedPerTask(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	t1 := seedTask(t, d, p.ID)
	t2 := seedTask(t, d, p.ID)

	a, err := d.CreateTodo(ctx, p.ID, t1.TaskNumber, "a", nil)
	require.NoError(t, err)
	b, err := d.CreateTodo(ctx, p.ID, t2.TaskNumber, "b", nil)
	require.NoError(t, err)

	// Sibling tasks number their todos independently.
	require.Equal(t, int64(1), a.TodoNumber)
	require.Equal(t, int64(1), b.TodoNumber)
}

func TestTodoNumberNotReusedAfterDelete(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	task := seedTask(t, d, p.ID)

	for i := 0; i < 2; i++ {
		_, err := d.CreateTodo(ctx, p.ID, task.TaskNumber, "step", nil)
		require.NoError(t, err)
	}
	require.NoError(t, d.DeleteTodo(ctx, p.ID, task.TaskNumber, 2))

	todo, err := d.CreateTodo(ctx, p.ID, task.TaskNumber, "after delete", nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), todo.TodoNumber)
}

func TestCreateTodoMissingTask(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")

	_, err := d.CreateTodo(ctx, p.ID, 42, "orphan", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTodoWithStart(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	task := seedTask(t, d, p.ID)

	start := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	todo, err := d.CreateTodo(ctx, p.ID, task.TaskNumber, "survey", &start)
	require.NoError(t, err)
	require.NotNil(t, todo.Start)
	require.True(t, todo.Start.Equal(start))
}

func TestCompleteTodo(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	task := seedTask(t, d, p.ID)

	todo, err := d.CreateTodo(ctx, p.ID, task.TaskNumber, "step", nil)
	require.NoError(t, err)
	require.Nil(t, todo.CompletedAt)

	done, err := d.CompleteTodo(ctx, p.ID, task.TaskNumber, todo.TodoNumber)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)

	_, err = d.CompleteTodo(ctx, p.ID, task.TaskNumber, 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTodoPartial(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	task := seedTask(t, d, p.ID)

	todo, err := d.CreateTodo(ctx, p.ID, task.TaskNumber, "original", nil)
	require.NoError(t, err)

	desc := "rewritten"
	updated, err := d.UpdateTodo(ctx, p.ID, task.TaskNumber, todo.TodoNumber, &desc, nil)
	require.NoError(t, err)
	require.Equal(t, "rewritten", updated.Description)
	require.Nil(t, updated.Start)
}
