package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssignments(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	crew := seedUser(t, d, "crew@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	task := seedTask(t, d, p.ID)
	todo, err := d.CreateTodo(ctx, p.ID, task.TaskNumber, "step", nil)
	require.NoError(t, err)

	pa, err := d.CreateProjectAssignment(ctx, p.ID, crew.ID)
	require.NoError(t, err)
	ta, err := d.CreateTaskAssignment(ctx, p.ID, task.TaskNumber, crew.ID)
	require.NoError(t, err)
	da, err := d.CreateTodoAssignment(ctx, p.ID, task.TaskNumber, todo.TodoNumber, crew.ID)
	require.NoError(t, err)

	// Assigning the same user twice is a conflict, not a duplicate row.
	_, err = d.CreateProjectAssignment(ctx, p.ID, crew.ID)
	require.ErrorIs(t, err, ErrConflict)

	pas, err := d.ListProjectAssignments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, pas, 1)
	tas, err := d.ListTaskAssignments(ctx, p.ID, task.TaskNumber)
	require.NoError(t, err)
	require.Len(t, tas, 1)
	das, err := d.ListTodoAssignments(ctx, p.ID, task.TaskNumber, todo.TodoNumber)
	require.NoError(t, err)
	require.Len(t, das, 1)

	require.NoError(t, d.DeleteProjectAssignment(ctx, pa.ID))
	require.NoError(t, d.DeleteTaskAssignment(ctx, ta.ID))
	require.NoError(t, d.DeleteTodoAssignment(ctx, da.ID))
	require.ErrorIs(t, d.DeleteTodoAssignment(ctx, da.ID), ErrNotFound)
}

func TestComments(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	task := seedTask(t, d, p.ID)
	todo, err := d.CreateTodo(ctx, p.ID, task.TaskNumber, "step", nil)
	require.NoError(t, err)

	tc, err := d.CreateTaskComment(ctx, p.ID, task.TaskNumber, owner.ID, "looks corroded")
	require.NoError(t, err)
	require.Equal(t, "looks corroded", tc.Content)

	dc, err := d.CreateTodoComment(ctx, p.ID, task.TaskNumber, todo.TodoNumber, owner.ID, "done by friday")
	require.NoError(t, err)

	tcs, err := d.ListTaskComments(ctx, p.ID, task.TaskNumber)
	require.NoError(t, err)
	require.Len(t, tcs, 1)
	dcs, err := d.ListTodoComments(ctx, p.ID, task.TaskNumber, todo.TodoNumber)
	require.NoError(t, err)
	require.Len(t, dcs, 1)

	require.NoError(t, d.DeleteTaskComment(ctx, tc.ID))
	require.NoError(t, d.DeleteTodoComment(ctx, dc.ID))
}

func TestAttachments(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	task := seedTask(t, d, p.ID)

	a, err := d.CreateTaskAttachment(ctx, TaskAttachment{
		ProjectID:   p.ID,
		TaskNumber:  task.TaskNumber,
		UserID:      owner.ID,
		FileID:      "drive-item-1",
		DirectoryID: "folder-1",
		OriginName:  "survey.pdf",
		Title:       "survey.pdf",
		Icon:        "pdf",
	})
	require.NoError(t, err)

	got, err := d.GetTaskAttachment(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "drive-item-1", got.FileID)

	list, err := d.ListTaskAttachments(ctx, p.ID, task.TaskNumber)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, d.DeleteTaskAttachment(ctx, a.ID))
	_, err = d.GetTaskAttachment(ctx, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProjectPhotoFilters(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, d, "owner@example.com")
	p := seedProject(t, d, owner.ID, "Refit")
	task := seedTask(t, d, p.ID)

	_, err := d.CreateProjectPhoto(ctx, ProjectPhoto{
		ProjectID: p.ID, UserID: owner.ID, FileID: "photo-1", Category: "hull",
	})
	require.NoError(t, err)
	tn := task.TaskNumber
	_, err = d.CreateProjectPhoto(ctx, ProjectPhoto{
		ProjectID: p.ID, TaskNumber: &tn, UserID: owner.ID, FileID: "photo-2", Category: "engine",
	})
	require.NoError(t, err)

	all, err := d.ListProjectPhotos(ctx, p.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := d.ListProjectPhotos(ctx, p.ID, &tn, nil)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "photo-2", scoped[0].FileID)
}
