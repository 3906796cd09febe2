package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pgportal/internal/model"
	"github.com/nhle/pgportal/tests/testutil"
)

func TestNotificationsRoundTripInServerOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	readAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	pu := int64(4)
	in := []model.Notification{
		{ID: "z", Message: "newest", Category: model.CategoryInfo, CreatedAt: readAt.Add(time.Hour)},
		{ID: "a", Message: "older", Category: model.CategoryWarning, Read: true, ReadAt: &readAt, ProgressUpdateID: &pu, CreatedAt: readAt},
	}
	require.NoError(t, s.ReplaceNotifications(ctx, in))

	got, err := s.GetNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "z", got[0].ID)
	assert.False(t, got[0].Read)
	assert.Nil(t, got[0].ReadAt)
	assert.Equal(t, "a", got[1].ID)
	assert.True(t, got[1].Read)
	require.NotNil(t, got[1].ReadAt)
	assert.True(t, got[1].ReadAt.Equal(readAt))
	require.NotNil(t, got[1].ProgressUpdateID)
	assert.Equal(t, int64(4), *got[1].ProgressUpdateID)

	// A second replace drops rows that are gone from the server.
	require.NoError(t, s.ReplaceNotifications(ctx, in[:1]))
	got, err = s.GetNotifications(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestProgressUpdatesFilterByStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.ReplaceProgressUpdates(ctx, []model.ProgressUpdate{
		{ID: 1, StudentName: "Ada", Title: "Chapter 1", Status: model.ProgressPending, SubmittedAt: now.Add(-time.Hour), UpdatedAt: now},
		{ID: 2, StudentName: "Alan", Title: "Chapter 2", Status: model.ProgressApproved, SubmittedAt: now, UpdatedAt: now},
	}))

	all, err := s.GetProgressUpdates(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID)

	pending, err := s.GetProgressUpdates(ctx, model.ProgressPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Ada", pending[0].StudentName)
}

func TestWipeClearsEverything(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.ReplaceNotifications(ctx, []model.Notification{{ID: "n", Message: "m", Category: "info", CreatedAt: day}}))
	require.NoError(t, s.ReplaceSemesters(ctx, []model.Semester{{ID: 1, AcademicYear: "2023/2024", Name: "S2", StartDate: day, EndDate: day.AddDate(0, 4, 0), IsCurrent: true}}))

	sems, err := s.GetSemesters(ctx)
	require.NoError(t, err)
	require.Len(t, sems, 1)
	assert.True(t, sems[0].IsCurrent)

	require.NoError(t, s.Wipe(ctx))

	ns, err := s.GetNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, ns)
	sems, err = s.GetSemesters(ctx)
	require.NoError(t, err)
	assert.Empty(t, sems)
}
