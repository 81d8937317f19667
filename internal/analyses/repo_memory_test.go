package analyses

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillgap-backend/internal/engine"
)

func TestMemoryRepoListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, Analysis{ID: id, UserID: "u", Status: StatusQueued, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, repo.Create(ctx, Analysis{ID: "other", UserID: "v", CreatedAt: base}))

	list, err := repo.ListByUser(ctx, "u", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(list))

	list, err = repo.ListByUser(ctx, "u", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(list))

	list, err = repo.ListByUser(ctx, "u", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryRepoUpdateStatusDerivesSummary(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, Analysis{ID: "a", UserID: "u", Status: StatusQueued, CreatedAt: time.Now()}))

	res := &engine.Result{
		CatalogVersion: "cat-1",
		ModelVersion:   "model-1",
		SelectedRole:   &engine.RoleScore{RoleID: "DA", Score: 72},
		NoGoodMatch:    false,
	}
	require.NoError(t, repo.UpdateStatus(ctx, "a", StatusUpdate{Status: StatusCompleted, Result: res}))

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "cat-1", got.CatalogVersion)
	assert.Equal(t, "model-1", got.ModelVersion)
	require.NotNil(t, got.Score)
	assert.Equal(t, 72, *got.Score)
	require.NotNil(t, got.NoGoodMatch)
	assert.False(t, *got.NoGoodMatch)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", StatusUpdate{Status: StatusFailed}), ErrNotFound)
	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func ids(list []Analysis) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}
