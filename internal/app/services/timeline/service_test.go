package timeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/nine-apps/catalog_service/internal/app/domain/timeline"
	"github.com/nine-apps/catalog_service/internal/app/storage/memory"
)

func TestRecordAndList(t *testing.T) {
	svc := NewService(memory.New(), nil)
	ctx := context.Background()

	signup, err := svc.RecordUserEvent(ctx, "u1", domain.CategorySignup)
	require.NoError(t, err)
	assert.NotEmpty(t, signup.ID)
	assert.Equal(t, domain.EntityUser, signup.Entity)
	assert.False(t, signup.CreatedAt.IsZero())

	listed, err := svc.RecordAppEvent(ctx, "u1", "app-1", domain.CategoryListApp)
	require.NoError(t, err)
	assert.Equal(t, domain.EntityApp, listed.Entity)
	assert.Equal(t, "app-1", listed.AppID)

	_, err = svc.RecordAppEvent(ctx, "u2", "app-2", domain.CategoryListApp)
	require.NoError(t, err)

	all, err := svc.List(ctx, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, "app-2", all[0].AppID)
	assert.Equal(t, signup.ID, all[2].ID)
}

func TestListFilters(t *testing.T) {
	svc := NewService(memory.New(), nil)
	ctx := context.Background()

	_, err := svc.RecordUserEvent(ctx, "u1", domain.CategorySignup)
	require.NoError(t, err)
	_, err = svc.RecordUserEvent(ctx, "u1", domain.CategoryAccountVerified)
	require.NoError(t, err)
	_, err = svc.RecordAppEvent(ctx, "u1", "app-1", domain.CategoryListApp)
	require.NoError(t, err)

	byUser, err := svc.List(ctx, domain.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, byUser, 3)

	byCategory, err := svc.List(ctx, domain.Filter{Category: domain.CategoryAccountVerified})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, domain.CategoryAccountVerified, byCategory[0].Category)

	byEntity, err := svc.List(ctx, domain.Filter{Entity: domain.EntityApp})
	require.NoError(t, err)
	require.Len(t, byEntity, 1)
	assert.Equal(t, "app-1", byEntity[0].AppID)

	none, err := svc.List(ctx, domain.Filter{UserID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
