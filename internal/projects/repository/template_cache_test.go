package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftpilot/draftpilot-backend/internal/projects/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (*TemplateCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTemplateCache(rdb, ttl), mr
}

func TestTemplateCache_RoundTrip(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	tpl := &domain.Template{
		ID:    "t1",
		Type:  domain.TemplatePublished,
		Title: "事業計画",
		Steps: []domain.TemplateStep{
			{ID: "ts1", Title: "市場調査", Order: 1, SystemPrompt: "調査してください"},
		},
	}
	require.NoError(t, cache.Set(ctx, tpl))

	got, err := cache.Get(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tpl.Title, got.Title)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, "市場調査", got.Steps[0].Title)
}

func TestTemplateCache_MissIsNotAnError(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	got, err := cache.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTemplateCache_EntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &domain.Template{ID: "t1", Type: domain.TemplatePublished}))
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTemplateCache_CorruptEntryIsAnError(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set(templateKeyPrefix+"t1", "{not json"))

	got, err := cache.Get(context.Background(), "t1")
	require.Error(t, err)
	assert.Nil(t, got)
}
