package repository

import (
	"context"
	"testing"
	"time"

	"coworking/internal/booking"
	"coworking/internal/config"
	"coworking/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDraftRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	repo := NewRedisDraftRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("SetAndGetDraft", func(t *testing.T) {
		draft := models.NewDraft("sess-1", "room-1")
		draft.Duration = booking.Daily
		draft.Date = "2024-06-01"
		draft.Resources = []string{"parking"}
		draft.BookerName = "Ann"

		require.NoError(t, repo.SetDraft(ctx, draft))
		assert.True(t, s.Exists("draft:sess-1"))

		got, err := repo.GetDraft(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, booking.Daily, got.Duration)
		assert.Equal(t, "2024-06-01", got.Date)
		assert.Equal(t, []string{"parking"}, got.Resources)
		assert.Equal(t, "Ann", got.BookerName)
	})

	t.Run("GetNonExistentDraft", func(t *testing.T) {
		got, err := repo.GetDraft(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TTL", func(t *testing.T) {
		require.NoError(t, repo.SetDraft(ctx, models.NewDraft("sess-ttl", "room-1")))
		s.FastForward(2 * time.Hour)

		got, err := repo.GetDraft(ctx, "sess-ttl")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearDraft", func(t *testing.T) {
		require.NoError(t, repo.SetDraft(ctx, models.NewDraft("sess-2", "room-1")))
		require.NoError(t, repo.ClearDraft(ctx, "sess-2"))
		assert.False(t, s.Exists("draft:sess-2"))
	})

	t.Run("CorruptValue", func(t *testing.T) {
		require.NoError(t, s.Set("draft:bad", "{not json"))
		_, err := repo.GetDraft(ctx, "bad")
		assert.Error(t, err)
	})

	t.Run("NilClient", func(t *testing.T) {
		nilRepo := NewRedisDraftRepository(nil, time.Hour)
		_, err := nilRepo.GetDraft(ctx, "x")
		assert.Error(t, err)
		assert.Error(t, nilRepo.SetDraft(ctx, models.NewDraft("x", "y")))
		assert.Error(t, nilRepo.ClearDraft(ctx, "x"))
	})
}

func TestRedisDraftRepository_ServerDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()
	s.Close()

	repo := NewRedisDraftRepository(client, time.Hour)
	_, err = repo.GetDraft(context.Background(), "x")
	assert.Error(t, err)
}
