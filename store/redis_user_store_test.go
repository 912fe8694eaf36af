package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisUserStore(t *testing.T) (*RedisUserStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), RedisOptions{Addr: mr.Addr(), Prefix: "search_bot"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisUserStore(client, 1), mr
}

func TestRedisUserStoreLangRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisUserStore(t)

	lang, err := s.GetLang(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, lang)

	require.NoError(t, s.SetLang(ctx, 42, "en"))
	lang, err = s.GetLang(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "en", lang)
	assert.True(t, mr.Exists("search_bot:user_options:42"))
	assert.Greater(t, mr.TTL("search_bot:user_options:42").Seconds(), float64(0))

	require.NoError(t, s.ClearLang(ctx, 42))
	lang, err = s.GetLang(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, lang)
}

func TestNewRedisClientFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), RedisOptions{Addr: addr})
	require.Error(t, err)
}
