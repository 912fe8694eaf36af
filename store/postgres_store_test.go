package store

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BatmanBruc/bat-bot-search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgresStore connects to POSTGRES_TEST_DSN and truncates all relations.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.pool.Exec(ctx, `TRUNCATE premium_accounts, authorized_chats, free_usage_counters, free_tier_configs, usage_records, settings`)
	require.NoError(t, err)
	return s
}

func TestPostgresStorePremiumLifecycle(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()
	exp := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Microsecond)

	acct, err := s.UpsertPremiumAccount(ctx, types.PremiumAccount{UserID: 1, ChatID: 10, Credits: 20, ExpiryDate: &exp})
	require.NoError(t, err)
	assert.True(t, acct.IsActive)
	assert.Equal(t, int64(20), acct.Credits)

	remaining, err := s.DeductCredits(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), remaining)

	balance, err := s.AdjustCredits(ctx, 1, -14)
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance)

	_, err = s.DeductCredits(ctx, 1, 5)
	require.ErrorIs(t, err, types.ErrInsufficientCredits)

	require.NoError(t, s.DeactivatePremiumAccount(ctx, 1))
	got, err := s.GetPremiumAccount(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, int64(1), got.Credits)

	_, err = s.GetPremiumAccount(ctx, 2)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestPostgresStoreFreeCounterRace(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.SetFreeCounter(ctx, types.CounterUpdate{
				UserID: 1, ChatID: 100, ExpectedCount: 0, NewCount: 1,
				LastSearchAt: now.Add(time.Duration(i) * time.Millisecond),
			})
			if err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	c, err := s.GetFreeCounter(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, c.DailySearchCount)
}

func TestPostgresStoreConfigPriceAndStats(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	cfg, err := s.GetFreeTierConfig(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultDailyLimit, cfg.DailyLimit)
	assert.Equal(t, types.DefaultSpamCooldownSeconds, cfg.SpamCooldownSeconds)

	_, err = s.GetPrice(ctx)
	require.ErrorIs(t, err, types.ErrNotFound)
	require.NoError(t, s.SetPrice(ctx, 9))
	price, err := s.GetPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), price)

	require.NoError(t, s.UpsertAuthorizedChat(ctx, types.AuthorizedChat{ChatID: 100, Title: "g"}))
	require.NoError(t, s.AppendUsage(ctx, types.UsageRecord{UserID: 1, ChatID: 100, SearchTerm: "go", Tier: types.TierFree}))
	start, end := types.DayBounds(time.Now(), time.UTC)
	st, err := s.Stats(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.ActiveAuthorizedChats)
	assert.Equal(t, int64(1), st.SearchesToday)
}
