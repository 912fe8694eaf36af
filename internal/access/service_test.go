package access

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/BatmanBruc/bat-bot-search/internal/errors"
	"github.com/BatmanBruc/bat-bot-search/internal/metrics"
	"github.com/BatmanBruc/bat-bot-search/internal/policy"
	"github.com/BatmanBruc/bat-bot-search/internal/pricing"
	"github.com/BatmanBruc/bat-bot-search/store"
	"github.com/BatmanBruc/bat-bot-search/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func newService(st types.EntitlementStore, ledger types.UsageLedger, clock *fakeClock, opts ...Option) *Service {
	opts = append([]Option{WithClock(clock.Now), WithMaxAttempts(5, time.Microsecond)}, opts...)
	return NewService(st, ledger, pricing.NewResolver(st, 5), opts...)
}

func grantPremium(t *testing.T, st *store.MemoryStore, userID, credits int64, expiry time.Time) {
	t.Helper()
	_, err := st.UpsertPremiumAccount(context.Background(), types.PremiumAccount{UserID: userID, Credits: credits, ExpiryDate: &expiry})
	require.NoError(t, err)
}

func counterOf(t *testing.T, st *store.MemoryStore, userID, chatID int64) int {
	t.Helper()
	c, err := st.GetFreeCounter(context.Background(), userID, chatID)
	if errors.Is(err, types.ErrNotFound) {
		return 0
	}
	require.NoError(t, err)
	return c.DailySearchCount
}

func TestSearchEndToEnd(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newClock()
	svc := newService(st, st, clock)

	out, err := svc.Search(ctx, 1, 100, "golang")
	require.NoError(t, err)
	assert.Equal(t, policy.OutcomeDeny, out.Decision.Outcome)
	assert.Equal(t, policy.ReasonChatNotAuthorized, out.Decision.Reason)
	assert.Empty(t, st.UsageRecords())

	require.NoError(t, st.UpsertAuthorizedChat(ctx, types.AuthorizedChat{ChatID: 100, Title: "group"}))

	out, err = svc.Search(ctx, 1, 100, "golang")
	require.NoError(t, err)
	require.True(t, out.Decision.Granted())
	assert.Equal(t, types.TierFree, out.Decision.Tier)
	assert.Equal(t, SearchStatusProcessing, out.Result.Status)
	assert.Equal(t, 1, counterOf(t, st, 1, 100))

	clock.Advance(time.Second)
	out, err = svc.Search(ctx, 1, 100, "golang")
	require.NoError(t, err)
	assert.Equal(t, policy.OutcomeThrottle, out.Decision.Outcome)
	assert.Equal(t, 59, out.Decision.RemainingSeconds)

	recs := st.UsageRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, "golang", recs[0].SearchTerm)
	assert.Equal(t, types.TierFree, recs[0].Tier)
}

func TestSearchCounterProgression(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newClock()
	svc := newService(st, st, clock)
	require.NoError(t, st.UpsertAuthorizedChat(ctx, types.AuthorizedChat{ChatID: 100}))

	want := []policy.Outcome{policy.OutcomeGrant, policy.OutcomeGrant, policy.OutcomeGrant, policy.OutcomeDeny}
	counts := []int{1, 2, 3, 3}
	for i := range want {
		out, err := svc.Search(ctx, 1, 100, "term")
		require.NoError(t, err)
		assert.Equal(t, want[i], out.Decision.Outcome, "request %d", i+1)
		assert.Equal(t, counts[i], counterOf(t, st, 1, 100), "request %d", i+1)
		clock.Advance(61 * time.Second)
	}
}

func TestSearchPremiumChargesAndTouchesChat(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newClock()
	svc := newService(st, st, clock)
	grantPremium(t, st, 1, 12, clock.Now().Add(24*time.Hour))

	out, err := svc.Search(ctx, 1, 555, "term")
	require.NoError(t, err)
	require.True(t, out.Decision.Granted())
	assert.Equal(t, int64(7), out.RemainingCredits)

	acct, err := st.GetPremiumAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), acct.Credits)
	assert.Equal(t, int64(555), acct.ChatID)

	recs := st.UsageRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, int64(5), recs[0].CreditsUsed)
	assert.Equal(t, types.TierPremium, recs[0].Tier)
}

func TestSearchCreditMonotonicityUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newClock()
	svc := newService(st, st, clock, WithMaxAttempts(50, time.Microsecond))
	grantPremium(t, st, 1, 100, clock.Now().Add(time.Hour))

	var grants atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.Search(ctx, 1, 100, "term")
			if err == nil && out.Decision.Granted() {
				grants.Add(1)
			}
		}()
	}
	wg.Wait()

	acct, err := st.GetPremiumAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), grants.Load())
	assert.Equal(t, int64(100-20*5), acct.Credits)
}

func TestSearchSameKeyRaceNeverExceedsLimit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(store.WithFreeTierDefaults(3, 0))
	clock := newClock()
	svc := newService(st, st, clock, WithMaxAttempts(100, time.Microsecond))
	require.NoError(t, st.UpsertAuthorizedChat(ctx, types.AuthorizedChat{ChatID: 100}))

	var grants atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.Search(ctx, 1, 100, "term")
			if err == nil && out.Decision.Granted() {
				grants.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, grants.Load(), int64(3))
	assert.Equal(t, int(grants.Load()), counterOf(t, st, 1, 100))
}

func TestSearchDistinctKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newClock()
	svc := newService(st, st, clock)
	for chat := int64(1); chat <= 10; chat++ {
		require.NoError(t, st.UpsertAuthorizedChat(ctx, types.AuthorizedChat{ChatID: chat}))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for user := int64(1); user <= 10; user++ {
		for chat := int64(1); chat <= 10; chat++ {
			wg.Add(1)
			go func(user, chat int64) {
				defer wg.Done()
				out, err := svc.Search(ctx, user, chat, "term")
				if err == nil && !out.Decision.Granted() {
					err = errors.New(out.Decision.String())
				}
				if err != nil {
					errs <- err
				}
			}(user, chat)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, st.UsageRecords(), 100)
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, string) (SearchResult, error) {
	return SearchResult{}, errors.New("channel unreachable")
}

func TestSearchRefundsPremiumOnSearcherFailure(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	clock := newClock()
	svc := newService(st, st, clock, WithSearcher(failingSearcher{}))
	grantPremium(t, st, 1, 10, clock.Now().Add(time.Hour))

	out, err := svc.Search(ctx, 1, 100, "term")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDependency))
	require.NotNil(t, out)
	assert.True(t, out.Refunded)
	assert.Equal(t, int64(10), out.RemainingCredits)

	acct, err := st.GetPremiumAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), acct.Credits)

	recs := st.UsageRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, int64(0), recs[0].CreditsUsed)
}

type brokenStore struct {
	*store.MemoryStore
}

func (brokenStore) GetPremiumAccount(context.Context, int64) (*types.PremiumAccount, error) {
	return nil, errors.New("connection reset")
}

func TestSearchFailsClosedWhenStoreUnavailable(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := newService(brokenStore{mem}, mem, newClock())

	out, err := svc.Search(context.Background(), 1, 100, "term")
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDependency))
	assert.Empty(t, mem.UsageRecords())
}

type contendedStore struct {
	*store.MemoryStore
	calls atomic.Int64
}

func (s *contendedStore) SetFreeCounter(context.Context, types.CounterUpdate) error {
	s.calls.Add(1)
	return types.ErrCounterConflict
}

func TestSearchExhaustedConflictsFailClosed(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.UpsertAuthorizedChat(ctx, types.AuthorizedChat{ChatID: 100}))
	st := &contendedStore{MemoryStore: mem}

	reg := prometheus.NewRegistry()
	svc := newService(st, mem, newClock(), WithMetrics(metrics.NewAccessMetrics(reg)), WithMaxAttempts(4, time.Microsecond))

	out, err := svc.Search(ctx, 1, 100, "term")
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDependency))
	assert.ErrorIs(t, err, types.ErrCounterConflict)
	assert.Equal(t, int64(4), st.calls.Load())
	assert.Empty(t, mem.UsageRecords())

	families, err := reg.Gather()
	require.NoError(t, err)
	var conflicts float64
	for _, f := range families {
		if f.GetName() == "store_conflicts_total" {
			for _, m := range f.GetMetric() {
				conflicts += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(4), conflicts)
}

func TestSearchRejectsEmptyTerm(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newService(st, st, newClock())

	_, err := svc.Search(context.Background(), 1, 100, "   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestApplyRejectsNonGrant(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newService(st, st, newClock())

	_, err := svc.Apply(context.Background(), policy.Decision{Outcome: policy.OutcomeDeny})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}
