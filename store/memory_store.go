package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/BatmanBruc/bat-bot-search/types"
)

type counterKey struct {
	userID int64
	chatID int64
}

// MemoryStore is a process-local EntitlementStore and UsageLedger.
// A single mutex guards all relations.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	defaults types.FreeTierConfig

	premium  map[int64]types.PremiumAccount
	chats    map[int64]types.AuthorizedChat
	counters map[counterKey]types.FreeUsageCounter
	configs  map[int64]types.FreeTierConfig
	settings map[string]int64
	usage    []types.UsageRecord
	langs    map[int64]string
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{
		now: func() time.Time { return time.Now().UTC() },
		defaults: types.FreeTierConfig{
			DailyLimit:          o.dailyLimit,
			SpamCooldownSeconds: o.cooldown,
		},
		premium:  make(map[int64]types.PremiumAccount),
		chats:    make(map[int64]types.AuthorizedChat),
		counters: make(map[counterKey]types.FreeUsageCounter),
		configs:  make(map[int64]types.FreeTierConfig),
		settings: make(map[string]int64),
		langs:    make(map[int64]string),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) GetPremiumAccount(ctx context.Context, userID int64) (*types.PremiumAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.premium[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	a.ExpiryDate = copyTime(a.ExpiryDate)
	return &a, nil
}

func (s *MemoryStore) UpsertPremiumAccount(ctx context.Context, acct types.PremiumAccount) (*types.PremiumAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	existing, ok := s.premium[acct.UserID]
	if ok {
		acct.CreatedAt = existing.CreatedAt
	} else {
		acct.CreatedAt = now
	}
	acct.IsActive = true
	acct.ExpiryDate = copyTime(acct.ExpiryDate)
	acct.UpdatedAt = now
	s.premium[acct.UserID] = acct
	out := acct
	out.ExpiryDate = copyTime(acct.ExpiryDate)
	return &out, nil
}

func (s *MemoryStore) DeactivatePremiumAccount(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.premium[userID]
	if !ok {
		return types.ErrNotFound
	}
	a.IsActive = false
	a.UpdatedAt = s.now()
	s.premium[userID] = a
	return nil
}

func (s *MemoryStore) TouchPremiumChat(ctx context.Context, userID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.premium[userID]
	if !ok || a.ChatID == chatID {
		return nil
	}
	a.ChatID = chatID
	a.UpdatedAt = s.now()
	s.premium[userID] = a
	return nil
}

func (s *MemoryStore) DeductCredits(ctx context.Context, userID int64, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.premium[userID]
	if !ok {
		return 0, types.ErrNotFound
	}
	if a.Credits < amount {
		return a.Credits, types.ErrInsufficientCredits
	}
	a.Credits -= amount
	a.UpdatedAt = s.now()
	s.premium[userID] = a
	return a.Credits, nil
}

func (s *MemoryStore) AdjustCredits(ctx context.Context, userID int64, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.premium[userID]
	if !ok {
		return 0, types.ErrNotFound
	}
	a.Credits += delta
	a.UpdatedAt = s.now()
	s.premium[userID] = a
	return a.Credits, nil
}

func (s *MemoryStore) GetAuthorizedChat(ctx context.Context, chatID int64) (*types.AuthorizedChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) UpsertAuthorizedChat(ctx context.Context, chat types.AuthorizedChat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	title := strings.TrimSpace(chat.Title)
	existing, ok := s.chats[chat.ChatID]
	if ok {
		existing.IsActive = true
		if title != "" {
			existing.Title = title
		}
		existing.UpdatedAt = now
		s.chats[chat.ChatID] = existing
		return nil
	}
	s.chats[chat.ChatID] = types.AuthorizedChat{
		ChatID:    chat.ChatID,
		Title:     title,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *MemoryStore) DeactivateAuthorizedChat(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok {
		return types.ErrNotFound
	}
	c.IsActive = false
	c.UpdatedAt = s.now()
	s.chats[chatID] = c
	return nil
}

func (s *MemoryStore) GetFreeTierConfig(ctx context.Context, chatID int64) (types.FreeTierConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.configs[chatID]; ok {
		return cfg, nil
	}
	cfg := s.defaults
	cfg.ChatID = chatID
	cfg.UpdatedAt = s.now()
	s.configs[chatID] = cfg
	return cfg, nil
}

func (s *MemoryStore) UpsertFreeTierConfig(ctx context.Context, cfg types.FreeTierConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.UpdatedAt = s.now()
	s.configs[cfg.ChatID] = cfg
	return nil
}

func (s *MemoryStore) GetFreeCounter(ctx context.Context, userID, chatID int64) (*types.FreeUsageCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[counterKey{userID, chatID}]
	if !ok {
		return nil, types.ErrNotFound
	}
	c.LastSearchAt = copyTime(c.LastSearchAt)
	return &c, nil
}

func (s *MemoryStore) SetFreeCounter(ctx context.Context, upd types.CounterUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey{upd.UserID, upd.ChatID}
	now := s.now()
	last := upd.LastSearchAt.UTC()
	c, ok := s.counters[key]
	if !ok {
		s.counters[key] = types.FreeUsageCounter{
			UserID:           upd.UserID,
			ChatID:           upd.ChatID,
			DailySearchCount: upd.NewCount,
			LastSearchAt:     &last,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return nil
	}
	if c.DailySearchCount != upd.ExpectedCount || !sameTime(c.LastSearchAt, upd.ExpectedLastSearchAt) {
		return types.ErrCounterConflict
	}
	c.DailySearchCount = upd.NewCount
	c.LastSearchAt = &last
	c.UpdatedAt = now
	s.counters[key] = c
	return nil
}

func (s *MemoryStore) ResetFreeCounters(ctx context.Context, chatID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now()
	for k, c := range s.counters {
		if k.chatID != chatID {
			continue
		}
		c.DailySearchCount = 0
		c.UpdatedAt = now
		s.counters[k] = c
		n++
	}
	return n, nil
}

func (s *MemoryStore) ResetFreeCounter(ctx context.Context, userID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := counterKey{userID, chatID}
	c, ok := s.counters[key]
	if !ok {
		return types.ErrNotFound
	}
	c.DailySearchCount = 0
	c.UpdatedAt = s.now()
	s.counters[key] = c
	return nil
}

func (s *MemoryStore) GetPrice(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.settings[types.SettingPricePerSearch]
	if !ok {
		return 0, types.ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) SetPrice(ctx context.Context, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[types.SettingPricePerSearch] = price
	return nil
}

func (s *MemoryStore) AppendUsage(ctx context.Context, rec types.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.ID = int64(len(s.usage) + 1)
	s.usage = append(s.usage, rec)
	return nil
}

// UsageRecords returns a copy of the ledger in insertion order.
func (s *MemoryStore) UsageRecords() []types.UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.UsageRecord, len(s.usage))
	copy(out, s.usage)
	return out
}

func (s *MemoryStore) Stats(ctx context.Context, dayStart, dayEnd time.Time) (types.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st types.Stats
	for _, a := range s.premium {
		if a.IsActive {
			st.ActivePremiumAccounts++
		}
	}
	for _, c := range s.chats {
		if c.IsActive {
			st.ActiveAuthorizedChats++
		}
	}
	st.FreeCounterRows = int64(len(s.counters))
	for _, r := range s.usage {
		if !r.CreatedAt.Before(dayStart) && r.CreatedAt.Before(dayEnd) {
			st.SearchesToday++
		}
	}
	return st, nil
}

func (s *MemoryStore) GetLang(ctx context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.langs[userID], nil
}

func (s *MemoryStore) SetLang(ctx context.Context, userID int64, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.langs[userID] = lang
	return nil
}

func (s *MemoryStore) ClearLang(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.langs, userID)
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
