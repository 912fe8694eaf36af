package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BatmanBruc/bat-bot-search/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type PostgresStore struct {
	pool     *pgxpool.Pool
	defaults types.FreeTierConfig
	timeout  time.Duration
}

type Option func(*storeOptions)

type storeOptions struct {
	dailyLimit int
	cooldown   int
	timeout    time.Duration
}

// WithFreeTierDefaults sets the values used when a chat's free tier config is created lazily.
func WithFreeTierDefaults(dailyLimit, cooldownSeconds int) Option {
	return func(o *storeOptions) {
		o.dailyLimit = dailyLimit
		o.cooldown = cooldownSeconds
	}
}

func WithQueryTimeout(d time.Duration) Option {
	return func(o *storeOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func applyOptions(opts []Option) storeOptions {
	o := storeOptions{
		dailyLimit: types.DefaultDailyLimit,
		cooldown:   types.DefaultSpamCooldownSeconds,
		timeout:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	o := applyOptions(opts)
	s := &PostgresStore{
		pool: pool,
		defaults: types.FreeTierConfig{
			DailyLimit:          o.dailyLimit,
			SpamCooldownSeconds: o.cooldown,
		},
		timeout: o.timeout,
	}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return types.ErrNotFound
	}
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) GetPremiumAccount(ctx context.Context, userID int64) (*types.PremiumAccount, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var a types.PremiumAccount
	err := s.pool.QueryRow(ctx, `
SELECT user_id, chat_id, credits, expiry_date, is_active, created_at, updated_at
FROM premium_accounts
WHERE user_id = $1
`, userID).Scan(&a.UserID, &a.ChatID, &a.Credits, &a.ExpiryDate, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// UpsertPremiumAccount overwrites credits and expiry and reactivates the account.
func (s *PostgresStore) UpsertPremiumAccount(ctx context.Context, acct types.PremiumAccount) (*types.PremiumAccount, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var a types.PremiumAccount
	err := s.pool.QueryRow(ctx, `
INSERT INTO premium_accounts (user_id, chat_id, credits, expiry_date, is_active)
VALUES ($1, $2, $3, $4, TRUE)
ON CONFLICT (user_id) DO UPDATE SET
  chat_id = EXCLUDED.chat_id,
  credits = EXCLUDED.credits,
  expiry_date = EXCLUDED.expiry_date,
  is_active = TRUE,
  updated_at = NOW()
RETURNING user_id, chat_id, credits, expiry_date, is_active, created_at, updated_at
`, acct.UserID, acct.ChatID, acct.Credits, acct.ExpiryDate).Scan(
		&a.UserID, &a.ChatID, &a.Credits, &a.ExpiryDate, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) DeactivatePremiumAccount(ctx context.Context, userID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE premium_accounts
SET is_active = FALSE, updated_at = NOW()
WHERE user_id = $1
`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TouchPremiumChat(ctx context.Context, userID, chatID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
UPDATE premium_accounts
SET chat_id = $2, updated_at = NOW()
WHERE user_id = $1 AND chat_id <> $2
`, userID, chatID)
	return err
}

func (s *PostgresStore) DeductCredits(ctx context.Context, userID int64, amount int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var remaining int64
	err := s.pool.QueryRow(ctx, `
UPDATE premium_accounts
SET credits = credits - $2, updated_at = NOW()
WHERE user_id = $1 AND credits >= $2
RETURNING credits
`, userID, amount).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	var balance int64
	err = s.pool.QueryRow(ctx, `SELECT credits FROM premium_accounts WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		return 0, notFound(err)
	}
	return balance, types.ErrInsufficientCredits
}

func (s *PostgresStore) AdjustCredits(ctx context.Context, userID int64, delta int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var balance int64
	err := s.pool.QueryRow(ctx, `
UPDATE premium_accounts
SET credits = credits + $2, updated_at = NOW()
WHERE user_id = $1
RETURNING credits
`, userID, delta).Scan(&balance)
	if err != nil {
		return 0, notFound(err)
	}
	return balance, nil
}

func (s *PostgresStore) GetAuthorizedChat(ctx context.Context, chatID int64) (*types.AuthorizedChat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var c types.AuthorizedChat
	err := s.pool.QueryRow(ctx, `
SELECT chat_id, title, is_active, created_at, updated_at
FROM authorized_chats
WHERE chat_id = $1
`, chatID).Scan(&c.ChatID, &c.Title, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (s *PostgresStore) UpsertAuthorizedChat(ctx context.Context, chat types.AuthorizedChat) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO authorized_chats (chat_id, title, is_active)
VALUES ($1, $2, TRUE)
ON CONFLICT (chat_id) DO UPDATE SET
  title = CASE WHEN EXCLUDED.title = '' THEN authorized_chats.title ELSE EXCLUDED.title END,
  is_active = TRUE,
  updated_at = NOW()
`, chat.ChatID, strings.TrimSpace(chat.Title))
	return err
}

func (s *PostgresStore) DeactivateAuthorizedChat(ctx context.Context, chatID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE authorized_chats
SET is_active = FALSE, updated_at = NOW()
WHERE chat_id = $1
`, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetFreeTierConfig(ctx context.Context, chatID int64) (types.FreeTierConfig, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cfg := types.FreeTierConfig{ChatID: chatID}
	err := s.pool.QueryRow(ctx, `
WITH ins AS (
  INSERT INTO free_tier_configs (chat_id, daily_limit, spam_cooldown_seconds)
  VALUES ($1, $2, $3)
  ON CONFLICT (chat_id) DO NOTHING
  RETURNING daily_limit, spam_cooldown_seconds, updated_at
)
SELECT daily_limit, spam_cooldown_seconds, updated_at FROM ins
UNION ALL
SELECT daily_limit, spam_cooldown_seconds, updated_at FROM free_tier_configs WHERE chat_id = $1
LIMIT 1
`, chatID, s.defaults.DailyLimit, s.defaults.SpamCooldownSeconds).Scan(&cfg.DailyLimit, &cfg.SpamCooldownSeconds, &cfg.UpdatedAt)
	if err != nil {
		return types.FreeTierConfig{}, err
	}
	return cfg, nil
}

func (s *PostgresStore) UpsertFreeTierConfig(ctx context.Context, cfg types.FreeTierConfig) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO free_tier_configs (chat_id, daily_limit, spam_cooldown_seconds)
VALUES ($1, $2, $3)
ON CONFLICT (chat_id) DO UPDATE SET
  daily_limit = EXCLUDED.daily_limit,
  spam_cooldown_seconds = EXCLUDED.spam_cooldown_seconds,
  updated_at = NOW()
`, cfg.ChatID, cfg.DailyLimit, cfg.SpamCooldownSeconds)
	return err
}

func (s *PostgresStore) GetFreeCounter(ctx context.Context, userID, chatID int64) (*types.FreeUsageCounter, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var c types.FreeUsageCounter
	err := s.pool.QueryRow(ctx, `
SELECT user_id, chat_id, daily_search_count, last_search_at, created_at, updated_at
FROM free_usage_counters
WHERE user_id = $1 AND chat_id = $2
`, userID, chatID).Scan(&c.UserID, &c.ChatID, &c.DailySearchCount, &c.LastSearchAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// SetFreeCounter writes the new count only if the row still holds the expected
// count and last search time. Rows are never deleted, so an absent row can only
// have been observed as absent.
func (s *PostgresStore) SetFreeCounter(ctx context.Context, upd types.CounterUpdate) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
INSERT INTO free_usage_counters (user_id, chat_id, daily_search_count, last_search_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, chat_id) DO UPDATE SET
  daily_search_count = EXCLUDED.daily_search_count,
  last_search_at = EXCLUDED.last_search_at,
  updated_at = NOW()
WHERE free_usage_counters.daily_search_count = $5
  AND free_usage_counters.last_search_at IS NOT DISTINCT FROM $6
`, upd.UserID, upd.ChatID, upd.NewCount, upd.LastSearchAt.UTC(), upd.ExpectedCount, upd.ExpectedLastSearchAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrCounterConflict
	}
	return nil
}

func (s *PostgresStore) ResetFreeCounters(ctx context.Context, chatID int64) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE free_usage_counters
SET daily_search_count = 0, updated_at = NOW()
WHERE chat_id = $1
`, chatID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ResetFreeCounter(ctx context.Context, userID, chatID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tag, err := s.pool.Exec(ctx, `
UPDATE free_usage_counters
SET daily_search_count = 0, updated_at = NOW()
WHERE user_id = $1 AND chat_id = $2
`, userID, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetPrice(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var raw string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, types.SettingPricePerSearch).Scan(&raw)
	if err != nil {
		return 0, notFound(err)
	}
	price, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stored price %q: %w", raw, err)
	}
	return price, nil
}

func (s *PostgresStore) SetPrice(ctx context.Context, price int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.pool.Exec(ctx, `
INSERT INTO settings (key, value)
VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
`, types.SettingPricePerSearch, strconv.FormatInt(price, 10))
	return err
}

func (s *PostgresStore) AppendUsage(ctx context.Context, rec types.UsageRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO usage_records (user_id, chat_id, search_term, tier, credits_used, results_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, rec.UserID, rec.ChatID, rec.SearchTerm, string(rec.Tier), rec.CreditsUsed, rec.ResultsCount, createdAt.UTC())
	return err
}

func (s *PostgresStore) Stats(ctx context.Context, dayStart, dayEnd time.Time) (types.Stats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var st types.Stats
	err := s.pool.QueryRow(ctx, `
SELECT
  (SELECT COUNT(*) FROM premium_accounts WHERE is_active = TRUE),
  (SELECT COUNT(*) FROM authorized_chats WHERE is_active = TRUE),
  (SELECT COUNT(*) FROM free_usage_counters),
  (SELECT COUNT(*) FROM usage_records WHERE created_at >= $1 AND created_at < $2)
`, dayStart.UTC(), dayEnd.UTC()).Scan(&st.ActivePremiumAccounts, &st.ActiveAuthorizedChats, &st.FreeCounterRows, &st.SearchesToday)
	if err != nil {
		return types.Stats{}, err
	}
	return st, nil
}
