package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/BatmanBruc/bat-bot-search/internal/access"
	"github.com/BatmanBruc/bat-bot-search/internal/admin"
	"github.com/BatmanBruc/bat-bot-search/internal/config"
	"github.com/BatmanBruc/bat-bot-search/internal/handlers"
	"github.com/BatmanBruc/bat-bot-search/internal/ledger"
	"github.com/BatmanBruc/bat-bot-search/internal/logger"
	"github.com/BatmanBruc/bat-bot-search/internal/metrics"
	"github.com/BatmanBruc/bat-bot-search/internal/middleware"
	"github.com/BatmanBruc/bat-bot-search/internal/ops"
	"github.com/BatmanBruc/bat-bot-search/internal/pricing"
	"github.com/BatmanBruc/bat-bot-search/store"
	"github.com/BatmanBruc/bat-bot-search/types"
)

type backend interface {
	types.EntitlementStore
	types.UsageLedger
	Close() error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load("config.env")
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		ServiceName: "search-bot",
		Level:       logger.ParseLevel(cfg.Log.Level),
		Format:      cfg.Log.Format,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	storeOpts := []store.Option{
		store.WithFreeTierDefaults(cfg.Access.FreeDailyLimit, cfg.Access.FreeSpamCooldownSeconds),
		store.WithQueryTimeout(cfg.Store.QueryTimeout),
	}
	var db backend
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn(ctx, "using in-memory store, state is lost on restart")
		db = store.NewMemoryStore(storeOpts...)
	default:
		pg, pgErr := store.NewPostgresStore(ctx, cfg.Store.PostgresDSN(), storeOpts...)
		if pgErr != nil {
			return fmt.Errorf("connect postgres: %w", pgErr)
		}
		db = pg
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	var prefs types.PreferenceStore
	if cfg.Redis.Enabled() {
		rdb, redisErr := store.NewRedisClient(ctx, store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if redisErr != nil {
			return fmt.Errorf("connect redis: %w", redisErr)
		}
		defer func() { err = multierr.Append(err, rdb.Close()) }()
		prefs = store.NewRedisUserStore(rdb, cfg.Redis.TTLHours)
	} else {
		prefs = store.NewMemoryStore()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	accessMetrics := metrics.NewAccessMetrics(reg)

	writer := ledger.NewWriter(db, ledger.Config{
		Workers:     cfg.Access.LedgerWorkers,
		QueueSize:   cfg.Access.LedgerQueueSize,
		MaxAttempts: cfg.Access.StoreMaxAttempts,
	}, log, accessMetrics)
	writer.Start()
	defer writer.Stop()

	prices := pricing.NewResolver(db, cfg.Access.PricePerSearch)
	accessSvc := access.NewService(db, writer, prices,
		access.WithLogger(log),
		access.WithMetrics(accessMetrics),
		access.WithMaxAttempts(cfg.Access.StoreMaxAttempts, 20*time.Millisecond),
	)
	adminSvc := admin.NewService(db, prices, cfg.Bot.AdminID,
		admin.WithLogger(log),
		admin.WithLocation(cfg.Location()),
	)
	h := handlers.NewHandlers(accessSvc, adminSvc, prefs, log, cfg.Access.Timezone)

	opsServer := ops.NewServer(cfg.Ops.Addr, ops.NewRouter(db, reg, log), log)
	opsServer.Start()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		err = multierr.Append(err, opsServer.Shutdown(shutdownCtx))
	}()

	httpClient := &http.Client{
		Timeout: cfg.Bot.PollTimeout + 30*time.Second,
	}
	b, err := bot.New(
		cfg.Bot.Token,
		bot.WithHTTPClient(cfg.Bot.PollTimeout, httpClient),
	)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	mw := middleware.New(log, prefs)
	handlerChain := mw.UpdateContext(mw.Recover(h.MainHandler))

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	log.Info(ctx, "bot started")
	b.Start(ctx)
	log.Info(context.Background(), "bot stopped")
	return nil
}
