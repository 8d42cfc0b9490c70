package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	analytics "campus-energy/internal/analytics/application"
	"campus-energy/internal/bloom"
	"campus-energy/internal/config"
	energy "campus-energy/internal/energy/domain"
	"campus-energy/internal/energy/infrastructure/memory"
	"campus-energy/internal/energy/infrastructure/sqlstore"
	"campus-energy/internal/freshness"
	ingestapp "campus-energy/internal/ingest/application"
	"campus-energy/internal/ingest/normalize"
	"campus-energy/internal/logging"
	"campus-energy/internal/observability/metrics"
)

// app holds the wired components shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *sqlstore.Store

	daily      energy.DailyRepository
	hourly     energy.HourlyRepository
	reconciler *ingestapp.Reconciler
	importer   *ingestapp.Importer
	engine     *analytics.Engine
	freshness  *freshness.Reporter
}

func newApp(ctx context.Context, inMemory bool) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if inMemory {
		a.daily = memory.NewDailyRepository()
		a.hourly = memory.NewHourlyRepository()
		metrics.Init(nil, logger)
		logger.Warn("using in-memory storage; data is lost on exit")
	} else {
		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.daily = sqlstore.NewDailyRepository(store)
		a.hourly = sqlstore.NewHourlyRepository(store)
		metrics.Init(store.Stats, logger)
	}

	layouts := normalize.DefaultLayouts()
	if cfg.Ingest.LayoutsFile != "" {
		if layouts, err = normalize.LoadLayouts(cfg.Ingest.LayoutsFile); err != nil {
			a.Close()
			return nil, err
		}
	}

	clock := energy.SystemClock{}
	if a.reconciler, err = ingestapp.NewReconciler(a.daily, a.hourly, logger,
		ingestapp.WithUserID(cfg.Ingest.UserID), ingestapp.WithClock(clock)); err != nil {
		a.Close()
		return nil, err
	}
	if a.importer, err = ingestapp.NewImporter(normalize.NewNormalizer(layouts, logger), a.reconciler, logger); err != nil {
		a.Close()
		return nil, err
	}
	if a.engine, err = analytics.NewEngine(a.daily, a.hourly, clock, logger); err != nil {
		a.Close()
		return nil, err
	}
	if a.freshness, err = freshness.NewReporter(a.daily, a.hourly); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqlstore.Store, error) {
	dsn, err := cfg.Database.ConnString()
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(ctx, cfg.Database.Driver, dsn, sqlstore.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func (a *app) fetchJob() (*bloom.FetchJob, error) {
	b := a.cfg.Bloom
	client, err := bloom.NewClient(bloom.Endpoints{
		TokenURL:    b.TokenURL,
		SiteURL:     b.SiteURL,
		SiteDataURL: b.SiteDataURL,
	})
	if err != nil {
		return nil, err
	}
	return bloom.NewFetchJob(client, bloom.Credentials{Username: b.Username, Password: b.Password}, a.reconciler, a.logger)
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
