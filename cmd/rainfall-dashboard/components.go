package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/i474232898/rainfall-dashboard/internal/config"
	"github.com/i474232898/rainfall-dashboard/internal/database"
	"github.com/i474232898/rainfall-dashboard/internal/geo"
	"github.com/i474232898/rainfall-dashboard/internal/harvest"
	"github.com/i474232898/rainfall-dashboard/internal/logger"
	"github.com/i474232898/rainfall-dashboard/internal/store"
	"github.com/i474232898/rainfall-dashboard/internal/weather"
	"github.com/i474232898/rainfall-dashboard/internal/weather/providers"
)

// components are the long-lived objects shared by every command.
type components struct {
	cfg   *config.Config
	log   *zap.Logger
	store store.Store
	aemet *providers.AEMETProvider
	close func()
}

func setup(ctx context.Context) (*components, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("store ready", zap.String("driver", cfg.Database.Driver))

	if cfg.AEMET.APIKey == "" {
		log.Warn("AEMET_API_KEY is not set; live feeds will fail")
	}

	return &components{
		cfg:   cfg,
		log:   log,
		store: st,
		aemet: providers.NewAEMETProvider(newHTTPClient(cfg.AEMET), cfg.AEMET.APIKey, cfg.AEMET.BaseURL),
		close: func() {
			closeStore()
			_ = log.Sync()
		},
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	db, err := database.Connect(cfg.Database)
	if errors.Is(err, database.ErrNoDatabase) {
		return store.NewMemoryStore(cfg.Store.MaxHistory, cfg.Store.MaxAge), func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	sqlStore := store.NewSQLStore(db)
	if err := sqlStore.Migrate(ctx); err != nil {
		return nil, nil, err
	}

	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return sqlStore, closeDB, nil
}

// newHTTPClient is the shared client for outbound AEMET calls.
func newHTTPClient(cfg config.AEMETConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

func (c *components) newService() (*weather.Service, error) {
	opts := []weather.Option{weather.WithLogger(c.log.Named("weather"))}

	if key := c.cfg.Geocoder.APIKey; key != "" {
		g, err := geo.New(key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, weather.WithGeocoder(g))
	}

	return weather.NewService(weather.Sources{
		Store:      c.store,
		Stations:   c.store,
		Recent:     c.aemet,
		Historical: c.aemet,
	}, weather.Config{
		StoreTTL:      c.cfg.Cache.DBTTL,
		RecentTTL:     c.cfg.Cache.RecentTTL,
		HistoricalTTL: c.cfg.Cache.HistoricalTTL,
		StationsTTL:   c.cfg.Cache.StationsTTL,
		RecentHorizon: weather.DefaultRecentHorizon,
	}, opts...)
}

func (c *components) newHarvester() *harvest.Harvester {
	return harvest.New(c.aemet, c.store,
		harvest.WithPause(c.cfg.Harvest.Pause),
		harvest.WithLogger(c.log.Named("harvest")),
	)
}
