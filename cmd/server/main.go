package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/hydrosync/hydration-service/internal/config"
	"github.com/hydrosync/hydration-service/internal/export"
	"github.com/hydrosync/hydration-service/internal/httpapi"
	"github.com/hydrosync/hydration-service/internal/hydration"
	sharedauth "github.com/hydrosync/hydration-service/shared/auth"
	"github.com/hydrosync/hydration-service/shared/logging"
	sharedserver "github.com/hydrosync/hydration-service/shared/server"
)

const serviceName = "hydration-service"

func main() {
	ctx := context.Background()

	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName, cfg.LogLevel)

	repo, cleanup, err := newRepository(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("repository init error: %w", err))
	}
	defer cleanup()

	clock := hydration.NewSystemClock()

	hydrationService, err := hydration.NewService(repo, clock, hydration.Options{
		Location:    cfg.Calendar.Location(),
		WeekStart:   cfg.Calendar.FirstWeekday(),
		HistoryDays: cfg.Calendar.HistoryDays,
	})
	if err != nil {
		panic(fmt.Errorf("hydration service init error: %w", err))
	}

	exportService, closeExport, err := newExportService(ctx, cfg, hydrationService, clock)
	if err != nil {
		panic(fmt.Errorf("export service init error: %w", err))
	}
	defer closeExport()

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:      cfg.Auth.Mode,
		JWTSecret: cfg.Auth.JWTSecret,
		JWKSURL:   cfg.Auth.JWKSURL,
		Audience:  cfg.Auth.Audience,
		Issuer:    cfg.Auth.Issuer,
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}

	router := sharedserver.NewRouter(serviceName, sharedserver.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier))

			httpapi.RegisterRoutes(r, hydrationService, exportService, logger)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("configured",
		slog.String("datastore", string(cfg.DataStore)),
		slog.String("authMode", string(cfg.Auth.Mode)),
		slog.String("timezone", cfg.Calendar.Timezone),
		slog.Bool("exportEnabled", exportService.Enabled()),
	)

	if err := sharedserver.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newRepository(ctx context.Context, cfg config.Config) (hydration.Repository, func(), error) {
	switch cfg.DataStore {
	case config.DataStoreFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}

		client, err := firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, cfg.Firestore.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}

		repo := hydration.NewFirestoreRepository(client)
		cleanup := func() {
			_ = client.Close()
		}
		return repo, cleanup, nil
	case config.DataStoreSQLite:
		repo, err := hydration.OpenSQLiteRepository(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite repository: %w", err)
		}
		cleanup := func() {
			_ = repo.Close()
		}
		return repo, cleanup, nil
	default:
		repo := hydration.NewMemoryRepository()
		return repo, func() {}, nil
	}
}

func newExportService(ctx context.Context, cfg config.Config, source export.Source, clock hydration.Clock) (*export.Service, func(), error) {
	if cfg.Export.Bucket == "" {
		return export.NewService(nil, source, clock), func() {}, nil
	}

	store, err := export.NewGCSStore(ctx, cfg.Export.Bucket)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = store.Close()
	}
	return export.NewService(store, source, clock), cleanup, nil
}
