// Command api runs the newsstand backend: catalog, checkout, purchase
// records, downloads, and the administrative surface, all behind one HTTP
// server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/acervopress/go-newsstand-backend/internal/auth"
	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/config"
	"github.com/acervopress/go-newsstand-backend/internal/entitlements"
	httpapi "github.com/acervopress/go-newsstand-backend/internal/http"
	"github.com/acervopress/go-newsstand-backend/internal/observability"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
	"github.com/acervopress/go-newsstand-backend/internal/repo"
	"github.com/acervopress/go-newsstand-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	records, closeStore, err := openEntitlementStore(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("entitlement store open failed")
	}
	defer closeStore()

	// A missing payment key is not fatal: the catalog keeps serving while
	// checkout answers provider_not_configured.
	var provider payments.Provider
	if cfg.Stripe.SecretKey != "" {
		sp, err := payments.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("stripe setup failed")
		}
		provider = sp
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set; checkout is disabled")
	}

	var remote *catalog.Client
	if len(cfg.Catalog.Endpoints) > 0 {
		remote = catalog.NewClient(cfg.Catalog.Endpoints, cfg.Catalog.Timeout)
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:       db,
		Remote:   remote,
		Payments: payments.NewService(provider, cfg.Stripe.DefaultCurrency),
		Records:  records,
		Auth:     auth.NewService(cfg.Admin.Email, cfg.Admin.PasswordHash, cfg.Admin.SessionKey, cfg.Admin.SessionTTL),
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == "mysql" {
		return repo.Open(cfg.DBDriver, cfg.DSN)
	}
	return repo.Open(cfg.DBDriver, cfg.DBPath)
}

// openEntitlementStore builds the purchase recorder over the configured
// backend: the relational database by default, or a standalone bolt file
// when the deployment keeps entitlements out of the catalog database.
func openEntitlementStore(cfg config.Config, db *gorm.DB) (*entitlements.Service, func(), error) {
	if cfg.EntitlementStore == "file" {
		bs, err := entitlements.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := bs.Close(); err != nil {
				log.Warn().Err(err).Msg("bolt close failed")
			}
		}
		return entitlements.NewService(bs), closeFn, nil
	}
	return entitlements.NewService(&entitlements.GormStore{DB: db}), func() {}, nil
}
