package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-shop-backoffice/internal/activity"
	"github.com/ariefcatur/go-shop-backoffice/internal/auth"
	"github.com/ariefcatur/go-shop-backoffice/internal/catalog"
	"github.com/ariefcatur/go-shop-backoffice/internal/config"
	"github.com/ariefcatur/go-shop-backoffice/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-backoffice/internal/kafka"
	"github.com/ariefcatur/go-shop-backoffice/internal/logx"
	"github.com/ariefcatur/go-shop-backoffice/internal/orders"
	"github.com/ariefcatur/go-shop-backoffice/internal/postgres"
	"github.com/ariefcatur/go-shop-backoffice/internal/redisx"
	"github.com/ariefcatur/go-shop-backoffice/internal/reporting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logx.Setup(cfg.ServiceName, cfg.LogLevel, cfg.IsDevelopment())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DBAutoMigrate {
		if err := postgres.MigrateUp(cfg.PostgresDSN); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.DBMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	users := &auth.UserRepo{DB: db}
	if _, created, err := users.EnsureAdmin(ctx, "Admin User", cfg.AdminEmail, cfg.AdminPassword, auth.RoleSuperAdmin); err != nil {
		log.Warn().Err(err).Msg("ensure default admin")
	} else if created {
		log.Info().Str("email", cfg.AdminEmail).Msg("created default admin")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()

	// Kafka producer, satu untuk semua topic order
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	catalogRepo := &catalog.Repo{DB: db}
	svc := &orders.Service{
		Store:   &orders.Repo{DB: db},
		Catalog: catalogRepo,
		Cache:   orders.RedisCache{RDB: rdb, TTL: redisx.TTLOrderCache},
		Events:  orders.KafkaSink{Producer: prod},
		Source:  cfg.ServiceName,
		Strict:  cfg.StrictTransitions,
	}
	reports := &reporting.Service{DB: db, Cache: reporting.RedisCache{RDB: rdb}}

	rs := httpx.Responder{Development: cfg.IsDevelopment()}
	issuer := auth.Issuer{Secret: []byte(cfg.JWTSecret), TTL: cfg.JWTTokenTTL}
	authed := issuer.Middleware(rs.Error)

	router := httpx.NewRouter(rs, db, httpx.RedisPinger(rdb))
	(&httpx.OrdersHandler{
		Orders:   svc,
		Activity: &activity.Repo{DB: db},
		Idem:     httpx.RedisIdempotency{RDB: rdb},
		Resp:     rs,
	}).Register(router, authed)
	(&httpx.CatalogHandler{Store: catalogRepo, Resp: rs}).Register(router, authed)
	(&httpx.ReportsHandler{Reports: reports, Resp: rs}).Register(router, authed)
	(&httpx.AuthHandler{Users: users, Issuer: issuer, Resp: rs}).Register(router, authed)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
