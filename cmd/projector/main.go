package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-shop-backoffice/internal/activity"
	"github.com/ariefcatur/go-shop-backoffice/internal/config"
	kafkax "github.com/ariefcatur/go-shop-backoffice/internal/kafka"
	"github.com/ariefcatur/go-shop-backoffice/internal/logx"
	"github.com/ariefcatur/go-shop-backoffice/internal/orders"
	"github.com/ariefcatur/go-shop-backoffice/internal/postgres"
	"github.com/ariefcatur/go-shop-backoffice/internal/redisx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	name := cfg.ServiceName + "-projector"
	logx.Setup(name, cfg.LogLevel, cfg.IsDevelopment())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.DBMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()

	proj := &activity.Projector{
		Store: &activity.Repo{DB: db},
		Redis: rdb,
		Name:  name,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, orders.AllTopics, cfg.ProjectorWorkers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info().Str("group", cfg.ProjectorGroup).Strs("topics", orders.AllTopics).
			Int("workers", cfg.ProjectorWorkers).Msg("projector consumer started")
		if err := cons.Start(ctx, proj.Handle); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down consumer...")
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("consumer did not stop in time")
	}
}
