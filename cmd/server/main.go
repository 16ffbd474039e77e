package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/database"
	"github.com/iliyamo/room-booking/internal/events"
	"github.com/iliyamo/room-booking/internal/handler"
	"github.com/iliyamo/room-booking/internal/router"
	"github.com/iliyamo/room-booking/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	log := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := database.OpenStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer store.Close()

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	var (
		notifier service.Notifier
		pub      *events.Publisher
	)
	if cfg.EventsEnabled {
		pub = events.NewPublisher(cfg.AMQPURL, log)
		notifier = pub
	}

	var rdb *redis.Client
	if cfg.RateLimit.Enabled {
		rdb = config.NewRedisClient(cfg.Redis, log)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	e := router.New(router.Deps{
		Cfg:      cfg,
		Store:    store,
		Services: service.New(store, notifier),
		Redis:    rdb,
		DB:       pinger,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":   srv.Addr,
			"env":    cfg.Env,
			"store":  cfg.StoreDriver,
			"events": cfg.EventsEnabled,
		}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if pub != nil {
		if err := pub.Close(shutdownCtx); err != nil {
			log.WithError(err).Warn("pending domain events not published")
		}
	}
}
