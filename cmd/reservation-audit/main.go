// Command reservation-audit consumes the booking events published by the
// server and appends one line per event to an audit log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/events"
)

func main() {
	config.LoadDotEnv()

	defaultPath := os.Getenv("AUDIT_LOG_PATH")
	if defaultPath == "" {
		defaultPath = "logs/reservations.log"
	}
	url := pflag.String("amqp-url", config.AMQPURL(), "RabbitMQ url")
	path := pflag.String("log-path", defaultPath, "audit log file")
	prefetch := pflag.Int("prefetch", 10, "unacknowledged messages in flight")
	pflag.Parse()

	log := config.NewLogger(config.Config{
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: os.Getenv("LOG_FORMAT"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &events.Consumer{URL: *url, Path: *path, Prefetch: *prefetch, Log: log}
	log.WithFields(logrus.Fields{"queue": events.QueueName, "path": *path}).Info("audit consumer started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("audit consumer stopped")
	}
	log.Info("audit consumer stopped")
}
