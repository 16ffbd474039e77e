package config

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis locates the server backing the rate limiter.
type Redis struct {
	Addr        string
	Password    string
	DB          int
	TLS         bool
	TLSInsecure bool // skip certificate verification, for self-signed dev servers only
}

// loadRedis reads REDIS_HOST and REDIS_PORT, or REDIS_ADDR when they are not
// both set, plus REDIS_PASSWORD, REDIS_DB, REDIS_TLS and REDIS_TLS_INSECURE.
func loadRedis() Redis {
	r := Redis{
		Addr:        envStr("REDIS_ADDR", "localhost:6379"),
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          envInt("REDIS_DB", 0),
		TLS:         envBool("REDIS_TLS", false),
		TLSInsecure: envBool("REDIS_TLS_INSECURE", false),
	}
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		r.Addr = host + ":" + port
	}
	return r
}

// Options converts the settings into go-redis options.
func (r Redis) Options() *redis.Options {
	opts := &redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB}
	if r.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: r.TLSInsecure, //nolint:gosec // opt-in via REDIS_TLS_INSECURE
		}
	}
	return opts
}

// NewRedisClient connects to the rate-limit Redis. It returns nil when the
// server does not answer a ping, and the server then runs without rate
// limiting.
func NewRedisClient(cfg Redis, log logrus.FieldLogger) *redis.Client {
	client := redis.NewClient(cfg.Options())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.Addr).Warn("redis unavailable, rate limiting disabled")
		_ = client.Close()
		return nil
	}
	return client
}
