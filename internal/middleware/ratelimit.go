package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/room-booking/internal/config"
)

// bucketScript refills the bucket at KEYS[1] for the time elapsed since its
// last use and takes one token when a whole one is left.
//
//	ARGV: burst, tokens per millisecond, now (ms), ttl (ms)
//	returns {allowed (0|1), whole tokens left, ms until the next token}
var bucketScript = redis.NewScript(`
local burst = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local b = redis.call('HMGET', KEYS[1], 'tokens', 'at')
local tokens = tonumber(b[1]) or burst
local at = tonumber(b[2]) or now
tokens = math.min(burst, tokens + math.max(0, now - at) * rate)

local allowed, wait = 0, 0
if tokens >= 1 then
	allowed = 1
	tokens = tokens - 1
else
	wait = math.ceil((1 - tokens) / rate)
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'at', tostring(now))
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {allowed, math.floor(tokens), wait}
`)

// NewTokenBucket limits requests per bucket key with a token bucket kept in
// Redis. It must run after Authenticate so the key sees the caller. It is a
// no-op when disabled or without a Redis client, and it lets requests
// through when Redis fails mid-flight.
func NewTokenBucket(cfg config.RateLimit, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	perMs := strconv.FormatFloat(cfg.PerSecond/1000, 'f', -1, 64)
	ttl := cfg.TTL().Milliseconds()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := bucketKey(cfg, c)
			res, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
				cfg.Burst, perMs, time.Now().UnixMilli(), ttl).Int64Slice()
			if err != nil || len(res) != 3 {
				log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
				return next(c)
			}
			allowed, left, waitMs := res[0] == 1, res[1], res[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if allowed {
				return next(c)
			}

			secs := int(math.Ceil(float64(waitMs) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				log.WithFields(logrus.Fields{"key": key, "retry_ms": waitMs}).Info("rate limited")
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// bucketKey joins the configured key parts, e.g.
// "rl:ip=10.0.0.1:principal=member:3:route=GET /v1/rooms/:id".
func bucketKey(cfg config.RateLimit, c echo.Context) string {
	parts := []string{cfg.Prefix}
	for _, k := range cfg.Key {
		var v string
		switch k {
		case config.KeyIP:
			v = c.RealIP()
		case config.KeyPrincipal:
			v = label(PrincipalFrom(c))
		case config.KeyRoute:
			v = c.Request().Method + " " + c.Path()
		}
		if v == "" {
			v = "unknown"
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ":")
}
