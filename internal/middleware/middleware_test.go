package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/policy"
	"github.com/iliyamo/room-booking/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	p := PrincipalFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"id": p.UserID, "role": p.Role.String()})
}

func serve(t *testing.T, h echo.HandlerFunc, auth string, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/", h, mw...)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	staff, err := utils.NewAccessToken(secret, 7, policy.ClaimStaff, 5)
	require.NoError(t, err)
	member, err := utils.NewAccessToken(secret, 8, policy.ClaimMember, 5)
	require.NoError(t, err)

	tests := []struct {
		name   string
		auth   string
		status int
		body   string
	}{
		{"anonymous", "", http.StatusOK, `"role":"anonymous"`},
		{"staff", "Bearer " + staff.Token, http.StatusOK, `"role":"staff"`},
		{"member", "Bearer " + member.Token, http.StatusOK, `"id":8`},
		{"basic scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized, "missing bearer token"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, whoami, tt.auth, Authenticate(secret))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestRequireAuthenticated(t *testing.T) {
	member, err := utils.NewAccessToken(secret, 8, policy.ClaimMember, 5)
	require.NoError(t, err)

	rec := serve(t, whoami, "", Authenticate(secret), RequireAuthenticated())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, whoami, "Bearer "+member.Token, Authenticate(secret), RequireAuthenticated())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	rec := serve(t, func(c echo.Context) error { return echo.ErrNotFound }, "", Logger(log))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"status":404`)

	buf.Reset()
	serve(t, whoami, "", Logger(log))
	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), `"principal":"anonymous"`)
}

func TestNewTokenBucket_DisabledWithoutRedis(t *testing.T) {
	mw := NewTokenBucket(config.RateLimit{Enabled: true, Burst: 1, PerSecond: 1}, nil, logrus.New())
	for i := 0; i < 3; i++ {
		rec := serve(t, whoami, "", mw)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestNewTokenBucket_LimitsPerPrincipal(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimit{
		Enabled:   true,
		Burst:     2,
		PerSecond: 0.001,
		Key:       []string{config.KeyPrincipal},
		Prefix:    "rl",
	}
	limit := NewTokenBucket(cfg, rdb, logrus.New())
	member, err := utils.NewAccessToken(secret, 8, policy.ClaimMember, 5)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec := serve(t, whoami, "", Authenticate(secret), limit)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serve(t, whoami, "", Authenticate(secret), limit)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// the member has a bucket of their own
	rec = serve(t, whoami, "Bearer "+member.Token, Authenticate(secret), limit)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.True(t, mr.Exists("rl:principal=anonymous"))
	assert.True(t, mr.Exists("rl:principal=member:8"))
}

func TestNewTokenBucket_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	limit := NewTokenBucket(config.RateLimit{Enabled: true, Burst: 1, PerSecond: 1}, rdb, logrus.New())
	rec := serve(t, whoami, "", limit)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBucketKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/4", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/rooms/:id")

	cfg := config.RateLimit{Prefix: "rl", Key: []string{config.KeyIP, config.KeyPrincipal, config.KeyRoute}}
	assert.Equal(t, "rl:ip=10.0.0.1:principal=anonymous:route=GET /v1/rooms/:id", bucketKey(cfg, c))

	setPrincipal(c, policy.Principal{UserID: 3, Role: policy.Staff})
	cfg.Key = []string{config.KeyPrincipal}
	assert.Equal(t, "rl:principal=staff:3", bucketKey(cfg, c))
}
