package config

import (
	"strings"
	"time"
)

// Parts a rate-limit bucket key can be built from.
const (
	KeyIP        = "ip"        // client address
	KeyPrincipal = "principal" // role and user id, "anonymous" for guests
	KeyRoute     = "route"     // method and route pattern
)

// RateLimit configures the Redis token bucket in front of the API. Every
// bucket starts full with Burst tokens and regains PerSecond tokens each
// second; a request takes one token.
type RateLimit struct {
	Enabled   bool
	Burst     int
	PerSecond float64
	Key       []string // bucket key parts, in order
	Prefix    string
	Debug     bool // log rejected requests and expose the bucket key
}

func loadRateLimit() RateLimit {
	rl := RateLimit{
		Enabled:   envBool("RATE_LIMIT_ENABLED", true),
		Burst:     envInt("RATE_LIMIT_BURST", 60),
		PerSecond: envFloat("RATE_LIMIT_PER_SECOND", 1),
		Key:       keyParts(envStr("RATE_LIMIT_KEY", "ip,principal,route")),
		Prefix:    envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:     envBool("RATE_LIMIT_DEBUG", false),
	}
	if rl.Burst < 1 {
		rl.Burst = 1
	}
	if rl.PerSecond <= 0 {
		rl.PerSecond = 1
	}
	return rl
}

// TTL is how long an idle bucket is kept in Redis: the time an empty bucket
// needs to fill up again, plus a minute.
func (rl RateLimit) TTL() time.Duration {
	refill := time.Duration(float64(rl.Burst) / rl.PerSecond * float64(time.Second))
	return refill + time.Minute
}

// keyParts parses a comma separated list of key parts, dropping unknown and
// repeated ones. An empty result keys by client address.
func keyParts(s string) []string {
	var parts []string
	seen := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		switch p {
		case KeyIP, KeyPrincipal, KeyRoute:
			if !seen[p] {
				seen[p] = true
				parts = append(parts, p)
			}
		}
	}
	if len(parts) == 0 {
		return []string{KeyIP}
	}
	return parts
}
