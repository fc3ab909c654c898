// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"strings"
	"time"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses client IP address as the rate limit key.
	ScopeIP Scope = iota
	// ScopeUser uses authenticated user ID as the rate limit key.
	ScopeUser
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Limits is the per-tier requests-per-minute configuration. 0 disables
// the tier.
type Limits struct {
	AuthPerMin       int
	WritePerMin      int
	ReadAuthPerMin   int
	ReadUnauthPerMin int
}

// Config holds rate limiters for different tiers.
type Config struct {
	Auth       Tier
	Write      Tier
	ReadAuth   Tier // authenticated read
	ReadUnauth Tier // unauthenticated read
}

// NewConfig creates a Config from per-minute limits. Disabled tiers
// never match.
func NewConfig(limits Limits) *Config {
	c := &Config{}
	if limits.AuthPerMin > 0 {
		c.Auth = Tier{Name: "auth", Limiter: NewLimiter(limits.AuthPerMin, time.Minute, limits.AuthPerMin), Scope: ScopeIP}
	}
	if limits.WritePerMin > 0 {
		c.Write = Tier{Name: "write", Limiter: NewLimiter(limits.WritePerMin, time.Minute, max(limits.WritePerMin/6, 1)), Scope: ScopeUser}
	}
	if limits.ReadAuthPerMin > 0 {
		c.ReadAuth = Tier{Name: "read", Limiter: NewLimiter(limits.ReadAuthPerMin, time.Minute, max(limits.ReadAuthPerMin/6, 1)), Scope: ScopeUser}
	}
	if limits.ReadUnauthPerMin > 0 {
		c.ReadUnauth = Tier{Name: "read", Limiter: NewLimiter(limits.ReadUnauthPerMin, time.Minute, max(limits.ReadUnauthPerMin/6, 1)), Scope: ScopeIP}
	}
	return c
}

// MatchUnauth returns the tier for unauthenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchUnauth(method, path string) *Tier {
	if path == "/api/v1/health" {
		return nil
	}
	if isAuthEndpoint(method, path) {
		return tierOrNil(&c.Auth)
	}
	// Public lead capture is an anonymous write, keyed by IP.
	if method == "POST" && strings.HasPrefix(path, "/api/v1/public/") {
		return tierOrNil(&c.Auth)
	}
	if method == "GET" {
		return tierOrNil(&c.ReadUnauth)
	}
	return nil
}

// MatchAuth returns the tier for authenticated requests.
// Returns nil for paths that should not be rate limited.
func (c *Config) MatchAuth(method, path string) *Tier {
	if path == "/api/v1/health" {
		return nil
	}
	switch method {
	case "POST", "PUT", "DELETE":
		return tierOrNil(&c.Write)
	case "GET":
		return tierOrNil(&c.ReadAuth)
	}
	return nil
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	for _, t := range []*Tier{&c.Auth, &c.Write, &c.ReadAuth, &c.ReadUnauth} {
		if t.Limiter != nil {
			t.Limiter.Close()
		}
	}
}

func tierOrNil(t *Tier) *Tier {
	if t.Limiter == nil {
		return nil
	}
	return t
}

// isAuthEndpoint checks if the path is an authentication endpoint.
func isAuthEndpoint(method, path string) bool {
	if method != "POST" {
		return false
	}
	switch path {
	case "/api/v1/auth/signup", "/api/v1/auth/login", "/api/v1/auth/reset-password":
		return true
	}
	return false
}
