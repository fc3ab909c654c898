// Defines shared service dependencies for handlers.

package handlers

import (
	"github.com/chuna-hq/chuna/internal/backend"
	"github.com/chuna-hq/chuna/internal/copywriter"
	"github.com/chuna-hq/chuna/internal/identity"
	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/server/ipgeo"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// Services holds all service dependencies for handlers.
type Services struct {
	// Store is the embedded document store. Only the query endpoint
	// touches it directly; everything else goes through Backend so a
	// delegating deployment behaves the same.
	Store   *tabledoc.Store
	Backend backend.Client
	Auth    *identity.Service
	Writer  *copywriter.Writer
	Geo     *ipgeo.Checker // may be nil
}

// Config holds configuration values needed by handlers.
type Config struct {
	JWTSecret []byte
	// ServiceKey authorizes raw query delegation from another instance.
	// Empty disables the endpoint.
	ServiceKey          string
	MaxRequestBodyBytes int64
	Version             string
}

// Caller is the authenticated identity handed to portal handlers.
type Caller struct {
	UserID  string
	Email   string
	Profile portal.Profile
}

// IsAdmin reports whether the caller runs the agency side of the portal.
func (c *Caller) IsAdmin() bool {
	return c.Profile.Role == identity.RoleAdmin
}

// TenantID returns the caller's workspace id, empty before provisioning.
func (c *Caller) TenantID() string {
	return c.Profile.TenantID
}
