// Package backend hands the rest of the application one handle for
// data, auth and realtime. The local implementation runs on the
// embedded document store; when a remote backend is configured the same
// data operations are delegated over HTTP with identical results and
// errors, so callers cannot tell the two apart.
package backend

import (
	"github.com/chuna-hq/chuna/internal/config"
	"github.com/chuna-hq/chuna/internal/identity"
	"github.com/chuna-hq/chuna/internal/realtime"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// Client is the application-facing backend handle.
type Client interface {
	// From starts a query against the named table.
	From(table string) tabledoc.Query
	// Auth returns the authentication service.
	Auth() *identity.Service
	// Realtime returns the change notification client.
	Realtime() *realtime.Client
}

type localClient struct {
	store *tabledoc.Store
	auth  *identity.Service
	rt    *realtime.Client
}

// NewLocal creates a client bound to the embedded store. The realtime
// client is bridged to the store so insert subscriptions deliver.
func NewLocal(store *tabledoc.Store, auth *identity.Service) Client {
	rt := realtime.NewClient()
	rt.BridgeInserts(store)
	return &localClient{store: store, auth: auth, rt: rt}
}

func (c *localClient) From(table string) tabledoc.Query {
	return c.store.From(table)
}

func (c *localClient) Auth() *identity.Service {
	return c.auth
}

func (c *localClient) Realtime() *realtime.Client {
	return c.rt
}

// Dial returns the remote client when a backend URL and key are
// configured, and the local client otherwise. The auth service is bound
// to the same executor data queries run on, so user and profile rows
// live wherever From reads them; only the session document stays in the
// local store.
func Dial(cfg *config.Config, store *tabledoc.Store, masterEmail string, jwtSecret []byte) Client {
	if cfg.RemoteURL == "" {
		return NewLocal(store, identity.NewService(store, store, masterEmail, jwtSecret))
	}
	exec := NewRemote(cfg.RemoteURL, cfg.RemoteKey)
	rt := realtime.NewClient()
	rt.BridgeInserts(store)
	return &remoteClient{
		exec: exec,
		auth: identity.NewService(exec, store, masterEmail, jwtSecret),
		rt:   rt,
	}
}

type remoteClient struct {
	exec *Remote
	auth *identity.Service
	rt   *realtime.Client
}

func (c *remoteClient) From(table string) tabledoc.Query {
	return tabledoc.NewQuery(c.exec, table)
}

func (c *remoteClient) Auth() *identity.Service {
	return c.auth
}

func (c *remoteClient) Realtime() *realtime.Client {
	return c.rt
}
