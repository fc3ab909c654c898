// Package realtime provides the channel-based change notification
// façade. On its own a client delivers nothing: channels can be created,
// handlers registered and subscriptions confirmed, but no event ever
// fires. BridgeInserts connects a client to a store so insert interests
// receive rows as they are written.
package realtime

import (
	"sync"

	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// StatusSubscribed is reported to a Subscribe callback once the channel
// is active.
const StatusSubscribed = "SUBSCRIBED"

// EventInsert is the row-insertion event kind.
const EventInsert = "INSERT"

// TableWildcard registers an interest in every table.
const TableWildcard = "*"

// Payload is delivered to a handler for one changed row.
type Payload struct {
	Event string
	Table string
	New   tabledoc.Row
}

// Handler receives change payloads on a subscribed channel.
type Handler func(Payload)

type interest struct {
	event   string
	table   string
	handler Handler
}

// Client hands out named channels.
type Client struct {
	mu       sync.Mutex
	channels map[string]*Channel
}

// NewClient creates an unconnected realtime client.
func NewClient() *Client {
	return &Client{channels: make(map[string]*Channel)}
}

// Channel returns the named channel, creating it on first use.
func (c *Client) Channel(name string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[name]
	if !ok {
		ch = &Channel{name: name}
		c.channels[name] = ch
	}
	return ch
}

// RemoveChannel unsubscribes the channel and forgets it.
func (c *Client) RemoveChannel(ch *Channel) {
	if ch == nil {
		return
	}
	ch.Unsubscribe()
	c.mu.Lock()
	if c.channels[ch.name] == ch {
		delete(c.channels, ch.name)
	}
	c.mu.Unlock()
}

// BridgeInserts wires the store's insert notifications into this
// client's subscribed channels. Without a bridge the client stays inert.
func (c *Client) BridgeInserts(store *tabledoc.Store) {
	store.AddInsertObserver(func(table string, rows []tabledoc.Row) {
		c.mu.Lock()
		channels := make([]*Channel, 0, len(c.channels))
		for _, ch := range c.channels {
			channels = append(channels, ch)
		}
		c.mu.Unlock()
		for _, ch := range channels {
			for _, row := range rows {
				ch.dispatch(Payload{Event: EventInsert, Table: table, New: row})
			}
		}
	})
}

// Channel is a named subscription to change events. Registration calls
// chain so a channel can be configured and subscribed in one expression.
type Channel struct {
	name string

	mu         sync.Mutex
	subscribed bool
	interests  []interest
}

// On registers a handler for an event kind on a table. The table may be
// TableWildcard.
func (ch *Channel) On(event, table string, fn Handler) *Channel {
	ch.mu.Lock()
	ch.interests = append(ch.interests, interest{event: event, table: table, handler: fn})
	ch.mu.Unlock()
	return ch
}

// Subscribe activates the channel and reports StatusSubscribed to cb if
// one is given.
func (ch *Channel) Subscribe(cb func(status string)) *Channel {
	ch.mu.Lock()
	ch.subscribed = true
	ch.mu.Unlock()
	if cb != nil {
		cb(StatusSubscribed)
	}
	return ch
}

// Unsubscribe deactivates the channel. Registered handlers stay in place
// and resume on the next Subscribe.
func (ch *Channel) Unsubscribe() {
	ch.mu.Lock()
	ch.subscribed = false
	ch.mu.Unlock()
}

func (ch *Channel) dispatch(p Payload) {
	ch.mu.Lock()
	if !ch.subscribed {
		ch.mu.Unlock()
		return
	}
	handlers := make([]Handler, 0, len(ch.interests))
	for _, in := range ch.interests {
		if in.event == p.Event && (in.table == p.Table || in.table == TableWildcard) {
			handlers = append(handlers, in.handler)
		}
	}
	ch.mu.Unlock()
	for _, fn := range handlers {
		fn(p)
	}
}
