package tabledoc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/maruel/ksid"
)

// SessionFunc receives session transitions: the event tag and the new
// session value (nil on sign-out).
type SessionFunc func(AuthEvent, *Session)

// InsertObserver receives rows after they have been inserted and
// persisted. Used by the realtime bridge.
type InsertObserver func(table string, rows []Row)

// Store owns the two persisted documents: the table document and the
// session document. It is constructed once and injected into everything
// that needs it; there is no package-level instance.
//
// Every operation does a full read-modify-write of the table document
// under one mutex, so interleaved operations never lose writes.
type Store struct {
	tablesPath  string
	sessionPath string

	mu sync.Mutex // serializes all document reads and writes

	subMu   sync.Mutex
	subs    map[int]SessionFunc
	nextSub int

	obsMu     sync.Mutex
	observers []InsertObserver
}

// NewStore creates a store persisting under dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &Store{
		tablesPath:  filepath.Join(dir, "tables.json"),
		sessionPath: filepath.Join(dir, "session.json"),
		subs:        make(map[int]SessionFunc),
	}, nil
}

// From starts a read query against the named table, bound to this store.
func (s *Store) From(table string) Query {
	return NewQuery(s, table)
}

// LoadTables deserializes the table document. A missing, unparsable or
// misshapen document heals to an empty well-shaped set; any table absent
// from a parsed document is initialized empty. Never fails.
func (s *Store) LoadTables() TableSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTablesLocked()
}

// SaveTables serializes and persists the full table set, overwriting the
// prior document.
func (s *Store) SaveTables(tables TableSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTablesLocked(tables)
}

func (s *Store) loadTablesLocked() TableSet {
	tables := make(TableSet, len(TableNames))
	for _, name := range TableNames {
		tables[name] = []Row{}
	}

	data, err := os.ReadFile(s.tablesPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read table document, resetting", "path", s.tablesPath, "err", err)
		}
		return tables
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		slog.Warn("Corrupted table document, resetting", "path", s.tablesPath, "err", err)
		return tables
	}

	// Tables are healed individually: a single misshapen table resets to
	// empty without discarding the rest of the document.
	for name, msg := range raw {
		var rows []Row
		if err := json.Unmarshal(msg, &rows); err != nil {
			slog.Warn("Corrupted table, resetting", "table", name, "err", err)
			tables[name] = []Row{}
			continue
		}
		if rows == nil {
			rows = []Row{}
		}
		tables[name] = rows
	}
	return tables
}

func (s *Store) saveTablesLocked(tables TableSet) error {
	data, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("failed to marshal table document: %w", err)
	}
	if err := os.WriteFile(s.tablesPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write table document: %w", err)
	}
	return nil
}

// LoadSession deserializes the session document. Absence or corruption
// yields nil without raising.
func (s *Store) LoadSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.sessionPath)
	if err != nil {
		return nil
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		slog.Warn("Corrupted session document, discarding", "path", s.sessionPath, "err", err)
		return nil
	}
	if session.AccessToken == "" {
		return nil
	}
	return &session
}

// SaveSession persists the session (or clears it when nil), then
// synchronously notifies every session subscriber with SIGNED_IN or
// SIGNED_OUT and the new value.
func (s *Store) SaveSession(session *Session) error {
	s.mu.Lock()
	var err error
	if session == nil {
		err = os.Remove(s.sessionPath)
		if os.IsNotExist(err) {
			err = nil
		}
	} else {
		var data []byte
		if data, err = json.Marshal(session); err == nil {
			err = os.WriteFile(s.sessionPath, data, 0o600)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to persist session document: %w", err)
	}

	event := EventSignedOut
	if session != nil {
		event = EventSignedIn
	}
	for _, fn := range s.sessionSubscribers() {
		fn(event, session.Clone())
	}
	return nil
}

// SubscribeSession registers fn for future session transitions. The
// returned function removes the subscription.
func (s *Store) SubscribeSession(fn SessionFunc) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) sessionSubscribers() []SessionFunc {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	fns := make([]SessionFunc, 0, len(s.subs))
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	return fns
}

// AddInsertObserver registers fn to be called after rows are inserted
// and persisted.
func (s *Store) AddInsertObserver(fn InsertObserver) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

func (s *Store) notifyInsert(table string, rows []Row) {
	s.obsMu.Lock()
	observers := make([]InsertObserver, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.Unlock()
	if len(observers) == 0 {
		return
	}
	// Observers get copies, like query results; the stored rows must not
	// be reachable through a handler.
	cloned := make([]Row, len(rows))
	for i, row := range rows {
		cloned[i] = row.Clone()
	}
	for _, fn := range observers {
		fn(table, cloned)
	}
}

// ExecQuery implements Executor against the local documents. The whole
// operation runs under the store mutex so a pair of interleaved
// read-modify-write cycles cannot lose a write. Once started it runs to
// completion; cancellation is only honored before execution begins.
func (s *Store) ExecQuery(ctx context.Context, req Request) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	result, inserted, err := s.execLocked(req)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(inserted) > 0 {
		s.notifyInsert(req.Table, inserted)
	}
	return result, nil
}

func (s *Store) execLocked(req Request) (result, inserted []Row, err error) {
	tables := s.loadTablesLocked()
	if _, ok := tables[req.Table]; !ok {
		tables[req.Table] = []Row{}
		if err := s.saveTablesLocked(tables); err != nil {
			return nil, nil, err
		}
	}

	switch req.Action {
	case ActionInsert:
		now := time.Now().UTC().Format(time.RFC3339)
		inserted = make([]Row, 0, len(req.Rows))
		for _, in := range req.Rows {
			// Generated defaults first, caller attributes second: a
			// caller-supplied id or created_at is kept as-is.
			row := Row{
				AttrID:        ksid.NewID().String(),
				AttrCreatedAt: now,
			}
			for k, v := range in {
				row[k] = v
			}
			inserted = append(inserted, row)
		}
		tables[req.Table] = append(tables[req.Table], inserted...)
		if err := s.saveTablesLocked(tables); err != nil {
			return nil, nil, err
		}
		out := make([]Row, len(inserted))
		for i, row := range inserted {
			out[i] = row.Clone()
		}
		if req.Single {
			out = out[:1]
		}
		return out, inserted, nil

	case ActionUpdate:
		rows := tables[req.Table]
		for i, row := range rows {
			if !req.Match(row) {
				continue
			}
			merged := row.Clone()
			for k, v := range req.Patch {
				merged[k] = v
			}
			rows[i] = merged
		}
		tables[req.Table] = rows
		if err := s.saveTablesLocked(tables); err != nil {
			return nil, nil, err
		}
		// No row echo: observing the new state takes a second read.
		return nil, nil, nil

	case ActionRead:
		var filtered []Row
		for _, row := range tables[req.Table] {
			if req.Match(row) {
				filtered = append(filtered, row.Clone())
			}
		}
		if req.OrderBy != "" {
			sort.SliceStable(filtered, func(i, j int) bool {
				c := compareValues(filtered[i][req.OrderBy], filtered[j][req.OrderBy])
				if req.Descending {
					return c > 0
				}
				return c < 0
			})
		}
		if req.Single {
			if len(filtered) == 0 {
				return nil, nil, ErrRowNotFound
			}
			return filtered[:1], nil, nil
		}
		return filtered, nil, nil
	}
	return nil, nil, errNoAction
}
