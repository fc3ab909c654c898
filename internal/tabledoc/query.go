package tabledoc

import "context"

// Query builds a Request against one table through value-returning chain
// calls. Each call returns a new Query; a half-built query can be reused
// as a prefix without the chains observing each other. Nothing touches
// storage until Run or RunSingle.
type Query struct {
	exec Executor
	req  Request
}

// NewQuery starts a read query against the named table on the given
// executor.
func NewQuery(exec Executor, table string) Query {
	return Query{exec: exec, req: Request{Table: table, Action: ActionRead}}
}

// Select marks the query as a read. It does not demote a query that is
// already an insert or update. The column list is accepted for interface
// parity with the remote backend and otherwise ignored: rows always come
// back whole.
func (q Query) Select(columns ...string) Query {
	if q.req.Action != ActionInsert && q.req.Action != ActionUpdate {
		q.req.Action = ActionRead
	}
	return q
}

// Insert turns the query into an insert of the given attribute-sets, in
// order.
func (q Query) Insert(rows ...Row) Query {
	q.req.Action = ActionInsert
	q.req.Rows = append([]Row(nil), rows...)
	return q
}

// Update turns the query into an update merging patch into every
// matching row.
func (q Query) Update(patch Row) Query {
	q.req.Action = ActionUpdate
	q.req.Patch = patch
	return q
}

// Eq narrows the predicate with an exact-match condition on attr,
// combined by logical AND with any earlier conditions.
func (q Query) Eq(attr string, value any) Query {
	filters := make([]Filter, len(q.req.Filters), len(q.req.Filters)+1)
	copy(filters, q.req.Filters)
	q.req.Filters = append(filters, Filter{Attr: attr, Value: value})
	return q
}

// Order sets the result ordering for reads. Equal keys keep their stored
// relative order.
func (q Query) Order(attr string, ascending bool) Query {
	q.req.OrderBy = attr
	q.req.Descending = !ascending
	return q
}

// Single switches the query to single-row mode: the result is the first
// matching row, and a read with no match fails with ErrRowNotFound.
func (q Query) Single() Query {
	q.req.Single = true
	return q
}

// Request returns the built descriptor.
func (q Query) Request() Request {
	return q.req
}

// Run executes the query. This is the only point where the operation
// touches storage. Reads resolve to the matching rows (nil error even
// when empty), inserts to the materialized rows in input order, updates
// to nil rows.
func (q Query) Run(ctx context.Context) ([]Row, error) {
	if q.exec == nil {
		return nil, errNilExecutor
	}
	return q.exec.ExecQuery(ctx, q.req)
}

// RunSingle executes the query in single-row mode and returns the one
// resulting row. A read with no match returns ErrRowNotFound.
func (q Query) RunSingle(ctx context.Context) (Row, error) {
	rows, err := q.Single().Run(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
