package tabledoc

import (
	"context"
	"fmt"
	"reflect"
)

// Action selects what a request does when executed. Read is the default;
// once a request is an insert or update it stays one even if a later
// chain call asks for a read.
type Action string

const (
	// ActionRead filters and returns rows.
	ActionRead Action = "read"
	// ActionInsert materializes and appends new rows.
	ActionInsert Action = "insert"
	// ActionUpdate merges a patch into every matching row.
	ActionUpdate Action = "update"
)

// Filter is one exact-match condition; a request's filters are combined
// with logical AND.
type Filter struct {
	Attr  string `json:"attr"`
	Value any    `json:"value"`
}

// Request is the fully-built description of one operation against one
// table. It is plain data: building it has no side effects, and it
// serializes as JSON so a remote executor can carry it over the wire.
type Request struct {
	Table      string   `json:"table"`
	Action     Action   `json:"action"`
	Filters    []Filter `json:"filters,omitempty"`
	OrderBy    string   `json:"order_by,omitempty"`
	Descending bool     `json:"descending,omitempty"`
	Single     bool     `json:"single,omitempty"`
	Rows       []Row    `json:"rows,omitempty"`
	Patch      Row      `json:"patch,omitempty"`
}

// Validate checks the request is executable.
func (r *Request) Validate() error {
	if r.Table == "" {
		return errNoTable
	}
	switch r.Action {
	case ActionRead, ActionUpdate:
	case ActionInsert:
		if len(r.Rows) == 0 {
			return errEmptyPayload
		}
	default:
		return errNoAction
	}
	return nil
}

// Match reports whether the row satisfies every filter.
func (r *Request) Match(row Row) bool {
	for _, f := range r.Filters {
		if !equalValues(row[f.Attr], f.Value) {
			return false
		}
	}
	return true
}

// Executor runs a finished request. The local store is one executor; a
// remote backend client is another with the same contract.
type Executor interface {
	ExecQuery(ctx context.Context, req Request) ([]Row, error)
}

// equalValues compares two attribute values for filter equality. Numbers
// are coerced to float64 first so a value inserted as int still matches
// after a JSON round trip turned it into float64.
func equalValues(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

// compareValues is the three-way comparison used for ordering. Values of
// mismatched or non-scalar types fall back to comparing their string
// forms, and nil sorts first.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			switch {
			case as < bs:
				return -1
			case as > bs:
				return 1
			default:
				return 0
			}
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
