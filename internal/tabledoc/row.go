package tabledoc

// Attribute names generated by the store on insert.
const (
	AttrID        = "id"
	AttrCreatedAt = "created_at"
)

// Row is a single record: a flat attribute-set. Every stored row carries
// at least a unique "id" and an RFC3339 "created_at", both assigned at
// insertion time. Values are limited to what JSON can express; numbers
// decode as float64.
type Row map[string]any

// ID returns the row's unique identifier, or "" if unset.
func (r Row) ID() string {
	return r.String(AttrID)
}

// CreatedAt returns the row's creation timestamp string, or "" if unset.
func (r Row) CreatedAt() string {
	return r.String(AttrCreatedAt)
}

// String returns the named attribute as a string, or "" if absent or not
// a string.
func (r Row) String(attr string) string {
	s, _ := r[attr].(string)
	return s
}

// Float returns the named attribute as a float64, or 0 if absent or not
// numeric.
func (r Row) Float(attr string) float64 {
	switch v := r[attr].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Bool returns the named attribute as a bool, or false if absent or not
// a bool.
func (r Row) Bool(attr string) bool {
	b, _ := r[attr].(bool)
	return b
}

// Map returns the named attribute as a nested attribute map, or nil.
func (r Row) Map(attr string) map[string]any {
	m, _ := r[attr].(map[string]any)
	return m
}

// Clone returns a copy of the row. Nested attribute maps are copied one
// level deep so callers cannot mutate stored rows through a result.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	c := make(Row, len(r))
	for k, v := range r {
		if m, ok := v.(map[string]any); ok {
			nested := make(map[string]any, len(m))
			for mk, mv := range m {
				nested[mk] = mv
			}
			c[k] = nested
			continue
		}
		c[k] = v
	}
	return c
}

// TableSet is the in-memory form of the table document: table name to
// ordered rows. Insertion order is preserved.
type TableSet map[string][]Row

// TableNames is the fixed set of tables the document always contains.
// Loading initializes any missing table to empty so older documents keep
// working after a schema addition.
var TableNames = []string{
	"users",
	"profiles",
	"tenants",
	"onboarding",
	"api_keys",
	"leads",
	"feedback",
	"requests",
	"invoices",
}
