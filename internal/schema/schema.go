// Package schema exports the declared shape of each portal table as
// JSON Schema, for the admin console's data dictionary view.
package schema

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/chuna-hq/chuna/internal/portal"
)

// tableTypes maps each declared table to its Go type. The users table
// is deliberately absent: its rows carry credentials and are never
// exported.
var tableTypes = map[string]reflect.Type{
	"profiles":   reflect.TypeFor[portal.Profile](),
	"tenants":    reflect.TypeFor[portal.Tenant](),
	"onboarding": reflect.TypeFor[portal.Onboarding](),
	"api_keys":   reflect.TypeFor[portal.APIKey](),
	"leads":      reflect.TypeFor[portal.Lead](),
	"feedback":   reflect.TypeFor[portal.Feedback](),
	"requests":   reflect.TypeFor[portal.Request](),
	"invoices":   reflect.TypeFor[portal.Invoice](),
}

// Tables returns the exported table names, sorted.
func Tables() []string {
	names := make([]string, 0, len(tableTypes))
	for name := range tableTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// For reflects the JSON Schema of one table's row type.
func For(table string) (*jsonschema.Schema, error) {
	t, ok := tableTypes[table]
	if !ok {
		return nil, fmt.Errorf("no declared schema for table %q", table)
	}
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	return r.ReflectFromType(t), nil
}

// All reflects the schemas of every exported table.
func All() (map[string]*jsonschema.Schema, error) {
	out := make(map[string]*jsonschema.Schema, len(tableTypes))
	for _, name := range Tables() {
		s, err := For(name)
		if err != nil {
			return nil, err
		}
		out[name] = s
	}
	return out, nil
}
