// Package linkfilter computes the query filters of Link fields whose allowed
// values depend on other fields of the same form.
//
// A Link field such as "stage" declaring
//
//	filterMapping: [{sourceField: lis_name, targetField: lis_name}]
//
// only offers Stage records whose lis_name equals the form's current lis_name.
// When the source is empty the filter is dropped and the search is unfiltered.
package linkfilter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

// Filter maps target fields on the linked doctype to required values.
type Filter map[string]any

// Resolve returns the filter for one Link field given the current form values.
// Sources that are unset or blank are omitted. A field without mappings
// resolves to an empty, non-nil filter.
func Resolve(field model.Field, values map[string]any) Filter {
	out := make(Filter, len(field.FilterMapping))
	for _, mapping := range field.FilterMapping {
		value, ok := values[mapping.SourceField]
		if !ok || isBlank(value) {
			continue
		}
		out[mapping.TargetField] = value
	}
	return out
}

// ResolveAll resolves every Link field of the form that declares mappings.
func ResolveAll(form model.FormModel, values map[string]any) map[string]Filter {
	out := make(map[string]Filter)
	for _, field := range form.DataFields() {
		if field.Type != model.FieldTypeLink || len(field.FilterMapping) == 0 {
			continue
		}
		out[field.Name] = Resolve(field, values)
	}
	return out
}

// Dependents maps each source field to the Link fields filtered by it. The
// dependent lists keep form order.
func Dependents(form model.FormModel) map[string][]string {
	out := make(map[string][]string)
	for _, field := range form.DataFields() {
		if field.Type != model.FieldTypeLink {
			continue
		}
		seen := make(map[string]struct{}, len(field.FilterMapping))
		for _, mapping := range field.FilterMapping {
			if _, dup := seen[mapping.SourceField]; dup {
				continue
			}
			seen[mapping.SourceField] = struct{}{}
			out[mapping.SourceField] = append(out[mapping.SourceField], field.Name)
		}
	}
	return out
}

// Sources lists the distinct source fields of a Link field in mapping order.
func Sources(field model.Field) []string {
	var out []string
	seen := make(map[string]struct{}, len(field.FilterMapping))
	for _, mapping := range field.FilterMapping {
		if _, dup := seen[mapping.SourceField]; dup {
			continue
		}
		seen[mapping.SourceField] = struct{}{}
		out = append(out, mapping.SourceField)
	}
	return out
}

// Order returns the data field names so that every filter source precedes its
// dependents. Fields unrelated by filters keep form order. An error is
// returned when the mappings form a cycle.
func Order(form model.FormModel) ([]string, error) {
	fields := form.DataFields()
	position := make(map[string]int, len(fields))
	for i, field := range fields {
		position[field.Name] = i
	}

	indegree := make(map[string]int, len(fields))
	edges := make(map[string][]string)
	for _, field := range fields {
		for _, source := range Sources(field) {
			if _, ok := position[source]; !ok || source == field.Name {
				continue
			}
			edges[source] = append(edges[source], field.Name)
			indegree[field.Name]++
		}
	}

	ready := make([]string, 0, len(fields))
	for _, field := range fields {
		if indegree[field.Name] == 0 {
			ready = append(ready, field.Name)
		}
	}

	order := make([]string, 0, len(fields))
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dependent := range edges[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(fields) {
		var stuck []string
		for _, field := range fields {
			if indegree[field.Name] > 0 {
				stuck = append(stuck, field.Name)
			}
		}
		return nil, fmt.Errorf("linkfilter: dependency cycle between %s", strings.Join(stuck, ", "))
	}
	return order, nil
}

// ToFrappe converts a filter into Frappe list-filter triples
// [[doctype, field, "=", value], ...], sorted by field.
func ToFrappe(doctype string, filter Filter) [][]any {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([][]any, 0, len(keys))
	for _, key := range keys {
		out = append(out, []any{doctype, key, "=", filter[key]})
	}
	return out
}

func isBlank(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	default:
		return false
	}
}
