package render

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/submit"
)

// Hidden inputs that carry an edit session's revision through a browser
// round trip, plus the method override used by delete buttons.
const (
	HiddenName      = "__name"
	HiddenModified  = "__modified"
	HiddenDocStatus = "__docstatus"
	HiddenMethod    = "_method"
)

// RowPlaceholder stands in for the row index in a table's blank row template.
const RowPlaceholder = "__row__"

// TablePresenceKey names the hidden input posted with every editable table,
// so a post with zero rows still says the table was on the page.
func TablePresenceKey(table string) string {
	return table + ".__present"
}

// HiddenField is one hidden input.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden builds a HiddenField, formatting value with fmt.Sprint.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// RevisionFields returns the hidden inputs for meta, or nil for a new record.
func RevisionFields(meta *submit.RecordMeta) []HiddenField {
	if meta == nil {
		return nil
	}
	return []HiddenField{
		Hidden(HiddenName, meta.Name),
		Hidden(HiddenModified, meta.Modified),
		Hidden(HiddenDocStatus, meta.DocStatus),
	}
}

// RevisionFromForm is the inverse of RevisionFields. A post without a
// modified marker is a new record and yields nil. A missing or malformed
// docstatus is left nil so the stored value stands.
func RevisionFromForm(get func(string) string) *submit.Revision {
	if get == nil {
		return nil
	}
	field := func(name string) string { return strings.TrimSpace(get(name)) }
	modified := field(HiddenModified)
	if modified == "" {
		return nil
	}
	rev := &submit.Revision{Name: field(HiddenName), Modified: modified}
	if docStatus, err := strconv.Atoi(field(HiddenDocStatus)); err == nil {
		rev.DocStatus = &docStatus
	}
	return rev
}

// MergeHiddenFields layers fields over base without touching base. Blank
// names are dropped and the result is nil when nothing is left.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	out := map[string]string{}
	for name, value := range base {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = value
		}
	}
	for _, f := range fields {
		if f.Name != "" {
			out[f.Name] = f.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields lists fields by name for stable markup.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	clean := MergeHiddenFields(fields)
	if clean == nil {
		return nil
	}
	out := make([]HiddenField, 0, len(clean))
	for _, name := range slices.Sorted(maps.Keys(clean)) {
		out = append(out, HiddenField{Name: name, Value: clean[name]})
	}
	return out
}
