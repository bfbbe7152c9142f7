package render

import (
	"strconv"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

// ErrorMapping splits an error payload into field-level and form-level
// messages keyed by the dotted field paths renderers use ("district",
// "spares.0.item").
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors appends extras to existing, trimming messages and dropping
// blanks and repeats. Order is preserved.
func MergeFormErrors(existing []string, extras ...string) []string {
	return dedupe(append(append([]string(nil), existing...), extras...))
}

// MapErrorPayload assigns each message of payload to a data field of form.
// Keys may name a field ("district", "doc.district") or a table cell
// ("spares.0.item", "spares[0].item", "spares/0/item"). A cell whose column
// is unknown falls back to its table. Anything else, including Frappe's
// document-level keys, becomes a form-level message.
func MapErrorPayload(form model.FormModel, payload map[string][]string) ErrorMapping {
	var mapping ErrorMapping
	if len(payload) == 0 {
		return mapping
	}

	index := newFieldIndex(form)
	for key, messages := range payload {
		messages = dedupe(messages)
		if len(messages) == 0 {
			continue
		}
		path := index.resolve(key)
		if path == "" {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[path] = append(mapping.Fields[path], messages...)
	}
	mapping.Form = dedupe(mapping.Form)
	return mapping
}

func dedupe(messages []string) []string {
	var out []string
	seen := make(map[string]bool, len(messages))
	for _, message := range messages {
		message = strings.TrimSpace(message)
		if message == "" || seen[message] {
			continue
		}
		seen[message] = true
		out = append(out, message)
	}
	return out
}

// fieldIndex lists the addressable data fields of a form and, for tables,
// their data columns.
type fieldIndex struct {
	fields map[string]bool
	tables map[string]map[string]bool
}

func newFieldIndex(form model.FormModel) fieldIndex {
	index := fieldIndex{fields: make(map[string]bool), tables: make(map[string]map[string]bool)}
	for _, field := range form.DataFields() {
		index.fields[field.Name] = true
		if field.Type != model.FieldTypeTable {
			continue
		}
		columns := make(map[string]bool)
		for _, column := range field.DataColumns() {
			columns[column.Name] = true
		}
		index.tables[field.Name] = columns
	}
	return index
}

var pathSeparators = strings.NewReplacer("[", ".", "]", "", "/", ".")

// resolve returns the field path for key, or "" for a form-level key.
func (idx fieldIndex) resolve(key string) string {
	clean := strings.Trim(pathSeparators.Replace(strings.TrimSpace(key)), ".")
	clean = strings.TrimPrefix(clean, "doc.")
	if clean == "" {
		return ""
	}
	segments := strings.Split(clean, ".")
	name := segments[0]
	if !idx.fields[name] {
		return ""
	}

	columns, isTable := idx.tables[name]
	if !isTable {
		if len(segments) == 1 {
			return name
		}
		return ""
	}
	if len(segments) != 3 {
		return name
	}
	row, err := strconv.Atoi(segments[1])
	if err != nil || row < 0 || !columns[segments[2]] {
		return name
	}
	return name + "." + strconv.Itoa(row) + "." + segments[2]
}
