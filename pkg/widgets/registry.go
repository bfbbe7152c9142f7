package widgets

import (
	"cmp"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

// Built-in widget identifiers exposed by the registry.
const (
	WidgetInput    = "input"
	WidgetTextarea = "textarea"
	WidgetNumber   = "number"
	WidgetSelect   = "select"
	WidgetLink     = "link"
	WidgetDateTime = "datetime"
	WidgetCheckbox = "checkbox"
	WidgetTable    = "table"
	WidgetCustom   = "custom"
	WidgetSection  = "section"
	WidgetColumn   = "column"
	WidgetReadOnly = "readonly"
	WidgetButton   = "button"
)

// MetadataKey is the field metadata key that pins a widget explicitly.
const MetadataKey = "widget"

// BuiltinPriority is the rank of the per-type defaults. Rules registered
// above it win over them, rules below it only see unknown field types.
const BuiltinPriority = 10

// Matcher reports whether a widget applies to field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
}

// Registry picks the widget for a field: Metadata["widget"] first, then the
// highest priority matching rule, then the default for the field type. Equal
// priorities keep registration order.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(name string, priority int, matcher Matcher) {
	name = strings.TrimSpace(name)
	if r == nil || matcher == nil || name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{name: name, priority: priority, match: matcher})
	slices.SortStableFunc(r.rules, func(a, b rule) int { return cmp.Compare(b.priority, a.priority) })
}

func (r *Registry) Resolve(field model.Field) (string, bool) {
	if pinned := strings.TrimSpace(field.Metadata[MetadataKey]); pinned != "" {
		return pinned, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	builtin := Default(field.Type)
	for _, candidate := range r.rules {
		if builtin != "" && candidate.priority <= BuiltinPriority {
			break
		}
		if candidate.match(field) {
			return candidate.name, true
		}
	}
	return builtin, builtin != ""
}

// Decorate pins the resolved widget into Metadata["widget"] on every field
// and table column that has none. Field slices and metadata maps are copied,
// so a form shared with a layout store is left untouched.
func (r *Registry) Decorate(form *model.FormModel) error {
	if r == nil || form == nil {
		return nil
	}
	for i := range form.Tabs {
		form.Tabs[i].Fields = r.pin(form.Tabs[i].Fields)
	}
	return nil
}

func (r *Registry) pin(fields []model.Field) []model.Field {
	if fields == nil {
		return nil
	}
	out := slices.Clone(fields)
	for i := range out {
		field := &out[i]
		if widget, ok := r.Resolve(*field); ok && field.Metadata[MetadataKey] == "" {
			field.Metadata = maps.Clone(field.Metadata)
			if field.Metadata == nil {
				field.Metadata = map[string]string{}
			}
			field.Metadata[MetadataKey] = widget
		}
		field.Columns = r.pin(field.Columns)
	}
	return out
}

var builtinWidgets = map[model.FieldType]string{
	model.FieldTypeData:         WidgetInput,
	model.FieldTypeText:         WidgetTextarea,
	model.FieldTypeInt:          WidgetNumber,
	model.FieldTypeFloat:        WidgetNumber,
	model.FieldTypeSelect:       WidgetSelect,
	model.FieldTypeLink:         WidgetLink,
	model.FieldTypeDateTime:     WidgetDateTime,
	model.FieldTypeCheck:        WidgetCheckbox,
	model.FieldTypeTable:        WidgetTable,
	model.FieldTypeCustom:       WidgetCustom,
	model.FieldTypeSectionBreak: WidgetSection,
	model.FieldTypeColumnBreak:  WidgetColumn,
	model.FieldTypeReadOnly:     WidgetReadOnly,
	model.FieldTypeButton:       WidgetButton,
}

// Default returns the built-in widget for a field type, or "" for unknown
// types.
func Default(fieldType model.FieldType) string {
	return builtinWidgets[fieldType]
}
