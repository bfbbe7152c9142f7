package model

import "strings"

// FieldType is the Frappe field type name as it appears in doctype metadata.
type FieldType string

const (
	FieldTypeData         FieldType = "Data"
	FieldTypeText         FieldType = "Text"
	FieldTypeInt          FieldType = "Int"
	FieldTypeFloat        FieldType = "Float"
	FieldTypeSelect       FieldType = "Select"
	FieldTypeLink         FieldType = "Link"
	FieldTypeDateTime     FieldType = "DateTime"
	FieldTypeCheck        FieldType = "Check"
	FieldTypeTable        FieldType = "Table"
	FieldTypeCustom       FieldType = "Custom"
	FieldTypeSectionBreak FieldType = "Section Break"
	FieldTypeColumnBreak  FieldType = "Column Break"
	FieldTypeReadOnly     FieldType = "Read Only"
	FieldTypeButton       FieldType = "Button"
)

// FieldKind groups field types by what they contribute to a form.
type FieldKind int

const (
	// KindUnknown marks a type name the engine does not understand.
	KindUnknown FieldKind = iota
	// KindData fields hold a value and are submitted.
	KindData
	// KindLayout fields only affect placement (section/column breaks).
	KindLayout
	// KindAction fields render controls that trigger behaviour (buttons).
	KindAction
	// KindDisplay fields show a value without ever submitting it.
	KindDisplay
)

func (k FieldKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindLayout:
		return "layout"
	case KindAction:
		return "action"
	case KindDisplay:
		return "display"
	default:
		return "unknown"
	}
}

var fieldKinds = map[FieldType]FieldKind{
	FieldTypeData:         KindData,
	FieldTypeText:         KindData,
	FieldTypeInt:          KindData,
	FieldTypeFloat:        KindData,
	FieldTypeSelect:       KindData,
	FieldTypeLink:         KindData,
	FieldTypeDateTime:     KindData,
	FieldTypeCheck:        KindData,
	FieldTypeTable:        KindData,
	FieldTypeCustom:       KindData,
	FieldTypeSectionBreak: KindLayout,
	FieldTypeColumnBreak:  KindLayout,
	FieldTypeButton:       KindAction,
	FieldTypeReadOnly:     KindDisplay,
}

// Kind reports the FieldKind for the type.
func (t FieldType) Kind() FieldKind {
	return fieldKinds[t]
}

// Submittable reports whether values of this type belong in a payload.
func (t FieldType) Submittable() bool {
	return t.Kind() == KindData
}

// Valid reports whether the type name is recognised.
func (t FieldType) Valid() bool {
	return t.Kind() != KindUnknown
}

// ParseFieldType normalises loosely written type names ("section break",
// "Section_Break", "readonly") onto the canonical Frappe spelling.
func ParseFieldType(raw string) (FieldType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	for name := range fieldKinds {
		candidate := strings.ToLower(strings.ReplaceAll(string(name), " ", ""))
		if candidate == key {
			return name, true
		}
	}
	return FieldType(strings.TrimSpace(raw)), false
}

// FilterMapping declares that a Link field's option query must constrain
// TargetField to the current value of SourceField.
type FilterMapping struct {
	SourceField string `json:"sourceField" yaml:"sourceField"`
	TargetField string `json:"targetField" yaml:"targetField"`
}

// Field models one entry of a doctype layout.
type Field struct {
	Name               string            `json:"name" yaml:"name"`
	Label              string            `json:"label,omitempty" yaml:"label,omitempty"`
	Type               FieldType         `json:"type" yaml:"type"`
	Required           bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Default            any               `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	LinkTarget         string            `json:"linkTarget,omitempty" yaml:"linkTarget,omitempty"`
	Options            []string          `json:"options,omitempty" yaml:"options,omitempty"`
	FilterMapping      []FilterMapping   `json:"filterMapping,omitempty" yaml:"filterMapping,omitempty"`
	Columns            []Field           `json:"columns,omitempty" yaml:"columns,omitempty"`
	Description        string            `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder        string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	ReadOnly           bool              `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	DependsOn          string            `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	MandatoryDependsOn string            `json:"mandatoryDependsOn,omitempty" yaml:"mandatoryDependsOn,omitempty"`
	Component          string            `json:"component,omitempty" yaml:"component,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Kind is shorthand for field.Type.Kind().
func (f Field) Kind() FieldKind {
	return f.Type.Kind()
}

// Submittable reports whether the field contributes to a payload.
func (f Field) Submittable() bool {
	return f.Type.Submittable()
}

// DisplayLabel returns the label, falling back to the field name.
func (f Field) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return f.Name
}

// DataColumns returns the submittable columns of a Table field.
func (f Field) DataColumns() []Field {
	if len(f.Columns) == 0 {
		return nil
	}
	out := make([]Field, 0, len(f.Columns))
	for _, column := range f.Columns {
		if column.Submittable() {
			out = append(out, column)
		}
	}
	return out
}

// Column looks up a table column by name.
func (f Field) Column(name string) (Field, bool) {
	for _, column := range f.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return Field{}, false
}

// TabbedLayout groups fields under a named tab. Tabs render in slice order.
type TabbedLayout struct {
	Name   string  `json:"name" yaml:"name"`
	Label  string  `json:"label,omitempty" yaml:"label,omitempty"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// DisplayLabel returns the label, falling back to the tab name.
func (t TabbedLayout) DisplayLabel() string {
	if label := strings.TrimSpace(t.Label); label != "" {
		return label
	}
	return t.Name
}

// DeleteConfig describes the delete action injected into a form.
type DeleteConfig struct {
	Doctype  string `json:"doctype" yaml:"doctype"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Redirect string `json:"redirect,omitempty" yaml:"redirect,omitempty"`
}

// FormModel is the top-level representation of a doctype form.
type FormModel struct {
	Doctype     string            `json:"doctype" yaml:"doctype"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	SubmitLabel string            `json:"submitLabel,omitempty" yaml:"submitLabel,omitempty"`
	CancelLabel string            `json:"cancelLabel,omitempty" yaml:"cancelLabel,omitempty"`
	CancelURL   string            `json:"cancelUrl,omitempty" yaml:"cancelUrl,omitempty"`
	Tabs        []TabbedLayout    `json:"tabs" yaml:"tabs"`
	Delete      *DeleteConfig     `json:"delete,omitempty" yaml:"delete,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DataFields returns every submittable field in tab order.
func (f FormModel) DataFields() []Field {
	var out []Field
	for _, tab := range f.Tabs {
		for _, field := range tab.Fields {
			if field.Submittable() {
				out = append(out, field)
			}
		}
	}
	return out
}

// Field looks up a field of any kind by name across all tabs.
func (f FormModel) Field(name string) (Field, bool) {
	if name == "" {
		return Field{}, false
	}
	for _, tab := range f.Tabs {
		for _, field := range tab.Fields {
			if field.Name == name {
				return field, true
			}
		}
	}
	return Field{}, false
}

// TabOf returns the name of the tab holding the field.
func (f FormModel) TabOf(name string) (string, bool) {
	for _, tab := range f.Tabs {
		for _, field := range tab.Fields {
			if field.Name == name {
				return tab.Name, true
			}
		}
	}
	return "", false
}

// Clone returns a deep copy so decorators can mutate freely.
func (f FormModel) Clone() FormModel {
	out := f
	out.Metadata = cloneStringMap(f.Metadata)
	if f.Delete != nil {
		del := *f.Delete
		out.Delete = &del
	}
	if len(f.Tabs) > 0 {
		out.Tabs = make([]TabbedLayout, len(f.Tabs))
		for i, tab := range f.Tabs {
			out.Tabs[i] = TabbedLayout{
				Name:   tab.Name,
				Label:  tab.Label,
				Fields: cloneFields(tab.Fields),
			}
		}
	}
	return out
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, field := range fields {
		cloned := field
		cloned.Options = append([]string(nil), field.Options...)
		cloned.FilterMapping = append([]FilterMapping(nil), field.FilterMapping...)
		cloned.Columns = cloneFields(field.Columns)
		cloned.Metadata = cloneStringMap(field.Metadata)
		out[i] = cloned
	}
	return out
}

func cloneStringMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
