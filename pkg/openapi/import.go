package openapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

const (
	extDoctype   = "x-frappe-doctype"
	extLink      = "x-frappe-link"
	extFilters   = "x-frappe-filters"
	extTab       = "x-frappe-tab"
	extOrder     = "x-frappe-order"
	extFieldType = "x-frappe-fieldtype"
	extComponent = "x-frappe-component"
	extDependsOn = "x-frappe-depends-on"
)

// DefaultTab receives properties without an x-frappe-tab extension.
const DefaultTab = "details"

// textMaxLength is the maxLength above which a string becomes a Text field.
const textMaxLength = 140

// Options configures Import.
type Options struct {
	// Validate runs the kin-openapi document validator before conversion.
	Validate bool
	// Labeler derives labels for properties without a title.
	Labeler func(name string) string
}

// Option mutates Options.
type Option func(*Options)

// WithValidation enables OpenAPI document validation.
func WithValidation() Option {
	return func(o *Options) {
		o.Validate = true
	}
}

// WithLabeler overrides the label derivation.
func WithLabeler(fn func(string) string) Option {
	return func(o *Options) {
		if fn != nil {
			o.Labeler = fn
		}
	}
}

// Import converts the component schema schemaName of the OpenAPI document raw
// (JSON or YAML) into a validated FormModel.
func Import(ctx context.Context, raw []byte, schemaName string, opts ...Option) (model.FormModel, error) {
	options := Options{Labeler: Label}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	doc, err := load(ctx, raw, options.Validate)
	if err != nil {
		return model.FormModel{}, err
	}
	var ref *openapi3.SchemaRef
	if doc.Components != nil {
		ref = doc.Components.Schemas[schemaName]
	}
	if ref == nil || ref.Value == nil {
		return model.FormModel{}, fmt.Errorf("openapi: schema %q not found", schemaName)
	}

	schema := ref.Value
	form := model.FormModel{
		Doctype: stringExt(schema.Extensions, extDoctype),
		Title:   schema.Title,
	}
	if form.Doctype == "" {
		form.Doctype = schemaName
	}
	if form.Title == "" {
		form.Title = form.Doctype
	}
	form.Description = schema.Description

	fields, err := convertProperties(schema, options, false)
	if err != nil {
		return model.FormModel{}, fmt.Errorf("openapi: schema %q: %w", schemaName, err)
	}
	form.Tabs = groupTabs(fields)

	if err := form.Validate(); err != nil {
		return model.FormModel{}, fmt.Errorf("openapi: schema %q: %w", schemaName, err)
	}
	return form, nil
}

// ImportFile reads path and calls Import.
func ImportFile(ctx context.Context, path, schemaName string, opts ...Option) (model.FormModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.FormModel{}, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	return Import(ctx, raw, schemaName, opts...)
}

// Schemas lists the component schema names of an OpenAPI document, sorted.
func Schemas(ctx context.Context, raw []byte) ([]string, error) {
	doc, err := load(ctx, raw, false)
	if err != nil {
		return nil, err
	}
	if doc.Components == nil {
		return nil, nil
	}
	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func load(ctx context.Context, raw []byte, validate bool) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if validate {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate: %w", err)
		}
	}
	return doc, nil
}

type placedField struct {
	field model.Field
	tab   string
	order int
}

func convertProperties(schema *openapi3.Schema, options Options, inTable bool) ([]placedField, error) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	out := make([]placedField, 0, len(schema.Properties))
	for name, ref := range schema.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		field, err := convertProperty(name, ref.Value, options, inTable)
		if err != nil {
			return nil, err
		}
		field.Required = required[name] && field.Submittable()

		tab := stringExt(ref.Value.Extensions, extTab)
		if tab == "" {
			tab = DefaultTab
		}
		order, ok := intExt(ref.Value.Extensions, extOrder)
		if !ok {
			order = math.MaxInt
		}
		out = append(out, placedField{field: field, tab: tab, order: order})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].order != out[j].order {
			return out[i].order < out[j].order
		}
		return out[i].field.Name < out[j].field.Name
	})
	return out, nil
}

func convertProperty(name string, schema *openapi3.Schema, options Options, inTable bool) (model.Field, error) {
	field := model.Field{
		Name:        name,
		Label:       schema.Title,
		Description: schema.Description,
		Default:     schema.Default,
		DependsOn:   stringExt(schema.Extensions, extDependsOn),
	}
	if field.Label == "" {
		field.Label = options.Labeler(name)
	}

	if explicit := stringExt(schema.Extensions, extFieldType); explicit != "" {
		fieldType, ok := model.ParseFieldType(explicit)
		if !ok {
			return model.Field{}, fmt.Errorf("property %q: unknown %s %q", name, extFieldType, explicit)
		}
		field.Type = fieldType
	} else {
		field.Type = inferType(schema)
	}

	switch field.Type {
	case model.FieldTypeLink:
		field.LinkTarget = stringExt(schema.Extensions, extLink)
		mappings, err := filterMappings(schema.Extensions[extFilters])
		if err != nil {
			return model.Field{}, fmt.Errorf("property %q: %w", name, err)
		}
		if !inTable {
			field.FilterMapping = mappings
		}
	case model.FieldTypeSelect:
		for _, value := range schema.Enum {
			field.Options = append(field.Options, fmt.Sprint(value))
		}
	case model.FieldTypeCustom:
		field.Component = stringExt(schema.Extensions, extComponent)
	case model.FieldTypeTable:
		if inTable {
			return model.Field{}, fmt.Errorf("property %q: nested tables are not supported", name)
		}
		if schema.Items == nil || schema.Items.Value == nil {
			return model.Field{}, fmt.Errorf("property %q: array items are required", name)
		}
		columns, err := convertProperties(schema.Items.Value, options, true)
		if err != nil {
			return model.Field{}, fmt.Errorf("property %q: %w", name, err)
		}
		for _, column := range columns {
			field.Columns = append(field.Columns, column.field)
		}
	}
	if !field.Submittable() {
		field.Default = nil
	}
	return field, nil
}

func inferType(schema *openapi3.Schema) model.FieldType {
	if schema.ReadOnly {
		return model.FieldTypeReadOnly
	}
	if stringExt(schema.Extensions, extLink) != "" {
		return model.FieldTypeLink
	}
	if stringExt(schema.Extensions, extComponent) != "" {
		return model.FieldTypeCustom
	}

	switch schemaType(schema) {
	case openapi3.TypeString:
		switch {
		case len(schema.Enum) > 0:
			return model.FieldTypeSelect
		case schema.Format == "date-time" || schema.Format == "date":
			return model.FieldTypeDateTime
		case schema.Format == "textarea":
			return model.FieldTypeText
		case schema.MaxLength != nil && *schema.MaxLength > textMaxLength:
			return model.FieldTypeText
		default:
			return model.FieldTypeData
		}
	case openapi3.TypeInteger:
		return model.FieldTypeInt
	case openapi3.TypeNumber:
		return model.FieldTypeFloat
	case openapi3.TypeBoolean:
		return model.FieldTypeCheck
	case openapi3.TypeArray:
		if schema.Items != nil && schema.Items.Value != nil && schemaType(schema.Items.Value) == openapi3.TypeObject {
			return model.FieldTypeTable
		}
		return model.FieldTypeCustom
	default:
		return model.FieldTypeCustom
	}
}

func schemaType(schema *openapi3.Schema) string {
	if schema.Type == nil {
		if len(schema.Properties) > 0 {
			return openapi3.TypeObject
		}
		return ""
	}
	for _, candidate := range schema.Type.Slice() {
		if candidate != openapi3.TypeNull {
			return candidate
		}
	}
	return ""
}

// groupTabs keeps tabs in the order their first field appears.
func groupTabs(fields []placedField) []model.TabbedLayout {
	var tabs []model.TabbedLayout
	index := make(map[string]int)
	for _, placed := range fields {
		idx, ok := index[placed.tab]
		if !ok {
			idx = len(tabs)
			index[placed.tab] = idx
			tabs = append(tabs, model.TabbedLayout{Name: placed.tab, Label: Label(placed.tab)})
		}
		tabs[idx].Fields = append(tabs[idx].Fields, placed.field)
	}
	return tabs
}

// filterMappings accepts either {source: target} or a list of
// {sourceField, targetField} objects.
func filterMappings(raw any) ([]model.FilterMapping, error) {
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		sources := make([]string, 0, len(typed))
		for source := range typed {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		out := make([]model.FilterMapping, 0, len(sources))
		for _, source := range sources {
			target, ok := typed[source].(string)
			if !ok {
				return nil, fmt.Errorf("%s: target for %q must be a string", extFilters, source)
			}
			out = append(out, model.FilterMapping{SourceField: source, TargetField: target})
		}
		return out, nil
	case []any:
		out := make([]model.FilterMapping, 0, len(typed))
		for i, item := range typed {
			entry, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be an object", extFilters, i)
			}
			source, _ := entry["sourceField"].(string)
			target, _ := entry["targetField"].(string)
			out = append(out, model.FilterMapping{SourceField: source, TargetField: target})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s has unsupported type %T", extFilters, raw)
	}
}

func stringExt(ext map[string]any, key string) string {
	value, _ := ext[key].(string)
	return strings.TrimSpace(value)
}

func intExt(ext map[string]any, key string) (int, bool) {
	switch typed := ext[key].(type) {
	case float64:
		return int(typed), true
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case string:
		value, err := strconv.Atoi(strings.TrimSpace(typed))
		return value, err == nil
	default:
		return 0, false
	}
}
