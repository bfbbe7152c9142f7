package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

// Transformer mutates a FormModel before decorators run. Site deployments use
// it to relabel fields or tighten rules without editing the shipped layouts.
type Transformer interface {
	Transform(ctx context.Context, form *model.FormModel) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, form *model.FormModel) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, form *model.FormModel) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, form)
}

// Chain runs transformers in order and stops at the first error.
func Chain(transformers ...Transformer) Transformer {
	return TransformerFunc(func(ctx context.Context, form *model.FormModel) error {
		for _, t := range transformers {
			if t == nil {
				continue
			}
			if err := t.Transform(ctx, form); err != nil {
				return err
			}
		}
		return nil
	})
}

// PresetTransformer applies declarative overrides keyed by doctype. The
// document is YAML or JSON:
//
//	Village:
//	  title: Gaon
//	  metadata: {site: pune}
//	  fields:
//	    taluka: {label: Tehsil, required: true}
//	    spares.item: {placeholder: Part number}
//
// Field keys are a field name or "table.column".
type PresetTransformer struct {
	presets map[string]presetDocument
}

type presetDocument struct {
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
	SubmitLabel string                 `yaml:"submitLabel"`
	Metadata    map[string]string      `yaml:"metadata"`
	Fields      map[string]fieldPreset `yaml:"fields"`
}

type fieldPreset struct {
	Label              string            `yaml:"label"`
	Description        string            `yaml:"description"`
	Placeholder        string            `yaml:"placeholder"`
	Required           *bool             `yaml:"required"`
	ReadOnly           *bool             `yaml:"readOnly"`
	Options            []string          `yaml:"options"`
	DependsOn          string            `yaml:"dependsOn"`
	MandatoryDependsOn string            `yaml:"mandatoryDependsOn"`
	Metadata           map[string]string `yaml:"metadata"`
}

// NewPresetTransformer parses a preset document.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var presets map[string]presetDocument
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	return &PresetTransformer{presets: presets}, nil
}

// NewPresetTransformerFromFS loads a preset document from fsys.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the preset for form.Doctype, if any. Unknown field keys
// are an error so typos in site overrides surface at startup.
func (t *PresetTransformer) Transform(ctx context.Context, form *model.FormModel) error {
	if form == nil {
		return errors.New("preset transformer: form model is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	preset, ok := t.presets[form.Doctype]
	if !ok {
		return nil
	}

	if preset.Title != "" {
		form.Title = preset.Title
	}
	if preset.Description != "" {
		form.Description = preset.Description
	}
	if preset.SubmitLabel != "" {
		form.SubmitLabel = preset.SubmitLabel
	}
	form.Metadata = mergeStringMap(form.Metadata, preset.Metadata)

	keys := make([]string, 0, len(preset.Fields))
	for key := range preset.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		field := findField(form, key)
		if field == nil {
			return fmt.Errorf("preset transformer: %s: field %q not found", form.Doctype, key)
		}
		applyFieldPreset(field, preset.Fields[key])
	}
	return nil
}

// Doctypes lists the doctypes the preset touches.
func (t *PresetTransformer) Doctypes() []string {
	out := make([]string, 0, len(t.presets))
	for doctype := range t.presets {
		out = append(out, doctype)
	}
	sort.Strings(out)
	return out
}

func applyFieldPreset(field *model.Field, preset fieldPreset) {
	if preset.Label != "" {
		field.Label = preset.Label
	}
	if preset.Description != "" {
		field.Description = preset.Description
	}
	if preset.Placeholder != "" {
		field.Placeholder = preset.Placeholder
	}
	if preset.Required != nil {
		field.Required = *preset.Required
	}
	if preset.ReadOnly != nil {
		field.ReadOnly = *preset.ReadOnly
	}
	if len(preset.Options) > 0 {
		field.Options = append([]string(nil), preset.Options...)
	}
	if preset.DependsOn != "" {
		field.DependsOn = preset.DependsOn
	}
	if preset.MandatoryDependsOn != "" {
		field.MandatoryDependsOn = preset.MandatoryDependsOn
	}
	field.Metadata = mergeStringMap(field.Metadata, preset.Metadata)
}

func findField(form *model.FormModel, key string) *model.Field {
	name, column, nested := strings.Cut(strings.TrimSpace(key), ".")
	if name == "" {
		return nil
	}
	for t := range form.Tabs {
		fields := form.Tabs[t].Fields
		for i := range fields {
			if fields[i].Name != name {
				continue
			}
			if !nested {
				return &fields[i]
			}
			for c := range fields[i].Columns {
				if fields[i].Columns[c].Name == column {
					return &fields[i].Columns[c]
				}
			}
			return nil
		}
	}
	return nil
}
