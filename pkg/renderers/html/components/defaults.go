package components

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/widgets"
)

const templatePrefix = "templates/widgets/"

// NameJSON is the fallback component for Custom fields that name no
// registered component. It edits the value as JSON text.
const NameJSON = "json"

// NewDefaultRegistry returns a registry with one template-backed component
// per built-in widget plus the JSON fallback for Custom fields.
func NewDefaultRegistry() *Registry {
	registry := New()
	for _, name := range []string{
		widgets.WidgetInput,
		widgets.WidgetTextarea,
		widgets.WidgetNumber,
		widgets.WidgetSelect,
		widgets.WidgetLink,
		widgets.WidgetDateTime,
		widgets.WidgetCheckbox,
		widgets.WidgetTable,
		widgets.WidgetSection,
		widgets.WidgetColumn,
		widgets.WidgetReadOnly,
		widgets.WidgetButton,
	} {
		registry.MustRegister(name, Descriptor{Renderer: TemplateRenderer(name)})
	}
	registry.MustRegister(NameJSON, Descriptor{Renderer: jsonRenderer})
	return registry
}

// TemplateRenderer returns a Renderer that executes templates/widgets/<name>.tmpl,
// or the theme partial registered under "widgets.<name>".
func TemplateRenderer(name string) Renderer {
	templateName := templatePrefix + name + ".tmpl"
	partialKey := "widgets." + name
	return func(buf *bytes.Buffer, _ model.Field, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}
		resolved := templateName
		if candidate := strings.TrimSpace(data.Partials[partialKey]); candidate != "" {
			resolved = candidate
		}
		rendered, err := data.Template.RenderTemplate(resolved, map[string]any{
			"field":  data.View,
			"config": data.Config,
		})
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", resolved, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}

func jsonRenderer(buf *bytes.Buffer, _ model.Field, data ComponentData) error {
	if data.Template == nil {
		return fmt.Errorf("components: template renderer not configured for %q", NameJSON)
	}
	view := make(map[string]any, len(data.View)+1)
	for key, value := range data.View {
		view[key] = value
	}
	view["value"] = jsonText(data.Value)

	rendered, err := data.Template.RenderTemplate(templatePrefix+NameJSON+".tmpl", map[string]any{
		"field":  view,
		"config": data.Config,
	})
	if err != nil {
		return fmt.Errorf("components: render json component: %w", err)
	}
	buf.WriteString(rendered)
	return nil
}

func jsonText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(raw)
}
