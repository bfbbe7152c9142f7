// Package html renders a FormModel as a server-side HTML form using pongo2
// templates. Each field resolves to a widget through widgets.Registry and
// each widget to a component in components.Registry, so hosts can swap the
// markup of a single control without touching the rest.
package html

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/render"
	rendertemplate "github.com/jalsampada/go-frappeforms/pkg/render/template"
	"github.com/jalsampada/go-frappeforms/pkg/render/template/pongo"
	"github.com/jalsampada/go-frappeforms/pkg/renderers/html/components"
	"github.com/jalsampada/go-frappeforms/pkg/widgets"
)

// Name is the registry name of the renderer.
const Name = "html"

const (
	formTemplate  = "templates/form.tmpl"
	fieldTemplate = "templates/field.tmpl"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateDir      string
	templateRenderer rendertemplate.TemplateRenderer
	widgets          *widgets.Registry
	components       *components.Registry
	sanitizer        *bluemonday.Policy
	classes          ChromeClasses
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir searches a directory on disk before the bundled
// templates, so a site can override one widget (templates/widgets/link.tmpl)
// or the form chrome without copying the rest.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.templateDir = path
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithWidgets replaces the widget registry.
func WithWidgets(registry *widgets.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.widgets = registry
		}
	}
}

// WithComponents replaces the component registry. Custom fields resolve their
// Component name here.
func WithComponents(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.components = registry
		}
	}
}

// WithSanitizer replaces the policy applied to Custom component markup.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.sanitizer = policy
		}
	}
}

// WithChromeClasses overrides the chrome CSS classes.
func WithChromeClasses(classes ChromeClasses) Option {
	return func(cfg *config) {
		cfg.classes = classes
	}
}

// DefaultSanitizer allows form controls and data attributes on top of
// bluemonday's user content policy. Scripts, styles and event handlers are
// stripped.
func DefaultSanitizer() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("input", "select", "option", "textarea", "label", "button", "fieldset", "legend", "output", "datalist")
	policy.AllowAttrs(
		"id", "class", "name", "value", "type", "placeholder", "checked", "selected",
		"disabled", "readonly", "required", "for", "rows", "step", "min", "max",
		"list", "autocomplete", "aria-required", "aria-label",
	).Globally()
	policy.AllowDataAttributes()
	return policy
}

// Renderer implements render.Renderer for HTML output.
type Renderer struct {
	templates  rendertemplate.TemplateRenderer
	widgets    *widgets.Registry
	components *components.Registry
	sanitizer  *bluemonday.Policy
	classes    map[string]string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	templates := cfg.templateRenderer
	if templates == nil {
		engine, err := pongo.New(cfg.templateFS, pongo.WithOverrideDir(cfg.templateDir))
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		templates = engine
	}
	if cfg.widgets == nil {
		cfg.widgets = widgets.NewRegistry()
	}
	if cfg.components == nil {
		cfg.components = components.NewDefaultRegistry()
	}
	if cfg.sanitizer == nil {
		cfg.sanitizer = DefaultSanitizer()
	}

	return &Renderer{
		templates:  templates,
		widgets:    cfg.widgets,
		components: cfg.components,
		sanitizer:  cfg.sanitizer,
		classes:    cfg.classes.view(),
	}, nil
}

func (r *Renderer) Name() string {
	return Name
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces the form markup. The model is cloned before subsetting and
// localisation, so callers may reuse it.
func (r *Renderer) Render(ctx context.Context, form model.FormModel, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}
	form = form.Clone()
	render.ApplySubset(&form, opts.Subset)
	render.LocalizeFormModel(&form, opts)

	session := &renderSession{renderer: r, opts: opts, used: make(map[string]struct{})}
	tabs := make([]map[string]any, 0, len(form.Tabs))
	for _, tab := range form.Tabs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields := make([]string, 0, len(tab.Fields))
		for _, field := range tab.Fields {
			markup, err := session.field(field)
			if err != nil {
				return nil, fmt.Errorf("html renderer: %w", err)
			}
			fields = append(fields, markup)
		}
		tabs = append(tabs, map[string]any{
			"name":   tab.Name,
			"id":     "ff-tab-" + slug(tab.Name),
			"label":  tab.DisplayLabel(),
			"fields": fields,
		})
	}

	stylesheets, scripts := session.assets()
	result, err := r.templates.RenderTemplate(formTemplate, map[string]any{
		"form":         r.formView(form, opts),
		"classes":      r.classes,
		"hiddenFields": hiddenFieldsView(opts),
		"formErrors":   opts.FormErrors,
		"tabs":         tabs,
		"delete":       deleteView(form, opts),
		"assets": map[string]any{
			"stylesheets": stylesheets,
			"scripts":     scripts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("html renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func (r *Renderer) formView(form model.FormModel, opts render.RenderOptions) map[string]any {
	view := map[string]any{
		"id":          "ff-" + slug(form.Doctype),
		"doctype":     form.Doctype,
		"title":       form.Title,
		"description": form.Description,
		"action":      opts.Action,
		"submitLabel": defaultString(form.SubmitLabel, "Save"),
		"cancelLabel": defaultString(form.CancelLabel, "Cancel"),
		"cancelURL":   form.CancelURL,
		"dirty":       opts.Dirty,
	}
	if cfg := opts.Theme; cfg != nil {
		view["theme"] = cfg.Theme
		view["variant"] = cfg.Variant
		view["style"] = cssVarsStyle(cfg.CSSVars)
	}
	return view
}

func hiddenFieldsView(opts render.RenderOptions) []map[string]any {
	hidden := opts.HiddenFields
	if method := strings.ToUpper(strings.TrimSpace(opts.Method)); method != "" && method != "POST" && method != "GET" {
		hidden = render.MergeHiddenFields(hidden, render.Hidden(render.HiddenMethod, method))
	}
	fields := render.SortedHiddenFields(hidden)
	out := make([]map[string]any, 0, len(fields))
	for _, field := range fields {
		out = append(out, map[string]any{"name": field.Name, "value": field.Value})
	}
	return out
}

func deleteView(form model.FormModel, opts render.RenderOptions) map[string]any {
	if form.Delete == nil || strings.TrimSpace(form.Delete.Name) == "" || opts.Action == "" {
		return nil
	}
	doctype := defaultString(form.Delete.Doctype, form.Doctype)
	return map[string]any{
		"action":   strings.TrimRight(opts.Action, "/") + "/delete",
		"doctype":  doctype,
		"name":     form.Delete.Name,
		"redirect": form.Delete.Redirect,
		"label":    defaultString(form.Metadata["deleteLabel"], "Delete"),
	}
}

// cssVarsStyle renders CSS custom properties in key order. Keys without the
// leading "--" get it added.
func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		if !strings.HasPrefix(name, "--") {
			name = "--" + name
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteByte(';')
	}
	return b.String()
}

type renderSession struct {
	renderer *Renderer
	opts     render.RenderOptions
	used     map[string]struct{}
}

func (s *renderSession) assets() ([]string, []map[string]any) {
	if len(s.used) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(s.used))
	for name := range s.used {
		names = append(names, name)
	}
	sort.Strings(names)
	stylesheets, scripts := s.renderer.components.Assets(names)
	if cfg := s.opts.Theme; cfg != nil && cfg.AssetURL != nil {
		for i, href := range stylesheets {
			stylesheets[i] = cfg.AssetURL(href)
		}
	}
	out := make([]map[string]any, 0, len(scripts))
	for _, script := range scripts {
		out = append(out, map[string]any{"src": script.Src, "defer": script.Defer})
	}
	return stylesheets, out
}

// control resolves and runs the component for a field or table cell.
func (s *renderSession) control(field model.Field, view map[string]any, value any) (string, error) {
	widget, _ := s.renderer.widgets.Resolve(field)
	name := widget
	custom := field.Kind() == model.KindData && field.Type == model.FieldTypeCustom
	if custom && (widget == "" || widget == widgets.WidgetCustom) {
		name = strings.TrimSpace(field.Component)
	}

	descriptor, ok := s.renderer.components.Descriptor(name)
	if !ok {
		if custom {
			name = components.NameJSON
		} else {
			name = widgets.Default(field.Type)
		}
		descriptor, ok = s.renderer.components.Descriptor(name)
		if !ok {
			return "", fmt.Errorf("no component for field %q (widget %q)", field.Name, widget)
		}
	}
	view["widget"] = name

	config, err := parseComponentConfig(field.Metadata[componentConfigKey])
	if err != nil {
		return "", fmt.Errorf("parse component config for field %q: %w", field.Name, err)
	}
	var partials map[string]string
	if s.opts.Theme != nil {
		partials = s.opts.Theme.Partials
	}

	var buf bytes.Buffer
	if err := descriptor.Renderer(&buf, field, components.ComponentData{
		Template: s.renderer.templates,
		View:     view,
		Value:    value,
		Config:   config,
		Partials: partials,
	}); err != nil {
		return "", fmt.Errorf("render component %q for field %q: %w", name, field.Name, err)
	}
	s.used[name] = struct{}{}

	markup := buf.String()
	if custom {
		markup = s.renderer.sanitizer.Sanitize(markup)
	}
	return markup, nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
