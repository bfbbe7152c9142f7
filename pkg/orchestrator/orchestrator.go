package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/frappe"
	"github.com/jalsampada/go-frappeforms/pkg/layout"
	"github.com/jalsampada/go-frappeforms/pkg/logger"
	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/render"
	"github.com/jalsampada/go-frappeforms/pkg/renderers/html"
	"github.com/jalsampada/go-frappeforms/pkg/submit"
	"github.com/jalsampada/go-frappeforms/pkg/widgets"
)

const (
	defaultRendererName = html.Name
	defaultFormsPath    = "/forms"
	defaultLinkLimit    = 20
)

// ErrUnknownDoctype is returned when no layout exists for a doctype.
var ErrUnknownDoctype = errors.New("orchestrator: unknown doctype")

// RecordStore is the remote collaborator holding records. *frappe.Client
// implements it.
type RecordStore interface {
	Get(ctx context.Context, doctype, name string) (map[string]any, error)
	Insert(ctx context.Context, doctype string, payload map[string]any) (map[string]any, error)
	Update(ctx context.Context, doctype, name string, payload map[string]any) (map[string]any, error)
	Delete(ctx context.Context, doctype, name string) error
}

// LinkSearcher lists candidate values for Link fields. *frappe.Client
// implements it.
type LinkSearcher interface {
	SearchLink(ctx context.Context, doctype, text string, filters [][]any, limit int) ([]frappe.LinkOption, error)
}

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithStore sets the record store.
func WithStore(store RecordStore) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithLinkSearcher sets the Link option source. A RecordStore that also
// implements LinkSearcher is used when none is given.
func WithLinkSearcher(searcher LinkSearcher) Option {
	return func(o *Orchestrator) {
		o.searcher = searcher
	}
}

// WithLayouts supplies the layout store. The embedded defaults are used when
// none is given.
func WithLayouts(store *layout.Store) Option {
	return func(o *Orchestrator) {
		o.layouts = store
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request names none.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithSchemaTransformer registers a Transformer run on every layout before
// decorators.
func WithSchemaTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithDecorators registers decorators run on every layout before rendering.
func WithDecorators(decorators ...model.Decorator) Option {
	return func(o *Orchestrator) {
		o.decorators = append(o.decorators, decorators...)
	}
}

// WithWidgetRegistry replaces the widget registry used to annotate fields.
func WithWidgetRegistry(registry *widgets.Registry) Option {
	return func(o *Orchestrator) {
		o.widgets = registry
	}
}

// WithThemeSelector resolves go-theme selections into renderer config.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
	}
}

// WithTheme sets the theme and variant requested when a request names none.
func WithTheme(name, variant string) Option {
	return func(o *Orchestrator) {
		o.themeName = name
		o.themeVariant = variant
	}
}

// WithThemeFallbacks sets partials used when the selected theme does not
// override them.
func WithThemeFallbacks(fallbacks map[string]string) Option {
	return func(o *Orchestrator) {
		o.themeFallbacks = fallbacks
	}
}

// WithStateOptions forwards options to every form.State the orchestrator
// builds.
func WithStateOptions(opts ...form.Option) Option {
	return func(o *Orchestrator) {
		o.stateOptions = append(o.stateOptions, opts...)
	}
}

// WithPipelineOptions configures the submission pipeline.
func WithPipelineOptions(opts ...submit.Option) Option {
	return func(o *Orchestrator) {
		o.pipelineOptions = append(o.pipelineOptions, opts...)
	}
}

// WithPaths sets the base path forms post to and the Link lookup endpoint.
func WithPaths(formsPath, linkEndpoint string) Option {
	return func(o *Orchestrator) {
		if formsPath != "" {
			o.formsPath = strings.TrimRight(formsPath, "/")
		}
		o.linkEndpoint = linkEndpoint
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

// Orchestrator coordinates layouts, records, renderers and the submission
// pipeline. Construction never fails; configuration errors surface on the
// first call.
type Orchestrator struct {
	store           RecordStore
	searcher        LinkSearcher
	layouts         *layout.Store
	registry        *render.Registry
	defaultRenderer string
	transformer     Transformer
	decorators      []model.Decorator
	widgets         *widgets.Registry
	themeSelector   theme.ThemeSelector
	themeName       string
	themeVariant    string
	themeFallbacks  map[string]string
	stateOptions    []form.Option
	pipelineOptions []submit.Option
	pipeline        *submit.Pipeline
	formsPath       string
	linkEndpoint    string
	log             *logger.Logger
	initialiseErr   error
}

// New constructs an Orchestrator. Missing dependencies fall back to the
// embedded layouts and the HTML renderer.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		formsPath:       defaultFormsPath,
	}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	o.log = logger.OrNop(o.log).WithComponent("orchestrator")

	if o.layouts == nil {
		store, err := layout.Default()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: load layouts: %w", err)
			store = layout.NewStore()
		}
		o.layouts = store
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := html.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
	if o.widgets == nil {
		o.widgets = widgets.NewRegistry()
	}
	if o.searcher == nil {
		if searcher, ok := o.store.(LinkSearcher); ok {
			o.searcher = searcher
		}
	}
	o.pipeline = submit.NewPipeline(append([]submit.Option{submit.WithLogger(o.log)}, o.pipelineOptions...)...)
}

// Layouts exposes the layout store.
func (o *Orchestrator) Layouts() *layout.Store {
	return o.layouts
}

// Registry exposes the renderer registry.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

// Form returns the decorated layout for doctype.
func (o *Orchestrator) Form(ctx context.Context, doctype string) (model.FormModel, error) {
	if err := o.ready(ctx); err != nil {
		return model.FormModel{}, err
	}
	formModel, ok := o.layouts.Form(doctype)
	if !ok {
		return model.FormModel{}, fmt.Errorf("%w %q", ErrUnknownDoctype, doctype)
	}
	if err := o.applyTransformer(ctx, &formModel); err != nil {
		return model.FormModel{}, err
	}
	if err := o.applyDecorators(&formModel); err != nil {
		return model.FormModel{}, err
	}
	return formModel, nil
}

// FormPath is the URL a record's form is served from; an empty name yields
// the new-record form.
func (o *Orchestrator) FormPath(doctype, name string) string {
	if name == "" {
		return o.formsPath + "/" + url.PathEscape(doctype) + "/new"
	}
	return o.actionPath(doctype, name)
}

func (o *Orchestrator) actionPath(doctype, name string) string {
	path := o.formsPath + "/" + url.PathEscape(doctype)
	if name != "" {
		path += "/" + url.PathEscape(name)
	}
	return path
}

func (o *Orchestrator) ready(ctx context.Context) error {
	if ctx == nil {
		return errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return o.initialiseErr
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}
	target := name
	if target == "" {
		target = o.defaultRenderer
	}
	renderer, err := o.registry.Resolve(target)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", target, err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyDecorators(formModel *model.FormModel) error {
	if err := model.Decorate(formModel, append([]model.Decorator{o.widgets}, o.decorators...)...); err != nil {
		return fmt.Errorf("orchestrator: decorate form: %w", err)
	}
	return nil
}

func (o *Orchestrator) applyTransformer(ctx context.Context, formModel *model.FormModel) error {
	if o.transformer == nil {
		return nil
	}
	if err := o.transformer.Transform(ctx, formModel); err != nil {
		return fmt.Errorf("orchestrator: transform form: %w", err)
	}
	if err := formModel.Validate(); err != nil {
		return fmt.Errorf("orchestrator: transformed layout: %w", err)
	}
	return nil
}
