package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/linkfilter"
	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/render"
)

// View carries the presentation inputs of a render.
type View struct {
	Renderer     string
	Errors       map[string][]string
	FormErrors   []string
	HiddenFields map[string]string
	ThemeName    string
	ThemeVariant string
	Subset       render.FieldSubset
	Locale       string
	Translator   render.Translator
	OnMissing    render.MissingTranslationHandler
}

// Request describes a form to render. Values prefill the form on top of the
// loaded record; coercion failures become field errors instead of aborting.
type Request struct {
	Doctype string
	Name    string
	Values  map[string]any
	View
}

// Rendered is a produced form.
type Rendered struct {
	Body        []byte
	ContentType string
	Session     *Session
}

// Generate opens the record and renders it.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Rendered, error) {
	sess, err := o.Open(ctx, req.Doctype, req.Name)
	if err != nil {
		return Rendered{Session: sess}, err
	}
	view := req.View
	if len(req.Values) > 0 {
		if _, err := sess.Edit(req.Values); err != nil {
			var verr *form.ValidationError
			if !errors.As(err, &verr) {
				return Rendered{Session: sess}, err
			}
			view.Errors = mergeErrors(view.Errors, verr.Fields)
		}
	}
	return o.Render(ctx, sess, view)
}

// Render renders an open session. The session's last failure is folded into
// the field and form errors, so a failed save re-renders with its messages.
func (o *Orchestrator) Render(ctx context.Context, sess *Session, view View) (Rendered, error) {
	if err := o.ready(ctx); err != nil {
		return Rendered{}, err
	}
	if sess == nil || sess.State == nil {
		return Rendered{}, errors.New("orchestrator: session is not loaded")
	}
	renderer, err := o.rendererFor(view.Renderer)
	if err != nil {
		return Rendered{}, err
	}
	themeConfig, err := o.resolveTheme(view.ThemeName, view.ThemeVariant)
	if err != nil {
		return Rendered{}, err
	}

	formModel := sess.Model.Clone()
	if sess.Name != "" && formModel.Delete != nil {
		formModel.Delete.Name = sess.Name
		if formModel.Delete.Doctype == "" {
			formModel.Delete.Doctype = sess.Doctype
		}
	}

	values := sess.State.Values()
	errs := mergeErrors(nil, view.Errors)
	formErrors := render.MergeFormErrors(nil, view.FormErrors...)
	if f := sess.Failure; f != nil {
		mapping := render.MapErrorPayload(formModel, f.Fields)
		errs = mergeErrors(errs, mapping.Fields)
		formErrors = render.MergeFormErrors(formErrors, mapping.Form...)
		formErrors = render.MergeFormErrors(formErrors, f.Detail)
	}

	opts := render.RenderOptions{
		Action:       o.actionPath(sess.Doctype, sess.Name),
		Method:       http.MethodPost,
		Values:       values,
		Errors:       errs,
		FormErrors:   formErrors,
		Filters:      linkfilter.ResolveAll(formModel, values),
		LinkEndpoint: o.linkEndpoint,
		HiddenFields: render.MergeHiddenFields(view.HiddenFields, render.RevisionFields(sess.Meta)...),
		Visible:      visibleMap(formModel, sess.State),
		Required:     requiredMap(formModel, sess.State),
		Dirty:        sess.State.Dirty(),
		Theme:        themeConfig,
		Subset:       view.Subset,
		Locale:       view.Locale,
		Translator:   view.Translator,
		OnMissing:    view.OnMissing,
	}

	body, err := renderer.Render(ctx, formModel, opts)
	if err != nil {
		return Rendered{Session: sess}, fmt.Errorf("orchestrator: render %s: %w", sess.Doctype, err)
	}
	return Rendered{Body: body, ContentType: renderer.ContentType(), Session: sess}, nil
}

func visibleMap(formModel model.FormModel, state *form.State) map[string]bool {
	out := make(map[string]bool)
	for _, field := range formModel.DataFields() {
		out[field.Name] = state.Visible(field.Name)
	}
	return out
}

func requiredMap(formModel model.FormModel, state *form.State) map[string]bool {
	out := make(map[string]bool)
	for _, field := range formModel.DataFields() {
		out[field.Name] = state.Required(field.Name)
	}
	return out
}

func mergeErrors(dst, src map[string][]string) map[string][]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string][]string, len(src))
	}
	for path, messages := range src {
		dst[path] = append(dst[path], messages...)
	}
	return dst
}
