// Package tui fills a form interactively in a terminal. It walks the visible
// data fields of a form.State in tab order, prompts for each, and reports the
// submission payload with its dirty flag.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"maps"
	"slices"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/frappe"
	"github.com/jalsampada/go-frappeforms/pkg/logger"
	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/render"
	"github.com/jalsampada/go-frappeforms/pkg/submit"
)

// Name is the registry name of the renderer.
const Name = "tui"

const defaultLinkLimit = 20

// LinkSearcher looks up candidate values for a Link field. *frappe.Client
// satisfies it.
type LinkSearcher interface {
	SearchLink(ctx context.Context, doctype, text string, filters [][]any, limit int) ([]frappe.LinkOption, error)
}

// Renderer implements render.Renderer for terminal-driven sessions.
type Renderer struct {
	driver       PromptDriver
	format       Format
	searcher     LinkSearcher
	linkLimit    int
	stateOptions []form.Option
	theme        Theme
	log          *logger.Logger
}

var _ render.Renderer = (*Renderer)(nil)

// New returns a renderer that prompts through survey and prints JSON.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{format: FormatJSON, linkLimit: defaultLinkLimit, theme: defaultTheme}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	r.log = logger.OrNop(r.log).WithComponent("tui")
	return r, nil
}

func (r *Renderer) Name() string { return Name }

func (r *Renderer) ContentType() string {
	switch r.format {
	case FormatForm:
		return "application/x-www-form-urlencoded"
	case FormatText:
		return "text/plain; charset=utf-8"
	}
	return "application/json"
}

// Render prompts for every visible field and serializes the resulting
// payload. opts.Values, when present, seed an edit session as a loaded
// record; otherwise the form starts from defaults.
func (r *Renderer) Render(ctx context.Context, formModel model.FormModel, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	var state *form.State
	if len(opts.Values) > 0 {
		state = form.Load(formModel, opts.Values, r.stateOptions...)
	} else {
		state = form.New(formModel, r.stateOptions...)
	}

	for path, messages := range opts.Errors {
		for _, message := range messages {
			_ = r.driver.Info(ctx, r.theme.ErrorPrefix+path+": "+message)
		}
	}

	if err := r.Fill(ctx, state); err != nil {
		return nil, err
	}

	submission, err := submit.Build(state, submit.MetaFromRecord(opts.Values))
	if err != nil {
		return nil, err
	}
	return r.encode(submission.Payload, submission.Dirty)
}

// Fill runs the prompt session against state. Fields hidden by their
// DependsOn rule are skipped, evaluated against the values entered so far.
// After the last prompt the state is validated; failures are printed and the
// offending fields prompted again until they pass.
func (r *Renderer) Fill(ctx context.Context, state *form.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.driver == nil {
		return errors.New("tui: prompt driver is nil")
	}

	formModel := state.Model()
	if title := strings.TrimSpace(formModel.Title); title != "" {
		if err := r.driver.Info(ctx, title); err != nil {
			return err
		}
	}
	for _, tab := range formModel.Tabs {
		if len(formModel.Tabs) > 1 {
			if err := r.driver.Info(ctx, r.theme.TabPrefix+tab.DisplayLabel()); err != nil {
				return err
			}
		}
		for _, field := range tab.Fields {
			if err := r.promptField(ctx, state, field); err != nil {
				return err
			}
		}
	}

	for {
		err := state.Validate()
		if err == nil {
			return nil
		}
		var verr *form.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		retried := map[string]bool{}
		for _, path := range verr.Paths() {
			for _, message := range verr.Fields[path] {
				_ = r.driver.Info(ctx, r.theme.ErrorPrefix+message)
			}
			name, _, _ := strings.Cut(path, ".")
			if retried[name] {
				continue
			}
			retried[name] = true
			field, ok := state.Field(name)
			if !ok {
				return err
			}
			if err := r.promptField(ctx, state, field); err != nil {
				return err
			}
		}
	}
}

func (r *Renderer) encode(payload map[string]any, dirty bool) ([]byte, error) {
	switch r.format {
	case FormatForm:
		body := url.Values{}
		walk("", payload, ".%d", func(path string, value any) { body.Set(path, scalar(value)) })
		return []byte(body.Encode()), nil
	case FormatText:
		var b strings.Builder
		walk("", payload, "[%d]", func(path string, value any) { fmt.Fprintf(&b, "%s=%s\n", path, scalar(value)) })
		fmt.Fprintf(&b, "dirty=%t\n", dirty)
		return []byte(b.String()), nil
	}
	return json.Marshal(map[string]any{"dirty": dirty, "payload": payload})
}

// walk visits every scalar under value in key order. Child table rows extend
// the path with rowFormat applied to the row index.
func walk(path string, value any, rowFormat string, visit func(path string, value any)) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			child := key
			if path != "" {
				child = path + "." + key
			}
			walk(child, v[key], rowFormat, visit)
		}
	case []map[string]any:
		for i, row := range v {
			walk(path+fmt.Sprintf(rowFormat, i), row, rowFormat, visit)
		}
	default:
		visit(path, v)
	}
}

func scalar(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}
