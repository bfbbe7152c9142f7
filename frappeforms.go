// Package frappeforms renders and submits Frappe doctype forms from layout
// documents. The orchestrator package does the work; this package bundles
// the browser runtime and the renderer wiring most servers want.
package frappeforms

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/render"
	"github.com/jalsampada/go-frappeforms/pkg/renderers/html"
	"github.com/jalsampada/go-frappeforms/pkg/renderers/tui"
)

// Renderers builds a registry with the html renderer as default, wired to
// the runtime script served under assetsPath, plus a JSON-printing tui
// renderer for terminal sessions. templatesDir, when set, overrides single
// html templates on disk.
func Renderers(assetsPath, templatesDir string, terminal ...tui.Option) (*render.Registry, error) {
	page, err := html.New(
		html.WithComponents(RuntimeComponents(assetsPath)),
		html.WithTemplatesDir(strings.TrimSpace(templatesDir)),
	)
	if err != nil {
		return nil, fmt.Errorf("frappeforms: html renderer: %w", err)
	}
	prompt, err := tui.New(terminal...)
	if err != nil {
		return nil, fmt.Errorf("frappeforms: tui renderer: %w", err)
	}

	registry := render.NewRegistry()
	for _, r := range []render.Renderer{page, prompt} {
		if err := registry.Register(r); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// EmbeddedTemplates is the html template bundle, rooted at "templates/". Copy
// files from it into a templates directory to start an override.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}
