package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	theme "github.com/goliatone/go-theme"
	"github.com/google/go-cmp/cmp"

	"github.com/jalsampada/go-frappeforms/pkg/orchestrator"
)

type selectorCall struct {
	name    string
	variant string
}

type stubThemeSelector struct {
	selection *theme.Selection
	err       error
	calls     []selectorCall
}

func (s *stubThemeSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, selectorCall{name: name, variant: variant})
	return s.selection, s.err
}

func jalsampadaManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    "jalsampada",
		Version: "1.0.0",
		Tokens: map[string]string{
			"brand":  "#0b5394",
			"danger": "#cc0000",
		},
		Templates: map[string]string{
			"widgets.input": "themes/jalsampada/input.tmpl",
		},
		Assets: theme.Assets{
			Prefix: "/assets/themes/jalsampada",
			Files: map[string]string{
				"form.stylesheet": "theme.css",
			},
		},
		Variants: map[string]theme.Variant{
			"field": {
				Tokens: map[string]string{
					"brand": "#38761d",
				},
				Templates: map[string]string{
					"widgets.checkbox": "themes/jalsampada/field/checkbox.tmpl",
				},
				Assets: theme.Assets{
					Files: map[string]string{
						"form.stylesheet": "field.css",
					},
				},
			},
		},
	}
}

func TestOrchestrator_PassesThemeConfigToRenderer(t *testing.T) {
	selector := &stubThemeSelector{selection: &theme.Selection{
		Theme:    "jalsampada",
		Variant:  "field",
		Manifest: jalsampadaManifest(),
	}}
	fx := newFixture(t,
		orchestrator.WithThemeSelector(selector),
		orchestrator.WithTheme("jalsampada", "office"),
		orchestrator.WithThemeFallbacks(map[string]string{
			"widgets.input":    "fallback/input.tmpl",
			"widgets.textarea": "fallback/textarea.tmpl",
		}),
	)

	_, err := fx.orch.Generate(context.Background(), orchestrator.Request{
		Doctype: "Village",
		View:    orchestrator.View{ThemeVariant: "field"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if diff := cmp.Diff([]selectorCall{{name: "jalsampada", variant: "field"}}, selector.calls, cmp.AllowUnexported(selectorCall{})); diff != "" {
		t.Fatalf("selector calls mismatch (-want +got):\n%s", diff)
	}

	cfg := fx.renderer.options.Theme
	if cfg == nil || cfg.Theme != "jalsampada" || cfg.Variant != "field" {
		t.Fatalf("expected jalsampada/field theme config, got %+v", cfg)
	}
	got := map[string]string{
		"partial widgets.input":    cfg.Partials["widgets.input"],
		"partial widgets.checkbox": cfg.Partials["widgets.checkbox"],
		"partial widgets.textarea": cfg.Partials["widgets.textarea"],
		"token brand":              cfg.Tokens["brand"],
		"token danger":             cfg.Tokens["danger"],
		"css --brand":              cfg.CSSVars["--brand"],
	}
	want := map[string]string{
		"partial widgets.input":    "themes/jalsampada/input.tmpl",
		"partial widgets.checkbox": "themes/jalsampada/field/checkbox.tmpl",
		"partial widgets.textarea": "fallback/textarea.tmpl",
		"token brand":              "#38761d",
		"token danger":             "#cc0000",
		"css --brand":              "#38761d",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("theme config mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.AssetURL("form.stylesheet"); got != "/assets/themes/jalsampada/field.css" {
		t.Fatalf("unexpected stylesheet url %q", got)
	}
	if got := cfg.AssetURL("https://cdn.example.org/x.css"); got != "https://cdn.example.org/x.css" {
		t.Fatalf("absolute urls must pass through, got %q", got)
	}
}

func TestOrchestrator_ThemeSelectorErrorFailsRender(t *testing.T) {
	selector := &stubThemeSelector{err: errors.New("no such theme")}
	fx := newFixture(t, orchestrator.WithThemeSelector(selector))

	if _, err := fx.orch.Generate(context.Background(), orchestrator.Request{Doctype: "Village"}); err == nil {
		t.Fatalf("expected theme selection error")
	}
	if fx.renderer.calls != 0 {
		t.Fatalf("renderer must not run without a theme")
	}
}
