package pongo_test

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jalsampada/go-frappeforms/pkg/render/template/pongo"
	"github.com/jalsampada/go-frappeforms/pkg/testsupport"
)

//go:embed testdata/templates/*.tmpl
var embeddedTemplates embed.FS

func templatesFS(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}
	return sub
}

func newEngine(t *testing.T, opts ...pongo.Option) *pongo.Engine {
	t.Helper()
	engine, err := pongo.New(templatesFS(t), opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestRenderTemplate(t *testing.T) {
	engine := newEngine(t)

	result, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "hello.golden"))
	if result != want {
		t.Fatalf("want %q, got %q", want, result)
	}

	if _, err := engine.RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected an error for a missing template")
	}
}

func TestOverrideDirWins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.tmpl"), []byte("Namaskar {{ name }}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	engine := newEngine(t, pongo.WithOverrideDir(dir))

	result, err := engine.RenderTemplate("hello.tmpl", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "Namaskar Ada\n" {
		t.Fatalf("override not used, got %q", result)
	}

	result, err = engine.RenderTemplate("use-json", map[string]any{})
	if err != nil || !strings.Contains(result, "data-link-filters") {
		t.Fatalf("bundled templates must still resolve: %q, %v", result, err)
	}
}

func TestWithFilter(t *testing.T) {
	labels := map[string]string{"0": "Draft", "1": "Submitted", "2": "Cancelled"}
	engine := newEngine(t, pongo.WithFilter("docstatus", func(input any, _ any) (any, error) {
		label, ok := labels[fmt.Sprint(input)]
		if !ok {
			return nil, fmt.Errorf("unknown docstatus %v", input)
		}
		return label, nil
	}))

	result, err := engine.RenderTemplate("status", map[string]any{"name": "ASSET-0001", "docstatus": 1})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "ASSET-0001 is Submitted\n" {
		t.Fatalf("unexpected output %q", result)
	}

	if _, err := engine.RenderTemplate("status", map[string]any{"name": "x", "docstatus": 9}); err == nil {
		t.Fatalf("expected filter error to surface")
	}
}

func TestToJSONEscapesForAttributes(t *testing.T) {
	engine := newEngine(t)

	result, err := engine.RenderTemplate("use-json", map[string]any{
		"filters": map[string]any{"district": "Pune"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<input data-link-filters="{&quot;district&quot;:&quot;Pune&quot;}">` + "\n"
	if result != want {
		t.Fatalf("want %q, got %q", want, result)
	}

	result, err = engine.RenderTemplate("use-json", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(result, `data-link-filters="{}"`) {
		t.Fatalf("expected empty object for missing filters, got %q", result)
	}
}

func TestStructRowsKeepIntegers(t *testing.T) {
	engine := newEngine(t)

	type row struct {
		Idx  int64  `json:"idx"`
		Item string `json:"item"`
	}
	result, err := engine.RenderTemplate("rows", map[string]any{
		"rows": []row{{Idx: 1, Item: "pump"}, {Idx: 2, Item: "valve"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result != "1:pump;2:valve;\n" {
		t.Fatalf("unexpected output %q", result)
	}
}

func TestNewRequiresTemplates(t *testing.T) {
	if _, err := pongo.New(nil); err == nil {
		t.Fatalf("expected error without a template filesystem")
	}
}
