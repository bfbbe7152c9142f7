package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jalsampada/go-frappeforms/pkg/layout"
)

const openapiFixture = "../../pkg/openapi/testdata/jalsampada.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportOpenAPIWritesLoadableLayout(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "asset.yaml")

	if _, err := run(t, "import-openapi", openapiFixture, "AssetInput", "-o", target); err != nil {
		t.Fatalf("import: %v", err)
	}

	store, err := layout.LoadFS(os.DirFS(dir))
	if err != nil {
		t.Fatalf("load imported layout: %v", err)
	}
	form, ok := store.Form("Asset")
	if !ok {
		t.Fatalf("Asset layout missing, have %v", store.Doctypes())
	}
	stage, ok := form.Field("stage")
	if !ok || stage.LinkTarget != "Stage" || len(stage.FilterMapping) != 1 {
		t.Fatalf("stage link not preserved: %+v", stage)
	}

	out, err := run(t, "lint", "--no-color", dir)
	if err != nil {
		t.Fatalf("lint imported layout: %v\n%s", err, out)
	}
}

func TestImportOpenAPIListsSchemas(t *testing.T) {
	out, err := run(t, "import-openapi", openapiFixture, "--list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "AssetInput\n") {
		t.Fatalf("expected AssetInput in %q", out)
	}

	if _, err := run(t, "import-openapi", openapiFixture); err == nil {
		t.Fatalf("expected an error without a schema name")
	}
}

func TestLintReportsProblems(t *testing.T) {
	dir := t.TempDir()
	bad := `doctypes:
  Village:
    tabs:
      - name: details
        fields:
          - {name: district, type: Link}
`
	if err := os.WriteFile(filepath.Join(dir, "village.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "lint", "--no-color", filepath.Join(dir, "village.yaml"))
	if err == nil {
		t.Fatalf("expected lint to fail")
	}
	want := filepath.Join(dir, "village.yaml") + ": Village details.district -> Link field requires linkTarget"
	if !strings.Contains(out, want) {
		t.Fatalf("expected %q in output:\n%s", want, out)
	}
}

func TestLintEmbeddedDefaults(t *testing.T) {
	out, err := run(t, "lint", "--no-color")
	if err != nil {
		t.Fatalf("lint defaults: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ok") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderNewForm(t *testing.T) {
	t.Setenv("FRAPPEFORMS_FRAPPE_URL", "")
	t.Setenv("FRAPPEFORMS_LOG_LEVEL", "error")

	out, err := run(t, "render", "--config", "", "Village")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `data-doctype="Village"`) || !strings.Contains(out, `action="/forms/Village"`) {
		t.Fatalf("unexpected form markup:\n%s", out)
	}

	if _, err := run(t, "render", "--config", "", "Village", "V-1"); err == nil {
		t.Fatalf("expected an error rendering a saved record without a Frappe site")
	}
}
