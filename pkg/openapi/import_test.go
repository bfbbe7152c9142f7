package openapi_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/openapi"
)

const fixture = "testdata/jalsampada.yaml"

func TestImportBuildsTabbedLayout(t *testing.T) {
	form, err := openapi.ImportFile(context.Background(), fixture, "AssetInput")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if form.Doctype != "Asset" || form.Title != "Asset" {
		t.Fatalf("unexpected form identity %q %q", form.Doctype, form.Title)
	}

	type summary struct {
		Tab      string
		Name     string
		Label    string
		Type     model.FieldType
		Required bool
	}
	var got []summary
	for _, tab := range form.Tabs {
		for _, field := range tab.Fields {
			got = append(got, summary{tab.Name, field.Name, field.Label, field.Type, field.Required})
		}
	}
	want := []summary{
		{"details", "asset_name", "Asset Name", model.FieldTypeData, true},
		{"details", "lis_name", "Lift Irrigation Scheme", model.FieldTypeLink, true},
		{"details", "stage", "Stage", model.FieldTypeLink, false},
		{"details", "asset_category", "Asset Category", model.FieldTypeSelect, true},
		{"details", "capacity", "Capacity", model.FieldTypeFloat, false},
		{"details", "quantity", "Quantity", model.FieldTypeInt, false},
		{"details", "installedOn", "Installed On", model.FieldTypeDateTime, false},
		{"details", "is_active", "Is Active", model.FieldTypeCheck, false},
		{"maintenance", "last_audit", "Last Audit", model.FieldTypeReadOnly, false},
		{"maintenance", "location", "Location", model.FieldTypeCustom, false},
		{"maintenance", "remarks", "Remarks", model.FieldTypeText, false},
		{"maintenance", "spares", "Spares", model.FieldTypeTable, false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	stage, _ := form.Field("stage")
	if diff := cmp.Diff([]model.FilterMapping{{SourceField: "lis_name", TargetField: "lis_name"}}, stage.FilterMapping); diff != "" {
		t.Fatalf("filter mapping mismatch (-want +got):\n%s", diff)
	}
	category, _ := form.Field("asset_category")
	if diff := cmp.Diff([]string{"Pump", "Motor", "Valve"}, category.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	spares, _ := form.Field("spares")
	if len(spares.Columns) != 2 || spares.Columns[0].Name != "item" || !spares.Columns[0].Required {
		t.Fatalf("unexpected columns %+v", spares.Columns)
	}
	location, _ := form.Field("location")
	if location.Component != "geo" {
		t.Fatalf("expected geo component, got %q", location.Component)
	}
	remarks, _ := form.Field("remarks")
	if remarks.DependsOn != "eval:doc.is_active == 1" {
		t.Fatalf("depends on not imported: %q", remarks.DependsOn)
	}
}

func TestImportRejectsUnknownSchemaAndFieldType(t *testing.T) {
	ctx := context.Background()
	if _, err := openapi.ImportFile(ctx, fixture, "Missing"); err == nil || !strings.Contains(err.Error(), `schema "Missing" not found`) {
		t.Fatalf("expected missing schema error, got %v", err)
	}
	if _, err := openapi.ImportFile(ctx, fixture, "Broken"); err == nil || !strings.Contains(err.Error(), "Barcode") {
		t.Fatalf("expected unknown field type error, got %v", err)
	}
}

func TestSchemas(t *testing.T) {
	raw := []byte(`{"openapi":"3.0.3","info":{"title":"t","version":"1"},"paths":{},"components":{"schemas":{"B":{"type":"object"},"A":{"type":"object"}}}}`)
	names, err := openapi.Schemas(context.Background(), raw)
	if err != nil {
		t.Fatalf("schemas: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"lis_name":    "Lis Name",
		"installedOn": "Installed On",
		"stage2":      "Stage 2",
		"GSTIN-no":    "Gstin No",
		"":            "",
	}
	for input, want := range cases {
		if got := openapi.Label(input); got != want {
			t.Errorf("Label(%q) = %q, want %q", input, got, want)
		}
	}
}
