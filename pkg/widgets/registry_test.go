package widgets

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

func TestResolve_ExplicitWidgetWins(t *testing.T) {
	reg := NewRegistry()
	field := model.Field{
		Type:     model.FieldTypeCheck,
		Metadata: map[string]string{"widget": "switch"},
	}

	if got, ok := reg.Resolve(field); !ok || got != "switch" {
		t.Fatalf("expected explicit widget to win, got %q (ok=%v)", got, ok)
	}
}

func TestResolve_Builtins(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		fieldType model.FieldType
		want      string
	}{
		{model.FieldTypeData, WidgetInput},
		{model.FieldTypeText, WidgetTextarea},
		{model.FieldTypeInt, WidgetNumber},
		{model.FieldTypeFloat, WidgetNumber},
		{model.FieldTypeSelect, WidgetSelect},
		{model.FieldTypeLink, WidgetLink},
		{model.FieldTypeDateTime, WidgetDateTime},
		{model.FieldTypeCheck, WidgetCheckbox},
		{model.FieldTypeTable, WidgetTable},
		{model.FieldTypeCustom, WidgetCustom},
		{model.FieldTypeSectionBreak, WidgetSection},
		{model.FieldTypeColumnBreak, WidgetColumn},
		{model.FieldTypeReadOnly, WidgetReadOnly},
		{model.FieldTypeButton, WidgetButton},
	}

	for _, tc := range cases {
		t.Run(string(tc.fieldType), func(t *testing.T) {
			got, ok := reg.Resolve(model.Field{Name: "f", Type: tc.fieldType})
			if !ok || got != tc.want {
				t.Fatalf("want %q, got %q (ok=%v)", tc.want, got, ok)
			}
		})
	}

	if _, ok := reg.Resolve(model.Field{Type: "Geolocation"}); ok {
		t.Fatalf("unknown types must not resolve")
	}
}

func TestRegister_PriorityOverridesBuiltin(t *testing.T) {
	reg := NewRegistry()
	reg.Register("rupees", 50, func(field model.Field) bool {
		return field.Type == model.FieldTypeFloat && field.Metadata["currency"] == "INR"
	})

	got, _ := reg.Resolve(model.Field{Type: model.FieldTypeFloat, Metadata: map[string]string{"currency": "INR"}})
	if got != "rupees" {
		t.Fatalf("expected higher priority matcher, got %q", got)
	}
	got, _ = reg.Resolve(model.Field{Type: model.FieldTypeFloat})
	if got != WidgetNumber {
		t.Fatalf("expected builtin fallback, got %q", got)
	}
}

func TestDecorate_SetsMetadataOnFieldsAndColumns(t *testing.T) {
	reg := NewRegistry()
	form := model.FormModel{
		Doctype: "Maintenance Checklist",
		Tabs: []model.TabbedLayout{{
			Name: "checklist",
			Fields: []model.Field{
				{Name: "asset", Type: model.FieldTypeLink, LinkTarget: "Asset"},
				{Name: "items", Type: model.FieldTypeTable, Columns: []model.Field{
					{Name: "item", Type: model.FieldTypeData},
					{Name: "done", Type: model.FieldTypeCheck, Metadata: map[string]string{"widget": "toggle"}},
				}},
			},
		}},
	}

	if err := reg.Decorate(&form); err != nil {
		t.Fatalf("decorate: %v", err)
	}

	fields := form.Tabs[0].Fields
	got := []string{
		fields[0].Metadata["widget"],
		fields[1].Metadata["widget"],
		fields[1].Columns[0].Metadata["widget"],
		fields[1].Columns[1].Metadata["widget"],
	}
	want := []string{WidgetLink, WidgetTable, WidgetInput, "toggle"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("widgets mismatch (-want +got):\n%s", diff)
	}
}

func TestRegister_LowPriorityOnlyCoversUnknownTypes(t *testing.T) {
	reg := NewRegistry()
	reg.Register("geo", 1, func(field model.Field) bool { return field.Type == "Geolocation" })
	reg.Register("anything", 0, func(model.Field) bool { return true })

	if got, _ := reg.Resolve(model.Field{Type: model.FieldTypeData}); got != WidgetInput {
		t.Fatalf("builtin must beat low priority rules, got %q", got)
	}
	if got, ok := reg.Resolve(model.Field{Type: "Geolocation"}); !ok || got != "geo" {
		t.Fatalf("expected geo, got %q (ok=%v)", got, ok)
	}
}

func TestDecorate_LeavesSharedMetadataAlone(t *testing.T) {
	shared := map[string]string{"hint": "x"}
	fields := []model.Field{{Name: "qty", Type: model.FieldTypeInt, Metadata: shared}}
	form := model.FormModel{Tabs: []model.TabbedLayout{{Name: "main", Fields: fields}}}

	if err := NewRegistry().Decorate(&form); err != nil {
		t.Fatal(err)
	}
	if form.Tabs[0].Fields[0].Metadata[MetadataKey] != WidgetNumber {
		t.Fatalf("widget not pinned: %v", form.Tabs[0].Fields[0].Metadata)
	}
	if _, leaked := shared[MetadataKey]; leaked || fields[0].Metadata[MetadataKey] != "" {
		t.Fatalf("decorate mutated the source layout")
	}
}
