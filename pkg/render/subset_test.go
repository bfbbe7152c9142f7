package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/render"
)

func subsetForm() model.FormModel {
	return model.FormModel{
		Doctype: "Asset",
		Title:   "Asset",
		Metadata: map[string]string{
			"titleKey":             "asset.title",
			"tab.labelKey.details": "asset.tab.details",
		},
		Tabs: []model.TabbedLayout{
			{
				Name: "details",
				Fields: []model.Field{
					{Name: "asset_name", Type: model.FieldTypeData, Label: "Asset Name", Metadata: map[string]string{"labelKey": "asset.name"}},
					{Name: "sb", Type: model.FieldTypeSectionBreak},
					{Name: "capacity", Type: model.FieldTypeFloat, Metadata: map[string]string{"group": "specs"}},
				},
			},
			{
				Name:   "maintenance",
				Fields: []model.Field{{Name: "last_service", Type: model.FieldTypeDateTime}},
			},
		},
	}
}

func TestApplySubsetByTabAndGroup(t *testing.T) {
	form := subsetForm()
	render.ApplySubset(&form, render.FieldSubset{Tabs: []string{"Maintenance"}})
	if len(form.Tabs) != 1 || form.Tabs[0].Name != "maintenance" {
		t.Fatalf("unexpected tabs %+v", form.Tabs)
	}

	form = subsetForm()
	render.ApplySubset(&form, render.FieldSubset{Groups: []string{"specs"}})
	var names []string
	for _, field := range form.Tabs[0].Fields {
		names = append(names, field.Name)
	}
	if diff := cmp.Diff([]string{"sb", "capacity"}, names); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if len(form.Tabs) != 1 {
		t.Fatalf("expected the maintenance tab to be dropped, got %d tabs", len(form.Tabs))
	}

	form = subsetForm()
	render.ApplySubset(&form, render.FieldSubset{})
	if len(form.Tabs) != 2 {
		t.Fatalf("empty subset must keep every tab")
	}
}

func TestLocalizeFormModel(t *testing.T) {
	form := subsetForm()
	translations := map[string]string{
		"asset.title": "मालमत्ता",
		"asset.name":  "मालमत्तेचे नाव",
	}
	var missing []string
	render.LocalizeFormModel(&form, render.RenderOptions{
		Locale: "mr",
		Translator: render.TranslatorFunc(func(_ string, key string, _ ...any) (string, error) {
			return translations[key], nil
		}),
		OnMissing: func(_ string, key, fallback string, _ error) string {
			missing = append(missing, key)
			return fallback
		},
	})

	if form.Title != "मालमत्ता" || form.Tabs[0].Fields[0].Label != "मालमत्तेचे नाव" {
		t.Fatalf("labels not translated: %q / %q", form.Title, form.Tabs[0].Fields[0].Label)
	}
	if form.Tabs[0].Label != "details" {
		t.Fatalf("missing tab translation must fall back to the tab name, got %q", form.Tabs[0].Label)
	}
	if diff := cmp.Diff([]string{"asset.tab.details"}, missing); diff != "" {
		t.Fatalf("missing keys mismatch (-want +got):\n%s", diff)
	}
}
