package form_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/model"
)

func assetModel() model.FormModel {
	return model.FormModel{
		Doctype: "Asset",
		Tabs: []model.TabbedLayout{
			{
				Name: "details",
				Fields: []model.Field{
					{Name: "asset_name", Type: model.FieldTypeData, Required: true, Label: "Asset Name"},
					{Name: "district", Type: model.FieldTypeLink, LinkTarget: "District"},
					{
						Name:          "lis_name",
						Type:          model.FieldTypeLink,
						LinkTarget:    "Lift Irrigation Scheme",
						FilterMapping: []model.FilterMapping{{SourceField: "district", TargetField: "district"}},
					},
					{Name: "sb1", Type: model.FieldTypeSectionBreak},
					{
						Name:          "stage",
						Type:          model.FieldTypeLink,
						LinkTarget:    "Stage No",
						FilterMapping: []model.FilterMapping{{SourceField: "lis_name", TargetField: "lis_name"}},
					},
				},
			},
			{
				Name: "specs",
				Fields: []model.Field{
					{Name: "capacity", Type: model.FieldTypeFloat},
					{Name: "pumps", Type: model.FieldTypeInt},
					{Name: "is_active", Type: model.FieldTypeCheck, Default: 1},
					{Name: "status", Type: model.FieldTypeSelect, Options: []string{"Working", "Under Repair"}, Default: "Working"},
					{Name: "installed_on", Type: model.FieldTypeDateTime},
					{Name: "repair_notes", Type: model.FieldTypeText, DependsOn: "eval:doc.status == 'Under Repair'", MandatoryDependsOn: "eval:doc.status == 'Under Repair'"},
					{Name: "refresh", Type: model.FieldTypeButton},
				},
			},
			{
				Name: "items",
				Fields: []model.Field{{
					Name: "spares",
					Type: model.FieldTypeTable,
					Columns: []model.Field{
						{Name: "item", Type: model.FieldTypeData, Required: true, Label: "Item"},
						{Name: "qty", Type: model.FieldTypeInt},
						{Name: "note", Type: model.FieldTypeReadOnly},
					},
				}},
			},
		},
	}
}

func TestNewSeedsDefaults(t *testing.T) {
	state := form.New(assetModel())

	want := map[string]any{
		"asset_name":   "",
		"district":     "",
		"lis_name":     "",
		"stage":        "",
		"capacity":     nil,
		"pumps":        nil,
		"is_active":    int64(1),
		"status":       "Working",
		"installed_on": "",
		"repair_notes": "",
		"spares":       []map[string]any{},
	}
	if diff := cmp.Diff(want, state.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if state.Dirty() {
		t.Fatalf("fresh state must be clean")
	}
	if !state.IsNew() {
		t.Fatalf("expected create mode")
	}
}

func TestLoadIgnoresUnknownKeysAndStaysClean(t *testing.T) {
	record := map[string]any{
		"name":       "AST-0001",
		"modified":   "2024-01-01 00:00:00",
		"asset_name": "Pump House 1",
		"capacity":   float64(12.5),
		"pumps":      float64(3),
		"is_active":  float64(0),
		"status":     "Decommissioned",
		"spares": []any{
			map[string]any{"name": "row-1", "idx": float64(1), "item": "Valve", "qty": float64(2), "parent": "AST-0001"},
		},
	}
	state := form.Load(assetModel(), record)

	if _, ok := state.Value("modified"); ok {
		t.Fatalf("non-layout keys must be ignored")
	}
	if got, _ := state.Value("status"); got != "Decommissioned" {
		t.Fatalf("expected retired option to be kept, got %v", got)
	}
	rows, err := state.Rows("spares")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	wantRows := []map[string]any{{"name": "row-1", "idx": float64(1), "item": "Valve", "qty": int64(2)}}
	if diff := cmp.Diff(wantRows, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if state.Dirty() {
		t.Fatalf("loaded state must be clean, changed: %v", state.Changed())
	}
	if state.IsNew() {
		t.Fatalf("expected edit mode")
	}
}

func TestSetCoercesPerType(t *testing.T) {
	state := form.New(assetModel())

	steps := []struct {
		field string
		raw   any
		want  any
	}{
		{"pumps", "4", int64(4)},
		{"capacity", "1,250.50", 1250.5},
		{"is_active", "off", int64(0)},
		{"is_active", true, int64(1)},
		{"installed_on", "2024-03-05T10:30", "2024-03-05 10:30:00"},
		{"installed_on", "2024-03-05 10:30:15.250000", "2024-03-05 10:30:15.25"},
		{"status", "", ""},
	}
	for _, step := range steps {
		if _, err := state.Set(step.field, step.raw); err != nil {
			t.Fatalf("set %s=%v: %v", step.field, step.raw, err)
		}
		got, _ := state.Value(step.field)
		if diff := cmp.Diff(step.want, got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", step.field, diff)
		}
	}
}

func TestSetRejectsBadInput(t *testing.T) {
	state := form.New(assetModel())

	cases := []struct {
		field string
		raw   any
	}{
		{"pumps", "2.5"},
		{"capacity", "abc"},
		{"status", "Lost"},
		{"installed_on", "05/03/2024"},
		{"is_active", "2"},
	}
	for _, tc := range cases {
		_, err := state.Set(tc.field, tc.raw)
		var fieldErr *form.FieldError
		if !errors.As(err, &fieldErr) {
			t.Fatalf("set %s=%v: expected FieldError, got %v", tc.field, tc.raw, err)
		}
		if fieldErr.Field != tc.field {
			t.Fatalf("expected field %q, got %q", tc.field, fieldErr.Field)
		}
	}

	if _, err := state.Set("refresh", "x"); err == nil {
		t.Fatalf("expected error for pseudo field")
	}
	if _, err := state.Set("missing", "x"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestChangingSourceClearsDependents(t *testing.T) {
	state := form.Load(assetModel(), map[string]any{
		"district": "Pune",
		"lis_name": "A",
		"stage":    "Stage 1",
	})

	cleared, err := state.Set("lis_name", "B")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if diff := cmp.Diff([]string{"stage"}, cleared); diff != "" {
		t.Fatalf("cleared mismatch (-want +got):\n%s", diff)
	}
	if got, _ := state.Value("stage"); got != "" {
		t.Fatalf("expected stage cleared, got %v", got)
	}
}

func TestClearingCascades(t *testing.T) {
	state := form.Load(assetModel(), map[string]any{
		"district": "Pune",
		"lis_name": "A",
		"stage":    "Stage 1",
	})

	cleared, err := state.Set("district", "Satara")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if diff := cmp.Diff([]string{"lis_name", "stage"}, cleared); diff != "" {
		t.Fatalf("cleared mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingSameValueKeepsDependents(t *testing.T) {
	state := form.Load(assetModel(), map[string]any{"lis_name": "A", "stage": "Stage 1"})

	cleared, err := state.Set("lis_name", " A ")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(cleared) != 0 {
		t.Fatalf("expected nothing cleared, got %v", cleared)
	}
	if state.Dirty() {
		t.Fatalf("expected clean state")
	}
}

func TestDirtyTracksSeededValues(t *testing.T) {
	state := form.Load(assetModel(), map[string]any{"capacity": 12.5, "asset_name": "Pump"})

	if _, err := state.Set("capacity", "12.50"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if state.Dirty() {
		t.Fatalf("decimal-equal value must not be dirty")
	}

	if _, err := state.Set("asset_name", "Pump 2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !state.Dirty() {
		t.Fatalf("expected dirty after edit")
	}

	if _, err := state.Set("asset_name", "Pump"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if state.Dirty() {
		t.Fatalf("reverting the edit must clear dirty")
	}

	if _, err := state.AddRow("spares", map[string]any{"item": "Seal"}); err != nil {
		t.Fatalf("add row: %v", err)
	}
	if diff := cmp.Diff([]string{"spares"}, state.Changed()); diff != "" {
		t.Fatalf("changed mismatch (-want +got):\n%s", diff)
	}

	state.Reset()
	if state.Dirty() {
		t.Fatalf("reset must restore seeded values")
	}
}

func TestTableRows(t *testing.T) {
	state := form.New(assetModel())

	idx, err := state.AddRow("spares", map[string]any{"item": "Valve", "qty": "2", "note": "ignored"})
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
	if _, err := state.AddRow("spares", map[string]any{"item": "Seal"}); err != nil {
		t.Fatalf("add row: %v", err)
	}
	if err := state.SetCell("spares", 1, "qty", 5); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := state.SetCell("spares", 1, "note", "x"); err == nil {
		t.Fatalf("expected error for pseudo column")
	}
	if err := state.RemoveRow("spares", 0); err != nil {
		t.Fatalf("remove row: %v", err)
	}
	if err := state.RemoveRow("spares", 3); err == nil {
		t.Fatalf("expected out of range error")
	}

	rows, _ := state.Rows("spares")
	want := []map[string]any{{"item": "Seal", "qty": int64(5)}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	rows[0]["item"] = "mutated"
	again, _ := state.Rows("spares")
	if again[0]["item"] != "Seal" {
		t.Fatalf("Rows must return a copy")
	}
}

func TestValidateRequiredFields(t *testing.T) {
	state := form.New(assetModel())
	if _, err := state.AddRow("spares", map[string]any{"qty": 1}); err != nil {
		t.Fatalf("add row: %v", err)
	}

	err := state.Validate()
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string][]string{
		"asset_name":    {"Asset Name is required"},
		"spares.0.item": {"Item is required"},
	}
	if diff := cmp.Diff(want, verr.Fields); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateHonoursDependsOn(t *testing.T) {
	state := form.New(assetModel())
	if _, err := state.Set("asset_name", "Pump"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if state.Visible("repair_notes") {
		t.Fatalf("repair_notes must be hidden while working")
	}
	if err := state.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	if _, err := state.Set("status", "Under Repair"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !state.Visible("repair_notes") || !state.Required("repair_notes") {
		t.Fatalf("repair_notes must be visible and required under repair")
	}
	err := state.Validate()
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if diff := cmp.Diff([]string{"repair_notes"}, verr.Paths()); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestDistrictRequiredBlocks(t *testing.T) {
	layout := model.FormModel{
		Doctype: "District",
		Tabs: []model.TabbedLayout{{
			Name:   "details",
			Fields: []model.Field{{Name: "district", Type: model.FieldTypeData, Required: true}},
		}},
	}
	state := form.New(layout)
	if err := state.Validate(); err == nil {
		t.Fatalf("expected validation to block empty district")
	}
}

type geoPoint struct {
	lat, lng float64
}

func TestCustomValuesWithUnexportedFieldsCompare(t *testing.T) {
	siteModel := model.FormModel{
		Doctype: "Pump House",
		Tabs: []model.TabbedLayout{{
			Name: "details",
			Fields: []model.Field{
				{Name: "location", Type: model.FieldTypeCustom, Component: "geo"},
				{Name: "readings", Type: model.FieldTypeTable, Columns: []model.Field{
					{Name: "point", Type: model.FieldTypeCustom},
				}},
			},
		}},
	}
	state := form.Load(siteModel, map[string]any{
		"location": geoPoint{lat: 18.5, lng: 73.8},
		"readings": []map[string]any{{"point": geoPoint{lat: 1, lng: 2}}},
	})

	if _, err := state.Set("location", geoPoint{lat: 18.5, lng: 73.8}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := state.SetCell("readings", 0, "point", geoPoint{lat: 1, lng: 2}); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if state.Dirty() {
		t.Fatalf("equal custom values must not be dirty, changed %v", state.Changed())
	}

	if _, err := state.Set("location", geoPoint{lat: 19, lng: 73.8}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := state.SetCell("readings", 0, "point", geoPoint{lat: 3, lng: 2}); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if diff := cmp.Diff([]string{"location", "readings"}, state.Changed()); diff != "" {
		t.Fatalf("changed mismatch (-want +got):\n%s", diff)
	}
}
