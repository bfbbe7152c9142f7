package testsupport

import (
	"os"
	"testing"

	pkgmodel "github.com/jalsampada/go-frappeforms/pkg/model"
)

// VillageForm is the District → Taluka → Village cascade used across tests.
func VillageForm() pkgmodel.FormModel {
	return pkgmodel.FormModel{
		Doctype: "Village",
		Title:   "Village",
		Tabs: []pkgmodel.TabbedLayout{{
			Name:  "details",
			Label: "Details",
			Fields: []pkgmodel.Field{
				{Name: "village", Label: "Village", Type: pkgmodel.FieldTypeData, Required: true},
				{Name: "district", Label: "District", Type: pkgmodel.FieldTypeLink, LinkTarget: "District", Required: true},
				{
					Name:          "taluka",
					Label:         "Taluka",
					Type:          pkgmodel.FieldTypeLink,
					LinkTarget:    "Taluka",
					FilterMapping: []pkgmodel.FilterMapping{{SourceField: "district", TargetField: "district"}},
				},
			},
		}},
	}
}

// AssetForm exercises every field type across two tabs.
func AssetForm() pkgmodel.FormModel {
	return pkgmodel.FormModel{
		Doctype:     "Asset",
		Title:       "Asset",
		Description: "Pumps, motors and valves installed on a scheme.",
		SubmitLabel: "Save Asset",
		CancelURL:   "/app/asset",
		Delete:      &pkgmodel.DeleteConfig{Doctype: "Asset", Redirect: "/app/asset"},
		Tabs: []pkgmodel.TabbedLayout{
			{
				Name:  "details",
				Label: "Details",
				Fields: []pkgmodel.Field{
					{Name: "asset_name", Label: "Asset Name", Type: pkgmodel.FieldTypeData, Required: true},
					{Name: "lis_name", Label: "Lift Irrigation Scheme", Type: pkgmodel.FieldTypeLink, LinkTarget: "Lift Irrigation Scheme", Required: true},
					{
						Name:          "stage",
						Label:         "Stage",
						Type:          pkgmodel.FieldTypeLink,
						LinkTarget:    "Stage",
						FilterMapping: []pkgmodel.FilterMapping{{SourceField: "lis_name", TargetField: "lis_name"}},
					},
					{Name: "asset_category", Label: "Category", Type: pkgmodel.FieldTypeSelect, Options: []string{"Pump", "Motor", "Valve"}, Required: true},
					{Name: "capacity_section", Label: "Capacity", Type: pkgmodel.FieldTypeSectionBreak},
					{Name: "capacity", Label: "Capacity (HP)", Type: pkgmodel.FieldTypeFloat},
					{Name: "capacity_column", Type: pkgmodel.FieldTypeColumnBreak},
					{Name: "quantity", Label: "Quantity", Type: pkgmodel.FieldTypeInt, Default: 1},
					{Name: "installed_on", Label: "Installed On", Type: pkgmodel.FieldTypeDateTime},
					{Name: "is_active", Label: "Active", Type: pkgmodel.FieldTypeCheck, Default: 1},
				},
			},
			{
				Name:  "maintenance",
				Label: "Maintenance",
				Fields: []pkgmodel.Field{
					{Name: "remarks", Label: "Remarks", Type: pkgmodel.FieldTypeText, DependsOn: "eval:doc.is_active == 1"},
					{
						Name:  "spares",
						Label: "Spares",
						Type:  pkgmodel.FieldTypeTable,
						Columns: []pkgmodel.Field{
							{Name: "item", Label: "Item", Type: pkgmodel.FieldTypeData, Required: true},
							{Name: "qty", Label: "Qty", Type: pkgmodel.FieldTypeInt},
							{Name: "replaced", Label: "Replaced", Type: pkgmodel.FieldTypeCheck},
						},
					},
					{Name: "location", Label: "Location", Type: pkgmodel.FieldTypeCustom, Component: "geo"},
					{Name: "last_audit", Label: "Last Audit", Type: pkgmodel.FieldTypeReadOnly},
					{Name: "refresh_readings", Label: "Refresh Readings", Type: pkgmodel.FieldTypeButton},
				},
			},
		},
	}
}

// MustReadGoldenString reads a golden file, failing the test when it is
// missing.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return string(data)
}
