package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jalsampada/go-frappeforms/pkg/failure"
	"github.com/jalsampada/go-frappeforms/pkg/frappe"
	"github.com/jalsampada/go-frappeforms/pkg/layout"
	"github.com/jalsampada/go-frappeforms/pkg/linkfilter"
	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/orchestrator"
	"github.com/jalsampada/go-frappeforms/pkg/render"
	"github.com/jalsampada/go-frappeforms/pkg/submit"
	"github.com/jalsampada/go-frappeforms/pkg/testsupport"
	"github.com/jalsampada/go-frappeforms/pkg/widgets"
)

const villageModified = "2024-01-01 00:00:00"

type captureRenderer struct {
	form    model.FormModel
	options render.RenderOptions
	calls   int
}

func (r *captureRenderer) Name() string        { return "capture" }
func (r *captureRenderer) ContentType() string { return "text/plain" }

func (r *captureRenderer) Render(_ context.Context, form model.FormModel, opts render.RenderOptions) ([]byte, error) {
	r.calls++
	r.form = form
	r.options = opts
	return []byte(form.Doctype), nil
}

type fixture struct {
	orch     *orchestrator.Orchestrator
	store    *testsupport.MemoryStore
	renderer *captureRenderer
}

func newFixture(t *testing.T, opts ...orchestrator.Option) fixture {
	t.Helper()

	layouts := layout.NewStore()
	for _, form := range []model.FormModel{testsupport.VillageForm(), testsupport.AssetForm()} {
		if err := layouts.Add(form); err != nil {
			t.Fatalf("add layout %s: %v", form.Doctype, err)
		}
	}

	store := testsupport.NewMemoryStore()
	store.Put("Village", map[string]any{
		"name":      "V-1",
		"village":   "Khed",
		"district":  "Pune",
		"taluka":    "Haveli",
		"modified":  villageModified,
		"docstatus": 0,
	})

	renderer := &captureRenderer{}
	registry := render.NewRegistry()
	registry.MustRegister(renderer)

	base := []orchestrator.Option{
		orchestrator.WithLayouts(layouts),
		orchestrator.WithStore(store),
		orchestrator.WithRegistry(registry),
		orchestrator.WithDefaultRenderer(renderer.Name()),
		orchestrator.WithPaths("/forms", "/api/link"),
	}
	return fixture{
		orch:     orchestrator.New(append(base, opts...)...),
		store:    store,
		renderer: renderer,
	}
}

func frappeOption(value string) frappe.LinkOption {
	return frappe.LinkOption{Value: value, Label: value}
}

func TestGenerateExistingRecord(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.orch.Generate(context.Background(), orchestrator.Request{Doctype: "Village", Name: "V-1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(out.Body) != "Village" || out.ContentType != "text/plain" {
		t.Fatalf("unexpected output %q %q", out.Body, out.ContentType)
	}
	if out.Session.Phase != orchestrator.PhaseLoaded {
		t.Fatalf("expected loaded phase, got %s", out.Session.Phase)
	}

	opts := fx.renderer.options
	if opts.Action != "/forms/Village/V-1" || opts.Method != "POST" || opts.LinkEndpoint != "/api/link" {
		t.Fatalf("unexpected action %q %q %q", opts.Action, opts.Method, opts.LinkEndpoint)
	}
	if diff := cmp.Diff(linkfilter.Filter{"district": "Pune"}, opts.Filters["taluka"]); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
	wantHidden := map[string]string{
		render.HiddenName:      "V-1",
		render.HiddenModified:  villageModified,
		render.HiddenDocStatus: "0",
	}
	if diff := cmp.Diff(wantHidden, opts.HiddenFields); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}
	if opts.Dirty {
		t.Fatalf("freshly loaded record must not be dirty")
	}
	if !opts.Required["village"] || opts.Required["taluka"] {
		t.Fatalf("unexpected required map %v", opts.Required)
	}
	if fx.renderer.form.Tabs[0].Fields[0].Metadata[widgets.MetadataKey] == "" {
		t.Fatalf("expected widget decoration on rendered layout")
	}
}

func TestGenerateNewRecordPrefillsAndReportsBadValues(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.orch.Generate(context.Background(), orchestrator.Request{
		Doctype: "Asset",
		Values:  map[string]any{"asset_name": "P-7", "quantity": "many"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	opts := fx.renderer.options
	if opts.Action != "/forms/Asset" {
		t.Fatalf("unexpected action %q", opts.Action)
	}
	if len(opts.HiddenFields) != 0 {
		t.Fatalf("new record must not carry revision fields: %v", opts.HiddenFields)
	}
	if opts.Values["asset_name"] != "P-7" || opts.Values["quantity"] != int64(1) {
		t.Fatalf("unexpected values %v", opts.Values)
	}
	if len(opts.Errors["quantity"]) != 1 {
		t.Fatalf("expected quantity error, got %v", opts.Errors)
	}
	if fx.renderer.form.Delete.Name != "" {
		t.Fatalf("delete must not target an unsaved record")
	}
}

func TestOpenErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if _, err := fx.orch.Open(ctx, "Canal", ""); !errors.Is(err, orchestrator.ErrUnknownDoctype) {
		t.Fatalf("expected unknown doctype, got %v", err)
	}

	sess, err := fx.orch.Open(ctx, "Village", "missing")
	var f *failure.Failure
	if !errors.As(err, &f) || f.Kind != failure.KindAuth {
		t.Fatalf("expected auth failure, got %v", err)
	}
	if sess.Phase != orchestrator.PhaseError {
		t.Fatalf("expected error phase, got %s", sess.Phase)
	}
}

func TestSubmitUnchangedRecordIsSkipped(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.orch.Submit(context.Background(), orchestrator.SubmitRequest{
		Doctype: "Village",
		Name:    "V-1",
		Values:  map[string]any{"village": "Khed", "district": "Pune", "taluka": "Haveli"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Result.Skipped || out.Result.Submitted {
		t.Fatalf("expected skipped result, got %+v", out.Result)
	}
	if len(fx.store.Updates) != 0 {
		t.Fatalf("store must not be called, got %d updates", len(fx.store.Updates))
	}
	if out.Redirect != "/forms/Village/V-1" || out.Session.Phase != orchestrator.PhaseSaved {
		t.Fatalf("unexpected outcome %q %s", out.Redirect, out.Session.Phase)
	}
}

func TestSubmitEditCarriesRevision(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.orch.Submit(context.Background(), orchestrator.SubmitRequest{
		Doctype: "Village",
		Name:    "V-1",
		Values:  map[string]any{"village": "Khed Budruk", "district": "Pune", "taluka": "Haveli"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(fx.store.Updates) != 1 {
		t.Fatalf("expected one update, got %d", len(fx.store.Updates))
	}
	want := map[string]any{
		"village":           "Khed Budruk",
		"district":          "Pune",
		"taluka":            "Haveli",
		submit.KeyModified:  villageModified,
		submit.KeyDocStatus: 0,
	}
	if diff := cmp.Diff(want, fx.store.Updates[0].Payload); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"village"}, out.Result.Changed); diff != "" {
		t.Fatalf("changed mismatch (-want +got):\n%s", diff)
	}
	if out.Record["village"] != "Khed Budruk" {
		t.Fatalf("expected saved record in outcome, got %v", out.Record)
	}
}

func TestSubmitStaleRevisionIsConflict(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	out, err := fx.orch.Submit(ctx, orchestrator.SubmitRequest{
		Doctype:  "Village",
		Name:     "V-1",
		Values:   map[string]any{"village": "Khed Khurd"},
		Revision: &submit.Revision{Name: "V-1", Modified: "2023-12-31 23:59:59"},
	})
	var f *failure.Failure
	if !errors.As(err, &f) || f.Kind != failure.KindConflict {
		t.Fatalf("expected conflict failure, got %v", err)
	}
	if out.Session.Phase != orchestrator.PhaseError {
		t.Fatalf("expected error phase, got %s", out.Session.Phase)
	}

	if _, err := fx.orch.Render(ctx, out.Session, orchestrator.View{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	opts := fx.renderer.options
	if len(opts.FormErrors) != 1 || opts.FormErrors[0] != f.Detail {
		t.Fatalf("expected failure detail in form errors, got %v", opts.FormErrors)
	}
	if opts.HiddenFields[render.HiddenModified] != "2023-12-31 23:59:59" {
		t.Fatalf("client revision must round-trip, got %v", opts.HiddenFields)
	}
	if opts.Values["village"] != "Khed Khurd" {
		t.Fatalf("edits must survive a failed save, got %v", opts.Values)
	}
}

func TestSubmitSourceChangeClearsStaleDependent(t *testing.T) {
	cases := []struct {
		name        string
		taluka      string
		wantTaluka  string
		wantCleared []string
	}{
		{name: "stale dependent cleared", taluka: "Haveli", wantTaluka: "", wantCleared: []string{"taluka"}},
		{name: "new dependent kept", taluka: "Wai", wantTaluka: "Wai"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)
			out, err := fx.orch.Submit(context.Background(), orchestrator.SubmitRequest{
				Doctype: "Village",
				Name:    "V-1",
				Values:  map[string]any{"village": "Khed", "taluka": tc.taluka, "district": "Satara"},
			})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if diff := cmp.Diff(tc.wantCleared, out.Cleared); diff != "" {
				t.Fatalf("cleared mismatch (-want +got):\n%s", diff)
			}
			if got := fx.store.Updates[0].Payload["taluka"]; got != tc.wantTaluka {
				t.Fatalf("taluka = %v, want %q", got, tc.wantTaluka)
			}
		})
	}
}

func TestSubmitCreate(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.orch.Submit(context.Background(), orchestrator.SubmitRequest{
		Doctype: "Village",
		Values:  map[string]any{"village": "Wagholi", "district": "Pune"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(fx.store.Inserts) != 1 || out.Name != "VILLAGE-0002" {
		t.Fatalf("unexpected insert %d %q", len(fx.store.Inserts), out.Name)
	}
	if _, ok := fx.store.Inserts[0].Payload[submit.KeyModified]; ok {
		t.Fatalf("create payload must not carry modified")
	}
	if out.Redirect != "/forms/Village/VILLAGE-0002" {
		t.Fatalf("unexpected redirect %q", out.Redirect)
	}
}

func TestSubmitValidationFailureBlocksStore(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.orch.Submit(context.Background(), orchestrator.SubmitRequest{
		Doctype: "Village",
		Values:  map[string]any{"village": "", "district": "Pune"},
	})
	var f *failure.Failure
	if !errors.As(err, &f) || f.Kind != failure.KindValidation {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if _, ok := f.Fields["village"]; !ok {
		t.Fatalf("expected village error, got %v", f.Fields)
	}
	if len(fx.store.Inserts) != 0 {
		t.Fatalf("store must not be called")
	}

	if _, err := out.Session.Edit(map[string]any{"village": "Wagholi"}); err != nil {
		t.Fatalf("edit after failure: %v", err)
	}
	if out.Session.Phase != orchestrator.PhaseEditing {
		t.Fatalf("expected editing phase, got %s", out.Session.Phase)
	}
}

func TestEditAfterSaveIsRejected(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.orch.Submit(context.Background(), orchestrator.SubmitRequest{
		Doctype: "Village",
		Name:    "V-1",
		Values:  map[string]any{"village": "Khed Budruk"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := out.Session.Edit(map[string]any{"village": "Again"}); !errors.Is(err, orchestrator.ErrPhase) {
		t.Fatalf("expected phase error, got %v", err)
	}
}

func TestDeleteRedirects(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.store.Put("Asset", map[string]any{"name": "A-1", "asset_name": "Pump"})

	redirect, err := fx.orch.Delete(ctx, orchestrator.DeleteRequest{Doctype: "Asset", Name: "A-1"})
	if err != nil {
		t.Fatalf("delete asset: %v", err)
	}
	if redirect != "/app/asset" {
		t.Fatalf("expected layout redirect, got %q", redirect)
	}

	redirect, err = fx.orch.Delete(ctx, orchestrator.DeleteRequest{Doctype: "Village", Name: "V-1"})
	if err != nil {
		t.Fatalf("delete village: %v", err)
	}
	if redirect != "/forms/Village/new" {
		t.Fatalf("expected new form redirect, got %q", redirect)
	}
	if diff := cmp.Diff([]string{"Asset/A-1", "Village/V-1"}, fx.store.Deletes); diff != "" {
		t.Fatalf("deletes mismatch (-want +got):\n%s", diff)
	}

	_, err = fx.orch.Delete(ctx, orchestrator.DeleteRequest{Doctype: "Village", Name: "V-1"})
	var f *failure.Failure
	if !errors.As(err, &f) || f.Kind != failure.KindAuth {
		t.Fatalf("expected auth failure for missing record, got %v", err)
	}
}

func TestSearchLinkResolvesFieldFilter(t *testing.T) {
	fx := newFixture(t)
	fx.store.SetLinkOptions("Taluka", frappeOption("Haveli"), frappeOption("Mulshi"))

	options, err := fx.orch.SearchLink(context.Background(), orchestrator.LinkQuery{
		Doctype: "Village",
		Field:   "taluka",
		Text:    "hav",
		Values:  map[string]any{"district": "Pune"},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(options) != 1 || options[0].Value != "Haveli" {
		t.Fatalf("unexpected options %+v", options)
	}
	want := [][]any{{"Taluka", "district", "=", "Pune"}}
	if diff := cmp.Diff(want, fx.store.LastFilters); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}

	if _, err := fx.orch.SearchLink(context.Background(), orchestrator.LinkQuery{Doctype: "Village", Field: "village"}); err == nil {
		t.Fatalf("expected error for non-Link field")
	}
}
