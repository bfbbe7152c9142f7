package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/failure"
	"github.com/jalsampada/go-frappeforms/pkg/frappe"
	"github.com/jalsampada/go-frappeforms/pkg/linkfilter"
	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/submit"
)

// SubmitRequest carries posted edits for a record. An empty Name creates a
// new record. Revision, when set, replaces the loaded modified timestamp so
// the store can reject edits made against a stale copy. Its docstatus replaces
// the loaded one only when the client sent it.
type SubmitRequest struct {
	Doctype  string
	Name     string
	Values   map[string]any
	Revision *submit.Revision
}

// Outcome is the result of a Submit call.
type Outcome struct {
	Session *Session
	// Record is the saved record as returned by the store, or the loaded
	// record when the submission was skipped.
	Record  map[string]any
	Result  submit.Result
	Name    string
	Cleared []string
	// Redirect is the form path of the saved record.
	Redirect string
}

// Submit opens the record, applies the edits and saves through the pipeline.
// Every failure is returned as a *failure.Failure; the session in the outcome
// is in PhaseError and can be re-rendered with its messages.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (Outcome, error) {
	sess, err := o.Open(ctx, req.Doctype, req.Name)
	if err != nil {
		return Outcome{Session: sess}, err
	}
	if o.store == nil {
		return Outcome{Session: sess}, errors.New("orchestrator: record store is not configured")
	}
	log := o.log.WithContext(ctx).With("doctype", req.Doctype, "name", req.Name)

	if rev := req.Revision; rev != nil && sess.Meta != nil && rev.Modified != "" && rev.Modified != sess.Meta.Modified {
		log.Debugw("client revision differs from stored", "client", rev.Modified, "stored", sess.Meta.Modified)
	}
	req.Revision.Apply(sess.Meta)

	outcome := Outcome{Session: sess}
	cleared, err := sess.Edit(req.Values)
	outcome.Cleared = cleared
	if err != nil {
		return outcome, sess.fail(err)
	}
	if err := sess.transition(PhaseSaving); err != nil {
		return outcome, err
	}

	var saved map[string]any
	save := func(ctx context.Context, payload submit.Payload, _ bool) error {
		var err error
		if sess.State.IsNew() {
			saved, err = o.store.Insert(ctx, sess.Doctype, payload)
		} else {
			saved, err = o.store.Update(ctx, sess.Doctype, sess.Name, payload)
		}
		return err
	}

	result, err := o.pipeline.Submit(ctx, sess.State, sess.Meta, save)
	outcome.Result = result
	if err != nil {
		f := sess.fail(err)
		log.Infow("save failed", "kind", f.Kind, "detail", f.Detail)
		return outcome, f
	}
	if err := sess.transition(PhaseSaved); err != nil {
		return outcome, err
	}

	if saved == nil {
		saved = sess.Record
	}
	outcome.Record = saved
	outcome.Name = sess.Name
	if name, ok := saved["name"].(string); ok && name != "" {
		outcome.Name = name
	}
	outcome.Redirect = o.FormPath(sess.Doctype, outcome.Name)
	log.Infow("saved", "saved_as", outcome.Name, "skipped", result.Skipped, "changed", result.Changed)
	return outcome, nil
}

// DeleteRequest names the record to delete.
type DeleteRequest struct {
	Doctype string
	Name    string
}

// Delete removes a record and returns where the caller should go next: the
// layout's delete redirect, or the new-record form.
func (o *Orchestrator) Delete(ctx context.Context, req DeleteRequest) (string, error) {
	formModel, err := o.Form(ctx, req.Doctype)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Name) == "" {
		return "", errors.New("orchestrator: delete requires a record name")
	}
	if o.store == nil {
		return "", errors.New("orchestrator: record store is not configured")
	}

	doctype := req.Doctype
	redirect := o.FormPath(req.Doctype, "")
	if cfg := formModel.Delete; cfg != nil {
		if cfg.Doctype != "" {
			doctype = cfg.Doctype
		}
		if cfg.Redirect != "" {
			redirect = cfg.Redirect
		}
	}

	if err := o.store.Delete(ctx, doctype, req.Name); err != nil {
		f := failure.Classify(err)
		o.log.WithContext(ctx).Infow("delete failed", "doctype", doctype, "name", req.Name, "kind", f.Kind)
		return "", f
	}
	o.log.WithContext(ctx).Infow("deleted", "doctype", doctype, "name", req.Name)
	return redirect, nil
}

// LinkQuery asks for Link options. Either Target and Filter are given
// directly, or Doctype and Field name a Link field whose target and filter are
// resolved against Values.
type LinkQuery struct {
	Target  string
	Text    string
	Filter  linkfilter.Filter
	Limit   int
	Doctype string
	Field   string
	Values  map[string]any
}

// SearchLink lists candidate values for a Link field.
func (o *Orchestrator) SearchLink(ctx context.Context, query LinkQuery) ([]frappe.LinkOption, error) {
	if err := o.ready(ctx); err != nil {
		return nil, err
	}
	if o.searcher == nil {
		return nil, errors.New("orchestrator: link searcher is not configured")
	}

	if query.Doctype != "" && query.Field != "" {
		formModel, err := o.Form(ctx, query.Doctype)
		if err != nil {
			return nil, err
		}
		field, ok := formModel.Field(query.Field)
		if !ok || field.Type != model.FieldTypeLink {
			return nil, fmt.Errorf("orchestrator: %s.%s is not a Link field", query.Doctype, query.Field)
		}
		query.Target = field.LinkTarget
		query.Filter = linkfilter.Resolve(field, query.Values)
	}
	if strings.TrimSpace(query.Target) == "" {
		return nil, errors.New("orchestrator: link target is required")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLinkLimit
	}

	options, err := o.searcher.SearchLink(ctx, query.Target, query.Text, linkfilter.ToFrappe(query.Target, query.Filter), limit)
	if err != nil {
		return nil, failure.Classify(err)
	}
	return options, nil
}
