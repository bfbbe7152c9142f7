// Package submit turns a form.State into the payload handed to a caller's
// submit function.
//
// The pipeline never performs network I/O of its own. It validates, strips
// pseudo fields, attaches the record's revision markers and calls the supplied
// SubmitFunc at most once.
package submit

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/logger"
)

// Keys carrying the revision markers Frappe uses for optimistic locking.
const (
	KeyModified  = "modified"
	KeyDocStatus = "docstatus"
)

// Payload is the JSON object sent to Frappe.
type Payload map[string]any

// SubmitFunc receives the assembled payload. dirty reports whether the state
// differed from its seeded values.
type SubmitFunc func(ctx context.Context, payload Payload, dirty bool) error

// CancelFunc is invoked when the user abandons the form.
type CancelFunc func()

// RecordMeta holds the revision markers of an existing record.
type RecordMeta struct {
	Name      string
	Modified  string
	DocStatus int
}

// Revision is a client's copy of the revision markers, sent back with an
// edit. A nil DocStatus means the client did not send one.
type Revision struct {
	Name      string
	Modified  string
	DocStatus *int
}

// RevisionOf copies meta into a Revision.
func RevisionOf(meta *RecordMeta) *Revision {
	if meta == nil {
		return nil
	}
	docStatus := meta.DocStatus
	return &Revision{Name: meta.Name, Modified: meta.Modified, DocStatus: &docStatus}
}

// Apply overlays r onto meta and reports whether anything was taken. A
// revision without a modified timestamp is ignored, and an omitted docstatus
// keeps the stored one.
func (r *Revision) Apply(meta *RecordMeta) bool {
	if r == nil || meta == nil || r.Modified == "" {
		return false
	}
	meta.Modified = r.Modified
	if r.DocStatus != nil {
		meta.DocStatus = *r.DocStatus
	}
	return true
}

// MetaFromRecord extracts the revision markers from a loaded record. It
// returns nil when the record has no name.
func MetaFromRecord(record map[string]any) *RecordMeta {
	if record == nil {
		return nil
	}
	name := stringValue(record["name"])
	if name == "" {
		return nil
	}
	return &RecordMeta{
		Name:      name,
		Modified:  stringValue(record[KeyModified]),
		DocStatus: intValue(record[KeyDocStatus]),
	}
}

// Submission is the outcome of Build.
type Submission struct {
	Payload Payload
	Dirty   bool
	Changed []string
}

// Build validates the state and assembles the payload. Every data field is
// included unless changedOnly is requested through a Pipeline. When meta is
// non-nil its modified and docstatus values are copied unchanged.
func Build(state *form.State, meta *RecordMeta) (Submission, error) {
	return build(state, meta, false)
}

func build(state *form.State, meta *RecordMeta, changedOnly bool) (Submission, error) {
	if state == nil {
		return Submission{}, fmt.Errorf("submit: state is nil")
	}
	if err := state.Validate(); err != nil {
		return Submission{}, err
	}

	changed := state.Changed()
	values := state.Values()

	include := values
	if changedOnly {
		include = make(map[string]any, len(changed))
		for _, name := range changed {
			include[name] = values[name]
		}
	}

	payload := make(Payload, len(include)+2)
	for _, field := range state.Model().DataFields() {
		value, ok := include[field.Name]
		if !ok {
			continue
		}
		payload[field.Name] = value
	}
	if meta != nil {
		if meta.Modified != "" {
			payload[KeyModified] = meta.Modified
		}
		payload[KeyDocStatus] = meta.DocStatus
	}

	return Submission{Payload: payload, Dirty: len(changed) > 0, Changed: changed}, nil
}

func stringValue(raw any) string {
	switch typed := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func intValue(raw any) int {
	switch typed := raw.(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(typed))
		if err != nil {
			return 0
		}
		return int(d.IntPart())
	default:
		return 0
	}
}

// Pipeline runs Build and calls the submit function.
type Pipeline struct {
	changedOnly     bool
	submitUnchanged bool
	logger          *logger.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithChangedOnly limits update payloads to the changed fields plus the
// revision markers. Create payloads always carry every field.
func WithChangedOnly() Option {
	return func(p *Pipeline) { p.changedOnly = true }
}

// WithSubmitUnchanged calls the submit function even when an existing record
// was not edited.
func WithSubmitUnchanged() Option {
	return func(p *Pipeline) { p.submitUnchanged = true }
}

// WithLogger sets the pipeline logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline constructs a Pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.logger = logger.OrNop(p.logger).WithComponent("submit")
	return p
}

// Result describes what the pipeline did.
type Result struct {
	Submitted bool
	Skipped   bool
	Dirty     bool
	Changed   []string
	Payload   Payload
}

// Submit validates the state and hands the payload to fn exactly once. An
// update without edits is skipped unless WithSubmitUnchanged is set.
// Validation errors are returned as *form.ValidationError and errors from fn
// are returned unchanged.
func (p *Pipeline) Submit(ctx context.Context, state *form.State, meta *RecordMeta, fn SubmitFunc) (Result, error) {
	if fn == nil {
		return Result{}, fmt.Errorf("submit: submit function is nil")
	}
	log := p.logger.WithContext(ctx)

	update := state != nil && !state.IsNew()
	sub, err := build(state, meta, p.changedOnly && update)
	if err != nil {
		log.Debugw("submission blocked", "error", err)
		return Result{}, err
	}

	result := Result{Dirty: sub.Dirty, Changed: sub.Changed, Payload: sub.Payload}
	if update && !sub.Dirty && !p.submitUnchanged {
		log.Debugw("submission skipped, record unchanged", "doctype", state.Model().Doctype)
		result.Skipped = true
		return result, nil
	}

	if err := fn(ctx, sub.Payload, sub.Dirty); err != nil {
		log.Infow("submission failed", "doctype", state.Model().Doctype, "error", err)
		return result, err
	}
	result.Submitted = true
	log.Debugw("submitted", "doctype", state.Model().Doctype, "changed", sub.Changed)
	return result, nil
}
