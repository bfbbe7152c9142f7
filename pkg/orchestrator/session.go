package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/jalsampada/go-frappeforms/pkg/failure"
	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/linkfilter"
	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/submit"
)

// Phase is the lifecycle position of a Session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseEditing Phase = "editing"
	PhaseSaving  Phase = "saving"
	PhaseSaved   Phase = "saved"
	PhaseError   Phase = "error"
)

var transitions = map[Phase][]Phase{
	PhaseIdle:    {PhaseLoading, PhaseLoaded},
	PhaseLoading: {PhaseLoaded, PhaseError},
	PhaseLoaded:  {PhaseEditing},
	PhaseEditing: {PhaseEditing, PhaseSaving, PhaseError},
	PhaseSaving:  {PhaseSaved, PhaseError},
	PhaseError:   {PhaseEditing},
}

// ErrPhase reports an operation attempted from the wrong phase.
var ErrPhase = errors.New("orchestrator: invalid phase transition")

// Session is one record being viewed or edited. A Session is not safe for
// concurrent use.
type Session struct {
	Doctype string
	// Name is empty for a record that has not been saved yet.
	Name   string
	Model  model.FormModel
	State  *form.State
	Meta   *submit.RecordMeta
	Record map[string]any
	Phase  Phase
	// Failure holds the classified error of the last failed load or save.
	Failure *failure.Failure
}

func (s *Session) transition(next Phase) error {
	for _, allowed := range transitions[s.Phase] {
		if allowed == next {
			s.Phase = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrPhase, s.Phase, next)
}

func (s *Session) fail(err error) *failure.Failure {
	f := failure.Classify(err)
	s.Failure = f
	s.Phase = PhaseError
	return f
}

// Edit applies posted values. Fields are set sources first so a dependent
// posted alongside its new source survives the cascade. A dependent whose
// source changed and whose posted value is still the stale loaded value stays
// cleared. Keys that are not data fields are ignored. Coercion failures are
// collected into one *form.ValidationError; the remaining fields are still
// applied. Edit returns the fields the cascade left cleared.
func (s *Session) Edit(values map[string]any) ([]string, error) {
	if s.State == nil {
		return nil, errors.New("orchestrator: session has no state")
	}
	if err := s.transition(PhaseEditing); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	order, err := linkfilter.Order(s.Model)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	initial := s.State.Initial()
	cleared := make(map[string]bool)
	verr := &form.ValidationError{Fields: map[string][]string{}}
	for _, name := range order {
		raw, ok := values[name]
		if !ok {
			continue
		}
		field, _ := s.State.Field(name)
		if cleared[name] && staleValue(field, initial[name], raw) {
			continue
		}
		dropped, err := s.State.Set(name, raw)
		if err != nil {
			var ferr *form.FieldError
			if errors.As(err, &ferr) {
				verr.Fields[name] = append(verr.Fields[name], ferr.Err.Error())
				continue
			}
			return nil, err
		}
		delete(cleared, name)
		for _, dependent := range dropped {
			cleared[dependent] = true
		}
	}

	var out []string
	for _, name := range order {
		if cleared[name] {
			out = append(out, name)
		}
	}
	if len(verr.Fields) > 0 {
		return out, verr
	}
	return out, nil
}

func staleValue(field model.Field, previous, raw any) bool {
	if form.Blank(previous) {
		return false
	}
	value, err := form.Coerce(field, raw)
	if err != nil {
		return false
	}
	return form.Equal(field, previous, value)
}

// Open loads a record into a new Session. An empty name opens a new record
// seeded with layout defaults. Store failures are returned as
// *failure.Failure with the session left in PhaseError.
func (o *Orchestrator) Open(ctx context.Context, doctype, name string) (*Session, error) {
	formModel, err := o.Form(ctx, doctype)
	if err != nil {
		return nil, err
	}
	sess := &Session{Doctype: doctype, Name: name, Model: formModel, Phase: PhaseIdle}

	if name == "" {
		sess.State = form.New(formModel, o.stateOptions...)
		return sess, sess.transition(PhaseLoaded)
	}

	if o.store == nil {
		return nil, errors.New("orchestrator: record store is not configured")
	}
	if err := sess.transition(PhaseLoading); err != nil {
		return nil, err
	}
	log := o.log.WithContext(ctx)
	record, err := o.store.Get(ctx, doctype, name)
	if err != nil {
		f := sess.fail(err)
		log.Infow("load failed", "doctype", doctype, "name", name, "kind", f.Kind)
		return sess, f
	}

	sess.Record = record
	sess.State = form.Load(formModel, record, o.stateOptions...)
	sess.Meta = submit.MetaFromRecord(record)
	if sess.Meta == nil {
		sess.Meta = &submit.RecordMeta{Name: name}
	}
	log.Debugw("record loaded", "doctype", doctype, "name", name, "modified", sess.Meta.Modified)
	return sess, sess.transition(PhaseLoaded)
}
