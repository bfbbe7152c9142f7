package form

import (
	"fmt"
	"sync"

	"github.com/jalsampada/go-frappeforms/pkg/linkfilter"
	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/visibility"
	"github.com/jalsampada/go-frappeforms/pkg/visibility/celexpr"
)

var (
	defaultEvaluatorOnce sync.Once
	defaultEvaluator     visibility.Evaluator
)

// DefaultEvaluator returns the shared CEL evaluator used when no evaluator
// option is supplied.
func DefaultEvaluator() visibility.Evaluator {
	defaultEvaluatorOnce.Do(func() {
		defaultEvaluator = celexpr.MustNew()
	})
	return defaultEvaluator
}

// Option customises a State.
type Option func(*State)

// WithEvaluator overrides the evaluator used for DependsOn and
// MandatoryDependsOn rules.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(s *State) {
		if eval != nil {
			s.evaluator = eval
		}
	}
}

// WithExtras exposes additional context (roles, feature flags) to rules.
func WithExtras(extras map[string]any) Option {
	return func(s *State) {
		s.extras = cloneValues(extras)
	}
}

// State owns the values of one form instance. It is not safe for concurrent
// use.
type State struct {
	model      model.FormModel
	fields     map[string]model.Field
	dependents map[string][]string
	values     map[string]any
	initial    map[string]any
	isNew      bool
	evaluator  visibility.Evaluator
	extras     map[string]any
}

// New creates a state for a record that does not exist yet. Every data field
// starts from its default.
func New(form model.FormModel, opts ...Option) *State {
	s := newState(form, opts...)
	s.isNew = true
	for _, field := range form.DataFields() {
		value, err := Coerce(field, field.Default)
		if err != nil {
			value = Empty(field)
		}
		s.values[field.Name] = value
	}
	s.initial = cloneValues(s.values)
	return s
}

// Load creates a state seeded from an existing record. Keys that are not data
// fields of the layout are ignored and missing keys fall back to defaults.
// Values that no longer satisfy the layout (a retired Select option) are kept
// verbatim so an untouched record stays clean.
func Load(form model.FormModel, record map[string]any, opts ...Option) *State {
	s := newState(form, opts...)
	for _, field := range form.DataFields() {
		raw, ok := record[field.Name]
		if !ok {
			raw = field.Default
		}
		value, err := Coerce(field, raw)
		if err != nil {
			value = deepCopy(raw)
		}
		s.values[field.Name] = value
	}
	s.initial = cloneValues(s.values)
	return s
}

func newState(form model.FormModel, opts ...Option) *State {
	s := &State{
		model:      form,
		fields:     make(map[string]model.Field),
		dependents: linkfilter.Dependents(form),
		values:     make(map[string]any),
		evaluator:  DefaultEvaluator(),
	}
	for _, field := range form.DataFields() {
		s.fields[field.Name] = field
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Model returns the layout the state was built from.
func (s *State) Model() model.FormModel {
	return s.model
}

// IsNew reports whether the state was created for a new record.
func (s *State) IsNew() bool {
	return s.isNew
}

// Field returns the data field definition for name.
func (s *State) Field(name string) (model.Field, bool) {
	field, ok := s.fields[name]
	return field, ok
}

// Value returns a copy of the current value of a data field.
func (s *State) Value(name string) (any, bool) {
	value, ok := s.values[name]
	if !ok {
		return nil, false
	}
	return deepCopy(value), true
}

// Values returns a copy of every current data value.
func (s *State) Values() map[string]any {
	return cloneValues(s.values)
}

// Initial returns a copy of the seeded values.
func (s *State) Initial() map[string]any {
	return cloneValues(s.initial)
}

// Reset discards every edit.
func (s *State) Reset() {
	s.values = cloneValues(s.initial)
}

// Set coerces and stores a value. When the value changes, Link fields that
// filter on name are cleared, cascading through their own dependents. The
// names of the cleared fields are returned in the order they were cleared.
func (s *State) Set(name string, raw any) ([]string, error) {
	field, err := s.dataField(name)
	if err != nil {
		return nil, err
	}
	value, err := Coerce(field, raw)
	if err != nil {
		return nil, &FieldError{Field: name, Err: err}
	}
	if Equal(field, s.values[name], value) {
		return nil, nil
	}
	s.values[name] = value

	var cleared []string
	s.clearDependents(name, &cleared, map[string]bool{name: true})
	return cleared, nil
}

func (s *State) clearDependents(source string, cleared *[]string, visited map[string]bool) {
	for _, dependent := range s.dependents[source] {
		if visited[dependent] {
			continue
		}
		visited[dependent] = true
		field := s.fields[dependent]
		if Blank(s.values[dependent]) {
			continue
		}
		s.values[dependent] = Empty(field)
		*cleared = append(*cleared, dependent)
		s.clearDependents(dependent, cleared, visited)
	}
}

// Rows returns a copy of a Table field's rows.
func (s *State) Rows(name string) ([]map[string]any, error) {
	field, err := s.tableField(name)
	if err != nil {
		return nil, err
	}
	rows, _ := s.values[field.Name].([]map[string]any)
	return cloneRows(rows), nil
}

// AddRow appends a row to a Table field and returns its index.
func (s *State) AddRow(name string, row map[string]any) (int, error) {
	field, err := s.tableField(name)
	if err != nil {
		return -1, err
	}
	coerced, err := coerceRow(field, row)
	if err != nil {
		return -1, &FieldError{Field: name, Err: err}
	}
	rows, _ := s.values[name].([]map[string]any)
	rows = append(cloneRows(rows), coerced)
	s.values[name] = rows
	return len(rows) - 1, nil
}

// RemoveRow deletes the row at index.
func (s *State) RemoveRow(name string, index int) error {
	if _, err := s.tableField(name); err != nil {
		return err
	}
	rows, _ := s.values[name].([]map[string]any)
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("form: %s: row %d out of range", name, index)
	}
	next := make([]map[string]any, 0, len(rows)-1)
	next = append(next, cloneRows(rows[:index])...)
	next = append(next, cloneRows(rows[index+1:])...)
	s.values[name] = next
	return nil
}

// SetCell coerces and stores one cell of a table row.
func (s *State) SetCell(name string, index int, column string, raw any) error {
	field, err := s.tableField(name)
	if err != nil {
		return err
	}
	col, ok := field.Column(column)
	if !ok {
		return fmt.Errorf("form: %s: unknown column %q", name, column)
	}
	if !col.Submittable() {
		return fmt.Errorf("form: %s: column %q (%s) does not hold a value", name, column, col.Type)
	}
	rows, _ := s.values[name].([]map[string]any)
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("form: %s: row %d out of range", name, index)
	}
	value, err := Coerce(col, raw)
	if err != nil {
		return &FieldError{Field: fmt.Sprintf("%s.%d.%s", name, index, column), Err: err}
	}
	next := cloneRows(rows)
	next[index][column] = value
	s.values[name] = next
	return nil
}

// Dirty reports whether any data field differs from its seeded value. It is
// recomputed on every call.
func (s *State) Dirty() bool {
	return len(s.Changed()) > 0
}

// Changed lists the data fields whose value differs from the seeded value, in
// form order.
func (s *State) Changed() []string {
	var out []string
	for _, field := range s.model.DataFields() {
		if !Equal(field, s.values[field.Name], s.initial[field.Name]) {
			out = append(out, field.Name)
		}
	}
	return out
}

// Visible evaluates the field's DependsOn rule. Rule errors leave the field
// visible.
func (s *State) Visible(name string) bool {
	field, ok := s.model.Field(name)
	if !ok || field.DependsOn == "" {
		return ok
	}
	visible, err := s.evaluator.Eval(name, field.DependsOn, s.context())
	if err != nil {
		return true
	}
	return visible
}

// Required reports whether the field must hold a value, combining Required
// with MandatoryDependsOn. Rule errors fall back to the static flag.
func (s *State) Required(name string) bool {
	field, ok := s.model.Field(name)
	if !ok {
		return false
	}
	if field.Required || field.MandatoryDependsOn == "" {
		return field.Required
	}
	required, err := s.evaluator.Eval(name, field.MandatoryDependsOn, s.context())
	if err != nil {
		return field.Required
	}
	return required
}

// Validate checks required fields and table columns. Hidden fields are
// skipped. It returns a *ValidationError or nil.
func (s *State) Validate() error {
	verr := &ValidationError{Fields: make(map[string][]string)}
	for _, field := range s.model.DataFields() {
		if !s.Visible(field.Name) {
			continue
		}
		value := s.values[field.Name]
		if field.Type == model.FieldTypeTable {
			rows, _ := value.([]map[string]any)
			if s.Required(field.Name) && len(rows) == 0 {
				verr.add(field.Name, fmt.Sprintf("%s requires at least one row", field.DisplayLabel()))
			}
			for i, row := range rows {
				for _, column := range field.DataColumns() {
					if column.Required && Blank(row[column.Name]) {
						verr.add(fmt.Sprintf("%s.%d.%s", field.Name, i, column.Name), fmt.Sprintf("%s is required", column.DisplayLabel()))
					}
				}
			}
			continue
		}
		if s.Required(field.Name) && Blank(value) {
			verr.add(field.Name, fmt.Sprintf("%s is required", field.DisplayLabel()))
		}
	}
	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func (s *State) context() visibility.Context {
	return visibility.Context{Values: s.values, Extras: s.extras}
}

func (s *State) dataField(name string) (model.Field, error) {
	if field, ok := s.fields[name]; ok {
		return field, nil
	}
	if field, ok := s.model.Field(name); ok {
		return model.Field{}, fmt.Errorf("form: field %q (%s) does not hold a value", name, field.Type)
	}
	return model.Field{}, fmt.Errorf("form: unknown field %q", name)
}

func (s *State) tableField(name string) (model.Field, error) {
	field, err := s.dataField(name)
	if err != nil {
		return model.Field{}, err
	}
	if field.Type != model.FieldTypeTable {
		return model.Field{}, fmt.Errorf("form: field %q is %s, not a Table", name, field.Type)
	}
	return field, nil
}
