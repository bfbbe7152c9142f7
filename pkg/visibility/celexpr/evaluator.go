// Package celexpr evaluates Frappe depends_on style rules with CEL.
//
// Accepted rule forms:
//
//	status                          bare field name, true when the value is set
//	eval:doc.status == 'Active'     Frappe eval prefix followed by an expression
//	doc.capacity > 10.0 && doc.active == 1
//
// The document is exposed as `doc` and visibility.Context.Extras as `extras`.
// Compiled programs are cached per rule.
package celexpr

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/jalsampada/go-frappeforms/pkg/visibility"
)

var bareField = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Evaluator implements visibility.Evaluator on top of cel-go.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// New builds an evaluator with the doc/extras environment.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("extras", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("celexpr: build environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// MustNew is New for package-level defaults.
func MustNew() *Evaluator {
	eval, err := New()
	if err != nil {
		panic(err)
	}
	return eval
}

// Eval reports whether rule holds for ctx. An empty rule is always true.
// References to keys missing from the document evaluate to false.
func (e *Evaluator) Eval(fieldPath, rule string, ctx visibility.Context) (bool, error) {
	expression := strings.TrimSpace(rule)
	expression = strings.TrimSpace(strings.TrimPrefix(expression, "eval:"))
	if expression == "" {
		return true, nil
	}
	if bareField.MatchString(expression) && expression != "true" && expression != "false" {
		return visibility.Truthy(ctx.Values[expression]), nil
	}

	prg, err := e.program(expression)
	if err != nil {
		return false, fmt.Errorf("celexpr: field %q: %w", fieldPath, err)
	}

	out, _, err := prg.Eval(map[string]any{
		"doc":    activation(ctx.Values),
		"extras": activation(ctx.Extras),
	})
	if err != nil {
		if strings.Contains(err.Error(), "no such key") {
			return false, nil
		}
		return false, fmt.Errorf("celexpr: field %q: evaluate %q: %w", fieldPath, expression, err)
	}
	if result, ok := out.Value().(bool); ok {
		return result, nil
	}
	return visibility.Truthy(out.Value()), nil
}

func (e *Evaluator) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, iss.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expression, err)
	}

	e.mu.Lock()
	e.programs[expression] = prg
	e.mu.Unlock()
	return prg, nil
}

// activation converts table rows into CEL-friendly lists.
func activation(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		switch typed := value.(type) {
		case []map[string]any:
			rows := make([]any, len(typed))
			for i, row := range typed {
				rows[i] = row
			}
			out[key] = rows
		case nil:
			out[key] = ""
		default:
			out[key] = value
		}
	}
	return out
}
