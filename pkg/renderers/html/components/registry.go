package components

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/jalsampada/go-frappeforms/pkg/model"
	rendertemplate "github.com/jalsampada/go-frappeforms/pkg/render/template"
)

// Renderer writes the control markup for one field or table cell into buf.
type Renderer func(buf *bytes.Buffer, field model.Field, data ComponentData) error

// ComponentData carries what a component needs besides the field schema.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	// View is the prepared template view of the control: id, name, value,
	// options and link attributes.
	View map[string]any
	// Value is the raw state value before formatting.
	Value any
	// Config is decoded from the field's "componentConfig" metadata.
	Config map[string]any
	// Partials maps "widgets.<name>" to an overriding template path.
	Partials map[string]string
}

// Script is a JavaScript file a component needs on the page.
type Script struct {
	Src   string
	Defer bool
}

// Descriptor is a component: its renderer plus the page assets it pulls in.
type Descriptor struct {
	Name        string
	Renderer    Renderer
	Stylesheets []string
	Scripts     []Script
}

func (d Descriptor) detached() Descriptor {
	d.Stylesheets = slices.Clone(d.Stylesheets)
	d.Scripts = slices.Clone(d.Scripts)
	return d
}

// Registry maps widget names to components. Lookups ignore case.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Descriptor
}

func New() *Registry {
	return &Registry{byName: map[string]Descriptor{}}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces the component for name.
func (r *Registry) Register(name string, d Descriptor) error {
	k := key(name)
	switch {
	case k == "":
		return errors.New("components: component name is required")
	case d.Renderer == nil:
		return fmt.Errorf("components: %q has no renderer", k)
	}
	d.Name = k

	r.mu.Lock()
	r.byName[k] = d.detached()
	r.mu.Unlock()
	return nil
}

func (r *Registry) MustRegister(name string, d Descriptor) {
	if err := r.Register(name, d); err != nil {
		panic(err)
	}
}

// Descriptor returns a copy of the component registered under name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	d, ok := r.byName[key(name)]
	r.mu.RUnlock()
	if !ok {
		return Descriptor{}, false
	}
	return d.detached(), true
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.byName))
}

// Assets collects the stylesheets and scripts of the named components in
// first-use order, each URL once. Unknown names are skipped.
func (r *Registry) Assets(names []string) ([]string, []Script) {
	if len(names) == 0 {
		return nil, nil
	}
	var (
		styles  []string
		scripts []Script
		seen    = map[string]bool{}
	)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		d := r.byName[key(name)]
		for _, href := range d.Stylesheets {
			if href != "" && !seen["css:"+href] {
				seen["css:"+href] = true
				styles = append(styles, href)
			}
		}
		for _, s := range d.Scripts {
			if s.Src != "" && !seen["js:"+s.Src] {
				seen["js:"+s.Src] = true
				scripts = append(scripts, s)
			}
		}
	}
	return styles, scripts
}
