// Package layout keeps the doctype layouts the engine renders. Layouts are
// JSON or YAML documents keyed by doctype:
//
//	doctypes:
//	  Village:
//	    title: Village
//	    tabs:
//	      - name: details
//	        fields: [...]
//
// Every layout is validated when loaded.
package layout

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

// Store holds validated layouts keyed by doctype. It is safe for concurrent
// use.
type Store struct {
	mu      sync.RWMutex
	forms   map[string]model.FormModel
	sources map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		forms:   make(map[string]model.FormModel),
		sources: make(map[string]string),
	}
}

// LoadFS walks fsys and parses every JSON/YAML layout document. A doctype
// defined by two files is an error. A nil fsys yields an empty store.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := NewStore()
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isLayoutFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("layout: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		doctypes := make([]string, 0, len(doc.Doctypes))
		for doctype := range doc.Doctypes {
			doctypes = append(doctypes, doctype)
		}
		sort.Strings(doctypes)

		for _, key := range doctypes {
			doctype := strings.TrimSpace(key)
			if doctype == "" {
				return fmt.Errorf("layout: file %s defines an empty doctype", path)
			}
			form := doc.Doctypes[key]
			if form.Doctype == "" {
				form.Doctype = doctype
			} else if form.Doctype != doctype {
				return fmt.Errorf("layout: file %s: doctype key %q does not match %q", path, doctype, form.Doctype)
			}
			if err := store.add(form, path); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Form returns a copy of the layout for doctype.
func (s *Store) Form(doctype string) (model.FormModel, bool) {
	if s == nil {
		return model.FormModel{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	form, ok := s.forms[doctype]
	if !ok {
		return model.FormModel{}, false
	}
	return form.Clone(), true
}

// Doctypes lists the stored doctypes, sorted.
func (s *Store) Doctypes() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.forms))
	for doctype := range s.forms {
		out = append(out, doctype)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the store holds any layout.
func (s *Store) Empty() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.forms) == 0
}

// Add validates and stores a layout, replacing any previous layout of the
// same doctype.
func (s *Store) Add(form model.FormModel) error {
	if err := form.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[form.Doctype] = form.Clone()
	s.sources[form.Doctype] = "api"
	return nil
}

// Merge copies every layout of other into s. Layouts in other win, so a
// directory of site overrides can be merged over the embedded defaults.
func (s *Store) Merge(other *Store) {
	if other == nil || other == s {
		return
	}
	other.mu.RLock()
	forms := make(map[string]model.FormModel, len(other.forms))
	sources := make(map[string]string, len(other.sources))
	for doctype, form := range other.forms {
		forms[doctype] = form.Clone()
		sources[doctype] = other.sources[doctype]
	}
	other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for doctype, form := range forms {
		s.forms[doctype] = form
		s.sources[doctype] = sources[doctype]
	}
}

// Source reports the file a doctype was loaded from.
func (s *Store) Source(doctype string) string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources[doctype]
}

func (s *Store) add(form model.FormModel, source string) error {
	if err := form.Validate(); err != nil {
		return fmt.Errorf("layout: file %s: %w", source, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, dup := s.sources[form.Doctype]; dup {
		return fmt.Errorf("layout: duplicate doctype %q (files %s and %s)", form.Doctype, existing, source)
	}
	s.forms[form.Doctype] = form
	s.sources[form.Doctype] = source
	return nil
}

type documentFile struct {
	Doctypes map[string]model.FormModel `json:"doctypes" yaml:"doctypes"`
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("layout: file %s is empty", source)
	}

	var err error
	if strings.EqualFold(filepath.Ext(source), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return documentFile{}, fmt.Errorf("layout: parse %s: %w", source, err)
	}
	if len(doc.Doctypes) == 0 {
		return documentFile{}, fmt.Errorf("layout: file %s defines no doctypes", source)
	}
	return doc, nil
}

func isLayoutFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
