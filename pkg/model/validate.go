package model

import (
	"fmt"
	"sort"
	"strings"
)

// LayoutIssue describes one problem found while validating a form model.
type LayoutIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// LayoutError aggregates every issue found by FormModel.Validate.
type LayoutError struct {
	Doctype string
	Issues  []LayoutIssue
}

func (e *LayoutError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "model: invalid layout"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Path+": "+issue.Message)
	}
	prefix := "model: invalid layout"
	if e.Doctype != "" {
		prefix = fmt.Sprintf("model: invalid layout %q", e.Doctype)
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

func (e *LayoutError) add(path, format string, args ...any) {
	e.Issues = append(e.Issues, LayoutIssue{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the structural invariants of the form: known field types,
// unique names across tabs, complete Link/Select/Table definitions, and filter
// mappings that reference data fields without cycles. It returns a
// *LayoutError listing every problem, or nil.
func (f FormModel) Validate() error {
	errs := &LayoutError{Doctype: f.Doctype}
	if strings.TrimSpace(f.Doctype) == "" {
		errs.add("doctype", "doctype is required")
	}
	if len(f.Tabs) == 0 {
		errs.add("tabs", "at least one tab is required")
	}

	seenTabs := make(map[string]struct{}, len(f.Tabs))
	owners := make(map[string]string)
	dataFields := make(map[string]Field)

	for ti, tab := range f.Tabs {
		tabPath := fmt.Sprintf("tabs[%d]", ti)
		if strings.TrimSpace(tab.Name) == "" {
			errs.add(tabPath, "tab name is required")
		} else if _, dup := seenTabs[tab.Name]; dup {
			errs.add(tabPath, "duplicate tab %q", tab.Name)
		} else {
			seenTabs[tab.Name] = struct{}{}
		}

		for fi, field := range tab.Fields {
			path := fmt.Sprintf("%s.fields[%d]", tabPath, fi)
			if field.Name != "" {
				path = tab.Name + "." + field.Name
				if owner, dup := owners[field.Name]; dup {
					errs.add(path, "field name %q already used in tab %q", field.Name, owner)
				} else {
					owners[field.Name] = tab.Name
				}
			}
			validateField(errs, path, field, false)
			if field.Submittable() && field.Name != "" {
				dataFields[field.Name] = field
			}
		}
	}

	for _, tab := range f.Tabs {
		for _, field := range tab.Fields {
			for mi, mapping := range field.FilterMapping {
				path := fmt.Sprintf("%s.%s.filterMapping[%d]", tab.Name, field.Name, mi)
				source := strings.TrimSpace(mapping.SourceField)
				switch {
				case source == "":
					errs.add(path, "sourceField is required")
				case source == field.Name:
					errs.add(path, "field cannot filter on itself")
				default:
					if _, ok := dataFields[source]; !ok {
						errs.add(path, "sourceField %q is not a data field of this form", source)
					}
				}
				if strings.TrimSpace(mapping.TargetField) == "" {
					errs.add(path, "targetField is required")
				}
			}
		}
	}

	if cycle := filterCycle(dataFields); cycle != "" {
		errs.add("filterMapping", "dependency cycle through %q", cycle)
	}

	if len(errs.Issues) == 0 {
		return nil
	}
	return errs
}

func validateField(errs *LayoutError, path string, field Field, inTable bool) {
	if !field.Type.Valid() {
		errs.add(path, "unknown field type %q", field.Type)
		return
	}
	if field.Submittable() && strings.TrimSpace(field.Name) == "" {
		errs.add(path, "%s field requires a name", field.Type)
	}

	switch field.Type {
	case FieldTypeLink:
		if strings.TrimSpace(field.LinkTarget) == "" {
			errs.add(path, "Link field requires linkTarget")
		}
	case FieldTypeSelect:
		if len(field.Options) == 0 {
			errs.add(path, "Select field requires options")
		}
	case FieldTypeTable:
		if inTable {
			errs.add(path, "Table columns cannot be tables")
			return
		}
		if len(field.Columns) == 0 {
			errs.add(path, "Table field requires columns")
		}
		seen := make(map[string]struct{}, len(field.Columns))
		for ci, column := range field.Columns {
			columnPath := fmt.Sprintf("%s.columns[%d]", path, ci)
			if column.Name != "" {
				columnPath = path + "." + column.Name
				if _, dup := seen[column.Name]; dup {
					errs.add(columnPath, "duplicate column %q", column.Name)
				}
				seen[column.Name] = struct{}{}
			}
			if len(column.FilterMapping) > 0 {
				errs.add(columnPath, "filterMapping is not supported on table columns")
			}
			validateField(errs, columnPath, column, true)
		}
	}

	if len(field.FilterMapping) > 0 && field.Type != FieldTypeLink {
		errs.add(path, "filterMapping is only valid on Link fields")
	}
}

// filterCycle returns a field on a dependency cycle, or "" when acyclic.
func filterCycle(fields map[string]Field) string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(fields))

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var visit func(name string) string
	visit = func(name string) string {
		switch state[name] {
		case visiting:
			return name
		case done:
			return ""
		}
		state[name] = visiting
		for _, mapping := range fields[name].FilterMapping {
			if _, ok := fields[mapping.SourceField]; !ok {
				continue
			}
			if found := visit(mapping.SourceField); found != "" {
				return found
			}
		}
		state[name] = done
		return ""
	}

	for _, name := range names {
		if found := visit(name); found != "" {
			return found
		}
	}
	return ""
}
