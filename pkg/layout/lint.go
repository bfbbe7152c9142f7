package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

// Problem is one finding reported by Lint.
type Problem struct {
	File     string
	Doctype  string
	Location string
	Message  string
}

// Lint checks every layout document in fsys like LoadFS does, but keeps going
// after the first problem. Only a failure to walk fsys is returned as an
// error. Problems are sorted by file, doctype and location.
func Lint(fsys fs.FS) ([]Problem, error) {
	var problems []Problem
	seen := make(map[string]string)

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
			problems = append(problems, Problem{File: path, Message: err.Error()})
			return nil
		}

		for key, form := range doc.Doctypes {
			doctype := strings.TrimSpace(key)
			if doctype == "" {
				problems = append(problems, Problem{File: path, Message: "empty doctype key"})
				continue
			}
			if form.Doctype != "" && form.Doctype != doctype {
				problems = append(problems, Problem{File: path, Doctype: doctype, Location: "doctype", Message: fmt.Sprintf("does not match key (got %q)", form.Doctype)})
			}
			form.Doctype = doctype
			if first, dup := seen[doctype]; dup {
				problems = append(problems, Problem{File: path, Doctype: doctype, Message: "already defined in " + first})
			} else {
				seen[doctype] = path
			}
			problems = append(problems, validationProblems(path, form)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(problems, func(i, j int) bool {
		a, b := problems[i], problems[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Doctype != b.Doctype {
			return a.Doctype < b.Doctype
		}
		return a.Location < b.Location
	})
	return problems, nil
}

func validationProblems(path string, form model.FormModel) []Problem {
	err := form.Validate()
	if err == nil {
		return nil
	}
	var layoutErr *model.LayoutError
	if !errors.As(err, &layoutErr) {
		return []Problem{{File: path, Doctype: form.Doctype, Message: err.Error()}}
	}
	out := make([]Problem, 0, len(layoutErr.Issues))
	for _, issue := range layoutErr.Issues {
		out = append(out, Problem{File: path, Doctype: form.Doctype, Location: issue.Path, Message: issue.Message})
	}
	return out
}
