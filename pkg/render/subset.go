package render

import (
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

// FieldSubset selects part of a form. Tabs matches tab names; Groups matches
// the "group" metadata of fields. A field is kept when its tab or its group
// matches. An empty subset keeps everything.
type FieldSubset struct {
	Tabs   []string
	Groups []string
}

// Empty reports whether the subset selects everything.
func (s FieldSubset) Empty() bool {
	return len(normaliseTokens(s.Tabs)) == 0 && len(normaliseTokens(s.Groups)) == 0
}

// ApplySubset removes tabs and fields outside subset. Tabs left without data
// fields are dropped. The form is unchanged for an empty subset.
func ApplySubset(form *model.FormModel, subset FieldSubset) {
	if form == nil || subset.Empty() {
		return
	}
	tabs := normaliseTokens(subset.Tabs)
	groups := normaliseTokens(subset.Groups)

	kept := make([]model.TabbedLayout, 0, len(form.Tabs))
	for _, tab := range form.Tabs {
		if _, ok := tabs[normaliseToken(tab.Name)]; ok {
			kept = append(kept, tab)
			continue
		}
		if len(groups) == 0 {
			continue
		}
		var fields []model.Field
		hasData := false
		for _, field := range tab.Fields {
			if !field.Submittable() {
				fields = append(fields, field)
				continue
			}
			if _, ok := groups[normaliseToken(field.Metadata["group"])]; ok {
				fields = append(fields, field)
				hasData = true
			}
		}
		if hasData {
			tab.Fields = fields
			kept = append(kept, tab)
		}
	}
	form.Tabs = kept
}

func normaliseTokens(values []string) map[string]struct{} {
	result := make(map[string]struct{}, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if token := normaliseToken(part); token != "" {
				result[token] = struct{}{}
			}
		}
	}
	return result
}

func normaliseToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
