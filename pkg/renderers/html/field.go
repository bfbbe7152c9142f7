package html

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/linkfilter"
	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/render"
)

// componentConfigKey holds per-field component configuration as JSON.
const componentConfigKey = "componentConfig"

// field renders one top-level field including its label chrome. Layout and
// action fields render without chrome.
func (s *renderSession) field(field model.Field) (string, error) {
	value := s.opts.Values[field.Name]
	view := s.controlView(field, field.Name, value)
	if _, ok := view["label"]; !ok {
		view["label"] = field.DisplayLabel()
	}
	view["description"] = field.Description
	view["dependsOn"] = field.DependsOn
	view["hidden"] = !s.opts.IsVisible(field.Name)
	view["errors"] = s.opts.Errors[field.Name]

	if field.Type == model.FieldTypeTable {
		if err := s.tableView(field, value, view); err != nil {
			return "", err
		}
	}

	control, err := s.control(field, view, value)
	if err != nil {
		return "", err
	}

	switch field.Kind() {
	case model.KindLayout, model.KindAction:
		return control, nil
	}
	return s.renderer.templates.RenderTemplate(fieldTemplate, map[string]any{
		"field":   view,
		"control": control,
		"classes": s.renderer.classes,
	})
}

// controlView is the template view shared by fields and table cells. path is
// the input name.
func (s *renderSession) controlView(field model.Field, path string, value any) map[string]any {
	view := map[string]any{
		"name":        path,
		"id":          "ff-" + slug(path),
		"type":        string(field.Type),
		"required":    s.opts.IsRequired(path, field.Required),
		"readOnly":    field.ReadOnly,
		"placeholder": field.Placeholder,
		"value":       formatValue(field, value),
	}
	if field.Type == model.FieldTypeSectionBreak || field.Type == model.FieldTypeButton {
		view["label"] = strings.TrimSpace(field.Label)
	}

	switch field.Type {
	case model.FieldTypeInt:
		view["step"] = "1"
	case model.FieldTypeFloat:
		view["step"] = "any"
	case model.FieldTypeCheck:
		view["checked"] = checked(value)
	case model.FieldTypeSelect:
		current := formatValue(field, value)
		options := make([]map[string]any, 0, len(field.Options))
		for _, option := range field.Options {
			options = append(options, map[string]any{
				"value":    option,
				"label":    option,
				"selected": option == current,
			})
		}
		view["options"] = options
	case model.FieldTypeLink:
		view["linkTarget"] = field.LinkTarget
		view["linkFilters"] = s.linkFilter(field)
		view["linkSources"] = strings.Join(linkfilter.Sources(field), ",")
		if endpoint := strings.TrimRight(strings.TrimSpace(s.opts.LinkEndpoint), "/"); endpoint != "" {
			view["linkEndpoint"] = endpoint + "/" + url.PathEscape(field.LinkTarget)
		}
	}
	return view
}

// linkFilter prefers the caller-resolved filter and falls back to resolving
// against the rendered values.
func (s *renderSession) linkFilter(field model.Field) map[string]any {
	filter, ok := s.opts.Filters[field.Name]
	if !ok {
		filter = linkfilter.Resolve(field, s.opts.Values)
	}
	out := make(map[string]any, len(filter))
	for key, value := range filter {
		out[key] = value
	}
	return out
}

// tableView adds the columns, the rows and a blank row template to view. The
// template's names carry render.RowPlaceholder, which the browser runtime
// swaps for the next row index.
func (s *renderSession) tableView(field model.Field, value any, view map[string]any) error {
	dataColumns := field.DataColumns()
	columns := make([]map[string]any, 0, len(dataColumns))
	for _, column := range dataColumns {
		columns = append(columns, map[string]any{
			"name":     column.Name,
			"label":    column.DisplayLabel(),
			"required": column.Required,
		})
	}

	rows := tableRows(value)
	out := make([]map[string]any, 0, len(rows))
	for idx, row := range rows {
		cells, err := s.rowCells(field, dataColumns, strconv.Itoa(idx), row)
		if err != nil {
			return err
		}
		var hidden []map[string]any
		for _, key := range form.RowIdentityKeys {
			if raw, ok := row[key]; ok && !form.Blank(raw) {
				hidden = append(hidden, map[string]any{
					"name":  fmt.Sprintf("%s.%d.%s", field.Name, idx, key),
					"value": fmt.Sprint(raw),
				})
			}
		}
		out = append(out, map[string]any{
			"index":  idx,
			"cells":  cells,
			"hidden": hidden,
		})
	}

	view["columns"] = columns
	view["rows"] = out
	view["presence"] = render.TablePresenceKey(field.Name)
	if field.ReadOnly {
		return nil
	}
	blank, err := s.rowCells(field, dataColumns, render.RowPlaceholder, nil)
	if err != nil {
		return err
	}
	view["template"] = map[string]any{"index": render.RowPlaceholder, "cells": blank}
	return nil
}

func (s *renderSession) rowCells(field model.Field, columns []model.Field, index string, row map[string]any) ([]map[string]any, error) {
	cells := make([]map[string]any, 0, len(columns))
	for _, column := range columns {
		path := field.Name + "." + index + "." + column.Name
		cellView := s.controlView(column, path, row[column.Name])
		cellView["label"] = ""
		cellView["readOnly"] = column.ReadOnly || field.ReadOnly
		markup, err := s.control(column, cellView, row[column.Name])
		if err != nil {
			return nil, err
		}
		cells = append(cells, map[string]any{
			"name":   column.Name,
			"html":   markup,
			"errors": s.opts.Errors[path],
		})
	}
	return cells, nil
}

func tableRows(value any) []map[string]any {
	switch rows := value.(type) {
	case []map[string]any:
		return rows
	case []any:
		out := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			if m, ok := row.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// formatValue renders a state value as input text. DateTime values switch to
// the datetime-local "T" separator and drop fractional seconds.
func formatValue(field model.Field, value any) string {
	var text string
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		text = v
	case int:
		text = strconv.Itoa(v)
	case int64:
		text = strconv.FormatInt(v, 10)
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		text = v.String()
	case bool:
		if v {
			text = "1"
		} else {
			text = "0"
		}
	case []map[string]any, []any, map[string]any:
		return ""
	default:
		text = fmt.Sprint(v)
	}
	if field.Type == model.FieldTypeDateTime && len(text) >= 19 && text[10] == ' ' {
		text = text[:10] + "T" + text[11:19]
	}
	return text
}

func checked(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int64:
		return v == 1
	case int:
		return v == 1
	case float64:
		return v == 1
	case string:
		return v == "1" || strings.EqualFold(v, "true")
	}
	return false
}

func parseComponentConfig(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// slug turns a field path or doctype into an id fragment.
func slug(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	var b strings.Builder
	b.Grow(len(value))
	dash := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
