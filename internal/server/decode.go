package server

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/render"
)

// decodeForm maps urlencoded inputs onto the layout's data fields. Checkbox
// inputs post a hidden "0" before the box, so the last value wins. Table cells
// arrive as "table.index.column" and are regrouped into rows ordered by
// index. A table that posts no cells but its presence marker decodes to zero
// rows. Fields with no posted input are left out so they keep their loaded
// value. Custom values are decoded as JSON when they parse.
func decodeForm(formModel model.FormModel, posted url.Values) map[string]any {
	values := make(map[string]any)
	for _, field := range formModel.DataFields() {
		switch field.Type {
		case model.FieldTypeTable:
			if rows, ok := decodeRows(field, posted); ok {
				values[field.Name] = rows
			}
		default:
			raw, ok := posted[field.Name]
			if !ok || len(raw) == 0 {
				continue
			}
			values[field.Name] = decodeScalar(field, raw)
		}
	}
	return values
}

func decodeScalar(field model.Field, raw []string) any {
	switch field.Type {
	case model.FieldTypeCheck:
		return raw[len(raw)-1]
	case model.FieldTypeCustom:
		text := strings.TrimSpace(raw[0])
		if text == "" {
			return nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(text), &decoded); err == nil {
			return decoded
		}
		return raw[0]
	default:
		return raw[0]
	}
}

func decodeRows(table model.Field, posted url.Values) ([]map[string]any, bool) {
	prefix := table.Name + "."
	columns := make(map[string]model.Field)
	for _, column := range table.DataColumns() {
		columns[column.Name] = column
	}
	identity := make(map[string]bool, len(form.RowIdentityKeys))
	for _, key := range form.RowIdentityKeys {
		identity[key] = true
	}

	byIndex := make(map[int]map[string]any)
	for key, raw := range posted {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || len(raw) == 0 {
			continue
		}
		idxText, name, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(idxText)
		if err != nil || idx < 0 {
			continue
		}
		column, isColumn := columns[name]
		if !isColumn && !identity[name] {
			continue
		}
		row := byIndex[idx]
		if row == nil {
			row = make(map[string]any)
			byIndex[idx] = row
		}
		if isColumn {
			row[name] = decodeScalar(column, raw)
		} else {
			row[name] = raw[0]
		}
	}
	if len(byIndex) == 0 {
		if _, present := posted[render.TablePresenceKey(table.Name)]; present {
			return []map[string]any{}, true
		}
		return nil, false
	}

	indexes := make([]int, 0, len(byIndex))
	for idx := range byIndex {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	rows := make([]map[string]any, 0, len(indexes))
	for _, idx := range indexes {
		rows = append(rows, byIndex[idx])
	}
	return rows, true
}

// queryValues turns query parameters into prefill values for a new form.
func queryValues(formModel model.FormModel, query url.Values) map[string]any {
	if len(query) == 0 {
		return nil
	}
	values := decodeForm(formModel, query)
	if len(values) == 0 {
		return nil
	}
	return values
}
