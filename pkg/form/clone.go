package form

// cloneValues copies a value map deeply enough that edits to the copy's
// nested maps and child table rows never reach src.
func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return cloneValues(v)
	case []map[string]any:
		return cloneRows(v)
	case []any:
		items := make([]any, len(v))
		for i := range v {
			items[i] = deepCopy(v[i])
		}
		return items
	}
	return value
}

func cloneRows(rows []map[string]any) []map[string]any {
	if rows == nil {
		return nil
	}
	out := make([]map[string]any, len(rows))
	for i := range rows {
		out[i] = cloneValues(rows[i])
	}
	return out
}
