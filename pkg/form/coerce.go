package form

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

// DateTimeLayout is the wire format Frappe uses for DateTime values.
const DateTimeLayout = "2006-01-02 15:04:05"

const dateTimeOutput = "2006-01-02 15:04:05.999999"

var dateTimeInputs = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// RowIdentityKeys are the Frappe child-row keys preserved in table rows even
// though they are not layout columns.
var RowIdentityKeys = []string{"name", "idx", "doctype"}

// Empty returns the value an unset field of the given type holds.
func Empty(field model.Field) any {
	switch field.Type {
	case model.FieldTypeInt, model.FieldTypeFloat:
		return nil
	case model.FieldTypeCheck:
		return int64(0)
	case model.FieldTypeTable:
		return []map[string]any{}
	case model.FieldTypeCustom:
		return nil
	default:
		return ""
	}
}

// Coerce converts raw input (typed values, JSON-decoded values or form
// strings) into the canonical representation for the field type:
// string for text-like types, int64 for Int and Check, float64 for Float and
// []map[string]any for Table.
func Coerce(field model.Field, raw any) (any, error) {
	if raw == nil {
		return Empty(field), nil
	}

	switch field.Type {
	case model.FieldTypeData, model.FieldTypeText:
		return toString(raw), nil
	case model.FieldTypeLink:
		return strings.TrimSpace(toString(raw)), nil
	case model.FieldTypeSelect:
		value := toString(raw)
		if value == "" {
			return "", nil
		}
		for _, option := range field.Options {
			if option == value {
				return value, nil
			}
		}
		return nil, fmt.Errorf("%q is not one of %s", value, strings.Join(field.Options, ", "))
	case model.FieldTypeInt:
		d, ok, err := toDecimal(raw)
		if err != nil || !ok {
			return nil, err
		}
		if !d.IsInteger() {
			return nil, fmt.Errorf("%s is not a whole number", d.String())
		}
		return d.IntPart(), nil
	case model.FieldTypeFloat:
		d, ok, err := toDecimal(raw)
		if err != nil || !ok {
			return nil, err
		}
		return d.InexactFloat64(), nil
	case model.FieldTypeCheck:
		return toCheck(raw)
	case model.FieldTypeDateTime:
		return toDateTime(raw)
	case model.FieldTypeTable:
		return toRows(field, raw)
	case model.FieldTypeCustom:
		return raw, nil
	default:
		return nil, fmt.Errorf("%s fields do not hold a value", field.Type)
	}
}

// tableEquality treats nil and empty rows alike and looks inside structs with
// unexported fields instead of panicking on them.
var tableEquality = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Equal compares two canonical values of the field. Float values compare as
// decimals and tables compare deeply. Anything else, Custom values included,
// is compared with reflect.DeepEqual since it may be an arbitrary Go value.
func Equal(field model.Field, a, b any) bool {
	switch field.Type {
	case model.FieldTypeFloat:
		da, okA, errA := toDecimal(a)
		db, okB, errB := toDecimal(b)
		if errA != nil || errB != nil {
			return reflect.DeepEqual(a, b)
		}
		if !okA || !okB {
			return okA == okB
		}
		return da.Equal(db)
	case model.FieldTypeTable:
		return cmp.Equal(a, b, tableEquality...)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// Blank reports whether a canonical value counts as missing for a required
// check. Zero numbers and unchecked boxes are values.
func Blank(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []map[string]any:
		return len(typed) == 0
	default:
		return false
	}
}

func toString(raw any) string {
	switch typed := raw.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	case fmt.Stringer:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

// toDecimal reports ok=false for empty input.
func toDecimal(raw any) (decimal.Decimal, bool, error) {
	switch typed := raw.(type) {
	case nil:
		return decimal.Zero, false, nil
	case decimal.Decimal:
		return typed, true, nil
	case int:
		return decimal.NewFromInt(int64(typed)), true, nil
	case int32:
		return decimal.NewFromInt32(typed), true, nil
	case int64:
		return decimal.NewFromInt(typed), true, nil
	case float32:
		return decimal.NewFromFloat32(typed), true, nil
	case float64:
		return decimal.NewFromFloat(typed), true, nil
	case json.Number:
		d, err := decimal.NewFromString(typed.String())
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("%q is not a number", typed.String())
		}
		return d, true, nil
	case string:
		trimmed := strings.TrimSpace(strings.ReplaceAll(typed, ",", ""))
		if trimmed == "" {
			return decimal.Zero, false, nil
		}
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("%q is not a number", typed)
		}
		return d, true, nil
	default:
		return decimal.Zero, false, fmt.Errorf("%T is not a number", raw)
	}
}

func toCheck(raw any) (any, error) {
	switch typed := raw.(type) {
	case bool:
		if typed {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "", "0", "false", "off", "no":
			return int64(0), nil
		case "1", "true", "on", "yes":
			return int64(1), nil
		}
		return nil, fmt.Errorf("%q is not a checkbox value", typed)
	}
	d, ok, err := toDecimal(raw)
	if err != nil {
		return nil, err
	}
	if !ok || d.IsZero() {
		return int64(0), nil
	}
	if d.Equal(decimal.NewFromInt(1)) {
		return int64(1), nil
	}
	return nil, fmt.Errorf("%s is not a checkbox value", d.String())
}

func toDateTime(raw any) (any, error) {
	switch typed := raw.(type) {
	case time.Time:
		if typed.IsZero() {
			return "", nil
		}
		return typed.Format(dateTimeOutput), nil
	case *time.Time:
		if typed == nil || typed.IsZero() {
			return "", nil
		}
		return typed.Format(dateTimeOutput), nil
	}
	value := strings.TrimSpace(toString(raw))
	if value == "" {
		return "", nil
	}
	for _, layout := range dateTimeInputs {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format(dateTimeOutput), nil
		}
	}
	return nil, fmt.Errorf("%q is not a date-time (expected %s)", value, DateTimeLayout)
}

func toRows(field model.Field, raw any) (any, error) {
	var rows []map[string]any
	switch typed := raw.(type) {
	case []map[string]any:
		rows = typed
	case []any:
		rows = make([]map[string]any, 0, len(typed))
		for i, item := range typed {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d is %T, not an object", i, item)
			}
			rows = append(rows, row)
		}
	default:
		return nil, fmt.Errorf("%T is not a list of rows", raw)
	}

	out := make([]map[string]any, 0, len(rows))
	for i, row := range rows {
		coerced, err := coerceRow(field, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, coerced)
	}
	return out, nil
}

func coerceRow(table model.Field, row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(table.Columns)+len(RowIdentityKeys))
	for _, key := range RowIdentityKeys {
		if value, ok := row[key]; ok && value != nil {
			out[key] = value
		}
	}
	for _, column := range table.DataColumns() {
		value, err := Coerce(column, row[column.Name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", column.Name, err)
		}
		out[column.Name] = value
	}
	return out, nil
}
