package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/linkfilter"
	"github.com/jalsampada/go-frappeforms/pkg/model"
)

const noneOption = "(none)"

func (r *Renderer) promptField(ctx context.Context, state *form.State, field model.Field) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch field.Kind() {
	case model.KindLayout:
		if field.Type == model.FieldTypeSectionBreak && strings.TrimSpace(field.Label) != "" {
			return r.driver.Info(ctx, r.theme.InfoPrefix+field.Label)
		}
		return nil
	case model.KindDisplay:
		return r.driver.Info(ctx, r.theme.InfoPrefix+field.DisplayLabel())
	case model.KindData:
	default:
		return nil
	}
	if !state.Visible(field.Name) {
		return nil
	}

	if field.Type == model.FieldTypeTable {
		return r.promptTable(ctx, state, field)
	}

	for {
		answer, err := r.ask(ctx, state, field)
		var fieldErr *form.FieldError
		if err != nil && !errors.As(err, &fieldErr) {
			return err
		}
		var cleared []string
		if err == nil {
			cleared, err = state.Set(field.Name, answer)
		}
		if err != nil {
			if infoErr := r.driver.Info(ctx, r.theme.ErrorPrefix+err.Error()); infoErr != nil {
				return infoErr
			}
			continue
		}
		if value, _ := state.Value(field.Name); state.Required(field.Name) && form.Blank(value) {
			if err := r.driver.Info(ctx, r.theme.ErrorPrefix+field.DisplayLabel()+" is required"); err != nil {
				return err
			}
			continue
		}
		for _, name := range cleared {
			dependent, _ := state.Field(name)
			if err := r.driver.Info(ctx, r.theme.InfoPrefix+dependent.DisplayLabel()+" cleared"); err != nil {
				return err
			}
		}
		return nil
	}
}

// ask returns the raw answer for a scalar field in a form State.Set accepts.
func (r *Renderer) ask(ctx context.Context, state *form.State, field model.Field) (any, error) {
	current, _ := state.Value(field.Name)
	message := promptMessage(state, field)

	switch field.Type {
	case model.FieldTypeText:
		return r.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: display(current), Help: field.Description})
	case model.FieldTypeSelect:
		return r.askSelect(ctx, state, field, message, field.Options, display(current))
	case model.FieldTypeLink:
		return r.askLink(ctx, state, field, message, display(current))
	case model.FieldTypeCheck:
		return r.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: current == int64(1), Help: field.Description})
	case model.FieldTypeCustom:
		text, err := r.driver.TextArea(ctx, TextAreaConfig{Message: message + " (JSON)", Default: jsonDefault(current), Help: field.Description})
		if err != nil || strings.TrimSpace(text) == "" {
			return nil, err
		}
		var value any
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			return nil, &form.FieldError{Field: field.Name, Err: err}
		}
		return value, nil
	default:
		cfg := InputConfig{Message: message, Default: display(current), Help: field.Description}
		if field.Type == model.FieldTypeDateTime && cfg.Help == "" {
			cfg.Help = "Format: " + form.DateTimeLayout
		}
		return r.driver.Input(ctx, cfg)
	}
}

func (r *Renderer) askSelect(ctx context.Context, state *form.State, field model.Field, message string, values []string, current string) (string, error) {
	options := values
	if !state.Required(field.Name) {
		options = append([]string{noneOption}, values...)
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message,
		Options:      options,
		DefaultIndex: indexOf(options, current),
		Help:         field.Description,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) || options[idx] == noneOption {
		return "", nil
	}
	return options[idx], nil
}

// askLink offers the records the searcher returns under the field's resolved
// dependent filter. Without a searcher, or when the lookup fails or finds
// nothing, the value is typed in.
func (r *Renderer) askLink(ctx context.Context, state *form.State, field model.Field, message, current string) (string, error) {
	if r.searcher != nil {
		filter := linkfilter.Resolve(field, state.Values())
		results, err := r.searcher.SearchLink(ctx, field.LinkTarget, "", linkfilter.ToFrappe(field.LinkTarget, filter), r.linkLimit)
		if err != nil {
			r.log.Warnw("link lookup failed", "field", field.Name, "doctype", field.LinkTarget, "error", err)
		}
		if err == nil && len(results) > 0 {
			values := make([]string, 0, len(results))
			for _, option := range results {
				values = append(values, option.Value)
			}
			return r.askSelect(ctx, state, field, message, values, current)
		}
	}
	return r.driver.Input(ctx, InputConfig{Message: message, Default: current, Help: field.Description})
}

func (r *Renderer) promptTable(ctx context.Context, state *form.State, field model.Field) error {
	rows, err := state.Rows(field.Name)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := r.driver.Info(ctx, fmt.Sprintf("%s%s: %d row(s)", r.theme.InfoPrefix, field.DisplayLabel(), len(rows))); err != nil {
			return err
		}
	}
	for {
		add, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Add a row to %s?", field.DisplayLabel()),
			Default: len(rows) == 0 && state.Required(field.Name),
		})
		if err != nil {
			return err
		}
		if !add {
			return nil
		}
		index, err := state.AddRow(field.Name, map[string]any{})
		if err != nil {
			return err
		}
		for _, column := range field.DataColumns() {
			if err := r.promptCell(ctx, state, field, index, column); err != nil {
				return err
			}
		}
		rows, _ = state.Rows(field.Name)
	}
}

func (r *Renderer) promptCell(ctx context.Context, state *form.State, table model.Field, index int, column model.Field) error {
	message := fmt.Sprintf("%s #%d %s", table.DisplayLabel(), index+1, column.DisplayLabel())
	if column.Required {
		message += " *"
	}
	for {
		var (
			answer any
			err    error
		)
		switch column.Type {
		case model.FieldTypeCheck:
			answer, err = r.driver.Confirm(ctx, ConfirmConfig{Message: message})
		case model.FieldTypeSelect:
			var idx int
			idx, err = r.driver.Select(ctx, SelectConfig{Message: message, Options: column.Options, DefaultIndex: -1})
			if err == nil && idx >= 0 && idx < len(column.Options) {
				answer = column.Options[idx]
			}
		default:
			answer, err = r.driver.Input(ctx, InputConfig{Message: message})
		}
		if err != nil {
			return err
		}
		if err := state.SetCell(table.Name, index, column.Name, answer); err != nil {
			if infoErr := r.driver.Info(ctx, r.theme.ErrorPrefix+err.Error()); infoErr != nil {
				return infoErr
			}
			continue
		}
		rows, _ := state.Rows(table.Name)
		if column.Required && form.Blank(rows[index][column.Name]) {
			if err := r.driver.Info(ctx, r.theme.ErrorPrefix+column.DisplayLabel()+" is required"); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

func promptMessage(state *form.State, field model.Field) string {
	message := field.DisplayLabel()
	if state.Required(field.Name) {
		message += " *"
	}
	return message
}

func display(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

func jsonDefault(value any) string {
	if value == nil {
		return ""
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(raw)
}
