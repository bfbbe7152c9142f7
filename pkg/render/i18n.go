package render

import (
	"errors"
	"strings"

	"github.com/jalsampada/go-frappeforms/pkg/model"
)

// Metadata keys naming translation keys for labels.
const (
	labelKeyHint       = "labelKey"
	descriptionKeyHint = "descriptionKey"
	placeholderKeyHint = "placeholderKey"
	titleKeyHint       = "titleKey"
	tabLabelKeyPrefix  = "tab.labelKey."
)

// ErrMissingTranslator is reported to MissingTranslationHandler when a key is
// declared but no Translator was configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate delegates to the function.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler decides what to show for an unresolved key.
type MissingTranslationHandler func(locale, key, fallback string, err error) string

func missingTranslationDefault(_ string, key, fallback string, _ error) string {
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

// LocalizeFormModel translates labels that declare translation keys in their
// metadata (labelKey, descriptionKey, placeholderKey; titleKey and
// tab.labelKey.<tab> on the form). It mutates form in place. Fields without
// keys keep their literal text.
func LocalizeFormModel(form *model.FormModel, opts RenderOptions) {
	if form == nil {
		return
	}
	onMissing := opts.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	tr := func(key, fallback string) string {
		return translate(opts.Locale, key, fallback, opts.Translator, onMissing)
	}

	if key := strings.TrimSpace(form.Metadata[titleKeyHint]); key != "" {
		form.Title = tr(key, form.Title)
	}
	for ti := range form.Tabs {
		tab := &form.Tabs[ti]
		if key := strings.TrimSpace(form.Metadata[tabLabelKeyPrefix+tab.Name]); key != "" {
			tab.Label = tr(key, tab.DisplayLabel())
		}
		for fi := range tab.Fields {
			localizeField(&tab.Fields[fi], tr)
		}
	}
}

func localizeField(field *model.Field, tr func(key, fallback string) string) {
	if key := strings.TrimSpace(field.Metadata[labelKeyHint]); key != "" {
		field.Label = tr(key, field.DisplayLabel())
	}
	if key := strings.TrimSpace(field.Metadata[descriptionKeyHint]); key != "" {
		field.Description = tr(key, field.Description)
	}
	if key := strings.TrimSpace(field.Metadata[placeholderKeyHint]); key != "" {
		field.Placeholder = tr(key, field.Placeholder)
	}
	for ci := range field.Columns {
		localizeField(&field.Columns[ci], tr)
	}
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	if t == nil {
		return onMissing(locale, key, fallback, ErrMissingTranslator)
	}
	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return onMissing(locale, key, fallback, err)
}
