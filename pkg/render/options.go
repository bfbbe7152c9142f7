package render

import (
	theme "github.com/goliatone/go-theme"

	"github.com/jalsampada/go-frappeforms/pkg/linkfilter"
)

// RenderOptions describe per-request data that renderers use to customise
// their output without mutating the form model.
type RenderOptions struct {
	// Action is the URL the form posts to.
	Action string
	// Method is the submission verb. Browsers only post, so renderers emit a
	// hidden _method input for anything else.
	Method string
	// Values pre-populates controls keyed by field name. Table values are
	// []map[string]any rows.
	Values map[string]any
	// Errors holds field-level messages keyed by field path
	// ("district", "spares.0.item").
	Errors map[string][]string
	// FormErrors holds messages not tied to a field.
	FormErrors []string
	// Filters holds the resolved dependent filter of each Link field.
	Filters map[string]linkfilter.Filter
	// LinkEndpoint is the base path Link inputs query for options, e.g.
	// "/api/link". The doctype is appended by the renderer.
	LinkEndpoint string
	// HiddenFields are emitted as hidden inputs (revision markers, CSRF).
	HiddenFields map[string]string
	// Visible marks fields hidden by their DependsOn rule. A nil map or a
	// missing key means visible.
	Visible map[string]bool
	// Required overrides the static Required flag per field after evaluating
	// MandatoryDependsOn.
	Required map[string]bool
	// Dirty reports whether the values differ from the loaded record.
	Dirty bool
	// Theme carries go-theme tokens and CSS variables for the form chrome.
	Theme *theme.RendererConfig
	// Subset restricts rendering to some tabs or field groups.
	Subset FieldSubset
	// Locale and Translator localise labels that declare translation keys.
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}

// IsVisible reports whether the field should be rendered.
func (o RenderOptions) IsVisible(name string) bool {
	if o.Visible == nil {
		return true
	}
	visible, ok := o.Visible[name]
	return !ok || visible
}

// IsRequired reports the effective required flag for a field.
func (o RenderOptions) IsRequired(name string, static bool) bool {
	if o.Required == nil {
		return static
	}
	if required, ok := o.Required[name]; ok {
		return required
	}
	return static
}
