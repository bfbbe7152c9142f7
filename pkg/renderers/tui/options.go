package tui

import (
	"github.com/jalsampada/go-frappeforms/pkg/form"
	"github.com/jalsampada/go-frappeforms/pkg/logger"
)

// Format selects how Render prints the collected submission.
type Format string

const (
	// FormatJSON prints {"dirty": bool, "payload": {...}}.
	FormatJSON Format = "json"
	// FormatForm prints a urlencoded body; table cells become "table.N.column".
	FormatForm Format = "form"
	// FormatText prints one "path=value" line per value, then the dirty flag.
	FormatText Format = "text"
)

// Theme is the set of prefixes put in front of notices.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
	TabPrefix   string
}

var defaultTheme = Theme{InfoPrefix: "› ", ErrorPrefix: "✗ ", TabPrefix: "== "}

type Option func(*Renderer)

func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

func WithFormat(format Format) Option {
	return func(r *Renderer) {
		if format != "" {
			r.format = format
		}
	}
}

// WithLinkSearcher turns Link prompts into a select over matching records.
// Without a searcher the value is typed in.
func WithLinkSearcher(searcher LinkSearcher) Option {
	return func(r *Renderer) { r.searcher = searcher }
}

// WithLinkLimit caps how many Link candidates are offered (default 20).
func WithLinkLimit(limit int) Option {
	return func(r *Renderer) {
		if limit > 0 {
			r.linkLimit = limit
		}
	}
}

// WithStateOptions is passed to form.New or form.Load when Render builds the
// session state.
func WithStateOptions(opts ...form.Option) Option {
	return func(r *Renderer) { r.stateOptions = append(r.stateOptions, opts...) }
}

func WithTheme(theme Theme) Option {
	return func(r *Renderer) { r.theme = theme }
}

func WithLogger(l *logger.Logger) Option {
	return func(r *Renderer) { r.log = l }
}
