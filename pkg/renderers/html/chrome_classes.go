package html

// ChromeClass is a typed identifier for the CSS classes placed on the form
// chrome. The package ships no stylesheet; hosts style these hooks.
type ChromeClass string

const (
	ClassForm     ChromeClass = "ff-form"
	ClassHeader   ChromeClass = "ff-header"
	ClassTabs     ChromeClass = "ff-tabs"
	ClassSection  ChromeClass = "ff-tab"
	ClassField    ChromeClass = "ff-field"
	ClassRequired ChromeClass = "ff-required"
	ClassError    ChromeClass = "ff-error"
	ClassErrors   ChromeClass = "ff-errors"
	ClassActions  ChromeClass = "ff-actions"
	ClassDelete   ChromeClass = "ff-delete"
)

// ChromeClasses overrides the default class of each chrome element. Empty
// entries keep the default.
type ChromeClasses struct {
	Form     string
	Header   string
	Tabs     string
	Section  string
	Field    string
	Required string
	Error    string
	Errors   string
	Actions  string
	Delete   string
}

func (c ChromeClasses) view() map[string]string {
	pick := func(override string, fallback ChromeClass) string {
		if override != "" {
			return override
		}
		return string(fallback)
	}
	return map[string]string{
		"form":     pick(c.Form, ClassForm),
		"header":   pick(c.Header, ClassHeader),
		"tabs":     pick(c.Tabs, ClassTabs),
		"section":  pick(c.Section, ClassSection),
		"field":    pick(c.Field, ClassField),
		"required": pick(c.Required, ClassRequired),
		"error":    pick(c.Error, ClassError),
		"errors":   pick(c.Errors, ClassErrors),
		"actions":  pick(c.Actions, ClassActions),
		"delete":   pick(c.Delete, ClassDelete),
	}
}
