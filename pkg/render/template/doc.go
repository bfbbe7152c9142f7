// Package template defines the template engine contract used by the HTML
// form renderer. The pongo subpackage provides the pongo2 implementation.
package template
