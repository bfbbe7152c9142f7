// Package form holds the live values of a rendered form: type coercion,
// dependent Link resets, dirty tracking against the seeded values and
// required-field validation.
package form
