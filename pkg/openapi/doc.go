// Package openapi converts OpenAPI 3 component schemas into doctype layouts.
// Frappe-specific placement is declared with x-frappe-* extensions on the
// schema and its properties:
//
//	x-frappe-doctype    doctype name (schema level, defaults to the schema name)
//	x-frappe-link       Link target doctype
//	x-frappe-filters    {sourceField: targetField} dependent filter mapping
//	x-frappe-tab        tab name (defaults to "details")
//	x-frappe-order      integer sort key within the tab
//	x-frappe-fieldtype  explicit field type, overriding inference
//	x-frappe-component  Custom component name
//	x-frappe-depends-on DependsOn rule
package openapi
