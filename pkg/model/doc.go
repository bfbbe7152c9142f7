// Package model defines the typed form model consumed by renderers and the
// form state engine. A FormModel describes one Frappe doctype form: ordered
// tabs (TabbedLayout), each holding Field schemas whose Type uses the Frappe
// wire names ("Data", "Link", "Section Break", ...). Every FieldType belongs to
// a FieldKind; only KindData fields carry a value that is ever submitted, so
// callers branch on Kind instead of comparing type strings. Layout-only
// (Section Break, Column Break), action (Button) and display (Read Only)
// fields shape rendering and never reach a submission payload.
package model
