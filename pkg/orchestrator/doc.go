// Package orchestrator is the generic page controller. It looks up a doctype
// layout, loads the record through a RecordStore, renders the form, applies
// posted edits in dependency order and saves through the submission pipeline,
// so every page shares one fetch/render/submit/delete path.
package orchestrator
