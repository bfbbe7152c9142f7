package html

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl templates/widgets/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the embedded template bundle. Template paths are
// rooted at "templates/", so an override directory must mirror that layout.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
