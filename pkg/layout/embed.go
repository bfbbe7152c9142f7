package layout

import (
	"embed"
	"io/fs"
)

//go:embed defaults/*.yaml
var embeddedLayouts embed.FS

// EmbeddedFS returns the bundled Jalsampada layouts. Pass it to LoadFS for the
// default configuration.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedLayouts, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// Default loads the embedded layouts.
func Default() (*Store, error) {
	return LoadFS(EmbeddedFS())
}
