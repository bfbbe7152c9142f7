package frappeforms

import (
	"embed"
	"io/fs"
	"path"

	"github.com/jalsampada/go-frappeforms/pkg/renderers/html/components"
	"github.com/jalsampada/go-frappeforms/pkg/widgets"
)

// RuntimeScript is the browser runtime bundle inside RuntimeAssetsFS.
const RuntimeScript = "frappeforms.js"

//go:embed runtime/assets/*.js
var embeddedRuntimeAssets embed.FS

// RuntimeAssetsFS exposes the browser runtime (Link lookups, dependent
// clearing, table rows) so servers can mount it without a build step.
//
// Typical mount:
//
//	router.StaticFS("/assets", http.FS(frappeforms.RuntimeAssetsFS()))
func RuntimeAssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedRuntimeAssets, "runtime/assets")
	if err != nil {
		return embeddedRuntimeAssets
	}
	return sub
}

// RuntimeComponents returns the default html component registry with the
// runtime script attached to the Link and Table widgets, so pages that need
// it load it once. mountPath is where RuntimeAssetsFS is served.
func RuntimeComponents(mountPath string) *components.Registry {
	registry := components.NewDefaultRegistry()
	script := components.Script{Src: path.Join(mountPath, RuntimeScript), Defer: true}
	for _, name := range []string{widgets.WidgetLink, widgets.WidgetTable} {
		registry.MustRegister(name, components.Descriptor{
			Renderer: components.TemplateRenderer(name),
			Scripts:  []components.Script{script},
		})
	}
	return registry
}
