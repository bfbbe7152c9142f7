package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jalsampada/go-frappeforms"
	"github.com/jalsampada/go-frappeforms/internal/config"
	"github.com/jalsampada/go-frappeforms/internal/server"
	"github.com/jalsampada/go-frappeforms/pkg/frappe"
	"github.com/jalsampada/go-frappeforms/pkg/layout"
	"github.com/jalsampada/go-frappeforms/pkg/logger"
	"github.com/jalsampada/go-frappeforms/pkg/orchestrator"
	"github.com/jalsampada/go-frappeforms/pkg/renderers/tui"
	"github.com/jalsampada/go-frappeforms/pkg/submit"
)

// app holds what every command builds from the configuration.
type app struct {
	cfg    config.Config
	log    *logger.Logger
	client *frappe.Client
	orch   *orchestrator.Orchestrator
}

// loadConfig reads the config file and applies the --log-level override.
func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

// newApp wires logger, Frappe client, layouts and orchestrator. The client is
// only built when a Frappe URL is configured; without it only new records
// can be rendered.
func newApp(cfg config.Config, extra ...orchestrator.Option) (*app, error) {
	log, err := logger.New(cfg.Logger())
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	layouts, err := loadLayouts(cfg.Layouts.Dir)
	if err != nil {
		return nil, err
	}

	registry, err := frappeforms.Renderers(cfg.Server.AssetsPath, cfg.Server.TemplatesDir, tui.WithLogger(log))
	if err != nil {
		return nil, err
	}

	options := []orchestrator.Option{
		orchestrator.WithLayouts(layouts),
		orchestrator.WithRegistry(registry),
		orchestrator.WithPaths(cfg.Server.FormsPath, server.LinkEndpoint()),
		orchestrator.WithLogger(log),
	}
	if cfg.Submit.ChangedOnly {
		options = append(options, orchestrator.WithPipelineOptions(submit.WithChangedOnly()))
	}
	if path := strings.TrimSpace(cfg.Layouts.Presets); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("presets: read %s: %w", path, err)
		}
		presets, err := orchestrator.NewPresetTransformer(data)
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithSchemaTransformer(presets))
	}

	a := &app{cfg: cfg, log: log}
	if strings.TrimSpace(cfg.Frappe.URL) != "" {
		client, err := frappe.New(cfg.FrappeClient(), frappe.WithLogger(log))
		if err != nil {
			return nil, err
		}
		a.client = client
		options = append(options, orchestrator.WithStore(client))
	}
	a.orch = orchestrator.New(append(options, extra...)...)
	return a, nil
}

// loadLayouts merges the site layouts in dir over the embedded defaults.
func loadLayouts(dir string) (*layout.Store, error) {
	store, err := layout.Default()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		return store, nil
	}
	site, err := layout.LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, err
	}
	store.Merge(site)
	return store, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}
