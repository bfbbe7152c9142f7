package orchestrator

import (
	"fmt"
	"path"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// resolveTheme turns a go-theme selection into renderer config. Partials
// layer fallbacks, then manifest templates, then variant templates; tokens
// layer the variant over the manifest. A nil config means no theme.
func (o *Orchestrator) resolveTheme(name, variant string) (*theme.RendererConfig, error) {
	if o.themeSelector == nil {
		return nil, nil
	}
	if strings.TrimSpace(name) == "" {
		name = o.themeName
	}
	if strings.TrimSpace(variant) == "" {
		variant = o.themeVariant
	}

	selection, err := o.themeSelector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: select theme %q: %w", name, err)
	}
	if selection == nil {
		return nil, nil
	}

	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Partials: mergeStringMap(nil, o.themeFallbacks),
	}
	manifest := selection.Manifest
	if manifest == nil {
		return cfg, nil
	}

	var selected *theme.Variant
	if v, ok := manifest.Variants[selection.Variant]; ok {
		selected = &v
	}

	cfg.Partials = mergeStringMap(cfg.Partials, manifest.Templates)
	cfg.Tokens = mergeStringMap(nil, manifest.Tokens)
	if selected != nil {
		cfg.Partials = mergeStringMap(cfg.Partials, selected.Templates)
		cfg.Tokens = mergeStringMap(cfg.Tokens, selected.Tokens)
	}
	if len(cfg.Tokens) > 0 {
		cfg.CSSVars = make(map[string]string, len(cfg.Tokens))
		for key, value := range cfg.Tokens {
			cfg.CSSVars["--"+key] = value
		}
	}
	cfg.AssetURL = assetResolver(manifest.Assets, selected)
	return cfg, nil
}

// assetResolver looks a key up in the variant files, then the manifest files,
// and joins the hit with the asset prefix. Unknown keys are returned as paths
// under the prefix.
func assetResolver(base theme.Assets, variant *theme.Variant) func(string) string {
	prefix := base.Prefix
	var variantFiles map[string]string
	if variant != nil {
		variantFiles = variant.Assets.Files
		if variant.Assets.Prefix != "" {
			prefix = variant.Assets.Prefix
		}
	}
	return func(key string) string {
		key = strings.TrimSpace(key)
		if key == "" {
			return ""
		}
		if strings.HasPrefix(key, "/") || strings.Contains(key, "://") {
			return key
		}
		file := key
		if candidate, ok := variantFiles[key]; ok {
			file = candidate
		} else if candidate, ok := base.Files[key]; ok {
			file = candidate
		}
		if prefix == "" {
			return file
		}
		return path.Join(prefix, file)
	}
}

func mergeStringMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
