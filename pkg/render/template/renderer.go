package template

// TemplateRenderer executes a named template against view data. The HTML
// renderer and its widget components only ever render whole templates by
// path, so that is the entire contract.
type TemplateRenderer interface {
	RenderTemplate(name string, data map[string]any) (string, error)
}
