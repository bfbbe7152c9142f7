package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jalsampada/go-frappeforms/pkg/model"
	"github.com/jalsampada/go-frappeforms/pkg/openapi"
)

func newImportCmd() *cobra.Command {
	var (
		output   string
		validate bool
		list     bool
	)
	cmd := &cobra.Command{
		Use:   "import-openapi <file> [schema]",
		Short: "Convert an OpenAPI component schema into a layout document",
		Long: `Read an OpenAPI 3 document and convert one component schema into a
layout YAML document. x-frappe-link, x-frappe-filters, x-frappe-tab and
x-frappe-order extensions map to Link targets, filter mappings, tabs and field
order. Use --list to see the schemas of a document.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if list {
				names, err := openapi.Schemas(ctx, raw)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}
			if len(args) < 2 {
				return fmt.Errorf("schema name is required (see --list)")
			}

			var opts []openapi.Option
			if validate {
				opts = append(opts, openapi.WithValidation())
			}
			form, err := openapi.Import(ctx, raw, args[1], opts...)
			if err != nil {
				return err
			}
			data, err := layoutDocument(form)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "layout %q written to %s\n", form.Doctype, output)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	flags.BoolVar(&validate, "validate", false, "validate the OpenAPI document first")
	flags.BoolVar(&list, "list", false, "list component schemas and exit")
	return cmd
}

// layoutDocument encodes form in the document shape layout.LoadFS reads.
func layoutDocument(form model.FormModel) ([]byte, error) {
	doc := map[string]map[string]model.FormModel{
		"doctypes": {form.Doctype: form},
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
