package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jalsampada/go-frappeforms/pkg/orchestrator"
	"github.com/jalsampada/go-frappeforms/pkg/renderers/tui"
	"github.com/jalsampada/go-frappeforms/pkg/submit"
)

func recordArgs(args []string) (doctype, name string) {
	doctype = args[0]
	if len(args) > 1 {
		name = args[1]
	}
	return doctype, name
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		output string
		view   orchestrator.View
	)
	cmd := &cobra.Command{
		Use:   "render <doctype> [name]",
		Short: "Render a form as HTML",
		Long: `Render the form of a new record, or of an existing record fetched from
the configured Frappe site, and write the HTML to stdout or --output.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			doctype, name := recordArgs(args)
			out, err := a.orch.Generate(cmd.Context(), orchestrator.Request{Doctype: doctype, Name: name, View: view})
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(out.Body)
				return err
			}
			if err := os.WriteFile(output, out.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "form written to %s\n", output)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	flags.StringVar(&view.ThemeName, "theme", "", "theme name")
	flags.StringVar(&view.ThemeVariant, "variant", "", "theme variant")
	flags.StringVar(&view.Locale, "locale", "", "locale passed to the renderer")
	flags.StringSliceVar(&view.Subset.Tabs, "tab", nil, "render only these tabs")
	flags.StringSliceVar(&view.Subset.Groups, "group", nil, "render only these field groups")
	return cmd
}

func newFillCmd(opts *rootOptions) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "fill <doctype> [name]",
		Short: "Fill a form interactively in the terminal",
		Long: `Prompt for every visible field of a new or existing record. Link fields
offer options from the Frappe site filtered by the fields they depend on.
The submission payload is printed; --save sends it to the site.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()
			if save && a.client == nil {
				return fmt.Errorf("--save needs frappe.url to be configured")
			}

			ctx := cmd.Context()
			doctype, name := recordArgs(args)
			sess, err := a.orch.Open(ctx, doctype, name)
			if err != nil {
				return err
			}

			tuiOptions := []tui.Option{
				tui.WithPromptDriver(tui.NewSurveyDriver(cmd.ErrOrStderr())),
				tui.WithLogger(a.log),
			}
			if a.client != nil {
				tuiOptions = append(tuiOptions, tui.WithLinkSearcher(a.client))
			}
			filler, err := tui.New(tuiOptions...)
			if err != nil {
				return err
			}
			if err := filler.Fill(ctx, sess.State); err != nil {
				return err
			}

			if !save {
				submission, err := submit.Build(sess.State, sess.Meta)
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]any{"dirty": submission.Dirty, "payload": submission.Payload})
			}

			outcome, err := a.orch.Submit(ctx, orchestrator.SubmitRequest{
				Doctype:  doctype,
				Name:     name,
				Values:   sess.State.Values(),
				Revision: submit.RevisionOf(sess.Meta),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]any{
				"name":    outcome.Name,
				"skipped": outcome.Result.Skipped,
				"changed": outcome.Result.Changed,
			})
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "submit the filled record to the Frappe site")
	return cmd
}

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
