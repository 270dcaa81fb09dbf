package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formval/pkg/formdef"
	"github.com/goliatone/go-formval/pkg/prompt"
)

func newFillCmd() *cobra.Command {
	var (
		id     string
		output string
	)
	cmd := &cobra.Command{
		Use:   "fill FORM",
		Short: "Answer a form interactively and print the document",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, rt *runtime, args []string) error {
			form, ok := rt.engine.Forms.Form(args[0])
			if !ok {
				return fmt.Errorf("%w %q", formdef.ErrUnknownForm, args[0])
			}
			if id == "" {
				id = uuid.NewString()
			}

			collector, err := prompt.NewCollector(rt.engine.Validator,
				prompt.WithDriver(prompt.NewSurveyDriver(cmd.ErrOrStderr())))
			if err != nil {
				return err
			}
			doc, err := collector.Fill(cmd.Context(), form, id)
			if err != nil {
				return err
			}

			payload, err := json.MarshalIndent(formdef.EncodeDocument(doc), "", "  ")
			if err != nil {
				return err
			}
			payload = append(payload, '\n')
			if output != "" {
				if err := os.WriteFile(output, payload, 0o644); err != nil {
					return err
				}
			} else if _, err := cmd.OutOrStdout().Write(payload); err != nil {
				return err
			}

			report, err := rt.engine.Validator.GetDocumentValidity(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if !report.IsValid {
				for _, e := range report.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", e.Slug, e.ErrorMsg)
				}
				return &invalidError{count: len(report.Errors)}
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "Document id (random UUID when empty)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file instead of stdout")
	return cmd
}
