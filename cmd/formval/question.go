package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formval/pkg/validation"
)

func newCheckQuestionCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "check-question [QUESTION...]",
		Short: "Check question definitions against the registered data sources and format validators",
		Long: "Check the named questions of the loaded definitions, every question when none is named, " +
			"or a single JSON/YAML question definition given with --file.",
		RunE: withRuntime(func(cmd *cobra.Command, rt *runtime, args []string) error {
			var inputs []validation.QuestionInput
			switch {
			case file != "":
				data, err := readInput(cmd, file)
				if err != nil {
					return err
				}
				var in validation.QuestionInput
				// YAML is a superset of JSON.
				if err := yaml.Unmarshal(data, &in); err != nil {
					return fmt.Errorf("parse %s: %w", file, err)
				}
				inputs = append(inputs, in)
			case len(args) > 0:
				for _, slug := range args {
					q, ok := rt.engine.Forms.Question(slug)
					if !ok {
						return fmt.Errorf("unknown question %q", slug)
					}
					inputs = append(inputs, validation.QuestionInputFrom(q))
				}
			default:
				for _, form := range rt.engine.Forms.Forms() {
					for _, q := range form.Questions {
						inputs = append(inputs, validation.QuestionInputFrom(q))
					}
				}
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, in := range inputs {
				err := rt.engine.Validator.ValidateQuestion(in)
				if err == nil {
					fmt.Fprintf(out, "%s: ok\n", in.Slug)
					continue
				}
				failures := validation.Failures(err)
				if len(failures) == 0 {
					return err
				}
				invalid++
				msgs := make([]string, 0, len(failures))
				for _, f := range failures {
					msgs = append(msgs, f.Message)
				}
				fmt.Fprintf(out, "%s: %s\n", in.Slug, strings.Join(msgs, "; "))
			}
			if invalid > 0 {
				return &invalidError{count: invalid}
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Question definition file (- reads stdin)")
	return cmd
}
