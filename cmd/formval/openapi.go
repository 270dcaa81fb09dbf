package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formval/pkg/formdef"
)

func newImportOpenAPICmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import-openapi SPEC OPERATION",
		Short: "Convert an OpenAPI operation's request body into form definitions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			file, err := formdef.FromOpenAPI(cmd.Context(), raw, args[1])
			if err != nil {
				return err
			}
			// Reject definitions that would not load.
			if _, err := formdef.Build(file); err != nil {
				return err
			}

			var out []byte
			switch format {
			case "yaml", "yml":
				out, err = yaml.Marshal(file)
			case "json":
				out, err = json.MarshalIndent(file, "", "  ")
				out = append(out, '\n')
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	return cmd
}
