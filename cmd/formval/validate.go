package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate DOCUMENT...",
		Short: "Print the validity report of JSON or YAML documents (- reads stdin)",
		Args:  cobra.MinimumNArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, rt *runtime, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			invalid := 0
			for _, path := range args {
				payload, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				report, err := rt.engine.Validity(cmd.Context(), payload)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := enc.Encode(report); err != nil {
					return err
				}
				if !report.IsValid {
					invalid++
				}
			}
			if invalid > 0 {
				return &invalidError{count: invalid}
			}
			return nil
		}),
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
