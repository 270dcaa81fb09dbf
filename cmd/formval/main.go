// Command formval validates documents against form definitions, checks
// question definitions, serves the HTTP API and fills documents interactively.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var invalid *invalidError
		if !errors.As(err, &invalid) {
			fmt.Fprintln(os.Stderr, "formval:", err)
		}
		os.Exit(1)
	}
}

// invalidError signals that the command ran but found invalid input; the
// details were already printed.
type invalidError struct {
	count int
}

func (e *invalidError) Error() string {
	return fmt.Sprintf("%d invalid", e.count)
}
