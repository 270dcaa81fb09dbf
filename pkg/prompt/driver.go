package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// Driver abstracts the terminal so the collector can be tested without one.
type Driver interface {
	// Text reads free text, spanning several lines when multiline is set.
	Text(ctx context.Context, message string, multiline bool) (string, error)
	Confirm(ctx context.Context, message string, fallback bool) (bool, error)
	// Choose returns the indices of the picked options. Exactly one index is
	// returned unless many is set.
	Choose(ctx context.Context, message string, options []string, many bool) ([]int, error)
	Info(ctx context.Context, msg string) error
}

type surveyDriver struct {
	out io.Writer
}

// NewSurveyDriver returns a Driver backed by survey that prints informational
// messages to out (stdout when nil).
func NewSurveyDriver(out io.Writer) Driver {
	if out == nil {
		out = os.Stdout
	}
	return &surveyDriver{out: out}
}

func (d *surveyDriver) Text(ctx context.Context, message string, multiline bool) (string, error) {
	var p survey.Prompt = &survey.Input{Message: message}
	if multiline {
		p = &survey.Multiline{Message: message}
	}
	var out string
	err := ask(ctx, p, &out)
	return out, err
}

func (d *surveyDriver) Confirm(ctx context.Context, message string, fallback bool) (bool, error) {
	var out bool
	err := ask(ctx, &survey.Confirm{Message: message, Default: fallback}, &out)
	return out, err
}

func (d *surveyDriver) Choose(ctx context.Context, message string, options []string, many bool) ([]int, error) {
	if many {
		var picked []string
		if err := ask(ctx, &survey.MultiSelect{Message: message, Options: options}, &picked); err != nil {
			return nil, err
		}
		return indicesOf(options, picked), nil
	}
	var picked string
	if err := ask(ctx, &survey.Select{Message: message, Options: options}, &picked); err != nil {
		return nil, err
	}
	return indicesOf(options, []string{picked}), nil
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

func ask(ctx context.Context, p survey.Prompt, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(p, out)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

func indicesOf(options, picked []string) []int {
	seen := make(map[string]struct{}, len(picked))
	for _, v := range picked {
		seen[v] = struct{}{}
	}
	var out []int
	for i, option := range options {
		if _, ok := seen[option]; ok {
			out = append(out, i)
		}
	}
	return out
}
