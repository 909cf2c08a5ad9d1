package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WithProgress runs fn behind a spinner on stderr. In quiet mode fn runs
// without any progress output.
func WithProgress(quiet bool, message string, fn func() error) error {
	return withProgress(quiet, os.Stderr, message, fn)
}

func withProgress(quiet bool, out io.Writer, message string, fn func() error) error {
	if quiet {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message
	s.Start()

	err := fn()
	if err != nil {
		s.FinalMSG = text.FgRed.Sprint("✗ "+message) + "\n"
	} else {
		s.FinalMSG = text.FgGreen.Sprint("✓ "+message) + "\n"
	}
	s.Stop()
	return err
}

// Failure formats an error line for the terminal.
func Failure(err error) string {
	return fmt.Sprintf("%s %v", text.FgRed.Sprint("Error:"), err)
}
