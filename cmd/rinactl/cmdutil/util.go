// Package cmdutil provides shared utilities for rinactl commands, scoped
// down from dittofsctl's cmdutil to rinactl's single-session model.
package cmdutil

import (
	"fmt"
	"io"

	"github.com/rina-go/rinad/internal/cli/output"
	"github.com/rina-go/rinad/internal/cli/prompt"
	"github.com/rina-go/rinad/internal/cli/session"
	"github.com/rina-go/rinad/pkg/controlapi/client"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values set on the root command.
type GlobalFlags struct {
	ServerURL string
	Token     string
	Output    string
}

// GetAuthenticatedClient returns a control-API client configured from the
// --server/--token flags if given, otherwise the stored session.
func GetAuthenticatedClient() (*client.Client, error) {
	if Flags.ServerURL != "" && Flags.Token != "" {
		c := client.New(Flags.ServerURL)
		c.SetToken(Flags.Token)
		return c, nil
	}

	store, err := session.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess, err := store.Get()
	if err != nil {
		return nil, err
	}
	if sess.IsExpired() {
		return nil, fmt.Errorf("session expired - run 'rinactl login' again")
	}

	url := sess.ServerURL
	if Flags.ServerURL != "" {
		url = Flags.ServerURL
	}

	c := client.New(url)
	c.SetToken(sess.Token)
	return c, nil
}

// GetOutputFormatParsed returns the parsed output format from the
// --output flag.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintResource prints data in the configured format: JSON/YAML as-is, or
// as a table via tableRenderer.
func PrintResource(w io.Writer, data any, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintTable(w, tableRenderer)
	}
}

// HandleAbort turns a prompt abort (Ctrl+C) into a clean "Aborted."
// message instead of propagating the error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
