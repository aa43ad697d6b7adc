// Package cli implements the mcplug command-line surface: list, call, and
// config subcommands wired to a cobra root command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/hydai/mcplug/pkg/mcplug"
)

// printToolTable renders a server's tool catalogue as an aligned table,
// falling back to plain text when color isn't appropriate (uitable handles
// width itself; color is applied to the header only).
func printToolTable(w io.Writer, server string, tools []mcplug.ToolDefinition) {
	heading := color.New(color.Bold).Sprintf("%s (%d tools)", server, len(tools))
	fmt.Fprintln(w, heading)

	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	table.AddRow("NAME", "DESCRIPTION")
	for _, t := range tools {
		table.AddRow(t.Name, t.Description)
	}
	fmt.Fprintln(w, table)
}

// printError renders a McplugError in the CLI's human-readable form: a red
// "error:" prefix, the message, and the stable code.
func printError(w io.Writer, err error) {
	mcErr, ok := mcplug.AsMcplugError(err)
	if !ok {
		fmt.Fprintln(w, color.RedString("error: %v", err))
		return
	}
	fmt.Fprintln(w, color.RedString("error [%s]: %s", mcErr.Code(), mcErr.Message))
}

// printErrorJSON renders a McplugError as its stable wire projection, for
// --json consumers.
func printErrorJSON(w io.Writer, err error) {
	mcErr, ok := mcplug.AsMcplugError(err)
	if !ok {
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]mcplug.JSON{"error": mcErr.AsJSON()})
}

// printCallResult renders a CallResult either as its concatenated text or,
// under --raw, as the preserved raw JSON-RPC result envelope.
func printCallResult(w io.Writer, result *mcplug.CallResult, raw bool) {
	if raw {
		fmt.Fprintln(w, string(result.Raw()))
		return
	}
	fmt.Fprintln(w, result.Text())
}
