package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hydai/mcplug/internal/mcplug/argparse"
	"github.com/hydai/mcplug/pkg/mcplug"
)

func newCallCommand(opts *globalOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "call <server> <tool> [args...]",
		Short: "Invoke a tool on a configured server",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, args[0], args[1], args[2:], raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw JSON-RPC result envelope instead of extracted text")
	return cmd
}

func runCall(cmd *cobra.Command, opts *globalOptions, server, toolName string, argTokens []string, raw bool) error {
	ctx := cmd.Context()

	module, err := newModule(ctx, opts)
	if err != nil {
		return reportErr(cmd, opts, err)
	}
	defer module.Close()

	rt := module.CurrentRuntime()

	tools, err := rt.ListTools(ctx, server)
	if err != nil {
		return reportErr(cmd, opts, err)
	}

	def := findTool(tools, toolName)
	if def == nil {
		err := mcplug.ErrToolNotFound(server, toolName, argparse.Suggest(toolName, toolNames(tools)))
		return reportErr(cmd, opts, err)
	}

	args, err := argparse.Parse(argTokens, def.RequiredParams())
	if err != nil {
		return reportErr(cmd, opts, fmt.Errorf("mcplug: %w", err))
	}

	result, err := rt.CallTool(ctx, server, toolName, args)
	if err != nil {
		return reportErr(cmd, opts, err)
	}

	printCallResult(cmd.OutOrStdout(), result, raw)
	return nil
}

func findTool(tools []mcplug.ToolDefinition, name string) *mcplug.ToolDefinition {
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i]
		}
	}
	return nil
}

func toolNames(tools []mcplug.ToolDefinition) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name
	}
	return out
}
