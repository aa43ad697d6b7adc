package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hydai/mcplug/pkg/mcplug"
)

// errReported marks an error whose user-facing rendering has already
// happened in reportErr; Execute uses it to avoid printing it twice.
var errReported = errors.New("mcplug: error already reported")

func newListCommand(opts *globalOptions) *cobra.Command {
	var serverFilter string

	cmd := &cobra.Command{
		Use:   "list [server]",
		Short: "List configured servers, or a server's tools",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				serverFilter = args[0]
			}
			return runList(cmd, opts, serverFilter)
		},
	}
	return cmd
}

func runList(cmd *cobra.Command, opts *globalOptions, server string) error {
	module, err := newModule(cmd.Context(), opts)
	if err != nil {
		return reportErr(cmd, opts, err)
	}
	defer module.Close()

	if server == "" {
		return listServers(cmd, opts, module)
	}
	return listTools(cmd, opts, module, server)
}

func listServers(cmd *cobra.Command, opts *globalOptions, module *mcplug.Module) error {
	names := module.CurrentConfig().Names()
	if opts.jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(names)
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func listTools(cmd *cobra.Command, opts *globalOptions, module *mcplug.Module, server string) error {
	ctx := cmd.Context()
	tools, err := module.CurrentRuntime().ListTools(ctx, server)
	if err != nil {
		return reportErr(cmd, opts, err)
	}

	if opts.jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(tools)
	}
	printToolTable(cmd.OutOrStdout(), server, tools)
	return nil
}

func reportErr(cmd *cobra.Command, opts *globalOptions, err error) error {
	if opts.jsonOutput {
		printErrorJSON(cmd.OutOrStdout(), err)
	} else {
		printError(os.Stderr, err)
	}
	return errReported
}

func newModule(ctx context.Context, opts *globalOptions) (*mcplug.Module, error) {
	cfg := (&mcplug.Config{
		ConfigPath:        opts.configPath,
		AllowInsecureHTTP: opts.allowHTTP,
	}).Complete()
	return cfg.New(ctx)
}
