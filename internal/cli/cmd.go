package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/hydai/mcplug/pkg/logger"
)

func init() {
	_, _ = maxprocs.Set(maxprocs.Logger(logger.Debug))
}

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	jsonOutput bool
	verbose    bool
	allowHTTP  bool
}

// NewRootCommand builds the `mcplug` root command and attaches its
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "mcplug",
		Short:         "mcplug drives MCP servers from the command line",
		Long:          `mcplug resolves MCP server configuration, dispatches tools/list and tools/call over stdio or HTTP+SSE, and prints the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logger.SetLevel("debug")
			}
			if opts.jsonOutput {
				logger.SetJSON(true)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to mcplug.json(c) (overrides discovery)")
	flags.BoolVar(&opts.jsonOutput, "json", false, "emit machine-readable JSON output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&opts.allowHTTP, "allow-insecure-http", false, "permit cleartext http:// server base URLs")

	_ = viper.BindPFlags(flags)
	viper.SetEnvPrefix("mcplug")
	viper.AutomaticEnv()

	root.AddCommand(newListCommand(opts))
	root.AddCommand(newCallCommand(opts))
	root.AddCommand(newConfigCommand(opts))

	return root
}

// Execute runs the root command and returns a process exit code. Errors
// surfaced through reportErr were already rendered to the user there;
// anything else (flag parsing, arg-count validation) is printed here.
func Execute() int {
	err := NewRootCommand().Execute()
	if err == nil {
		return 0
	}
	if !errors.Is(err, errReported) {
		fmt.Fprintln(os.Stderr, err)
	}
	return 1
}
