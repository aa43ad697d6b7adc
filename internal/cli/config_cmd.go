package cli

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/hydai/mcplug/pkg/mcplug"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved mcplug configuration",
	}
	root.AddCommand(newConfigShowCommand(opts))
	root.AddCommand(newConfigWatchCommand(opts))
	return root
}

func newConfigShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the fully resolved, merged, and env-expanded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := newModule(cmd.Context(), opts)
			if err != nil {
				return reportErr(cmd, opts, err)
			}
			defer module.Close()

			cfg := module.CurrentConfig()
			if opts.jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(configView(cfg))
			}
			printConfigTable(cmd, cfg)
			return nil
		},
	}
}

func configView(cfg *mcplug.McplugConfig) []map[string]any {
	out := make([]map[string]any, 0, len(cfg.Order))
	for _, name := range cfg.Names() {
		s := cfg.Servers[name]
		out = append(out, map[string]any{
			"name":      s.Name,
			"transport": transportLabel(s),
			"command":   s.Command,
			"baseUrl":   s.BaseURL,
			"lifecycle": lifecycleLabel(s.Lifecycle),
			"headers":   redactedHeaders(s.Headers),
		})
	}
	return out
}

// redactedHeaders masks bearer tokens and other auth material before a
// server's headers are ever written to stdout, so `config show` can't leak
// a cached OAuth token or an inline API key into a terminal or log capture.
func redactedHeaders(headers map[string]string) map[string]string {
	doc := "{}"
	for k, v := range headers {
		if isSensitiveHeader(k) {
			v = "REDACTED"
		}
		escapedKey := strings.NewReplacer(".", "\\.", "*", "\\*", "?", "\\?").Replace(k)
		var err error
		doc, err = sjson.Set(doc, escapedKey, v)
		if err != nil {
			continue
		}
	}
	var out map[string]string
	_ = json.Unmarshal([]byte(doc), &out)
	return out
}

func isSensitiveHeader(name string) bool {
	switch name {
	case "Authorization", "authorization", "X-Api-Key", "x-api-key":
		return true
	default:
		return false
	}
}

func printConfigTable(cmd *cobra.Command, cfg *mcplug.McplugConfig) {
	for _, name := range cfg.Names() {
		s := cfg.Servers[name]
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.Name, transportLabel(s), lifecycleLabel(s.Lifecycle))
	}
}

func transportLabel(s *mcplug.ServerConfig) string {
	if s.UsesHTTP() {
		return "http"
	}
	return "stdio"
}

// newConfigWatchCommand runs until interrupted, rebuilding the configuration
// (and the Runtime behind it) whenever a watched mcplug.json(c) file changes,
// and printing a line for every reload so an operator can confirm a config
// edit actually took effect.
func newConfigWatchCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the configuration file and reload on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()

			cfg := (&mcplug.Config{
				ConfigPath:        opts.configPath,
				AllowInsecureHTTP: opts.allowHTTP,
				Watch:             true,
				OnReload: func(newCfg *mcplug.McplugConfig) {
					fmt.Fprintf(out, "reloaded: %d server(s) configured (%s)\n",
						len(newCfg.Order), strings.Join(newCfg.Names(), ", "))
				},
			}).Complete()

			module, err := cfg.New(ctx)
			if err != nil {
				return reportErr(cmd, opts, err)
			}
			defer module.Close()

			initial := module.CurrentConfig()
			fmt.Fprintf(out, "watching %d server(s) configured (%s); press ctrl-c to stop\n",
				len(initial.Order), strings.Join(initial.Names(), ", "))

			<-ctx.Done()
			fmt.Fprintln(out, "stopping watch")
			return nil
		},
	}
}

func lifecycleLabel(lc mcplug.Lifecycle) string {
	switch lc {
	case mcplug.LifecycleKeepAlive:
		return "keep-alive"
	case mcplug.LifecycleEphemeral:
		return "ephemeral"
	default:
		return "ephemeral (default)"
	}
}
