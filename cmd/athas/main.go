package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	runtimesvc "github.com/adhyaay-karnwal/athas/app/athas/runtime"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli holds the resolved configuration shared by every subcommand.
type cli struct {
	cfg runtimesvc.Config

	workspace string
	config    string
	endpoint  string
	model     string
	extractor string
	addr      string
	logLevel  string
	persist   bool
	noWatch   bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "athas",
		Short:         "Hardware project context for AI chat sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.resolve(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.workspace, "workspace", "", "Workspace directory (default: current directory)")
	flags.StringVar(&c.config, "config", "", "Config file (default: <workspace>/.athas/config.yaml)")
	flags.StringVar(&c.endpoint, "ollama-endpoint", "", "Ollama endpoint URL")
	flags.StringVar(&c.model, "ollama-model", "", "Ollama model name")
	flags.StringVar(&c.extractor, "extractor", "", "Extraction backend (local, llm, chain)")
	flags.StringVar(&c.addr, "addr", "", "HTTP server listen address")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&c.persist, "persist", false, "Keep documents in <workspace>/.athas/documents.db")
	flags.BoolVar(&c.noWatch, "no-watch", false, "Disable the file watcher")

	root.AddCommand(
		newInitCmd(c),
		newContextCmd(c),
		newClassifyCmd(c),
		newDocsCmd(c),
		newModesCmd(),
		newServeCmd(c),
		newRPCCmd(c),
		newBrowseCmd(c),
		newViewCmd(),
		newStatusCmd(c),
	)
	return root
}

// resolve builds the effective config: defaults, then the config file, then
// any flag the user set explicitly.
func (c *cli) resolve(cmd *cobra.Command) error {
	cfg := runtimesvc.DefaultConfig()
	if c.workspace != "" {
		cfg.Workspace = c.workspace
	}
	abs, err := filepath.Abs(cfg.Workspace)
	if err != nil {
		return err
	}
	cfg.Workspace = abs
	cfg.ConfigPath = filepath.Join(abs, ".athas", "config.yaml")
	if c.config != "" {
		cfg.ConfigPath = c.config
	}
	if err := cfg.LoadFile(); err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if changed("ollama-endpoint") {
		cfg.OllamaEndpoint = c.endpoint
	}
	if changed("ollama-model") {
		cfg.OllamaModel = c.model
	}
	if changed("extractor") {
		cfg.Extractor = c.extractor
	}
	if changed("addr") {
		cfg.ServerAddr = c.addr
	}
	if changed("log-level") {
		cfg.Logging.Level = c.logLevel
	}
	if changed("persist") {
		cfg.Persist = c.persist
	}
	if c.noWatch {
		cfg.Watch = false
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// withRuntime runs fn against a runtime built from the resolved config and
// closes it afterwards.
func (c *cli) withRuntime(cmd *cobra.Command, fn func(context.Context, *runtimesvc.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := runtimesvc.New(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func newInitCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the workspace config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(c.cfg.ConfigPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", c.cfg.ConfigPath)
			}
			if err := c.cfg.SaveFile(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", c.cfg.ConfigPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				stop, err := rt.StartServer(ctx, c.cfg.ServerAddr)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "athas API listening on %s\n", c.cfg.ServerAddr)
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return stop(shutdownCtx)
			})
		},
	}
}

func newRPCCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rpc",
		Short: "Serve the JSON-RPC editor protocol over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *runtimesvc.Runtime) error {
				return rt.ServeRPC(ctx, stdio(cmd))
			})
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
