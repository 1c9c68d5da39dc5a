package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/finkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/finkeeper/internal/client/config"
	"github.com/spf13/cobra"
)

// Factory builds the App a command runs against.
type Factory func(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, error)

type runner struct {
	ctx     context.Context
	cfg     *config.Config
	factory Factory
	in      io.Reader
	out     io.Writer

	app    *App
	nested bool
	json   bool
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string, in io.Reader, stdout, stderr io.Writer, cfg *config.Config, factory Factory) int {
	if factory == nil {
		factory = Build
	}
	r := &runner{ctx: ctx, cfg: cfg, factory: factory, in: in, out: stdout}
	defer r.close()

	root := r.newRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func (r *runner) close() {
	if r.app == nil || r.nested {
		return
	}
	if err := r.app.Close(r.ctx); err != nil {
		r.app.log.Warn(r.ctx, "close failed", "error", err)
	}
}

// App returns the App for the running command, building it on first use.
func (r *runner) App(ctx context.Context) (*App, error) {
	if r.app != nil {
		return r.app, nil
	}
	app, err := r.factory(ctx, r.cfg, r.in, r.out)
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

func (r *runner) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "finkeeper",
		Short:         "Household finance tracker that keeps working offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := cmd.PersistentFlags()
	// Consumed by config.LoadConfig before cobra runs.
	pf.StringP("config", "c", "", "path to a JSON or YAML config file")
	pf.StringVarP(&r.cfg.ServerEndpointAddr, "server", "a", r.cfg.ServerEndpointAddr, "address and port of the server")
	pf.DurationVarP(&r.cfg.OnlineCheckInterval, "online-check", "i", r.cfg.OnlineCheckInterval, "online check interval")
	pf.StringVar(&r.cfg.DBPath, "db", r.cfg.DBPath, "path to the local cache database")
	pf.DurationVar(&r.cfg.CacheTTL, "cache-ttl", r.cfg.CacheTTL, "lifetime of cached snapshots")
	pf.StringVar(&r.cfg.LogLevel, "log-level", r.cfg.LogLevel, "debug, info, warn or error")
	pf.StringVar(&r.cfg.LogFormat, "log-format", r.cfg.LogFormat, "text, json or zap")
	pf.StringVar(&r.cfg.MetricsAddr, "metrics-addr", r.cfg.MetricsAddr, "serve Prometheus metrics on this address (watch and shell)")
	pf.BoolVar(&r.json, "json", false, "print JSON instead of tables")

	cmd.AddCommand(
		r.newRegisterCmd(),
		r.newLoginCmd(),
		r.newLogoutCmd(),
		r.newStatusCmd(),
		r.newSyncCmd(),
		r.newListCmd(),
		r.newAddCmd(),
		r.newUpdateCmd(),
		r.newDeleteCmd(),
		r.newQueueCmd(),
		r.newClearCmd(),
		r.newReceiptCmd(),
		r.newWatchCmd(),
		r.newVersionCmd(),
	)
	if !r.nested {
		cmd.AddCommand(r.newShellCmd())
	}
	return cmd
}

// run adapts an App method to cobra's RunE.
func (r *runner) run(fn func(ctx context.Context, a *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := r.App(ctx)
		if err != nil {
			return err
		}
		a.out = cmd.OutOrStdout()
		return fn(ctx, a, args)
	}
}

func (r *runner) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}
