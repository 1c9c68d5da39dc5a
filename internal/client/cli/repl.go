package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func (r *runner) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session that keeps syncing in the background",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, a *App, _ []string) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			stop := a.serveMetrics(ctx)
			defer stop()

			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = a.net.Run(ctx)
			}()

			fmt.Fprintln(a.out, "Welcome to finkeeper (type 'help' for commands)")
			runREPL(ctx, r.dispatch, a.prompt, a.reader, a.out)

			cancel()
			<-done
			return nil
		}),
	}
}

// dispatch runs one shell line as a command against the live App.
func (r *runner) dispatch(ctx context.Context, args []string) error {
	sub := &runner{
		ctx: r.ctx, cfg: r.cfg, factory: r.factory, in: r.in, out: r.out,
		app: r.app, nested: true, json: r.json,
	}
	cmd := sub.newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(r.out)
	cmd.SetErr(r.out)
	return cmd.ExecuteContext(ctx)
}

func (a *App) prompt() string {
	parts := make([]string, 0, 3)
	if a.userName != "" {
		parts = append(parts, a.userName)
	}
	parts = append(parts, string(a.Mode()))
	if !a.CacheEnabled() {
		parts = append(parts, "no-cache")
	}
	return fmt.Sprintf("finkeeper (%s)> ", strings.Join(parts, " "))
}

// runREPL reads lines from reader and hands them to dispatch until EOF,
// "exit" or "quit". Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, dispatch func(context.Context, []string) error, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprint(w, statusFn())

		line, err := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) > 0 {
			switch parts[0] {
			case "exit", "quit":
				fmt.Fprintln(w, "Bye!")
				return
			case "shell":
				fmt.Fprintln(w, "Already in a shell")
			default:
				if derr := dispatch(ctx, parts); derr != nil {
					fmt.Fprintln(w, "Error:", derr)
				}
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintln(w, "Error:", err)
			}
			fmt.Fprintln(w)
			return
		}
	}
}
