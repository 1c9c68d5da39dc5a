package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (r *runner) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, pending changes and last sync time",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, a *App, _ []string) error {
			return a.Status(ctx, r.json)
		}),
	}
}

func (r *runner) newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push queued changes and refresh the cache",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, a *App, _ []string) error {
			return a.Sync(ctx)
		}),
	}
}

func (r *runner) newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached snapshot and every queued change",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, a *App, _ []string) error {
			if err := a.requireCache(); err != nil {
				return err
			}
			if err := a.sync.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Local data cleared")
			return nil
		}),
	}
}

func (r *runner) newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage queued changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show queued changes, including stuck ones",
			Args:  cobra.NoArgs,
			RunE: r.run(func(ctx context.Context, a *App, _ []string) error {
				return a.QueueList(ctx, r.json)
			}),
		},
		&cobra.Command{
			Use:   "retry <id>",
			Short: "Reset the retry counter of a stuck change",
			Args:  cobra.ExactArgs(1),
			RunE: r.run(func(ctx context.Context, a *App, args []string) error {
				if err := a.requireCache(); err != nil {
					return err
				}
				if err := a.queue.Retry(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Change %s will be retried\n", args[0])
				a.pushIfOnline(ctx)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "drop <id>",
			Short: "Discard a queued change",
			Args:  cobra.ExactArgs(1),
			RunE: r.run(func(ctx context.Context, a *App, args []string) error {
				if err := a.requireCache(); err != nil {
					return err
				}
				if _, err := a.queue.Get(ctx, args[0]); err != nil {
					return err
				}
				if err := a.queue.Remove(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Change %s dropped\n", args[0])
				return nil
			}),
		},
	)
	return cmd
}

type statusView struct {
	User              string `json:"user,omitempty"`
	Mode              Mode   `json:"mode"`
	CacheEnabled      bool   `json:"cache_enabled"`
	PendingOperations int    `json:"pending_operations"`
	StuckOperations   int    `json:"stuck_operations"`
	LastSyncTime      string `json:"last_sync_time"`
}

func (a *App) Status(ctx context.Context, asJSON bool) error {
	v := statusView{User: a.userName, Mode: a.Mode(), CacheEnabled: a.CacheEnabled(), LastSyncTime: formatTime(nil)}
	if a.CacheEnabled() {
		st, err := a.sync.Status(ctx)
		if err != nil {
			return err
		}
		v.PendingOperations = st.PendingOperations
		v.StuckOperations = st.StuckOperations
		v.LastSyncTime = formatTime(st.LastSyncTime)
	}

	if asJSON {
		return writeJSON(a.out, v)
	}

	user := v.User
	if user == "" {
		user = "(not logged in)"
	}
	cacheState := "enabled"
	if !v.CacheEnabled {
		cacheState = "disabled"
	}
	fmt.Fprintf(a.out, "User:      %s\n", user)
	fmt.Fprintf(a.out, "Mode:      %s\n", v.Mode)
	fmt.Fprintf(a.out, "Cache:     %s\n", cacheState)
	fmt.Fprintf(a.out, "Pending:   %d\n", v.PendingOperations)
	fmt.Fprintf(a.out, "Stuck:     %d\n", v.StuckOperations)
	fmt.Fprintf(a.out, "Last sync: %s\n", v.LastSyncTime)
	return nil
}

// Sync probes the server and runs an explicit drain. When the probe itself
// brings the client online, the reconnect drain has already run.
func (a *App) Sync(ctx context.Context) error {
	if err := a.requireCache(); err != nil {
		return err
	}
	wasOnline := a.net.IsOnline()
	if err := a.requireOnline(ctx); err != nil {
		return err
	}
	if wasOnline {
		if err := a.sync.SyncNow(ctx); err != nil {
			return err
		}
	}

	st, err := a.sync.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Synced. Pending: %d, stuck: %d\n", st.PendingOperations, st.StuckOperations)
	return nil
}

func (a *App) QueueList(ctx context.Context, asJSON bool) error {
	if err := a.requireCache(); err != nil {
		return err
	}
	items, err := a.queue.ListPending(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(a.out, items)
	}
	return renderQueue(a.out, items)
}
