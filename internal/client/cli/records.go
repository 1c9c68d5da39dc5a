package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/client/readers"
	"github.com/dmitrijs2005/finkeeper/internal/client/syncer"
	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/spf13/cobra"
)

func (r *runner) newListCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "Show expenses, accounts, categories, budgets or goals",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(ctx context.Context, a *App, args []string) error {
			col, err := models.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return a.List(ctx, col, refresh, r.json)
		}),
	}
	cmd.Flags().BoolVarP(&refresh, "refresh", "r", false, "refresh the cache from the server first")
	return cmd
}

func (r *runner) newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection> [name=value...]",
		Short: "Add a record; fields are prompted for when none are given",
		Args:  cobra.MinimumNArgs(1),
		RunE: r.run(func(ctx context.Context, a *App, args []string) error {
			col, err := models.ParseCollection(args[0])
			if err != nil {
				return err
			}
			data, err := a.fields(args[1:])
			if err != nil {
				return err
			}
			return a.Add(ctx, col, data)
		}),
	}
}

func (r *runner) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <collection> <id> name=value...",
		Short: "Change fields of a record",
		Args:  cobra.MinimumNArgs(2),
		RunE: r.run(func(ctx context.Context, a *App, args []string) error {
			col, err := models.ParseCollection(args[0])
			if err != nil {
				return err
			}
			data, err := a.fields(args[2:])
			if err != nil {
				return err
			}
			return a.Update(ctx, col, args[1], data)
		}),
	}
}

func (r *runner) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: r.run(func(ctx context.Context, a *App, args []string) error {
			col, err := models.ParseCollection(args[0])
			if err != nil {
				return err
			}
			return a.Delete(ctx, col, args[1])
		}),
	}
}

func (a *App) fields(args []string) (map[string]any, error) {
	if len(args) == 0 {
		var err error
		if args, err = GetFields(a.reader, a.out); err != nil {
			return nil, err
		}
	}
	data, err := models.ParseAssignments(args)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("no fields given")
	}
	return data, nil
}

// List prints the cached snapshot of col. Without a cache the server is
// queried directly.
func (a *App) List(ctx context.Context, col models.Collection, refresh, asJSON bool) error {
	var (
		records []map[string]any
		err     error
	)
	if a.CacheEnabled() {
		records, err = a.cachedRecords(ctx, col, refresh)
	} else {
		records, err = a.api.List(ctx, col)
	}
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(a.out, records)
	}
	return renderRecords(a.out, col, records)
}

func (a *App) cachedRecords(ctx context.Context, col models.Collection, refresh bool) ([]map[string]any, error) {
	switch col {
	case models.Expenses:
		return viaReader(ctx, readers.Expenses(a.cache, a.sync), refresh)
	case models.Accounts:
		return viaReader(ctx, readers.Accounts(a.cache, a.sync), refresh)
	case models.Categories:
		return viaReader(ctx, readers.Categories(a.cache, a.sync), refresh)
	case models.Budgets:
		return viaReader(ctx, readers.Budgets(a.cache, a.sync), refresh)
	case models.Goals:
		return viaReader(ctx, readers.Goals(a.cache, a.sync), refresh)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownCollection, col)
	}
}

// viaReader loads typed records through a reader and hands them back as
// maps for rendering.
func viaReader[T any](ctx context.Context, r *readers.Reader[T], refresh bool) ([]map[string]any, error) {
	var st readers.State[T]
	if refresh {
		var err error
		st, err = r.Refresh(ctx)
		if err != nil && !errors.Is(err, syncer.ErrOffline) {
			return nil, err
		}
	} else {
		st = r.Load(ctx)
	}
	if st.Error != "" {
		return nil, errors.New(st.Error)
	}

	out := make([]map[string]any, 0, len(st.Data))
	for _, rec := range st.Data {
		m, err := models.ToMap(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Add queues the record and tries to push it right away.
func (a *App) Add(ctx context.Context, col models.Collection, data map[string]any) error {
	if !a.CacheEnabled() {
		rec, err := a.api.Create(ctx, col, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created %v\n", rec["id"])
		return nil
	}

	id, err := a.sync.Create(ctx, col, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s\n", id)
	a.pushIfOnline(ctx)
	return nil
}

func (a *App) Update(ctx context.Context, col models.Collection, id string, data map[string]any) error {
	if !a.CacheEnabled() {
		if _, err := a.api.Update(ctx, col, id, data); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Updated %s\n", id)
		return nil
	}

	if err := a.sync.Update(ctx, col, id, data); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s\n", id)
	a.pushIfOnline(ctx)
	return nil
}

func (a *App) Delete(ctx context.Context, col models.Collection, id string) error {
	if !a.CacheEnabled() {
		if err := a.api.Delete(ctx, col, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %s\n", id)
		return nil
	}

	if err := a.sync.Delete(ctx, col, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", id)
	a.pushIfOnline(ctx)
	return nil
}

// pushIfOnline drains the queue when the server is reachable. The change is
// already saved locally, so a failed drain is only reported.
func (a *App) pushIfOnline(ctx context.Context) {
	if !a.net.IsOnline() {
		fmt.Fprintln(a.out, "Offline: change queued")
		return
	}
	if err := a.sync.SyncPendingOperations(ctx); err != nil {
		a.log.Warn(ctx, "sync after change incomplete", "error", err)
		fmt.Fprintln(a.out, "Change queued, sync incomplete")
	}
}
