package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finkeeper/internal/client/client"
	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/spf13/cobra"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (r *runner) newRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account on the server",
		Args:  cobra.MaximumNArgs(1),
		RunE: r.run(func(ctx context.Context, a *App, args []string) error {
			return a.Register(ctx, firstArg(args))
		}),
	}
}

func (r *runner) newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Log in, falling back to the stored credentials when offline",
		Args:  cobra.MaximumNArgs(1),
		RunE: r.run(func(ctx context.Context, a *App, args []string) error {
			return a.Login(ctx, firstArg(args))
		}),
	}
}

func (r *runner) newLogoutCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, a *App, _ []string) error {
			return a.Logout(ctx, purge)
		}),
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also drop cached data and pending changes")
	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (a *App) askCredentials(username string) (string, []byte, error) {
	if username == "" {
		var err error
		username, err = getSimpleText(a.reader, "Enter username", a.out)
		if err != nil {
			return "", nil, err
		}
	}
	if username == "" {
		return "", nil, errors.New("username is required")
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return username, password, nil
}

// Register prompts for the missing credentials and creates the account.
func (a *App) Register(ctx context.Context, username string) error {
	username, password, err := a.askCredentials(username)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, username, password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login tries the server first. If it is unavailable the password is checked
// against the stored verifier so cached data stays usable offline.
func (a *App) Login(ctx context.Context, username string) error {
	username, password, err := a.askCredentials(username)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	err = a.auth.OnlineLogin(ctx, username, password)
	switch {
	case err == nil:
		a.net.SetOnline(ctx, true)
		a.userName = username
		fmt.Fprintln(a.out, "Login successful")
		if a.CacheEnabled() {
			if err := a.sync.SyncPendingOperations(ctx); err != nil {
				a.log.Warn(ctx, "initial sync failed", "error", err)
			}
		}
		return nil

	case errors.Is(err, client.ErrUnavailable):
		a.net.SetOnline(ctx, false)
		a.log.Info(ctx, "server unavailable, trying offline login")
		if err := a.auth.OfflineLogin(ctx, username, password); err != nil {
			return fmt.Errorf("offline login: %w", err)
		}
		a.userName = username
		fmt.Fprintln(a.out, "Logged in offline")
		return nil

	default:
		return err
	}
}

func (a *App) Logout(ctx context.Context, purge bool) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	if purge && a.CacheEnabled() {
		if err := a.sync.ClearAll(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
