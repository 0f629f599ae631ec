package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Token authentication",
		Args:  exactArgs(0, "auth <login|logout|status|whoami>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &reportedError{err: usagef("usage: todo auth <login|logout|status|whoami>")}
		},
	}
	cmd.AddCommand(newAuthLoginCmd(a), newAuthLogoutCmd(a), newAuthStatusCmd(a), newAuthWhoAmICmd(a))
	return cmd
}

func newAuthLoginCmd(a *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a bearer token (prompts when --token is not given)",
		Args:  exactArgs(0, "auth login [--token T]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("token") {
				fmt.Fprint(a.out, "Paste your token: ")
				line, err := bufio.NewReader(a.in).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read token: %w", err)
				}
				token = line
			}
			ti, err := auth.NewStore(a.home, a.getenv).Set(token, a.now().UTC())
			if err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			ui.OK(a.out, "logged in")
			if ti.ExpiresAt != nil {
				ui.Hint(a.out, "expires "+ti.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token to save")
	return cmd
}

func newAuthLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		Args:  exactArgs(0, "auth logout"),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := auth.NewStore(a.home, a.getenv)
			if ti, _ := store.Get(); ti != nil && ti.Source == "env" {
				ui.OK(a.out, "token is provided by "+auth.EnvToken+" env var (nothing to delete)")
				return nil
			}
			if err := store.Delete(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			ui.OK(a.out, "logged out")
			return nil
		},
	}
}

func newAuthStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the token comes from",
		Args:  exactArgs(0, "auth status"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ti, err := auth.NewStore(a.home, a.getenv).Get()
			if errors.Is(err, auth.ErrNoToken) {
				ui.Hint(a.out, "not logged in")
				fmt.Fprintln(a.out, "Run: todo auth login")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "source: %s\n", ti.Source)
			switch {
			case ti.ExpiresAt == nil:
				fmt.Fprintln(a.out, "expires: (unknown)")
			case ti.Expired(a.now()):
				fmt.Fprintf(a.out, "expires: %s %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339), ui.Current().Error.Sprint("(expired)"))
			default:
				fmt.Fprintf(a.out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
			}
			fmt.Fprintln(a.out, "env override: "+auth.EnvToken)
			return nil
		},
	}
}

// whoami decodes a JWT locally (unverified); opaque tokens print basic info.
func newAuthWhoAmICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the token's claims when it is a JWT",
		Args:  exactArgs(0, "auth whoami"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ti, err := auth.NewStore(a.home, a.getenv).Get()
			if err != nil {
				return err
			}
			claims, ok := auth.DecodeClaims(ti.Token)
			if !ok {
				fmt.Fprintln(a.out, "Opaque token (cannot introspect locally).")
				fmt.Fprintln(a.out, "source:", ti.Source)
				return nil
			}
			b, err := json.MarshalIndent(claims, "", "  ")
			if err != nil {
				return fmt.Errorf("claims: %w", err)
			}
			fmt.Fprintln(a.out, "JWT payload:")
			fmt.Fprintln(a.out, string(b))
			return nil
		},
	}
}
