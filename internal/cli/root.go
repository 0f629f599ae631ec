// Package cli is the todo command tree. One-shot commands go through a
// query.Cache like the TUI does, so a mutation is always followed by a
// refetch of the collection before the summary is printed.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/query"
	"github.com/Makepad-fr/tada/internal/store/remote"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks bad invocations: wrong arguments, unknown ids.
type usageError struct {
	msg  string
	hint string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// reportedError is an error the cache notifier already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// app carries process state shared by every command.
type app struct {
	getenv func(string) string
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	httpClient *http.Client
	runTUI     func(query.Store, *log.Logger) error

	// root flags
	baseURL string
	verbose bool
	theme   string
	color   string

	home   string
	cfg    *config.Config
	logger *log.Logger
	cache  *query.Cache
}

func newApp() *app {
	return &app{
		getenv: os.Getenv,
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		now:    time.Now,
		runTUI: tui.Run,
	}
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, os.Args[1:], newApp())
}

func run(ctx context.Context, args []string, a *app) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.ExecuteContext(ctx)
	a.close()
	if err == nil {
		return exitOK
	}

	var reported *reportedError
	if !errors.As(err, &reported) {
		ui.Fail(a.errOut, err.Error())
	}
	var ue *usageError
	if errors.As(err, &ue) && ue.hint != "" {
		ui.Hint(a.errOut, ue.hint)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var (
		ue *usageError
		ve *model.ValidationError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue), errors.As(err, &ve), errors.Is(err, auth.ErrNoToken):
		return exitUsage
	default:
		return exitFailure
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "todo",
		Short: "A tiny client for a remote todo list",
		Long: `todo keeps a todo list on a remote data API.

"todo ls" opens the interactive list. The other commands make one change
and print the refreshed summary.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return &usageError{msg: fmt.Sprintf("unknown subcommand: %s", args[0]), hint: "Run `todo --help` for usage"}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &reportedError{err: &usageError{msg: "no subcommand"}}
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{msg: err.Error(), hint: fmt.Sprintf("Run `%s --help` for usage", cmd.CommandPath())}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.baseURL, "base-url", "", "API base URL (overrides config and TADA_BASE_URL)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log requests and cache activity to stderr")
	pf.StringVar(&a.theme, "theme", "", "output theme: "+strings.Join(ui.Themes(), ", "))
	pf.StringVar(&a.color, "color", "auto", "color output: auto, always or never")

	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDoneCmd(a),
		newRemoveCmd(a),
		newRefreshCmd(a),
		newAuthCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup resolves settings: defaults, config file, env, then flags.
func (a *app) setup(cmd *cobra.Command) error {
	home, err := config.Home(a.getenv)
	if err != nil {
		return err
	}
	a.home = home

	cfg, err := config.Load(home, a.getenv)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if cmd.Flags().Changed("theme") {
		cfg.Theme = a.theme
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	a.cfg = cfg

	logger, err := logging.New(a.errOut, cfg.LogLevel)
	if err != nil {
		if !underConfig(cmd) {
			return &usageError{msg: err.Error(), hint: "Fix it with `todo config set log_level warn`"}
		}
		// config commands must still run so the level can be repaired
		logger, _ = logging.New(a.errOut, "")
		logger.Warn("ignoring bad log level", "err", err)
	}
	a.logger = logger

	ui.SetTheme(cfg.Theme)
	ui.SetColorMode(a.color)
	return nil
}

func underConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" {
			return true
		}
	}
	return false
}

// client builds the store client; it needs a token.
func (a *app) client() (*remote.Client, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, &usageError{msg: "config: " + err.Error(), hint: "Fix it with `todo config set`"}
	}
	ti, err := auth.NewStore(a.home, a.getenv).Get()
	if err != nil {
		return nil, err
	}
	if ti.Expired(a.now()) {
		a.logger.Warn("token has expired", "expires_at", ti.ExpiresAt.Format(time.RFC3339))
	}

	opts := []remote.Option{
		remote.WithToken(ti.Token),
		remote.WithLogger(a.logger),
		remote.WithCollection(a.cfg.Collection),
		remote.WithSort(a.cfg.Sort),
	}
	if a.httpClient != nil {
		opts = append(opts, remote.WithHTTPClient(a.httpClient))
	}
	c := remote.New(a.cfg.BaseURL, opts...)
	a.logger.Debug("using collection", "endpoint", c.Endpoint(), "token_source", ti.Source)
	return c, nil
}

// openCache returns the command's cache, creating it on first use.
func (a *app) openCache() (*query.Cache, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	a.cache = query.New(c,
		query.WithNotifier(&ui.Notifier{Out: a.out, Err: a.errOut}),
		query.WithLogger(a.logger),
	)
	return a.cache, nil
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
		a.cache = nil
	}
}
