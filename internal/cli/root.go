// Package cli implements the worksite command-line interface: account
// commands, worker and project management through the entity stores, and
// the interactive worker browser.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/worksite/internal/notify"
	"github.com/mesh-intelligence/worksite/internal/paths"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	server    string
	jsonMode  bool
	verbose   bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags rootFlags

	cfg       types.Config
	configDir string
	dataDir   string

	logger   *zap.Logger
	notifier notify.Notifier
	now      func() time.Time

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// NewRootCmd creates the top-level "worksite" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newApp(os.Stdin, os.Stdout, os.Stderr).rootCmd()
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut, now: time.Now}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "worksite",
		Short: "Manage the workers and projects of a worksite service",
		Long: "Worksite is a client for the worksite management service.\n" +
			"It manages workers and projects, their assignment, and your login.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory holding the session database")
	pf.StringVar(&a.flags.server, "server", "", "worksite service URL (default: "+types.DefaultServer+")")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.versionCmd(),
		a.initCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.registerCmd(),
		a.healthCmd(),
		a.workersCmd(),
		a.projectsCmd(),
		a.browseCmd(),
	)
	return root
}

// setup resolves directories, loads the configuration and builds the
// logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	a.configDir = configDir

	v, err := loadConfig(configDir, cmd.Flags().Lookup("server"))
	if err != nil {
		return sysError(err)
	}
	a.cfg = configFromViper(v)
	if err := a.cfg.Validate(); err != nil {
		return userError(fmt.Errorf("invalid config: %w", err))
	}

	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.DataDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	a.dataDir = dataDir

	if a.logger == nil {
		logger, err := buildLogger(a.cfg.LogLevel, a.flags.verbose)
		if err != nil {
			return sysError(fmt.Errorf("initialize logger: %w", err))
		}
		a.logger = logger
	}
	if a.notifier == nil {
		a.notifier = notify.NewPrinter(a.errOut)
		if a.flags.verbose {
			a.notifier = notify.Multi(a.notifier, notify.NewLog(a.logger))
		}
	}
	return nil
}

// buildLogger returns a production zap logger writing JSON to stderr at
// level, or at debug when verbose is set.
func buildLogger(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	return config.Build()
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	return newApp(in, out, errOut).run(ctx, args)
}

func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}

	var ee *exitError
	if !errors.As(err, &ee) {
		// cobra's own argument and flag errors.
		fmt.Fprintln(a.errOut, "Error:", err)
		return exitUserError
	}
	if !ee.reported {
		fmt.Fprintln(a.errOut, "Error:", ee.err)
	}
	return ee.code
}

// exitError carries the exit code of a failed command. reported is set
// when the failure was already shown as a notification.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error {
	return &exitError{code: exitUserError, err: err}
}

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

// classify maps an operation error onto an exit code: validation,
// authorization and not-found failures are the user's, everything else
// is a system error.
func classify(err error) int {
	var re *types.RemoteError
	switch {
	case isValidation(err),
		errors.Is(err, types.ErrNoSession),
		errors.Is(err, types.ErrExpired),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrUnauthorized),
		errors.Is(err, types.ErrForbidden),
		errors.Is(err, types.ErrNotFound):
		return exitUserError
	case errors.As(err, &re) && re.StatusCode >= 400 && re.StatusCode < 500:
		return exitUserError
	}
	return exitSysError
}

// failed wraps err with its exit code.
func failed(err error) error {
	return &exitError{code: classify(err), err: err}
}

// notified wraps an error that a store already reported as a notification.
func notified(err error) error {
	return &exitError{code: classify(err), err: err, reported: true}
}
