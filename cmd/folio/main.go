package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hylla/folio/internal/adapters/storage/badger"
	"github.com/hylla/folio/internal/adapters/storage/instrumented"
	"github.com/hylla/folio/internal/adapters/storage/sqlite"
	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/config"
	"github.com/hylla/folio/internal/platform"
)

var version = "dev"

// program is the slice of *tea.Program the TUI command drives.
type program interface {
	Run() (tea.Model, error)
	Send(msg tea.Msg)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes it with args.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// rootOptions holds persistent flag values shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	stderr     io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stderr: stderr}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("FOLIO_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("FOLIO_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:           "folio",
		Short:         "Personal writing activities with autosave and linked notes",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to the database file")
	flags.StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newServeCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newStatsCommand(opts),
		newClipCommand(opts),
		newPurgeCommand(opts),
		newPathsCommand(opts),
	)
	return root
}

// store is a repository the composition root can health-check and close.
type store interface {
	app.Repository
	Ping(context.Context) error
	Close() error
}

// runtime is the resolved state behind one command invocation.
type runtime struct {
	opts       *rootOptions
	paths      platform.Paths
	configPath string
	defaults   config.Config
	cfg        config.Config
	logger     *runtimeLogger
	store      store
	registry   *prometheus.Registry
	recorder   *instrumented.Recorder
	svc        *app.Service
}

// resolvePaths applies env overrides to the persistent flags.
func (o *rootOptions) resolvePaths() (platform.Paths, string, string, bool, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
	if err != nil {
		return platform.Paths{}, "", "", false, err
	}

	configPath := strings.TrimSpace(o.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("FOLIO_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(o.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("FOLIO_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}
	return paths, configPath, dbPath, dbOverridden, nil
}

// openRuntime loads config, configures logging, and opens the selected store.
// quietConsole mutes the console sink for commands that own the terminal.
func openRuntime(command string, opts *rootOptions, quietConsole bool) (*runtime, error) {
	paths, configPath, dbPath, dbOverridden, err := opts.resolvePaths()
	if err != nil {
		return nil, err
	}

	defaults := config.Default(dbPath)
	cfg, err := config.Load(configPath, defaults)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	} else if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("prepare data dirs: %w", err)
	}

	logger, err := newRuntimeLogger(opts.stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if quietConsole {
		logger.SetConsoleEnabled(false)
	}
	rt := &runtime{
		opts:       opts,
		paths:      paths,
		configPath: configPath,
		defaults:   defaults,
		cfg:        cfg,
		logger:     logger,
	}

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	if err := rt.openStore(); err != nil {
		_ = logger.Close()
		return nil, err
	}

	rt.registry = prometheus.NewRegistry()
	rt.recorder = instrumented.NewRecorder(rt.registry)
	rt.svc = app.NewService(instrumented.Wrap(rt.store, rt.recorder), uuid.NewString, nil, app.ServiceConfig{
		ClipboardMinLength: cfg.Capture.ClipboardMinLength,
		Logger:             logger.Component("app"),
	})
	logger.Debug("application service initialized", "engine", cfg.Database.Engine)
	return rt, nil
}

func (rt *runtime) openStore() error {
	switch rt.cfg.Database.Engine {
	case config.EngineBadger:
		dir := rt.cfg.BadgerDir()
		rt.logger.Info("opening badger repository", "dir", dir)
		repo, err := badger.Open(badger.Config{
			Path:       dir,
			SyncWrites: true,
			Logger:     rt.logger.Component("badger"),
		})
		if err != nil {
			rt.logger.Error("badger open failed", "dir", dir, "err", err)
			return fmt.Errorf("open badger repository: %w", err)
		}
		rt.store = repo
	default:
		path := rt.cfg.Database.Path
		rt.logger.Info("opening sqlite repository", "db_path", path)
		repo, err := sqlite.Open(path)
		if err != nil {
			rt.logger.Error("sqlite open failed", "db_path", path, "err", err)
			return fmt.Errorf("open sqlite repository: %w", err)
		}
		rt.store = repo
	}
	rt.logger.Info("repository ready", "engine", rt.cfg.Database.Engine)
	return nil
}

// Close releases the store and then the log sinks.
func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Warn("repository close failed", "engine", rt.cfg.Database.Engine, "err", err)
		}
	}
	if err := rt.logger.Close(); err != nil && rt.logger.shouldLogToSink(rt.logger.consoleSink) {
		_, _ = fmt.Fprintf(rt.opts.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// withRuntime opens a runtime for command, runs fn, and logs the outcome.
func withRuntime(ctx context.Context, command string, opts *rootOptions, fn func(context.Context, *runtime) error) error {
	rt, err := openRuntime(command, opts, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("command flow start", "command", command)
	if err := fn(ctx, rt); err != nil {
		rt.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	rt.logger.Info("command flow complete", "command", command)
	return nil
}

// parseBoolEnv reads a boolean environment variable; ok is false when unset or malformed.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// errUnconfirmed rejects destructive commands run without --yes.
var errUnconfirmed = errors.New("refusing to continue without --yes")
