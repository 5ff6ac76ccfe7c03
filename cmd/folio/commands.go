package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hylla/folio/internal/adapters/server"
	"github.com/hylla/folio/internal/adapters/server/common"
	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/config"
	"github.com/hylla/folio/internal/domain"
	"github.com/hylla/folio/internal/tui"
)

// readClipboard is swapped out in tests.
var readClipboard = clipboard.ReadAll

// runTUI opens the dashboard and feeds config file changes into it until the program exits.
func runTUI(ctx context.Context, opts *rootOptions) error {
	rt, err := openRuntime("tui", opts, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	logger.Info("command flow start", "command", "tui")
	m := tui.NewModel(
		rt.svc,
		tui.WithEditorConfig(rt.cfg.EditorSettings()),
		tui.WithLogger(logger.Component("tui")),
		tui.WithSaveHook(rt.recorder.ObserveAutosave),
	)
	p := programFactory(m)

	watchCtx, cancel := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		err := config.Watch(watchCtx, rt.configPath, rt.defaults, func(cfg config.Config, err error) {
			if err != nil {
				logger.Warn("config reload failed", "config_path", rt.configPath, "err", err)
				return
			}
			logger.Info("config reloaded", "config_path", rt.configPath)
			p.Send(tui.EditorConfigMsg{Config: cfg.EditorSettings()})
		})
		if err != nil {
			logger.Warn("config watch stopped", "config_path", rt.configPath, "err", err)
		}
	}()
	defer func() {
		cancel()
		<-watchDone
	}()

	logger.Info("starting tui program loop")
	if _, err := p.Run(); err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, MCP tools, and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), "serve", opts, func(ctx context.Context, rt *runtime) error {
				serverCfg := server.Config{
					HTTPBind:        firstNonEmpty(httpBind, rt.cfg.Server.HTTPBind),
					APIEndpoint:     firstNonEmpty(apiEndpoint, rt.cfg.Server.APIEndpoint),
					MCPEndpoint:     firstNonEmpty(mcpEndpoint, rt.cfg.Server.MCPEndpoint),
					MetricsEndpoint: rt.cfg.Server.MetricsEndpoint,
					ServerName:      opts.appName,
					ServerVersion:   version,
				}
				return serve(ctx, rt, serverCfg)
			})
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "listen address (overrides server.http_bind)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API base path (overrides server.api_endpoint)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP endpoint path (overrides server.mcp_endpoint)")
	return cmd
}

// serve runs the HTTP server alongside a config watcher until ctx ends or the server fails.
func serve(ctx context.Context, rt *runtime, serverCfg server.Config) error {
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps := server.Dependencies{
		Service: common.NewAppServiceAdapter(rt.svc, rt.cfg.EditorSettings()),
		Ready:   rt.store.Ping,
		Metrics: promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{Registry: rt.registry}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rt.logger.Info("http server starting", "bind", serverCfg.HTTPBind, "api", serverCfg.APIEndpoint, "mcp", serverCfg.MCPEndpoint)
		return server.Run(gctx, serverCfg, deps)
	})
	g.Go(func() error {
		err := config.Watch(gctx, rt.configPath, rt.defaults, func(_ config.Config, err error) {
			if err != nil {
				rt.logger.Warn("config reload failed", "config_path", rt.configPath, "err", err)
				return
			}
			rt.logger.Info("config changed; restart serve to apply it", "config_path", rt.configPath)
		})
		if err != nil {
			rt.logger.Warn("config watch stopped", "config_path", rt.configPath, "err", err)
		}
		return nil
	})
	return g.Wait()
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath, format, id string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all activities as a JSON backup, or one activity as md/txt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), "export", opts, func(ctx context.Context, rt *runtime) error {
				return runExport(ctx, rt, exportOptions{out: outPath, format: format, id: id}, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output file path ('-' for stdout, empty for the backup dir)")
	cmd.Flags().StringVar(&format, "format", "json", "export format: json, md, or txt")
	cmd.Flags().StringVar(&id, "id", "", "export a single activity by id")
	return cmd
}

type exportOptions struct {
	out    string
	format string
	id     string
}

func runExport(ctx context.Context, rt *runtime, in exportOptions, stdout io.Writer) error {
	format := strings.ToLower(strings.TrimSpace(in.format))
	id := strings.TrimSpace(in.id)

	var (
		body     []byte
		filename string
	)
	switch format {
	case "json":
		var records []app.ActivityRecord
		if id == "" {
			all, err := rt.svc.ExportActivities(ctx)
			if err != nil {
				return fmt.Errorf("export activities: %w", err)
			}
			records = all
		} else {
			activity, err := lookupActivity(ctx, rt.svc, id)
			if err != nil {
				return err
			}
			records = []app.ActivityRecord{app.RecordFromDomain(activity)}
		}
		encoded, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encode backup json: %w", err)
		}
		body = append(encoded, '\n')
		filename = app.BackupFilename(rt.opts.appName, time.Now())
	case string(app.ExportMarkdown), string(app.ExportText):
		if id == "" {
			return fmt.Errorf("--id is required for %s export", format)
		}
		activity, err := lookupActivity(ctx, rt.svc, id)
		if err != nil {
			return err
		}
		name, doc, err := app.ExportDocument(activity, app.ExportFormat(format))
		if err != nil {
			return err
		}
		body = []byte(doc)
		filename = name
	default:
		return fmt.Errorf("%w: %q", app.ErrInvalidExportFormat, in.format)
	}

	if in.out == "-" {
		if _, err := stdout.Write(body); err != nil {
			return fmt.Errorf("write export to stdout: %w", err)
		}
		return nil
	}
	target := in.out
	if target == "" {
		target = rt.paths.BackupPath(filename)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(target, body, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "wrote %s\n", target)
	return nil
}

func lookupActivity(ctx context.Context, svc *app.Service, id string) (domain.Activity, error) {
	activity, found, err := svc.GetActivity(ctx, id)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("load activity %q: %w", id, err)
	}
	if !found {
		return domain.Activity{}, fmt.Errorf("activity %q: %w", id, app.ErrNotFound)
	}
	return activity, nil
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import activities from a JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			return withRuntime(cmd.Context(), "import", opts, func(ctx context.Context, rt *runtime) error {
				return runImport(ctx, rt.svc, inPath, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input backup JSON file ('-' for stdin)")
	return cmd
}

func runImport(ctx context.Context, svc *app.Service, inPath string, stdin io.Reader, stdout io.Writer) error {
	src := stdin
	if inPath != "-" {
		f, err := os.Open(inPath)
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		src = f
	}

	raw, err := app.DecodeImportPayload(src)
	if err != nil {
		return err
	}
	summary, err := svc.ImportActivities(ctx, raw)
	_, _ = fmt.Fprintf(stdout, "imported %d, skipped %d, failed %d\n", summary.Imported, summary.Skipped, summary.Failed)
	for _, issue := range summary.Issues {
		label := issue.ID
		if label == "" {
			label = fmt.Sprintf("#%d", issue.Index)
		}
		_, _ = fmt.Fprintf(stdout, "  %s: %s\n", label, issue.Reason)
	}
	return err
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show writing history statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), "stats", opts, func(ctx context.Context, rt *runtime) error {
				history, err := rt.svc.HistoryStats(ctx, time.Now())
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(history)
				}
				writeHistory(cmd.OutOrStdout(), history)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")
	return cmd
}

func writeHistory(w io.Writer, h app.History) {
	_, _ = fmt.Fprintf(w, "activities: %d (active %d, archived %d, trashed %d)\n",
		h.ActivityCount, h.Counts.Active, h.Counts.Archived, h.Counts.Trashed)
	_, _ = fmt.Fprintf(w, "total words: %d\n", h.TotalWords)
	_, _ = fmt.Fprintf(w, "streak: %d days\n", h.Streak)
	_, _ = fmt.Fprintf(w, "best weekday: %s (%d words)\n", h.BestWeekday, h.BestWeekdayWords)
	if h.Longest != nil {
		_, _ = fmt.Fprintf(w, "longest: %q (%d words)\n", h.Longest.Title, h.Longest.Words)
	}
	_, _ = fmt.Fprintln(w, "last 7 days:")
	for _, day := range h.LastSevenDays {
		_, _ = fmt.Fprintf(w, "  %s %s %6d\n", day.Day, day.Date, day.Words)
	}
}

func newClipCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clip",
		Short: "Save the clipboard as a new note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), "clip", opts, func(ctx context.Context, rt *runtime) error {
				text, err := readClipboard()
				if err != nil {
					return fmt.Errorf("read clipboard: %w", err)
				}
				activity, err := rt.svc.CaptureClipboardNote(ctx, uuid.NewString(), text)
				if errors.Is(err, app.ErrNothingToCapture) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "clipboard is empty or too short; nothing saved")
					return nil
				}
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %q (%s, %d words)\n", activity.Title, activity.ID, activity.WordCount)
				return nil
			})
		},
	}
}

func newPurgeCommand(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently delete every activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errUnconfirmed
			}
			return withRuntime(cmd.Context(), "purge", opts, func(ctx context.Context, rt *runtime) error {
				result, err := rt.svc.DeleteAllActivities(ctx)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d of %d activities\n", result.Succeeded, result.Attempted)
				for _, failure := range result.Failures {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", failure.ID, failure.Error)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every activity")
	return cmd
}

func newPathsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, configPath, dbPath, _, err := opts.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", configPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", dbPath)
			_, _ = fmt.Fprintf(out, "backups: %s\n", paths.BackupDir)
			return nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
