package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/config"
	"github.com/hylla/folio/internal/tui"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("FOLIO_DEV_MODE", "false")
	_ = os.Unsetenv("FOLIO_CONFIG")
	_ = os.Unsetenv("FOLIO_DB_PATH")
	_ = os.Unsetenv("FOLIO_APP_NAME")
	os.Exit(m.Run())
}

// fakeProgram returns immediately and records sent messages.
type fakeProgram struct {
	runErr error
	sent   chan tea.Msg
}

func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

func (f fakeProgram) Send(msg tea.Msg) {
	if f.sent != nil {
		f.sent <- msg
	}
}

// scriptedProgram runs runFn in place of the event loop.
type scriptedProgram struct {
	sent  chan tea.Msg
	runFn func(sent <-chan tea.Msg) error
}

func (p scriptedProgram) Run() (tea.Model, error) {
	return nil, p.runFn(p.sent)
}

func (p scriptedProgram) Send(msg tea.Msg) {
	select {
	case p.sent <- msg:
	default:
	}
}

// testEnv holds per-test config and database paths.
type testEnv struct {
	dir     string
	cfgPath string
	dbPath  string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	return testEnv{
		dir:     dir,
		cfgPath: filepath.Join(dir, "config.toml"),
		dbPath:  filepath.Join(dir, "folio.db"),
	}
}

// execute runs the command tree with env's paths prepended to args.
func (e testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(&out, io.Discard)
	root.SetArgs(append([]string{"--config", e.cfgPath, "--db", e.dbPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e testEnv) writeConfig(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(e.cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func (e testEnv) writeBackup(t *testing.T, records []map[string]any) string {
	t.Helper()
	encoded, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	path := filepath.Join(e.dir, "backup.json")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func sampleRecords() []map[string]any {
	return []map[string]any{
		{
			"id":                "a",
			"title":             "Groceries",
			"content":           "milk and eggs",
			"createdAt":         "2026-10-01T10:00:00Z",
			"updatedAt":         "2026-10-01T10:00:00Z",
			"linkedActivityIds": []string{"b"},
		},
		{
			"id":        "b",
			"title":     "Recipes",
			"content":   "pancakes need milk",
			"createdAt": "2026-10-02T10:00:00Z",
			"updatedAt": "2026-10-02T10:00:00Z",
		},
	}
}

// TestRunVersion verifies the fang-wrapped root accepts --version.
func TestRunVersion(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run(--version) error = %v", err)
	}
}

// TestRunStartsProgram verifies the default command starts the TUI program.
func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	started := false
	programFactory = func(m tea.Model) program {
		if _, ok := m.(tui.Model); !ok {
			t.Fatalf("program model = %T, want tui.Model", m)
		}
		started = true
		return fakeProgram{}
	}

	env := newTestEnv(t)
	if _, err := env.execute(t); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if !started {
		t.Fatal("expected program to start")
	}
}

// TestRunProgramErrorIsWrapped verifies TUI failures surface to the caller.
func TestRunProgramErrorIsWrapped(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	boom := errors.New("terminal gone")
	programFactory = func(tea.Model) program { return fakeProgram{runErr: boom} }

	env := newTestEnv(t)
	_, err := env.execute(t)
	if !errors.Is(err, boom) {
		t.Fatalf("execute() error = %v, want wrapped %v", err, boom)
	}
}

// TestTUIReceivesEditorConfigReload verifies config file writes reach the running program.
func TestTUIReceivesEditorConfigReload(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })

	env := newTestEnv(t)
	var got tui.EditorConfigMsg
	programFactory = func(tea.Model) program {
		return scriptedProgram{
			sent: make(chan tea.Msg, 8),
			runFn: func(sent <-chan tea.Msg) error {
				deadline := time.After(5 * time.Second)
				tick := time.NewTicker(50 * time.Millisecond)
				defer tick.Stop()
				for {
					select {
					case msg := <-sent:
						// A truncated mid-write file reloads as defaults; wait for the full one.
						if cfgMsg, ok := msg.(tui.EditorConfigMsg); ok && cfgMsg.Config.Debounce == 250*time.Millisecond {
							got = cfgMsg
							return nil
						}
					case <-tick.C:
						env.writeConfig(t, "[editor]\ndebounce_ms = 250\npaste_min_length = 4\n")
					case <-deadline:
						return errors.New("no config reload observed")
					}
				}
			},
		}
	}

	if _, err := env.execute(t); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if got.Config.Debounce != 250*time.Millisecond || got.Config.PasteMinLength != 4 {
		t.Fatalf("reloaded editor config = %+v", got.Config)
	}
}

// TestRunInvalidFlagAndUnknownCommand verifies cobra argument errors surface.
func TestRunInvalidFlagAndUnknownCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "--wat"); err == nil {
		t.Fatal("expected unknown flag error")
	}
	if _, err := env.execute(t, "bogus"); err == nil {
		t.Fatal("expected unknown command error")
	}
}

// TestImportExportRoundTrip verifies backups import and export through the CLI.
func TestImportExportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	records := append(sampleRecords(), map[string]any{"id": " ", "title": "x", "content": "y"})
	backup := env.writeBackup(t, records)

	out, err := env.execute(t, "import", "--in", backup)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if !strings.Contains(out, "imported 2, skipped 1, failed 0") {
		t.Fatalf("unexpected import summary %q", out)
	}
	if !strings.Contains(out, "#2:") {
		t.Fatalf("expected skipped record issue, got %q", out)
	}

	out, err = env.execute(t, "export", "--out", "-")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	var exported []app.ActivityRecord
	if err := json.Unmarshal([]byte(out), &exported); err != nil {
		t.Fatalf("Unmarshal(export) error = %v\n%s", err, out)
	}
	if len(exported) != 2 || exported[0].ID != "b" || exported[1].ID != "a" {
		t.Fatalf("unexpected export order %+v", exported)
	}
	if len(exported[1].LinkedActivityIDs) != 1 || exported[1].LinkedActivityIDs[0] != "b" {
		t.Fatalf("expected link to survive round trip, got %+v", exported[1].LinkedActivityIDs)
	}

	outPath := filepath.Join(env.dir, "nested", "one.json")
	if _, err := env.execute(t, "export", "--id", "a", "--out", outPath); err != nil {
		t.Fatalf("export --id error = %v", err)
	}
	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var single []app.ActivityRecord
	if err := json.Unmarshal(content, &single); err != nil || len(single) != 1 || single[0].Title != "Groceries" {
		t.Fatalf("unexpected single export %s (err %v)", content, err)
	}
}

// TestExportDocumentFormats verifies md/txt exports and their argument errors.
func TestExportDocumentFormats(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "import", "--in", env.writeBackup(t, sampleRecords())); err != nil {
		t.Fatalf("import error = %v", err)
	}

	out, err := env.execute(t, "export", "--format", "md", "--id", "a", "--out", "-")
	if err != nil {
		t.Fatalf("export md error = %v", err)
	}
	if out != "# Groceries\n\nmilk and eggs" {
		t.Fatalf("unexpected markdown export %q", out)
	}

	out, err = env.execute(t, "export", "--format", "txt", "--id", "b", "--out", "-")
	if err != nil {
		t.Fatalf("export txt error = %v", err)
	}
	if out != "Recipes\n\npancakes need milk" {
		t.Fatalf("unexpected text export %q", out)
	}

	if _, err := env.execute(t, "export", "--format", "md"); err == nil {
		t.Fatal("expected --id requirement for md export")
	}
	if _, err := env.execute(t, "export", "--format", "pdf"); !errors.Is(err, app.ErrInvalidExportFormat) {
		t.Fatalf("export pdf error = %v, want ErrInvalidExportFormat", err)
	}
	if _, err := env.execute(t, "export", "--format", "md", "--id", "missing"); !errors.Is(err, app.ErrNotFound) {
		t.Fatalf("export missing error = %v, want ErrNotFound", err)
	}
}

// TestImportErrors verifies missing flags and malformed payloads fail.
func TestImportErrors(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "import"); err == nil {
		t.Fatal("expected --in requirement")
	}
	bad := filepath.Join(env.dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"id":"a"}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := env.execute(t, "import", "--in", bad); !errors.Is(err, app.ErrInvalidImportPayload) {
		t.Fatalf("import error = %v, want ErrInvalidImportPayload", err)
	}
	if _, err := env.execute(t, "import", "--in", filepath.Join(env.dir, "nope.json")); err == nil {
		t.Fatal("expected missing file error")
	}
}

// TestStatsCommand verifies text and JSON history output.
func TestStatsCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "import", "--in", env.writeBackup(t, sampleRecords())); err != nil {
		t.Fatalf("import error = %v", err)
	}

	out, err := env.execute(t, "stats")
	if err != nil {
		t.Fatalf("stats error = %v", err)
	}
	for _, want := range []string{"activities: 2 (active 2, archived 0, trashed 0)", "total words: 6", "last 7 days:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats output missing %q:\n%s", want, out)
		}
	}

	out, err = env.execute(t, "stats", "--json")
	if err != nil {
		t.Fatalf("stats --json error = %v", err)
	}
	var history app.History
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("Unmarshal(stats) error = %v", err)
	}
	if history.ActivityCount != 2 || len(history.LastSevenDays) != 7 {
		t.Fatalf("unexpected history %+v", history)
	}
}

// TestClipCommand verifies clipboard capture and the too-short path.
func TestClipCommand(t *testing.T) {
	orig := readClipboard
	t.Cleanup(func() { readClipboard = orig })
	env := newTestEnv(t)

	readClipboard = func() (string, error) { return "  short  ", nil }
	out, err := env.execute(t, "clip")
	if err != nil {
		t.Fatalf("clip error = %v", err)
	}
	if !strings.Contains(out, "nothing saved") {
		t.Fatalf("expected nothing saved, got %q", out)
	}

	readClipboard = func() (string, error) { return "a clipboard note long enough to keep", nil }
	out, err = env.execute(t, "clip")
	if err != nil {
		t.Fatalf("clip error = %v", err)
	}
	if !strings.Contains(out, `saved "Clipboard Note"`) {
		t.Fatalf("unexpected clip output %q", out)
	}

	readClipboard = func() (string, error) { return "", errors.New("no display") }
	if _, err := env.execute(t, "clip"); err == nil {
		t.Fatal("expected clipboard read error")
	}
}

// TestPurgeRequiresConfirmation verifies purge refuses without --yes and deletes with it.
func TestPurgeRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "import", "--in", env.writeBackup(t, sampleRecords())); err != nil {
		t.Fatalf("import error = %v", err)
	}
	if _, err := env.execute(t, "purge"); !errors.Is(err, errUnconfirmed) {
		t.Fatalf("purge error = %v, want errUnconfirmed", err)
	}
	out, err := env.execute(t, "purge", "--yes")
	if err != nil {
		t.Fatalf("purge --yes error = %v", err)
	}
	if !strings.Contains(out, "deleted 2 of 2 activities") {
		t.Fatalf("unexpected purge output %q", out)
	}
	out, err = env.execute(t, "export", "--out", "-")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty export after purge, got %q", out)
	}
}

// TestBadgerEngine verifies the badger store serves the same commands.
func TestBadgerEngine(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "[database]\nengine = \"badger\"\n")
	if _, err := env.execute(t, "import", "--in", env.writeBackup(t, sampleRecords())); err != nil {
		t.Fatalf("import error = %v", err)
	}
	if _, err := os.Stat(env.dbPath + ".badger"); err != nil {
		t.Fatalf("expected badger dir, stat error = %v", err)
	}
	out, err := env.execute(t, "export", "--out", "-")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out, `"Groceries"`) {
		t.Fatalf("expected badger export to contain records, got %s", out)
	}
}

// TestServeRejectsEndpointCollision verifies server config errors end the serve command.
func TestServeRejectsEndpointCollision(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.execute(t, "serve", "--http", "127.0.0.1:0", "--mcp-endpoint", "/metrics")
	if err == nil || !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("serve error = %v, want endpoint collision", err)
	}
}

// TestServeStopsWithContext verifies serve shuts down cleanly on cancellation.
func TestServeStopsWithContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	root := newRootCommand(io.Discard, io.Discard)
	root.SetArgs([]string{"--config", env.cfgPath, "--db", env.dbPath, "serve", "--http", "127.0.0.1:0"})
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("serve error = %v", err)
	}
}

// TestPathsCommandAndEnvOverrides verifies path resolution honors env overrides.
func TestPathsCommandAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "env.toml")
	dbPath := filepath.Join(dir, "env.db")
	t.Setenv("FOLIO_CONFIG", cfgPath)
	t.Setenv("FOLIO_DB_PATH", dbPath)

	var out bytes.Buffer
	root := newRootCommand(&out, io.Discard)
	root.SetArgs([]string{"paths"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("paths error = %v", err)
	}
	for _, want := range []string{"app: folio", "dev_mode: false", "config: " + cfgPath, "db: " + dbPath, "backups: "} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("paths output missing %q:\n%s", want, out.String())
		}
	}
}

// TestParseBoolEnv verifies boolean env parsing.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("FOLIO_TEST_BOOL", "true")
	if v, ok := parseBoolEnv("FOLIO_TEST_BOOL"); !ok || !v {
		t.Fatalf("parseBoolEnv(true) = %t, %t", v, ok)
	}
	t.Setenv("FOLIO_TEST_BOOL", "nope")
	if _, ok := parseBoolEnv("FOLIO_TEST_BOOL"); ok {
		t.Fatal("expected malformed value to be ignored")
	}
	if _, ok := parseBoolEnv("FOLIO_TEST_UNSET"); ok {
		t.Fatal("expected unset value to be ignored")
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies config validation errors stop startup.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "[logging]\nlevel = \"loud\"\n")
	_, err := env.execute(t, "stats")
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("stats error = %v, want logging level error", err)
	}
}

// TestRuntimeLoggerCanMuteConsoleSink verifies console muting and component loggers.
func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	logger, err := newRuntimeLogger(&console, "folio", false, config.LoggingConfig{Level: "info"}, nil)
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	logger.Info("visible")
	logger.Component("app").Info("component visible")
	logger.SetConsoleEnabled(false)
	logger.Info("hidden")
	logger.Component("app").Info("component hidden")

	text := console.String()
	if !strings.Contains(text, "visible") || !strings.Contains(text, "component=app") {
		t.Fatalf("expected console output, got %q", text)
	}
	if strings.Contains(text, "hidden") {
		t.Fatalf("expected muted console, got %q", text)
	}
}

// TestRuntimeLoggerWritesDevFile verifies dev mode adds a logfmt file sink.
func TestRuntimeLoggerWritesDevFile(t *testing.T) {
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	logger, err := newRuntimeLogger(io.Discard, "folio", true, config.LoggingConfig{
		Level:   "debug",
		DevFile: config.DevFileConfig{Enabled: true, Dir: dir},
	}, now)
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	logger.SetConsoleEnabled(false)
	logger.Debug("written to file", "k", "v")
	logger.Component("badger").Warn("component line")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := filepath.Join(dir, "folio-20261019.log")
	if logger.DevLogPath() != want {
		t.Fatalf("DevLogPath() = %q, want %q", logger.DevLogPath(), want)
	}
	content, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, needle := range []string{"written to file", "k=v", "component=badger"} {
		if !strings.Contains(string(content), needle) {
			t.Fatalf("dev log missing %q:\n%s", needle, content)
		}
	}
}

// TestWorkspaceRootFromUsesNearestMarker verifies marker discovery walks upward.
func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); got != root {
		t.Fatalf("workspaceRootFrom() = %q, want %q", got, root)
	}
}

// TestSanitizeLogFileStem verifies unsafe app names map to file-safe stems.
func TestSanitizeLogFileStem(t *testing.T) {
	cases := map[string]string{
		"folio":  "folio",
		"my app": "my-app",
		"a/b:c":  "a-b-c",
		"  /  ":  "folio",
		"":       "folio",
	}
	for in, want := range cases {
		if got := sanitizeLogFileStem(in); got != want {
			t.Fatalf("sanitizeLogFileStem(%q) = %q, want %q", in, got, want)
		}
	}
}
