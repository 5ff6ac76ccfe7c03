package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/hylla/folio/internal/editor"
)

// Engine names a storage backend.
type Engine string

const (
	EngineSQLite Engine = "sqlite"
	EngineBadger Engine = "badger"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Editor   EditorConfig   `toml:"editor"`
	Capture  CaptureConfig  `toml:"capture"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Engine Engine `toml:"engine"`
	Path   string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// EditorConfig holds the autosave and paste detection settings handed to each editor session.
type EditorConfig struct {
	DebounceMS        int  `toml:"debounce_ms"`
	AutoLinkDetection bool `toml:"auto_link_detection"`
	PasteMinLength    int  `toml:"paste_min_length"`
}

type CaptureConfig struct {
	ClipboardMinLength int `toml:"clipboard_min_length"`
}

type ServerConfig struct {
	HTTPBind        string `toml:"http_bind"`
	APIEndpoint     string `toml:"api_endpoint"`
	MCPEndpoint     string `toml:"mcp_endpoint"`
	MetricsEndpoint string `toml:"metrics_endpoint"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Engine: EngineSQLite,
			Path:   dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".folio/log",
			},
		},
		Editor: EditorConfig{
			DebounceMS:        int(editor.DefaultDebounce / time.Millisecond),
			AutoLinkDetection: true,
			PasteMinLength:    editor.DefaultPasteMinLength,
		},
		Capture: CaptureConfig{
			ClipboardMinLength: 10,
		},
		Server: ServerConfig{
			HTTPBind:        "127.0.0.1:8080",
			APIEndpoint:     "/api/v1",
			MCPEndpoint:     "/mcp",
			MetricsEndpoint: "/metrics",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	switch c.Database.Engine {
	case EngineSQLite, EngineBadger:
	default:
		return fmt.Errorf("invalid database.engine: %q", c.Database.Engine)
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if c.Editor.DebounceMS <= 0 {
		return fmt.Errorf("editor.debounce_ms must be > 0, got %d", c.Editor.DebounceMS)
	}
	if c.Editor.PasteMinLength < 1 {
		return fmt.Errorf("editor.paste_min_length must be >= 1, got %d", c.Editor.PasteMinLength)
	}
	if c.Capture.ClipboardMinLength < 0 {
		return fmt.Errorf("capture.clipboard_min_length must be >= 0, got %d", c.Capture.ClipboardMinLength)
	}

	if strings.TrimSpace(c.Server.HTTPBind) == "" {
		return errors.New("server.http_bind is required")
	}
	endpoints := []struct {
		name  string
		value string
	}{
		{"server.api_endpoint", c.Server.APIEndpoint},
		{"server.mcp_endpoint", c.Server.MCPEndpoint},
		{"server.metrics_endpoint", c.Server.MetricsEndpoint},
	}
	for _, ep := range endpoints {
		if !strings.HasPrefix(strings.TrimSpace(ep.value), "/") {
			return fmt.Errorf("%s must start with '/': %q", ep.name, ep.value)
		}
	}
	return nil
}

// EditorSettings projects the [editor] section into the explicit session configuration.
func (c Config) EditorSettings() editor.Config {
	return editor.Config{
		Debounce:          time.Duration(c.Editor.DebounceMS) * time.Millisecond,
		AutoLinkDetection: c.Editor.AutoLinkDetection,
		PasteMinLength:    c.Editor.PasteMinLength,
	}
}

// BadgerDir is the directory the badger engine uses for database.path.
func (c Config) BadgerDir() string {
	return strings.TrimSpace(c.Database.Path) + ".badger"
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
