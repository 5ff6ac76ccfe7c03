// Package platform resolves where folio keeps its config file, database, and backups.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultAppName names the config and data directories when no override is given.
const DefaultAppName = "folio"

// devSuffix keeps dev-mode state apart from a user's real notes.
const devSuffix = "-dev"

// Paths locates the per-user files for one app directory name.
type Paths struct {
	ConfigPath string
	DataDir    string
	DBPath     string
	// BackupDir holds JSON backups written by export when no output path is given.
	BackupDir string
}

// BackupPath joins name onto BackupDir.
func (p Paths) BackupPath(name string) string {
	return filepath.Join(p.BackupDir, filepath.Base(name))
}

// EnsureDirs creates the data and backup directories.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.DataDir, p.BackupDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Options selects the app directory name.
type Options struct {
	AppName string
	DevMode bool
}

// BaseDirs are the per-user roots the app directories hang off.
type BaseDirs struct {
	Config string
	Data   string
}

// envRoots lists, per GOOS, the variables that override the config and data roots.
var envRoots = map[string]struct{ config, data string }{
	"linux":   {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"freebsd": {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"openbsd": {"XDG_CONFIG_HOME", "XDG_DATA_HOME"},
	"windows": {"APPDATA", "LOCALAPPDATA"},
}

// DefaultPaths returns paths for DefaultAppName.
func DefaultPaths() (Paths, error) {
	return DefaultPathsWithOptions(Options{AppName: DefaultAppName})
}

// DefaultPathsWithOptions resolves paths for the running host.
func DefaultPathsWithOptions(opts Options) (Paths, error) {
	base, err := hostBaseDirs(runtime.GOOS)
	if err != nil {
		return Paths{}, err
	}
	return Resolve(runtime.GOOS, os.Getenv, base, AppDirName(opts.AppName, opts.DevMode))
}

// AppDirName returns the directory stem for appName, with the dev suffix in dev mode.
func AppDirName(appName string, devMode bool) string {
	name := strings.TrimSpace(appName)
	if name == "" {
		name = DefaultAppName
	}
	if devMode && !strings.HasSuffix(name, devSuffix) {
		name += devSuffix
	}
	return name
}

// hostBaseDirs asks the OS for the user's config root and picks the matching data root.
func hostBaseDirs(goos string) (BaseDirs, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return BaseDirs{}, fmt.Errorf("user config dir: %w", err)
	}
	base := BaseDirs{Config: configDir, Data: configDir}
	switch goos {
	case "linux", "freebsd", "openbsd":
		home, err := os.UserHomeDir()
		if err != nil {
			return BaseDirs{}, fmt.Errorf("user home dir: %w", err)
		}
		base.Data = filepath.Join(home, ".local", "share")
	case "windows":
		if v := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); v != "" {
			base.Data = v
		}
	}
	return base, nil
}

// Resolve applies goos env overrides to base and lays out the app files under appDir.
// A nil getenv ignores the environment.
func Resolve(goos string, getenv func(string) string, base BaseDirs, appDir string) (Paths, error) {
	if base.Config == "" || base.Data == "" {
		return Paths{}, errors.New("empty base dirs")
	}
	appDir = strings.TrimSpace(appDir)
	if appDir == "" {
		return Paths{}, errors.New("empty app name")
	}

	if roots, ok := envRoots[goos]; ok && getenv != nil {
		if v := strings.TrimSpace(getenv(roots.config)); v != "" {
			base.Config = v
		}
		if v := strings.TrimSpace(getenv(roots.data)); v != "" {
			base.Data = v
		}
	}

	dataDir := filepath.Join(base.Data, appDir)
	return Paths{
		ConfigPath: filepath.Join(base.Config, appDir, "config.toml"),
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, appDir+".db"),
		BackupDir:  filepath.Join(dataDir, "backups"),
	}, nil
}
