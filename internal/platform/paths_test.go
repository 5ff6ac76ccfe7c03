package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

// TestResolveHonorsRootOverrides covers env overrides and fallbacks per GOOS.
func TestResolveHonorsRootOverrides(t *testing.T) {
	cases := []struct {
		name       string
		goos       string
		env        map[string]string
		base       BaseDirs
		wantConfig string
		wantData   string
	}{
		{
			name:       "linux xdg",
			goos:       "linux",
			env:        map[string]string{"XDG_CONFIG_HOME": "/xdg/config", "XDG_DATA_HOME": "/xdg/data"},
			base:       BaseDirs{Config: "/fallback/config", Data: "/fallback/data"},
			wantConfig: "/xdg/config",
			wantData:   "/xdg/data",
		},
		{
			name:       "linux without xdg",
			goos:       "linux",
			env:        map[string]string{},
			base:       BaseDirs{Config: "/home/me/.config", Data: "/home/me/.local/share"},
			wantConfig: "/home/me/.config",
			wantData:   "/home/me/.local/share",
		},
		{
			name:       "freebsd xdg data only",
			goos:       "freebsd",
			env:        map[string]string{"XDG_DATA_HOME": "/xdg/data"},
			base:       BaseDirs{Config: "/cfg", Data: "/data"},
			wantConfig: "/cfg",
			wantData:   "/xdg/data",
		},
		{
			name:       "windows appdata",
			goos:       "windows",
			env:        map[string]string{"APPDATA": `C:\Roaming`, "LOCALAPPDATA": `C:\Local`},
			base:       BaseDirs{Config: `C:\fallback\config`, Data: `C:\fallback\data`},
			wantConfig: `C:\Roaming`,
			wantData:   `C:\Local`,
		},
		{
			name:       "darwin ignores xdg",
			goos:       "darwin",
			env:        map[string]string{"XDG_CONFIG_HOME": "/ignored", "XDG_DATA_HOME": "/ignored"},
			base:       BaseDirs{Config: "/Users/me/Library/Application Support", Data: "/Users/me/Library/Application Support"},
			wantConfig: "/Users/me/Library/Application Support",
			wantData:   "/Users/me/Library/Application Support",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Resolve(tc.goos, envFrom(tc.env), tc.base, "folio")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if want := filepath.Join(tc.wantConfig, "folio", "config.toml"); p.ConfigPath != want {
				t.Fatalf("ConfigPath = %q, want %q", p.ConfigPath, want)
			}
			if want := filepath.Join(tc.wantData, "folio"); p.DataDir != want {
				t.Fatalf("DataDir = %q, want %q", p.DataDir, want)
			}
			if want := filepath.Join(tc.wantData, "folio", "folio.db"); p.DBPath != want {
				t.Fatalf("DBPath = %q, want %q", p.DBPath, want)
			}
			if want := filepath.Join(tc.wantData, "folio", "backups"); p.BackupDir != want {
				t.Fatalf("BackupDir = %q, want %q", p.BackupDir, want)
			}
		})
	}
}

// TestResolveRejectsEmptyInputs verifies missing roots and names fail.
func TestResolveRejectsEmptyInputs(t *testing.T) {
	if _, err := Resolve("darwin", nil, BaseDirs{Data: "/tmp/data"}, "folio"); err == nil {
		t.Fatal("expected error for empty config root")
	}
	if _, err := Resolve("linux", nil, BaseDirs{Config: "/c", Data: "/d"}, "  "); err == nil {
		t.Fatal("expected error for empty app dir")
	}
}

// TestBackupPathStripsDirectories verifies backup names cannot escape BackupDir.
func TestBackupPathStripsDirectories(t *testing.T) {
	p := Paths{BackupDir: "/data/folio/backups"}
	if got := p.BackupPath("../folio-backup-2026-10-19.json"); got != filepath.Join(p.BackupDir, "folio-backup-2026-10-19.json") {
		t.Fatalf("BackupPath() = %q", got)
	}
}

// TestAppDirName verifies defaulting and the dev suffix.
func TestAppDirName(t *testing.T) {
	cases := []struct {
		app  string
		dev  bool
		want string
	}{
		{"", false, "folio"},
		{" notes ", false, "notes"},
		{"folio", true, "folio-dev"},
		{"folio-dev", true, "folio-dev"},
	}
	for _, tc := range cases {
		if got := AppDirName(tc.app, tc.dev); got != tc.want {
			t.Fatalf("AppDirName(%q, %t) = %q, want %q", tc.app, tc.dev, got, tc.want)
		}
	}
}

// TestEnsureDirsCreatesDataAndBackups verifies both directories exist afterwards.
func TestEnsureDirsCreatesDataAndBackups(t *testing.T) {
	root := t.TempDir()
	p, err := Resolve("linux", nil, BaseDirs{Config: root, Data: root}, "folio")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := p.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}
	for _, dir := range []string{p.DataDir, p.BackupDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q, err = %v", dir, err)
		}
	}
}

// TestDefaultPathsWithOptionsDevMode verifies the host resolver applies the dev suffix.
func TestDefaultPathsWithOptionsDevMode(t *testing.T) {
	p, err := DefaultPathsWithOptions(Options{AppName: "folio", DevMode: true})
	if err != nil {
		t.Fatalf("DefaultPathsWithOptions() error = %v", err)
	}
	if filepath.Base(filepath.Dir(p.ConfigPath)) != "folio-dev" {
		t.Fatalf("expected dev config dir suffix, got %q", p.ConfigPath)
	}
	if filepath.Base(p.DBPath) != "folio-dev.db" {
		t.Fatalf("expected dev db name, got %q", p.DBPath)
	}
	if p.BackupDir == "" {
		t.Fatalf("expected backup dir, got %#v", p)
	}
}
