// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/invowk/webproc/internal/issue"
	"github.com/invowk/webproc/internal/testutil"
	"github.com/invowk/webproc/pkg/webproc"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	testutil.MustWriteFile(t, path, content)
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Isolation != webproc.IsolationThread || cfg.Drain != webproc.DrainReject {
		t.Errorf("isolation/drain = %s/%s", cfg.Isolation, cfg.Drain)
	}
	if cfg.Window.Width != webproc.DefaultWidth || cfg.Window.Height != webproc.DefaultHeight {
		t.Errorf("window = %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Timeouts.Call != webproc.DefaultCallTimeout {
		t.Errorf("call timeout = %s", cfg.Timeouts.Call)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	base := testutil.SetConfigHome(t, t.TempDir())

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(base, AppName) {
		t.Errorf("ConfigDir() = %q, want %q", dir, filepath.Join(base, AppName))
	}

	path, err := DefaultPath("")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(base, AppName, ConfigFileName+"."+ConfigFileExt) {
		t.Errorf("DefaultPath() = %q", path)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.Window.Title != webproc.DefaultTitle || cfg.Timeouts.ShutdownGrace != webproc.DefaultShutdownGrace {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := writeConfig(t, dir, `
backend:   "headless"
isolation: "process"
drain:     "execute"
window: {
	title: "Docs"
	width: 1024
	maximized: true
}
timeouts: call: "2s"
log: {level: "debug", format: "json"}
watch: patterns: ["site/**/*.html", "site/*.css"]
`)

	cfg, path, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	if cfg.Backend != "headless" || cfg.Isolation != webproc.IsolationProcess || cfg.Drain != webproc.DrainExecute {
		t.Errorf("top-level keys = %q %q %q", cfg.Backend, cfg.Isolation, cfg.Drain)
	}
	if cfg.Window.Title != "Docs" || cfg.Window.Width != 1024 || !cfg.Window.Maximized {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Window.Height != webproc.DefaultHeight || !cfg.Window.Resizable {
		t.Errorf("unset window fields should keep defaults: %+v", cfg.Window)
	}
	if cfg.Timeouts.Call != 2*time.Second || cfg.Timeouts.Startup != webproc.DefaultStartupTimeout {
		t.Errorf("timeouts = %+v", cfg.Timeouts)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != LogFormatJSON {
		t.Errorf("log = %+v", cfg.Log)
	}
	if len(cfg.Watch.Patterns) != 2 || cfg.Watch.Debounce != DefaultWatchDebounce {
		t.Errorf("watch = %+v", cfg.Watch)
	}

	wc := cfg.WindowConfig()
	if wc.Backend != "headless" || wc.Width != 1024 {
		t.Errorf("WindowConfig() = %+v", wc)
	}
	if len(cfg.ControllerOptions()) == 0 {
		t.Error("ControllerOptions() should not be empty")
	}
}

func TestLoadExplicitFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), `window: title: "explicit"`)
	cfg, got, err := Load(context.Background(), LoadOptions{ConfigFilePath: path, ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if got != path || cfg.Window.Title != "explicit" {
		t.Errorf("Load() = (%q, %q)", cfg.Window.Title, got)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `window: title: "from file"`)

	t.Setenv("WEBPROC_WINDOW_TITLE", "from env")
	t.Setenv("WEBPROC_TIMEOUTS_CALL", "750ms")
	t.Setenv("WEBPROC_ISOLATION", "process")

	cfg, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Window.Title != "from env" {
		t.Errorf("title = %q, environment should override the file", cfg.Window.Title)
	}
	if cfg.Timeouts.Call != 750*time.Millisecond || cfg.Isolation != webproc.IsolationProcess {
		t.Errorf("timeouts.call = %s isolation = %s", cfg.Timeouts.Call, cfg.Isolation)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `backend: "webview", window: width: 1024`)

	cfg, _, err := Load(context.Background(), LoadOptions{
		ConfigDirPath: dir,
		Overrides:     map[string]any{"backend": "headless", "window.width": 300},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != "headless" || cfg.Window.Width != 300 {
		t.Errorf("overrides not applied: backend=%q width=%d", cfg.Backend, cfg.Window.Width)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"bad isolation", `isolation: "fiber"`, "isolation"},
		{"bad duration", `timeouts: call: "5 seconds"`, "timeouts.call"},
		{"negative width", `window: width: -5`, "window.width"},
		{"unknown key", `colour: "blue"`, "colour"},
		{"bad level", `log: level: "loud"`, "log.level"},
		{"bad glob", `watch: patterns: ["site/[a"]`, "invalid glob"},
		{"syntax", `window: {`, "config.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, _, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q should mention %q", err, tt.contains)
			}
			if got := issue.IssueOf(err); got == nil || got.Id() != issue.ConfigLoadFailedId {
				t.Errorf("error should link the config issue, got %v", got)
			}
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		t.Parallel()

		_, _, err := Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
		var ae *issue.ActionableError
		if !errors.As(err, &ae) || !ae.HasSuggestions() {
			t.Errorf("expected actionable error, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Load() = %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errs   int
	}{
		{"defaults", func(*Config) {}, 0},
		{"isolation", func(c *Config) { c.Isolation = "fiber" }, 1},
		{"drain", func(c *Config) { c.Drain = "later" }, 1},
		{"negative size", func(c *Config) { c.Window.Height = -1 }, 1},
		{"negative timeouts", func(c *Config) {
			c.Timeouts.Call = -time.Second
			c.Watch.Debounce = -time.Second
		}, 2},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, 1},
		{"several", func(c *Config) {
			c.Isolation = "fiber"
			c.Log.Level = "loud"
			c.Watch.Ignore = []string{"[a"}
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errs == 0 {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			var ice *InvalidConfigError
			if !errors.As(err, &ice) || !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected InvalidConfigError, got %v", err)
			}
			if len(ice.FieldErrors) != tt.errs {
				t.Errorf("got %d field errors, want %d: %v", len(ice.FieldErrors), tt.errs, err)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Backend = "headless"
	cfg.Window.URL = "https://example.com"
	cfg.Window.Fullscreen = true
	cfg.Timeouts.Call = 1500 * time.Millisecond
	cfg.Watch.Patterns = []string{"site/**"}

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", ConfigFileName+"."+ConfigFileExt)
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	got, _, err := Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() of generated file = %v\n%s", err, GenerateCUE(cfg))
	}
	if got.Backend != cfg.Backend || got.Window != cfg.Window || got.Timeouts != cfg.Timeouts {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, cfg)
	}
	if len(got.Watch.Patterns) != 1 || len(got.Watch.Ignore) != len(cfg.Watch.Ignore) {
		t.Errorf("watch = %+v", got.Watch)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.cue")
	got, err := CreateDefaultConfig(path, false)
	if err != nil || got != path {
		t.Fatalf("CreateDefaultConfig() = (%q, %v)", got, err)
	}

	if _, err := CreateDefaultConfig(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("second create = %v, want ErrConfigExists", err)
	}
	if _, err := CreateDefaultConfig(path, true); err != nil {
		t.Errorf("forced create = %v", err)
	}
}

func TestDump(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	t.Run("cue", func(t *testing.T) {
		t.Parallel()

		out, err := Dump(cfg, DumpFormatCUE)
		if err != nil || !strings.Contains(out, "isolation:") {
			t.Errorf("Dump(cue) = (%q, %v)", out, err)
		}
	})

	t.Run("toml", func(t *testing.T) {
		t.Parallel()

		out, err := Dump(cfg, DumpFormatTOML)
		if err != nil {
			t.Fatal(err)
		}
		var decoded map[string]any
		if err := toml.Unmarshal([]byte(out), &decoded); err != nil {
			t.Fatalf("output is not TOML: %v\n%s", err, out)
		}
		window, ok := decoded["window"].(map[string]any)
		if !ok || window["width"] != int64(webproc.DefaultWidth) {
			t.Errorf("window = %v", decoded["window"])
		}
		timeouts, _ := decoded["timeouts"].(map[string]any)
		if timeouts["call"] != "30s" {
			t.Errorf("timeouts = %v", timeouts)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		if _, err := Dump(cfg, "yaml"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := LogConfig{Level: "info", Format: LogFormatJSON}.NewLogger(&buf, "webproc")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("window ready", "backend", "headless")
	logger.Debug("hidden")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "window ready" || record["backend"] != "headless" {
		t.Errorf("record = %v", record)
	}

	if _, err := (LogConfig{Level: "loud"}).NewLogger(&buf, ""); err == nil {
		t.Error("invalid level should fail")
	}
	if _, err := (LogConfig{Format: "xml"}).NewLogger(&buf, ""); !errors.Is(err, ErrInvalidLogFormat) {
		t.Errorf("invalid format = %v", err)
	}
}
