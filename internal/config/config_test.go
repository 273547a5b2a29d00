package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/rstore/internal/errors"
	"github.com/vango-dev/rstore/pkg/persist"
	"github.com/vango-dev/rstore/pkg/storage"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Persist != "none" {
		t.Errorf("Persist = %q, want none", cfg.Persist)
	}
	if cfg.Key != persist.DefaultKey {
		t.Errorf("Key = %q, want %q", cfg.Key, persist.DefaultKey)
	}
	if cfg.Inspector.Addr != DefaultAddr {
		t.Errorf("Inspector.Addr = %q, want %q", cfg.Inspector.Addr, DefaultAddr)
	}
	if cfg.Storage.Local.Driver != storage.DriverBadger || cfg.Storage.Local.Path != DefaultBadgerPath {
		t.Errorf("Storage.Local = %+v", cfg.Storage.Local)
	}
	if cfg.Storage.Session.Driver != storage.DriverMemory {
		t.Errorf("Storage.Session.Driver = %q, want memory", cfg.Storage.Session.Driver)
	}
	if !cfg.MetricsEnabled() {
		t.Error("MetricsEnabled() = false by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := Load(tmpDir); err == nil || !strings.Contains(err.Error(), "E140") {
		t.Fatalf("Load(empty dir) error = %v, want E140", err)
	}

	writeFile(t, tmpDir, ConfigFileName, `{
  "persist": "local",
  "data": {"n": 0, "tags": ["a"]},
  "storage": {
    "local": {"driver": "sqlite", "path": "state.db", "table": "snaps"}
  },
  "inspector": {"addr": ":9000", "metrics": false},
  "log": {"level": "debug", "format": "json"}
}
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Persist != "local" {
		t.Errorf("Persist = %q, want local", cfg.Persist)
	}
	if cfg.Storage.Local.Driver != storage.DriverSQLite || cfg.Storage.Local.Table != "snaps" {
		t.Errorf("Storage.Local = %+v", cfg.Storage.Local)
	}
	if cfg.Inspector.Addr != ":9000" {
		t.Errorf("Inspector.Addr = %q", cfg.Inspector.Addr)
	}
	if cfg.MetricsEnabled() {
		t.Error("MetricsEnabled() = true, want false")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}

	sc := cfg.StorageFor(persist.Local)
	if want := filepath.Join(tmpDir, "state.db"); sc.Path != want {
		t.Errorf("StorageFor(local).Path = %q, want %q", sc.Path, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, YAMLConfigFileName, `
persist: session
data:
  n: 1
  user:
    name: ada
storage:
  session:
    driver: s3
    bucket: snapshots
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Storage.Session.Bucket != "snapshots" {
		t.Errorf("Storage.Session.Bucket = %q", cfg.Storage.Session.Bucket)
	}

	boot, err := cfg.Bootstrap()
	if err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	if boot.Persist != persist.Session {
		t.Errorf("Persist = %v, want session", boot.Persist)
	}
	user, ok := boot.Data["user"].Field("name")
	if name, _ := user.AsString(); !ok || name != "ada" {
		t.Errorf("Data[user].name = %v", user)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), ConfigFileName, "{\n  \"persist\": \"local\",\n  oops\n}\n")

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E120") {
		t.Errorf("Expected E120 error, got: %v", err)
	}
	se := errors.FromError(err, "E120")
	if se.Location == nil || se.Location.Line != 3 {
		t.Errorf("Location = %v, want line 3", se.Location)
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), YAMLConfigFileName, "persist: [unterminated\n")
	if _, err := LoadFile(configPath); err == nil || !strings.Contains(err.Error(), "E120") {
		t.Fatalf("LoadFile() error = %v, want E120", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RSTORE_PERSIST", "session")
	t.Setenv("RSTORE_SESSION_DRIVER", "sqlite")
	t.Setenv("RSTORE_SESSION_PATH", "/tmp/session.db")
	t.Setenv("RSTORE_INSPECTOR_ADDR", ":8081")
	t.Setenv("RSTORE_INSPECTOR_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("RSTORE_LOG_LEVEL", "warn")
	t.Setenv("RSTORE_STRICT_NAMES", "true")

	configPath := writeFile(t, t.TempDir(), ConfigFileName, `{"persist": "local", "data": {}}`)
	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if cfg.Persist != "session" {
		t.Errorf("Persist = %q, want env override session", cfg.Persist)
	}
	if cfg.Storage.Session.Driver != storage.DriverSQLite || cfg.Storage.Session.Path != "/tmp/session.db" {
		t.Errorf("Storage.Session = %+v", cfg.Storage.Session)
	}
	if cfg.StorageFor(persist.Session).Path != "/tmp/session.db" {
		t.Errorf("absolute path rewritten: %q", cfg.StorageFor(persist.Session).Path)
	}
	if cfg.Inspector.Addr != ":8081" {
		t.Errorf("Inspector.Addr = %q", cfg.Inspector.Addr)
	}
	if len(cfg.Inspector.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.Inspector.AllowedOrigins)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if !cfg.StrictNames {
		t.Error("StrictNames = false, want env override")
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv("RSTORE_STRICT_NAMES", "maybe")
	configPath := writeFile(t, t.TempDir(), ConfigFileName, `{"data": {}}`)
	if _, err := LoadFile(configPath); err == nil || !strings.Contains(err.Error(), "E120") {
		t.Fatalf("LoadFile() error = %v, want E120", err)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := New()
	cfg.Persist = "local"
	cfg.Data = map[string]any{"n": 1}

	if err := cfg.Save(); err == nil {
		t.Error("Expected error when saving without path")
	}

	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		configPath := filepath.Join(tmpDir, name)
		if err := cfg.SaveTo(configPath); err != nil {
			t.Fatalf("SaveTo(%s) error: %v", name, err)
		}

		loaded, err := LoadFile(configPath)
		if err != nil {
			t.Fatalf("LoadFile(%s) error: %v", name, err)
		}
		if loaded.Persist != "local" {
			t.Errorf("%s: Persist = %q, want local", name, loaded.Persist)
		}
		boot, err := loaded.Bootstrap()
		if err != nil {
			t.Fatalf("%s: Bootstrap() error: %v", name, err)
		}
		if n, _ := boot.Data["n"].AsNumber(); n != 1 {
			t.Errorf("%s: Data[n] = %v, want 1", name, boot.Data["n"])
		}

		loaded.Key = "other"
		if err := loaded.Save(); err != nil {
			t.Fatalf("Save error: %v", err)
		}
		reloaded, _ := LoadFile(configPath)
		if reloaded.Key != "other" {
			t.Errorf("%s: Key = %q after Save", name, reloaded.Key)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"unknown persist", func(c *Config) { c.Persist = "123" }, "E202"},
		{"unknown driver", func(c *Config) { c.Storage.Local.Driver = "etcd" }, "E123"},
		{"s3 without bucket", func(c *Config) { c.Storage.Session.Driver = storage.DriverS3 }, "E121"},
		{"sqlite without path", func(c *Config) { c.Storage.Local = storage.Config{Driver: storage.DriverSQLite} }, "E121"},
		{"bad addr", func(c *Config) { c.Inspector.Addr = "nope" }, "E122"},
		{"port out of range", func(c *Config) { c.Inspector.Addr = ":70000" }, "E122"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "E124"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "E124"},
		{"bad flush timeout", func(c *Config) { c.FlushTimeout = "soon" }, "E120"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if got := errors.FromError(err, "").Code; got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

func TestValidate_PersistMessage(t *testing.T) {
	cfg := New()
	cfg.Persist = "123"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "persist: unknown persist mode '123'") {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestBootstrap_ShapeErrors(t *testing.T) {
	tests := []struct {
		data any
		want string
	}{
		{nil, "store: config.data is required"},
		{"text", "store: config.data must be an object"},
		{[]any{1}, "store: config.data must be an object"},
	}
	for _, tt := range tests {
		cfg := New()
		cfg.Data = tt.data
		_, err := cfg.Bootstrap()
		if err == nil || err.Error() != tt.want {
			t.Errorf("Bootstrap(data=%v) error = %v, want %q", tt.data, err, tt.want)
		}
	}
}

func TestFlushTimeoutDuration(t *testing.T) {
	cfg := New()
	cfg.FlushTimeout = "5s"
	if got := cfg.FlushTimeoutDuration().String(); got != "5s" {
		t.Errorf("FlushTimeoutDuration() = %s, want 5s", got)
	}
	cfg.FlushTimeout = "bad"
	if got := cfg.FlushTimeoutDuration(); got != persist.DefaultFlushTimeout {
		t.Errorf("FlushTimeoutDuration() = %s, want default", got)
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()
	if Exists(tmpDir) {
		t.Error("Exists should be false for empty dir")
	}
	writeFile(t, tmpDir, YAMLConfigFileName, "data: {}\n")
	if !Exists(tmpDir) {
		t.Error("Exists should be true with rstore.yaml")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, ConfigFileName, `{"data": {}}`)

	subDir := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(subDir)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	want, _ := filepath.Abs(tmpDir)
	if root != want {
		t.Errorf("FindProjectRoot = %q, want %q", root, want)
	}

	if _, err := FindProjectRoot(t.TempDir()); err == nil {
		t.Error("FindProjectRoot should fail without a config file")
	}
}
