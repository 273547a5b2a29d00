package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/rstore/internal/config"
	"github.com/vango-dev/rstore/internal/errors"
	"github.com/vango-dev/rstore/pkg/persist"
	"github.com/vango-dev/rstore/pkg/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// syncBuffer is a bytes.Buffer safe for a command writing on another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// start runs the CLI in the background until ctx is done.
func start(ctx context.Context, args ...string) (*syncBuffer, <-chan error) {
	out := &syncBuffer{}
	root := newRootCmd()
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(append([]string{"--no-color"}, args...))

	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()
	return out, done
}

func waitFor(t *testing.T, out *syncBuffer, text string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), text) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q; output = %q", text, out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("command did not return")
		return nil
	}
}

const sqliteConfig = `{
  "persist": "local",
  "data": {"n": 0, "m": 1},
  "storage": {"local": {"driver": "sqlite", "path": "snap.db"}}
}`

// storedSnapshot reads the snapshot the config's local backend holds.
func storedSnapshot(t *testing.T, path string) string {
	t.Helper()
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	b, err := storage.Open(ctx, cfg.StorageFor(persist.Local), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	data, err := b.Get(ctx, cfg.Key)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func seedSnapshot(t *testing.T, path, snapshot string) {
	t.Helper()
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	b, err := storage.Open(ctx, cfg.StorageFor(persist.Local), slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.Set(ctx, cfg.Key, []byte(snapshot)); err != nil {
		t.Fatal(err)
	}
}

func TestServe_RestoresAndFlushesOnShutdown(t *testing.T) {
	path := writeConfig(t, sqliteConfig)
	seedSnapshot(t, path, `{"n":5}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out, done := start(ctx, "serve", "-c", path, "--addr", "127.0.0.1:0")

	waitFor(t, out, "Serving 2 slots")
	cancel()

	if err := waitDone(t, done); err != nil {
		t.Fatalf("serve error: %v", err)
	}
	if !strings.Contains(out.String(), "Shutting down") {
		t.Errorf("output = %q", out.String())
	}
	if got, want := storedSnapshot(t, path), `{"m":1,"n":5}`; got != want {
		t.Fatalf("snapshot = %s, want %s", got, want)
	}
}

func TestServe_ListenFailureFlushes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	path := writeConfig(t, sqliteConfig)
	_, done := start(context.Background(), "serve", "-c", path, "--addr", ln.Addr().String())

	err = waitDone(t, done)
	if got := errorCode(err); got != "E142" {
		t.Fatalf("code = %q, want E142 (err %v)", got, err)
	}
	if got, want := storedSnapshot(t, path), `{"m":1,"n":0}`; got != want {
		t.Fatalf("snapshot = %s, want %s", got, want)
	}
}

func TestServe_RejectsBadAddr(t *testing.T) {
	path := writeConfig(t, `{"data": {}}`)

	_, err := run(t, "serve", "-c", path, "--addr", "nope")
	if got := errorCode(err); got != "E122" {
		t.Fatalf("code = %q, want E122 (err %v)", got, err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func errorCode(err error) string {
	var se *errors.StoreError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

func TestInitThenValidate(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "init", dir)
	if err != nil {
		t.Fatalf("init error: %v", err)
	}
	if !strings.Contains(out, "Wrote") {
		t.Errorf("init output = %q", out)
	}

	out, err = run(t, "validate", "-c", filepath.Join(dir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if !strings.Contains(out, "is valid") || !strings.Contains(out, "Slots:       1") {
		t.Errorf("validate output = %q", out)
	}
}

func TestInitRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, "init", dir); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "init", dir); err == nil {
		t.Fatal("second init expected error")
	}
	if _, err := run(t, "init", "--force", "--yaml", "--persist", "session", dir); err != nil {
		t.Fatalf("init --force error: %v", err)
	}
}

func TestInitRejectsBadMode(t *testing.T) {
	_, err := run(t, "init", "--persist", "disk", t.TempDir())
	if got := errorCode(err); got != "E202" {
		t.Fatalf("code = %q, want E202 (err %v)", got, err)
	}
}

func TestValidateJSON(t *testing.T) {
	path := writeConfig(t, `{"persist": "123", "data": {}}`)

	out, err := run(t, "validate", "--json", "-c", path)
	if !stderrors.Is(err, errSilent) {
		t.Fatalf("err = %v, want errSilent", err)
	}
	if !strings.Contains(out, `"code":"E202"`) {
		t.Errorf("output = %q, want E202 JSON", out)
	}
}

func TestValidateDataShape(t *testing.T) {
	path := writeConfig(t, `{"data": [1, 2]}`)

	_, err := run(t, "validate", "-c", path)
	if got := errorCode(err); got != "E200" {
		t.Fatalf("code = %q, want E200 (err %v)", got, err)
	}
}

func TestSnapshotNeedsPersistence(t *testing.T) {
	path := writeConfig(t, `{"data": {}}`)

	_, err := run(t, "snapshot", "show", "-c", path)
	if got := errorCode(err); got != "E141" {
		t.Fatalf("code = %q, want E141 (err %v)", got, err)
	}
}

func TestSnapshotShowAndClear(t *testing.T) {
	path := writeConfig(t, `{
  "persist": "local",
  "data": {"n": 0},
  "storage": {"local": {"driver": "sqlite", "path": "snap.db"}}
}`)
	seedSnapshot(t, path, `{"n":1,"s":"x"}`)

	out, err := run(t, "snapshot", "show", "-c", path)
	if err != nil {
		t.Fatalf("show error: %v", err)
	}
	if !strings.Contains(out, `"n": 1`) || !strings.Contains(out, `"s": "x"`) {
		t.Errorf("show output = %q", out)
	}

	if _, err := run(t, "snapshot", "clear", "-c", path); err != nil {
		t.Fatalf("clear error: %v", err)
	}

	out, err = run(t, "snapshot", "show", "-c", path)
	if err != nil {
		t.Fatalf("show after clear error: %v", err)
	}
	if !strings.Contains(out, "No snapshot") {
		t.Errorf("show after clear output = %q", out)
	}
}

func TestFormatSnapshot(t *testing.T) {
	got, err := formatSnapshot([]byte(`{"a":[1,2]}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "\n  \"a\": [") {
		t.Errorf("formatSnapshot = %q", got)
	}

	for _, bad := range []string{`{"a":`, `[1]`, `"x"`} {
		if _, err := formatSnapshot([]byte(bad)); errorCode(err) != "E221" {
			t.Errorf("formatSnapshot(%s) error = %v, want E221", bad, err)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info logged at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("output = %q", out)
	}
}

func TestVersionShort(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}
