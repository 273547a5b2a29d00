package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// exerciseBackend runs the Backend contract against b.
func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	data, err := b.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get(missing) error: %v", err)
	}
	if data != nil {
		t.Fatalf("Get(missing) = %q, want nil", data)
	}

	if err := b.Set(ctx, "k", []byte(`{"n":1}`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	data, err = b.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(data) != `{"n":1}` {
		t.Fatalf("Get() = %q, want %q", data, `{"n":1}`)
	}

	if err := b.Set(ctx, "k", []byte(`{"n":2}`)); err != nil {
		t.Fatalf("Set(overwrite) error: %v", err)
	}
	data, _ = b.Get(ctx, "k")
	if string(data) != `{"n":2}` {
		t.Fatalf("Get() after overwrite = %q", data)
	}

	if err := b.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := b.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove(missing) error: %v", err)
	}
	data, _ = b.Get(ctx, "k")
	if data != nil {
		t.Fatalf("Get() after Remove = %q, want nil", data)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() second call error: %v", err)
	}
	if err := b.Set(ctx, "k", []byte("x")); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set() after Close error = %v, want ErrClosed", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseBackend(t, NewMemory())
}

func TestMemory_CopyOnSetAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	original := []byte("abc")
	if err := m.Set(ctx, "k", original); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	original[0] = 'z'

	loaded, _ := m.Get(ctx, "k")
	if string(loaded) != "abc" {
		t.Fatalf("Get() returned mutated data: got %q", loaded)
	}
	loaded[1] = 'y'
	loaded2, _ := m.Get(ctx, "k")
	if string(loaded2) != "abc" {
		t.Fatalf("Get() returned mutated data after caller mutation: got %q", loaded2)
	}
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
}

func TestBadger_InMemory(t *testing.T) {
	b, err := OpenBadger(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger() error: %v", err)
	}
	exerciseBackend(t, b)
}

func TestBadger_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := OpenBadger(BadgerConfig{Path: dir, SyncWrites: true})
	if err != nil {
		t.Fatalf("OpenBadger() error: %v", err)
	}
	if err := b.Set(ctx, "snap", []byte("hello")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	b, err = OpenBadger(BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("OpenBadger(reopen) error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	data, err := b.Get(ctx, "snap")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("Get() = %q, want hello", data)
	}
}

func TestBadger_RequiresPath(t *testing.T) {
	if _, err := OpenBadger(BadgerConfig{}); err == nil {
		t.Fatal("OpenBadger() without path expected error")
	}
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "rstore.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	exerciseBackend(t, s)
}

func TestSQLite_TableName(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "rstore.db"), WithSQLTableName("custom_snapshots"))
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM custom_snapshots`).Scan(&n); err != nil {
		t.Fatalf("count query error: %v", err)
	}
	if n != 1 {
		t.Fatalf("row count = %d, want 1", n)
	}
}

func TestSQL_Placeholder(t *testing.T) {
	tests := []struct {
		dialect SQLDialect
		want    string
	}{
		{DialectPostgreSQL, "$1"},
		{DialectMySQL, "?"},
		{DialectSQLite, "?"},
	}
	for _, tt := range tests {
		s := NewSQL(nil, WithSQLDialect(tt.dialect))
		if got := s.placeholder(1); got != tt.want {
			t.Errorf("placeholder(%v) = %q, want %q", tt.dialect, got, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Config{}, nil)
	if err != nil {
		t.Fatalf("Open(default) error: %v", err)
	}
	if _, ok := b.(*Memory); !ok {
		t.Fatalf("Open(default) = %T, want *Memory", b)
	}

	b, err = Open(ctx, Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "x.db")}, nil)
	if err != nil {
		t.Fatalf("Open(sqlite) error: %v", err)
	}
	if _, ok := b.(*SQL); !ok {
		t.Fatalf("Open(sqlite) = %T, want *SQL", b)
	}
	_ = b.Close()

	b, err = Open(ctx, Config{Driver: DriverBadger, Path: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("Open(badger) error: %v", err)
	}
	_ = b.Close()

	b, err = Open(ctx, Config{Driver: DriverS3, Bucket: "b", Endpoint: "http://localhost:9000"}, nil)
	if err != nil {
		t.Fatalf("Open(s3) error: %v", err)
	}
	if _, ok := b.(*S3); !ok {
		t.Fatalf("Open(s3) = %T, want *S3", b)
	}

	if _, err := Open(ctx, Config{Driver: DriverS3}, nil); err == nil {
		t.Error("Open(s3 without bucket) expected error")
	}
	if _, err := Open(ctx, Config{Driver: "etcd"}, nil); err == nil {
		t.Error("Open(unknown) expected error")
	}
}
