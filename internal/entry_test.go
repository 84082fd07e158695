package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/starford/notewatch/internal/settings"
	"github.com/starford/notewatch/internal/testutil"
)

func TestOpenSettingsStore(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	ctx := context.Background()

	cases := []struct {
		name string
		cfg  SettingsConfig
	}{
		{"memory", SettingsConfig{Backend: BackendMemory}},
		{"file", SettingsConfig{Backend: BackendFile, File: filepath.Join(dir, "settings.yaml")}},
		{"sqlite", SettingsConfig{Backend: BackendSQLite, SQLitePath: filepath.Join(dir, "settings.db")}},
		{"redis", SettingsConfig{Backend: BackendRedis, Redis: RedisConfig{Addr: mr.Addr(), Key: "test:settings"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := openSettingsStore(ctx, tc.cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			want := settings.Defaults()
			want.LogEvents = true
			if err := store.Save(ctx, want.Record()); err != nil {
				t.Fatal(err)
			}
			if got := settings.Load(ctx, store, testutil.Logger()); got != want {
				t.Errorf("loaded %+v, want %+v", got, want)
			}
		})
	}

	if _, err := openSettingsStore(ctx, SettingsConfig{Backend: "etcd"}); err == nil {
		t.Error("unknown backend accepted")
	}
	addr := mr.Addr()
	mr.Close()
	if _, err := openSettingsStore(ctx, SettingsConfig{Backend: BackendRedis, Redis: RedisConfig{Addr: addr}}); err == nil {
		t.Error("unreachable redis accepted")
	}
}

func TestSetup_LogsVaultEvents(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(t.TempDir(), "vault")
	cfg.Settings.Backend = BackendMemory
	cfg.Watch.RenameWindow = 20 * time.Millisecond
	cfg.Log.TimeZone = "UTC"

	notices := &testutil.Notices{}
	app := &application{}
	for _, opt := range []Option{WithConfig(cfg), WithLogger(testutil.Logger()), WithNotifier(notices)} {
		opt(app)
	}
	rt, err := setup(context.Background(), app, os.Stdout)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(context.Background())
	rt.ctl.Start(ctx)
	if _, err := rt.ctl.Patch(ctx, settings.Record{settings.KeyLogEvents: true}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rt.watcher.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(cfg.Vault.Path, "hello.md"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	logFile := filepath.Join(cfg.Vault.Path, "NoteWatchPlugin", "note-watch.md")
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, _ := os.ReadFile(logFile)
		if strings.Contains(string(data), "New file added: [[hello.md]]") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("log never recorded the create; log = %q, notices = %v", data, notices.Texts())
		}
		time.Sleep(50 * time.Millisecond)
	}

	found := false
	for _, n := range notices.Texts() {
		if n == "New file added: hello.md" {
			found = true
		}
	}
	if !found {
		t.Errorf("notices = %v", notices.Texts())
	}
}

func TestSetup_RequiresConfig(t *testing.T) {
	if _, err := setup(context.Background(), &application{}, os.Stdout); err == nil {
		t.Error("setup without config succeeded")
	}
}

func TestSetup_IgnoresOwnWrites(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(t.TempDir(), "vault")
	cfg.Settings.Backend = BackendMemory
	cfg.Watch.RenameWindow = 20 * time.Millisecond
	cfg.Log.TimeZone = "UTC"

	notices := &testutil.Notices{}
	app := &application{}
	for _, opt := range []Option{WithConfig(cfg), WithLogger(testutil.Logger()), WithNotifier(notices)} {
		opt(app)
	}
	rt, err := setup(context.Background(), app, os.Stdout)
	if err != nil {
		t.Fatal(err)
	}
	defer rt.close()

	frames := rt.broker.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	rt.ctl.Start(ctx)
	if _, err := rt.ctl.Patch(ctx, settings.Record{settings.KeyLogEvents: true}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = rt.watcher.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()
	time.Sleep(100 * time.Millisecond)

	// The first entry creates the log folder, the second rewrites the log.
	for _, name := range []string{"a.md", "b.md"} {
		if err := os.WriteFile(filepath.Join(cfg.Vault.Path, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		waitForLog(t, cfg.Vault.Path, "[["+name+"]]")
	}
	// Let the events for the writer's own output drain.
	time.Sleep(300 * time.Millisecond)

	doc, err := rt.ctl.ReadLog()
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	for _, e := range doc.Entries {
		if !strings.Contains(e, "[[a.md]]") && !strings.Contains(e, "[[b.md]]") {
			t.Errorf("log entry for a non-user file: %q", e)
		}
	}
	for _, n := range notices.Texts() {
		if strings.Contains(n, "NoteWatchPlugin") || strings.Contains(n, "note-watch") {
			t.Errorf("notice about the log: %q", n)
		}
	}

	var seen int
	for {
		select {
		case frame := <-frames:
			seen++
			if strings.Contains(string(frame), "NoteWatchPlugin") {
				t.Errorf("SSE frame about the log: %s", frame)
			}
			continue
		default:
		}
		break
	}
	if seen == 0 {
		t.Error("no SSE frames for user files")
	}
}

func waitForLog(t *testing.T, vaultPath, want string) {
	t.Helper()
	logFile := filepath.Join(vaultPath, "NoteWatchPlugin", "note-watch.md")
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, _ := os.ReadFile(logFile)
		if strings.Contains(string(data), want) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("log never recorded %s; log = %q", want, data)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
