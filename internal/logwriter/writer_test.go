package logwriter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/notewatch/internal/apperr"
	"github.com/starford/notewatch/internal/models"
	"github.com/starford/notewatch/internal/notify"
	"github.com/starford/notewatch/internal/testutil"
	"github.com/starford/notewatch/internal/vault"
)

// hookedFS wraps a real vault and lets tests intercept individual calls.
type hookedFS struct {
	*vault.FS
	create  func(path string, content []byte) error
	writeIf func(path string, content []byte, version string) error
	reads   int
	onRead  func(n int, data []byte) []byte
}

func (h *hookedFS) Create(path string, content []byte) error {
	if h.create != nil {
		return h.create(path, content)
	}
	return h.FS.Create(path, content)
}

func (h *hookedFS) WriteIf(path string, content []byte, version string) error {
	if h.writeIf != nil {
		return h.writeIf(path, content, version)
	}
	return h.FS.WriteIf(path, content, version)
}

func (h *hookedFS) Read(path string) ([]byte, error) {
	data, err := h.FS.Read(path)
	h.reads++
	if err == nil && h.onRead != nil {
		data = h.onRead(h.reads, data)
	}
	return data, err
}

func newWriter(t *testing.T, store vault.Provider, logPath string) (*Writer, *testutil.Notices) {
	t.Helper()
	notes := &testutil.Notices{}
	return New(store, func() string { return logPath }, notes, testutil.Logger()), notes
}

func testFS(t *testing.T) *vault.FS {
	t.Helper()
	fs, err := vault.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func readString(t *testing.T, fs vault.Provider, path string) string {
	t.Helper()
	data, err := fs.Read(path)
	if err != nil {
		t.Fatalf("Read %s: %v", path, err)
	}
	return string(data)
}

func TestInsert(t *testing.T) {
	cases := []struct {
		name, content, want string
	}{
		{"no metadata", "A\nB", "M\n\nA\nB"},
		{"metadata", "---\nk: v\n---\nA", "---\nk: v\n---\nM\n\nA"},
		{"unterminated metadata", "---\nk: v\nA", "M\n\n---\nk: v\nA"},
		{"metadata only", "---\nk: v\n---", "---\nk: v\n---\nM\n"},
		{"empty", "", "M\n\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Insert(tc.content, "M"); got != tc.want {
				t.Errorf("Insert = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAppend_CreatesDocument(t *testing.T) {
	fs := testFS(t)
	w, _ := newWriter(t, fs, "NoteWatchPlugin/note-watch.md")

	if err := w.Append(context.Background(), "first"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := readString(t, fs, "NoteWatchPlugin/note-watch.md"); got != "first\n" {
		t.Errorf("content = %q", got)
	}
}

func TestAppend_NewestFirst(t *testing.T) {
	fs := testFS(t)
	w, _ := newWriter(t, fs, "log/note-watch.md")
	ctx := context.Background()

	for _, m := range []string{"one", "two", "three"} {
		if err := w.Append(ctx, m); err != nil {
			t.Fatalf("Append(%s): %v", m, err)
		}
	}
	want := "three\n\ntwo\n\none\n"
	if got := readString(t, fs, "log/note-watch.md"); got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestAppend_PreservesMetadata(t *testing.T) {
	fs := testFS(t)
	_ = fs.Write("note-watch.md", []byte("---\nk: v\n---\nA"))
	w, _ := newWriter(t, fs, "/note-watch.md")

	if err := w.Append(context.Background(), "M"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := readString(t, fs, "note-watch.md"); got != "---\nk: v\n---\nM\n\nA" {
		t.Errorf("content = %q", got)
	}
}

func TestAppend_NormalizesPath(t *testing.T) {
	fs := testFS(t)
	w, _ := newWriter(t, fs, "//Logs\\\\note-watch.md")
	if w.Path() != "Logs/note-watch.md" {
		t.Fatalf("Path = %q", w.Path())
	}
	if err := w.Append(context.Background(), "x"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := readString(t, fs, "Logs/note-watch.md"); got != "x\n" {
		t.Errorf("content = %q", got)
	}
}

func TestAppend_CreateRaceIsBenign(t *testing.T) {
	fs := testFS(t)
	h := &hookedFS{FS: fs, create: func(path string, _ []byte) error {
		// Simulate a concurrent creator winning the race.
		_ = fs.Write(path, []byte("theirs\n"))
		return apperr.ErrAlreadyExists
	}}
	w, notes := newWriter(t, h, "note-watch.md")

	if err := w.Append(context.Background(), "mine"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := readString(t, fs, "note-watch.md"); got != "theirs\n" {
		t.Errorf("content = %q", got)
	}
	if len(notes.Texts()) != 0 {
		t.Errorf("race surfaced notices: %v", notes.Texts())
	}

	// The next entry goes through the rewrite path.
	h.create = nil
	if err := w.Append(context.Background(), "next"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := readString(t, fs, "note-watch.md"); got != "next\n\ntheirs\n" {
		t.Errorf("content = %q", got)
	}
}

func TestAppend_ConflictAbandonsWrite(t *testing.T) {
	fs := testFS(t)
	_ = fs.Write("note-watch.md", []byte("A\n"))
	h := &hookedFS{
		FS: fs,
		onRead: func(_ int, data []byte) []byte {
			// Another writer lands between our read and our rewrite.
			if err := os.WriteFile(filepath.Join(fs.Root(), "note-watch.md"), []byte("A\nedited elsewhere\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			return data
		},
	}
	w, _ := newWriter(t, h, "note-watch.md")

	err := w.Append(context.Background(), "M")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if got := readString(t, fs, "note-watch.md"); got != "A\nedited elsewhere\n" {
		t.Errorf("concurrent edit overwritten: %q", got)
	}
	entries, _ := os.ReadDir(fs.Root())
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestRecord_FailureNotifiesOnceAndRecovers(t *testing.T) {
	fs := testFS(t)
	_ = fs.Write("note-watch.md", []byte("old\n"))
	failing := true
	h := &hookedFS{FS: fs, writeIf: func(path string, content []byte, version string) error {
		if failing {
			return errors.New("disk full")
		}
		return fs.WriteIf(path, content, version)
	}}
	w, notes := newWriter(t, h, "note-watch.md")
	ctx := context.Background()

	w.Record(ctx, "lost")
	if len(notes.Texts()) != 1 || notes.Texts()[0] != FailureNotice {
		t.Fatalf("notices = %v", notes.Texts())
	}

	failing = false
	w.Record(ctx, "kept")
	if len(notes.Texts()) != 1 {
		t.Errorf("unexpected extra notices: %v", notes.Texts())
	}
	if got := readString(t, fs, "note-watch.md"); got != "kept\n\nold\n" {
		t.Errorf("content = %q", got)
	}
}

func TestRecord_FolderInTheWay(t *testing.T) {
	fs := testFS(t)
	_ = os.MkdirAll(fs.Root()+"/note-watch.md", 0o755)
	w, notes := newWriter(t, fs, "note-watch.md")

	w.Record(context.Background(), "x")
	if len(notes.Texts()) != 1 {
		t.Errorf("notices = %v", notes.Texts())
	}
}

func TestAppend_FollowsLogPath(t *testing.T) {
	fs := testFS(t)
	dir := "A"
	w := New(fs, func() string { return dir + "/note-watch.md" }, notify.Multi{}, testutil.Logger())
	ctx := context.Background()

	_ = w.Append(ctx, "in a")
	dir = "B"
	_ = w.Append(ctx, "in b")

	if got := readString(t, fs, "A/note-watch.md"); got != "in a\n" {
		t.Errorf("A = %q", got)
	}
	if got := readString(t, fs, "B/note-watch.md"); got != "in b\n" {
		t.Errorf("B = %q", got)
	}
}

func TestRead(t *testing.T) {
	fs := testFS(t)
	w, _ := newWriter(t, fs, "note-watch.md")
	if _, err := w.Read(); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Read before create: %v", err)
	}
	_ = w.Append(context.Background(), "one")
	_ = w.Append(context.Background(), "two")
	doc, err := w.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(doc.Entries) != 2 || doc.Entries[0] != "two" {
		t.Errorf("entries = %v", doc.Entries)
	}
}

func TestOwns(t *testing.T) {
	fs := testFS(t)
	w, _ := newWriter(t, fs, "NoteWatchPlugin/sub/note-watch.md")
	if err := w.Append(context.Background(), "first"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	cases := []struct {
		name string
		ev   models.Event
		want bool
	}{
		{"log created", models.Event{Kind: models.KindCreate, Path: "NoteWatchPlugin/sub/note-watch.md"}, true},
		{"log modified", models.Event{Kind: models.KindModify, Path: "/NoteWatchPlugin/sub/note-watch.md"}, true},
		{"renamed away from log", models.Event{Kind: models.KindRename, Path: "x.md", OldPath: "NoteWatchPlugin/sub/note-watch.md"}, true},
		{"created folder", models.Event{Kind: models.KindCreate, Path: "NoteWatchPlugin"}, true},
		{"created folder again", models.Event{Kind: models.KindCreate, Path: "NoteWatchPlugin"}, false},
		{"nested created folder", models.Event{Kind: models.KindCreate, Path: "NoteWatchPlugin/sub"}, true},
		{"folder deleted", models.Event{Kind: models.KindDelete, Path: "NoteWatchPlugin/sub"}, false},
		{"user file", models.Event{Kind: models.KindCreate, Path: "NoteWatchPlugin/note.md"}, false},
	}
	for _, tc := range cases {
		if got := w.Owns(tc.ev); got != tc.want {
			t.Errorf("%s: Owns = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestOwns_ExistingFolderNotClaimed(t *testing.T) {
	fs := testFS(t)
	if err := os.Mkdir(filepath.Join(fs.Root(), "Logs"), 0o755); err != nil {
		t.Fatal(err)
	}
	w, _ := newWriter(t, fs, "Logs/note-watch.md")
	_ = w.Append(context.Background(), "first")

	if w.Owns(models.Event{Kind: models.KindCreate, Path: "Logs"}) {
		t.Error("pre-existing folder claimed by writer")
	}
}

func TestOwns_FailedCreateForgetsFolders(t *testing.T) {
	fs := testFS(t)
	h := &hookedFS{FS: fs, create: func(string, []byte) error { return errors.New("read-only") }}
	w, _ := newWriter(t, h, "Logs/note-watch.md")
	if err := w.Append(context.Background(), "first"); err == nil {
		t.Fatal("expected create error")
	}
	if w.Owns(models.Event{Kind: models.KindCreate, Path: "Logs"}) {
		t.Error("folder claimed after failed create")
	}
}
