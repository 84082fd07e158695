package format

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/notewatch/internal/models"
)

var fixed = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

func testFormatter() Formatter {
	return Formatter{Location: time.UTC}
}

func TestFormat(t *testing.T) {
	f := testFormatter()
	cases := []struct {
		name string
		ev   models.Event
		want string
	}{
		{
			name: "create links path",
			ev:   models.Event{Kind: models.KindCreate, Path: "Notes/Idea.md"},
			want: "3/5/2024, 2:07:09 PM - New file added: [[Notes/Idea.md]]",
		},
		{
			name: "create untitled",
			ev:   models.Event{Kind: models.KindCreate, Path: "Notes/Untitled.md"},
			want: "3/5/2024, 2:07:09 PM - New file added: Untitled.md",
		},
		{
			name: "delete unwrapped",
			ev:   models.Event{Kind: models.KindDelete, Path: "Notes/Idea.md"},
			want: "3/5/2024, 2:07:09 PM - File deleted: Notes/Idea.md",
		},
		{
			name: "rename links new path",
			ev:   models.Event{Kind: models.KindRename, Path: "Archive/Idea.md", OldPath: "Notes/Idea.md"},
			want: "3/5/2024, 2:07:09 PM - File moved from: Notes/Idea.md to: [[Archive/Idea.md]]",
		},
		{
			name: "rename to untitled",
			ev:   models.Event{Kind: models.KindRename, Path: "Untitled.md", OldPath: "Draft.md"},
			want: "3/5/2024, 2:07:09 PM - File moved from: Draft.md to: Untitled.md",
		},
		{
			name: "modify",
			ev:   models.Event{Kind: models.KindModify, Path: "Notes/Idea.md"},
			want: "3/5/2024, 2:07:09 PM - Contents of [[Notes/Idea.md]] were modified",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.Format(tc.ev, fixed); got != tc.want {
				t.Errorf("Format = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormat_UntitledOnlyMatchesFinalSegment(t *testing.T) {
	got := testFormatter().Format(models.Event{Kind: models.KindCreate, Path: "Untitled.md/Real.md"}, fixed)
	if !strings.Contains(got, "[[Untitled.md/Real.md]]") {
		t.Errorf("Format = %q", got)
	}
	got = testFormatter().Format(models.Event{Kind: models.KindCreate, Path: "MyUntitled.md"}, fixed)
	if !strings.Contains(got, "[[MyUntitled.md]]") {
		t.Errorf("Format = %q", got)
	}
}

func TestNotice_UsesRawPath(t *testing.T) {
	f := testFormatter()
	cases := []struct {
		ev   models.Event
		want string
	}{
		{models.Event{Kind: models.KindCreate, Path: "Notes/Untitled.md"}, "New file added: Notes/Untitled.md"},
		{models.Event{Kind: models.KindRename, Path: "B/Untitled.md", OldPath: "A/x.md"}, "File moved from: A/x.md to: B/Untitled.md"},
		{models.Event{Kind: models.KindModify, Path: "x.md"}, "Contents of x.md were modified"},
		{models.Event{Kind: models.KindDelete, Path: "x.md"}, "3/5/2024, 2:07:09 PM - File deleted: x.md"},
	}
	for _, tc := range cases {
		if got := f.Notice(tc.ev, fixed); got != tc.want {
			t.Errorf("Notice(%s) = %q, want %q", tc.ev.Kind, got, tc.want)
		}
	}
}

func TestTimestamp_CustomLayout(t *testing.T) {
	f := New(time.RFC3339)
	f.Location = time.UTC
	if got := f.Timestamp(fixed); got != "2024-03-05T14:07:09Z" {
		t.Errorf("Timestamp = %q", got)
	}
}
