// Package format renders vault events as log lines and notice texts.
package format

import (
	"path"
	"time"

	"github.com/starford/notewatch/internal/models"
)

// DefaultTimeLayout mirrors the en-US locale date-time rendering.
const DefaultTimeLayout = "1/2/2006, 3:04:05 PM"

// UntitledName is the default file name new notes get before being named.
const UntitledName = "Untitled.md"

// Formatter renders events. The zero value uses DefaultTimeLayout in the
// local time zone.
type Formatter struct {
	Layout   string
	Location *time.Location
}

// New returns a Formatter using layout, or DefaultTimeLayout when empty.
func New(layout string) Formatter {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return Formatter{Layout: layout}
}

// Timestamp renders now in the formatter's layout.
func (f Formatter) Timestamp(now time.Time) string {
	layout := f.Layout
	if layout == "" {
		layout = DefaultTimeLayout
	}
	if f.Location != nil {
		now = now.In(f.Location)
	}
	return now.Format(layout)
}

// Format returns the log line for ev: a timestamp, " - ", and the phrase for
// its kind. Created and moved-to paths are wrapped as [[links]] unless the
// file is still untitled.
func (f Formatter) Format(ev models.Event, now time.Time) string {
	return f.Timestamp(now) + " - " + logPhrase(ev)
}

// Notice returns the text shown to the user for ev. It always uses the raw
// path; deletions carry the timestamp.
func (f Formatter) Notice(ev models.Event, now time.Time) string {
	switch ev.Kind {
	case models.KindCreate:
		return "New file added: " + ev.Path
	case models.KindDelete:
		return f.Format(ev, now)
	case models.KindRename:
		return "File moved from: " + ev.OldPath + " to: " + ev.Path
	case models.KindModify:
		return "Contents of " + ev.Path + " were modified"
	}
	return ""
}

func logPhrase(ev models.Event) string {
	switch ev.Kind {
	case models.KindCreate:
		return "New file added: " + linkOrUntitled(ev.Path)
	case models.KindDelete:
		return "File deleted: " + ev.Path
	case models.KindRename:
		return "File moved from: " + ev.OldPath + " to: " + linkOrUntitled(ev.Path)
	case models.KindModify:
		return "Contents of " + Link(ev.Path) + " were modified"
	}
	return ""
}

// Link wraps p as a cross-reference.
func Link(p string) string {
	return "[[" + p + "]]"
}

func linkOrUntitled(p string) string {
	if path.Base(p) == UntitledName {
		return UntitledName
	}
	return Link(p)
}
