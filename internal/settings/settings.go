// Package settings holds the notewatch settings record, its defaulting
// rules, and the stores that persist it.
package settings

import (
	"fmt"
	"sort"

	"github.com/starford/notewatch/internal/apperr"
	"github.com/starford/notewatch/internal/models"
	"github.com/starford/notewatch/internal/vault"
)

// Persisted keys.
const (
	KeyNotifyOnCreate = "notifyOnCreate"
	KeyNotifyOnDelete = "notifyOnDelete"
	KeyNotifyOnMove   = "notifyOnMove"
	KeyNotifyOnModify = "notifyOnModify"
	KeyLogEvents      = "logEvents"
	KeyLogDir         = "logDir"
)

const (
	// DefaultLogDir is the folder the log document lives in until the user
	// picks another one.
	DefaultLogDir = "NoteWatchPlugin"
	// LogFileName is the fixed name of the log document.
	LogFileName = "note-watch.md"
)

// Settings is the user-facing configuration of the watcher.
type Settings struct {
	NotifyOnCreate bool   `json:"notifyOnCreate" yaml:"notifyOnCreate"`
	NotifyOnDelete bool   `json:"notifyOnDelete" yaml:"notifyOnDelete"`
	NotifyOnMove   bool   `json:"notifyOnMove" yaml:"notifyOnMove"`
	NotifyOnModify bool   `json:"notifyOnModify" yaml:"notifyOnModify"`
	LogEvents      bool   `json:"logEvents" yaml:"logEvents"`
	LogDir         string `json:"logDir" yaml:"logDir"`
}

// Defaults returns the settings used when nothing has been persisted.
func Defaults() Settings {
	return Settings{
		NotifyOnCreate: true,
		NotifyOnDelete: true,
		NotifyOnMove:   true,
		NotifyOnModify: true,
		LogEvents:      false,
		LogDir:         DefaultLogDir,
	}
}

// Record is the persisted, loosely typed form of Settings.
type Record map[string]any

// Record converts s into its persisted form. Every key is present.
func (s Settings) Record() Record {
	return Record{
		KeyNotifyOnCreate: s.NotifyOnCreate,
		KeyNotifyOnDelete: s.NotifyOnDelete,
		KeyNotifyOnMove:   s.NotifyOnMove,
		KeyNotifyOnModify: s.NotifyOnModify,
		KeyLogEvents:      s.LogEvents,
		KeyLogDir:         s.LogDir,
	}
}

// LogPath returns the normalized vault path of the log document.
func (s Settings) LogPath() string {
	return vault.Join(s.LogDir, LogFileName)
}

// Enabled reports whether notifications for kind are switched on.
func (s Settings) Enabled(kind models.Kind) bool {
	switch kind {
	case models.KindCreate:
		return s.NotifyOnCreate
	case models.KindDelete:
		return s.NotifyOnDelete
	case models.KindRename:
		return s.NotifyOnMove
	case models.KindModify:
		return s.NotifyOnModify
	}
	return false
}

// FromRecord overlays r on the defaults. Keys holding a value of the wrong
// type keep their default and are reported in the returned slice; unknown
// keys are ignored.
func FromRecord(r Record) (Settings, []error) {
	s := Defaults()
	var problems []error
	for _, key := range sortedKeys(r) {
		if err := s.set(key, r[key]); err != nil {
			problems = append(problems, err)
		}
	}
	return s, problems
}

// Apply overlays r on s. Unlike FromRecord it rejects unknown keys and
// mistyped values, leaving s untouched on error.
func (s *Settings) Apply(r Record) error {
	next := *s
	for _, key := range sortedKeys(r) {
		if !isKnown(key) {
			return fmt.Errorf("%w: unknown key %q", apperr.ErrInvalidSetting, key)
		}
		if err := next.set(key, r[key]); err != nil {
			return err
		}
	}
	*s = next
	return nil
}

func (s *Settings) set(key string, v any) error {
	switch key {
	case KeyNotifyOnCreate:
		return assignBool(&s.NotifyOnCreate, key, v)
	case KeyNotifyOnDelete:
		return assignBool(&s.NotifyOnDelete, key, v)
	case KeyNotifyOnMove:
		return assignBool(&s.NotifyOnMove, key, v)
	case KeyNotifyOnModify:
		return assignBool(&s.NotifyOnModify, key, v)
	case KeyLogEvents:
		return assignBool(&s.LogEvents, key, v)
	case KeyLogDir:
		str, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string, got %T", apperr.ErrInvalidSetting, key, v)
		}
		s.LogDir = str
	}
	return nil
}

func assignBool(dst *bool, key string, v any) error {
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("%w: %s must be a boolean, got %T", apperr.ErrInvalidSetting, key, v)
	}
	*dst = b
	return nil
}

func isKnown(key string) bool {
	switch key {
	case KeyNotifyOnCreate, KeyNotifyOnDelete, KeyNotifyOnMove, KeyNotifyOnModify, KeyLogEvents, KeyLogDir:
		return true
	}
	return false
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
