// Package models defines the domain types for notewatch.
package models

import "time"

// Kind identifies a file-lifecycle event.
type Kind string

const (
	KindCreate Kind = "create"
	KindDelete Kind = "delete"
	KindRename Kind = "rename"
	KindModify Kind = "modify"
)

// Kinds lists every event kind in subscription order.
var Kinds = []Kind{KindCreate, KindDelete, KindRename, KindModify}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCreate, KindDelete, KindRename, KindModify:
		return true
	}
	return false
}

// Event is one file-lifecycle change observed in the vault.
type Event struct {
	Kind    Kind      `json:"kind"`
	Path    string    `json:"path"`
	OldPath string    `json:"old_path,omitempty"` // rename only
	At      time.Time `json:"at"`
}

// Paths returns every path the event touches.
func (e Event) Paths() []string {
	if e.Kind == KindRename && e.OldPath != "" {
		return []string{e.Path, e.OldPath}
	}
	return []string{e.Path}
}
