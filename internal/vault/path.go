package vault

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	separatorRunRe = regexp.MustCompile(`[\\/]+`)
	edgeSlashRe    = regexp.MustCompile(`^/+|/+$`)
)

// NormalizePath converts p to the canonical vault path form: forward
// slashes, no duplicate or edge separators, non-breaking spaces folded to
// plain spaces, Unicode NFC. The empty path normalizes to RootFolder.
func NormalizePath(p string) string {
	p = separatorRunRe.ReplaceAllString(p, "/")
	p = edgeSlashRe.ReplaceAllString(p, "")
	if p == "" {
		return RootFolder
	}
	p = strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(p)
	return norm.NFC.String(p)
}

// Join joins vault path elements and normalizes the result. A RootFolder
// element contributes nothing.
func Join(elem ...string) string {
	parts := make([]string, 0, len(elem))
	for _, e := range elem {
		if e == "" || e == RootFolder {
			continue
		}
		parts = append(parts, e)
	}
	return NormalizePath(strings.Join(parts, "/"))
}
