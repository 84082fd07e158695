package vault

import (
	"github.com/sahilm/fuzzy"
)

// FindFolders returns the vault folders matching query, best match first.
// An empty query returns every folder in listing order. limit <= 0 means
// no limit.
func FindFolders(p Provider, query string, limit int) ([]string, error) {
	folders, err := p.Folders()
	if err != nil {
		return nil, err
	}

	var out []string
	if query == "" {
		out = folders
	} else {
		matches := fuzzy.Find(query, folders)
		out = make([]string, 0, len(matches))
		for _, m := range matches {
			out = append(out, m.Str)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
