// Package parser splits Markdown log documents into their leading metadata
// block and the entry lines that follow it.
package parser

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes a metadata block.
const Delimiter = "---"

// Document is a parsed log document.
type Document struct {
	Metadata      map[string]any `json:"metadata,omitempty"`
	MetadataLines []string       `json:"-"`
	Entries       []string       `json:"entries"`
}

// MetadataLen returns how many leading lines form the metadata block. The
// first line must be exactly the delimiter and a later line must close it;
// otherwise the block is empty.
func MetadataLen(lines []string) int {
	if len(lines) == 0 || !isDelimiter(lines[0]) {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if isDelimiter(lines[i]) {
			return i + 1
		}
	}
	// Unterminated block.
	return 0
}

// Parse splits data into metadata and entries. Blank lines between entries
// are dropped. Invalid YAML keeps the block lines but leaves Metadata nil.
func Parse(data []byte) *Document {
	content := string(data)
	if content == "" {
		return &Document{Entries: []string{}}
	}
	lines := strings.Split(content, "\n")
	n := MetadataLen(lines)

	doc := &Document{Entries: []string{}}
	if n > 0 {
		doc.MetadataLines = lines[:n]
		var fm map[string]any
		block := strings.Join(lines[1:n-1], "\n")
		if err := yaml.Unmarshal([]byte(block), &fm); err == nil {
			doc.Metadata = fm
		}
	}
	for _, line := range lines[n:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		doc.Entries = append(doc.Entries, strings.TrimSuffix(line, "\r"))
	}
	return doc
}

func isDelimiter(line string) bool {
	return line == Delimiter
}
