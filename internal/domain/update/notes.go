package update

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// errReleaseNotesShape is returned for release notes that are neither text nor a list.
var errReleaseNotesShape = errors.New("release notes must be a string or a list of notes")

// ReleaseNote is one entry of list-style release notes.
type ReleaseNote struct {
	Version string `yaml:"version"`
	Note    string `yaml:"note,omitempty"`
}

// ReleaseNotes holds either plain text or per-version notes; manifests use both.
type ReleaseNotes struct {
	Text  string
	Notes []ReleaseNote
}

// UnmarshalYAML accepts a scalar or a sequence of {version, note}.
func (r *ReleaseNotes) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = ReleaseNotes{}

		if node.Tag == "!!null" {
			return nil
		}

		return node.Decode(&r.Text)
	case yaml.SequenceNode:
		*r = ReleaseNotes{}

		return node.Decode(&r.Notes)
	default:
		return fmt.Errorf("line %d: %w", node.Line, errReleaseNotesShape)
	}
}

// MarshalYAML writes the same shape that was read.
func (r ReleaseNotes) MarshalYAML() (any, error) {
	if len(r.Notes) > 0 {
		return r.Notes, nil
	}

	return r.Text, nil
}

// IsZero lets omitempty drop absent notes.
func (r ReleaseNotes) IsZero() bool {
	return r.Text == "" && len(r.Notes) == 0
}

// String renders the notes as text, one "version: note" line per list entry.
func (r ReleaseNotes) String() string {
	if len(r.Notes) == 0 {
		return r.Text
	}

	lines := make([]string, 0, len(r.Notes))
	for _, note := range r.Notes {
		lines = append(lines, note.Version+": "+note.Note)
	}

	return strings.Join(lines, "\n")
}
