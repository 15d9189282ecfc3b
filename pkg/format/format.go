// Package format defines the delimiter schemes that turn (path,
// content) pairs into fragments of a merged artifact and back. The
// on-disk artifact layout is stable: an optional hierarchy block
// followed by concatenated fragments, each a start marker line, the
// raw content, and an end marker line.
package format

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Markers delimiting the optional hierarchy block at the head of an
// artifact. The decoder recognizes and skips the block; it is never
// yielded as a file.
const (
	TreeStart = "--- START FILE HIERARCHY ---"
	TreeEnd   = "--- END FILE HIERARCHY ---"
)

// Separator is written between fragments (and between the hierarchy
// block and the first fragment). The decoder ignores blank lines
// outside fragments, so the separator is cosmetic.
const Separator = "\n\n"

// Registered format names.
const (
	Default        = "default"
	Markdown       = "markdown"
	MarkdownFenced = "markdown-fenced"
)

// ErrUnknownFormat is returned by Lookup for unregistered names.
var ErrUnknownFormat = errors.New("unknown format")

// Spec is an immutable description of one delimiter scheme. The same
// Spec must be used to merge an artifact and to split it; mismatched
// specs fail with ErrNoFragments rather than producing partial output.
type Spec struct {
	Name string

	startFormat    string         // fmt template, %s is the relative path
	endFormat      string         // fmt template or constant marker
	endHasPath     bool           // end marker embeds the relative path
	contentPrefix  string         // written between start marker and content
	skipAfterStart bool           // decoder skips the line after the start marker
	startRegex     *regexp.Regexp // anchored, group 1 captures the path
	rejectPrefix   string         // captured paths with this prefix are not markers
}

var registry = []*Spec{
	{
		Name:        Default,
		startFormat: "--- START FILE: %s ---",
		endFormat:   "--- END FILE: %s ---",
		endHasPath:  true,
		startRegex:  regexp.MustCompile(`^--- START FILE: (.*?) ---$`),
	},
	{
		Name:           Markdown,
		startFormat:    "File: `%s`",
		endFormat:      "```",
		contentPrefix:  "```\n",
		skipAfterStart: true,
		startRegex:     regexp.MustCompile("^File: `(.*?)`$"),
	},
	{
		Name:        MarkdownFenced,
		startFormat: "```%s",
		endFormat:   "```",
		startRegex:  regexp.MustCompile("^```(.*)$"),
		// A bare fence or a longer fence is not a start marker.
		rejectPrefix: "``",
	},
}

// Lookup returns the Spec registered under name (case-insensitive).
func Lookup(name string) (*Spec, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, s := range registry {
		if s.Name == needle {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Names lists the registered format names in registration order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, s := range registry {
		names = append(names, s.Name)
	}
	return names
}

// StartMarker renders the start marker line for a relative path.
func (s *Spec) StartMarker(relPath string) string {
	return fmt.Sprintf(s.startFormat, relPath)
}

// EndMarker renders the end marker line for a relative path. For
// schemes with a constant end marker the path is ignored.
func (s *Spec) EndMarker(relPath string) string {
	if s.endHasPath {
		return fmt.Sprintf(s.endFormat, relPath)
	}
	return s.endFormat
}

// Encode produces one delimited fragment. The encoder always writes
// exactly one newline between content and end marker and the decoder
// strips exactly one, so content round-trips byte-identically,
// including empty files and files without a trailing newline.
func (s *Spec) Encode(relPath string, content []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(content) + 128)
	b.WriteString(s.StartMarker(relPath))
	b.WriteByte('\n')
	b.WriteString(s.contentPrefix)
	b.Write(content)
	b.WriteByte('\n')
	b.WriteString(s.EndMarker(relPath))
	b.WriteByte('\n')
	return b.Bytes()
}

// matchStart reports whether a trimmed line is a start marker and
// returns the embedded relative path.
func (s *Spec) matchStart(line string) (string, bool) {
	m := s.startRegex.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	path := strings.TrimSpace(m[1])
	if s.rejectPrefix != "" && strings.HasPrefix(path, s.rejectPrefix) {
		return "", false
	}
	return path, true
}
