package format

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Decoding errors.
var (
	// ErrUnterminatedFragment signals a start marker whose end marker
	// never appeared. The artifact is truncated or corrupt; decoding
	// stops rather than guessing at the fragment boundary.
	ErrUnterminatedFragment = errors.New("start marker with no matching end marker")
)

// Fragment is one decoded (path, content) pair.
type Fragment struct {
	Path    string // Relative path embedded in the markers
	Content []byte // Exact original file content
}

// Decoder scans a merged artifact and yields fragments one at a time.
// It reads the stream line by line and never buffers more than one
// fragment.
type Decoder struct {
	spec   *Spec
	r      *bufio.Reader
	atHead bool
	err    error
	warn   func(string)
}

// NewDecoder returns a Decoder reading fragments in this Spec's scheme.
func (s *Spec) NewDecoder(r io.Reader) *Decoder {
	return &Decoder{spec: s, r: bufio.NewReader(r), atHead: true}
}

// OnWarning registers a sink for recoverable decode warnings, such as
// a start marker carrying an empty path.
func (d *Decoder) OnWarning(fn func(string)) {
	d.warn = fn
}

// Next returns the next fragment. It returns io.EOF after the last
// fragment, and ErrUnterminatedFragment if the stream ends inside one.
// Marker lines are matched against their whitespace-trimmed form;
// anything between fragments that is not a start marker is ignored.
func (d *Decoder) Next() (Fragment, error) {
	if d.err != nil {
		return Fragment{}, d.err
	}

	for {
		line, err := d.readLine()
		if line == "" && err != nil {
			d.err = err
			return Fragment{}, d.err
		}

		trimmed := strings.TrimSpace(line)

		// A hierarchy block is only recognized at the very head of
		// the stream, before any fragment.
		if d.atHead && trimmed != "" {
			d.atHead = false
			if trimmed == TreeStart {
				if err := d.skipHierarchy(); err != nil {
					d.err = err
					return Fragment{}, d.err
				}
				continue
			}
		}

		if path, ok := d.spec.matchStart(trimmed); ok {
			if path == "" {
				d.warnf("start marker with empty path skipped")
				continue
			}
			return d.readBody(path)
		}

		if err != nil {
			d.err = err
			return Fragment{}, d.err
		}
	}
}

// readBody captures content lines until the end marker matching path.
func (d *Decoder) readBody(path string) (Fragment, error) {
	end := d.spec.EndMarker(path)
	skip := d.spec.skipAfterStart
	var content bytes.Buffer

	for {
		line, err := d.readLine()
		if line == "" && err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("fragment %q: %w", path, ErrUnterminatedFragment)
			}
			d.err = err
			return Fragment{}, d.err
		}

		if skip {
			skip = false
			continue
		}

		if strings.TrimSpace(line) == end {
			return Fragment{Path: path, Content: stripSeparator(content.Bytes())}, nil
		}

		content.WriteString(line)

		if err != nil {
			d.err = fmt.Errorf("fragment %q: %w", path, ErrUnterminatedFragment)
			return Fragment{}, d.err
		}
	}
}

// skipHierarchy consumes lines through the hierarchy end marker.
func (d *Decoder) skipHierarchy() error {
	for {
		line, err := d.readLine()
		if line == "" && err != nil {
			if errors.Is(err, io.EOF) {
				d.warnf("hierarchy block has no end marker")
				return io.EOF
			}
			return err
		}
		if strings.TrimSpace(line) == TreeEnd {
			return nil
		}
		if err != nil {
			d.warnf("hierarchy block has no end marker")
			return io.EOF
		}
	}
}

// readLine returns the next line including its newline. At end of
// input it returns ("", io.EOF); a final line without a newline is
// returned together with io.EOF.
func (d *Decoder) readLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return line, err
	}
	if err != nil && line == "" {
		return "", io.EOF
	}
	if err != nil {
		return line, io.EOF
	}
	return line, nil
}

func (d *Decoder) warnf(format string, args ...interface{}) {
	if d.warn != nil {
		d.warn(fmt.Sprintf(format, args...))
	}
}

// stripSeparator removes the single newline the encoder appends
// between content and end marker.
func stripSeparator(content []byte) []byte {
	if n := len(content); n > 0 && content[n-1] == '\n' {
		return content[:n-1]
	}
	return content
}
