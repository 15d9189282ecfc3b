// Package ignore implements gitignore-style exclusion for merge
// traversal. Patterns come from `.weldignore` files and command-line
// flags and are compiled to anchored regular expressions.
package ignore

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// IgnoreFileName is the per-tree ignore file consulted during merge.
const IgnoreFileName = ".weldignore"

// Pattern is one compiled ignore rule with its source metadata.
type Pattern struct {
	Regex  *regexp.Regexp // Compiled regular expression for the rule
	Negate bool           // Rule re-includes matching paths ('!' prefix)
	Line   string         // Original pattern line
	LineNo int            // 1-based position among compiled rules
}

// Matcher holds an ordered set of ignore rules. Later rules override
// earlier ones, so a negation can re-include a previously ignored path.
type Matcher struct {
	patterns []*Pattern
	logger   *zap.Logger
}

// New returns an empty Matcher.
func New(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{logger: logger}
}

// Load builds a Matcher from an optional global ignore file followed by
// an optional local one, so local rules take precedence. A missing
// file is not an error.
func Load(localPath, globalPath string, logger *zap.Logger) (*Matcher, error) {
	m := New(logger)

	for _, path := range []string{globalPath, localPath} {
		if path == "" {
			continue
		}
		if err := m.CompileFile(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		m.logger.Debug("Loaded ignore file", zap.String("file", path))
	}

	return m, nil
}

// CompileLines compiles pattern lines and appends them to the Matcher.
// Blank lines, comments, and invalid patterns are dropped.
func (m *Matcher) CompileLines(lines ...string) {
	for _, line := range lines {
		regex, negate, ok := parsePatternLine(line)
		if !ok {
			continue
		}
		m.patterns = append(m.patterns, &Pattern{
			Regex:  regex,
			Negate: negate,
			Line:   strings.TrimSpace(line),
			LineNo: len(m.patterns) + 1,
		})
	}
}

// CompileFile reads an ignore file and compiles its lines.
func (m *Matcher) CompileFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m.CompileLines(strings.Split(string(content), "\n")...)
	return nil
}

// Len reports the number of compiled rules.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// MatchesPath reports whether the slash-relative path is ignored.
func (m *Matcher) MatchesPath(path string) bool {
	matched, _ := m.Match(path)
	return matched
}

// Match reports whether the path is ignored and returns the deciding
// rule. Rules are evaluated in order; the last matching rule wins.
func (m *Matcher) Match(path string) (bool, *Pattern) {
	normalized := filepath.ToSlash(path)

	matched := false
	var deciding *Pattern
	for _, p := range m.patterns {
		if p.Regex.MatchString(normalized) {
			matched = !p.Negate
			deciding = p
		}
	}
	return matched, deciding
}

// parsePatternLine turns one ignore-file line into a compiled regex
// and a negation flag. The third return is false for blank lines,
// comments, and patterns that do not compile.
func parsePatternLine(line string) (*regexp.Regexp, bool, bool) {
	trimmed := strings.TrimSpace(line)

	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, false, false
	}

	negate := false
	if strings.HasPrefix(trimmed, "!") {
		negate = true
		trimmed = strings.TrimPrefix(trimmed, "!")
	}

	// Escaped leading '#' or '!' are literals.
	if strings.HasPrefix(trimmed, `\#`) || strings.HasPrefix(trimmed, `\!`) {
		trimmed = trimmed[1:]
	}

	rooted := strings.HasPrefix(trimmed, "/")
	pattern := strings.TrimPrefix(trimmed, "/")

	escaped := escapeSpecialChars(pattern)
	escaped = handleDoubleStarPatterns(escaped)
	escaped = wildcardToRegex(escaped)
	escaped = anchorPattern(escaped, trimmed, rooted)

	regex, err := regexp.Compile(escaped)
	if err != nil {
		return nil, false, false
	}
	return regex, negate, true
}
