package split

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrUnsafePath marks a decoded relative path that would resolve
// outside the output root. A hostile or corrupted artifact must not
// write outside its target tree.
var ErrUnsafePath = errors.New("path escapes output root")

// drivePrefix detects Windows drive-qualified paths such as C:\x or
// C:x. A colon elsewhere is a legitimate POSIX filename character.
var drivePrefix = regexp.MustCompile(`^[A-Za-z]:`)

// safeJoin joins a decoded relative path onto root and verifies the
// result stays inside root. Backslashes are normalized first so an
// artifact produced on Windows reconstructs elsewhere.
func safeJoin(root, rel string) (string, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(rel, `\`, "/"))
	if strings.HasPrefix(cleaned, "/") || drivePrefix.MatchString(cleaned) {
		return "", fmt.Errorf("%w: absolute path %q", ErrUnsafePath, rel)
	}
	cleaned = path.Clean(cleaned)

	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty path after cleaning %q", rel)
	}

	target := filepath.Join(root, filepath.FromSlash(cleaned))

	relCheck, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	relSlash := filepath.ToSlash(relCheck)
	if relSlash == ".." || strings.HasPrefix(relSlash, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}

	return target, nil
}
