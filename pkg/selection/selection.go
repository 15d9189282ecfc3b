// Package selection builds tri-state inclusion trees over directory
// hierarchies and yields the relative paths that survive selection.
// Nodes are plain values addressed by relative path; ancestor state is
// recomputed as a bottom-up fold rather than through back-pointers.
package selection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// State is the tri-state inclusion flag of a node.
type State int8

const (
	Included State = iota
	Excluded
	Partial
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Included:
		return "included"
	case Excluded:
		return "excluded"
	case Partial:
		return "partial"
	default:
		return "unknown"
	}
}

// Node is one filesystem entry considered for merging. Directory
// nodes carry their children in deterministic case-insensitive
// lexicographic order.
type Node struct {
	Name     string  // Base name of the entry
	AbsPath  string  // Absolute path on disk
	RelPath  string  // Path relative to the tree root, slash-separated
	Dir      bool    // Directory or regular file
	State    State   // Tri-state inclusion flag
	Children []*Node // Ordered children, directories only
}

// Selected is one file chosen by the current selection state.
type Selected struct {
	Abs string // Absolute path on disk
	Rel string // Slash-separated path relative to the tree root
}

// Build walks root and constructs a Node tree with every entry
// included. Symbolic links and non-regular files are skipped.
// Unreadable directories are skipped and reported in the returned
// warning list rather than failing the walk.
func Build(root string, logger *zap.Logger) (*Node, []string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}
	info, err := os.Lstat(absRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("selection root %q is not a directory", root)
	}

	node := &Node{
		Name:    filepath.Base(absRoot),
		AbsPath: absRoot,
		Dir:     true,
		State:   Included,
	}

	var warnings []string
	buildChildren(node, absRoot, &warnings, logger)
	node.recompute()
	return node, warnings, nil
}

// buildChildren populates dir's children recursively.
func buildChildren(dir *Node, root string, warnings *[]string, logger *zap.Logger) {
	entries, err := os.ReadDir(dir.AbsPath)
	if err != nil {
		msg := fmt.Sprintf("cannot read directory %s: %v", dir.AbsPath, err)
		*warnings = append(*warnings, msg)
		logger.Warn("Skipping unreadable directory", zap.String("dir", dir.AbsPath), zap.Error(err))
		return
	}

	sortEntries(entries)

	for _, entry := range entries {
		entryPath := filepath.Join(dir.AbsPath, entry.Name())

		if !entry.IsDir() && !entry.Type().IsRegular() {
			logger.Debug("Skipping non-regular file", zap.String("path", entryPath))
			continue
		}

		rel := entry.Name()
		if dir.RelPath != "" {
			rel = dir.RelPath + "/" + entry.Name()
		}

		child := &Node{
			Name:    entry.Name(),
			AbsPath: entryPath,
			RelPath: rel,
			Dir:     entry.IsDir(),
			State:   Included,
		}
		dir.Children = append(dir.Children, child)

		if child.Dir {
			buildChildren(child, root, warnings, logger)
		}
	}
}

// sortEntries orders directory entries lexicographically
// (case-insensitive, original name as tie-break), so collected
// relative paths come out in rel-path order.
func sortEntries(entries []os.DirEntry) {
	sort.Slice(entries, func(i, j int) bool {
		li, lj := strings.ToLower(entries[i].Name()), strings.ToLower(entries[j].Name())
		if li != lj {
			return li < lj
		}
		return entries[i].Name() < entries[j].Name()
	})
}

// Set assigns state to the node and cascades it to all descendants.
// Only Included and Excluded cascade; Partial is never assigned
// directly, it only arises from recomputation.
func (n *Node) Set(state State) {
	n.State = state
	for _, c := range n.Children {
		c.Set(state)
	}
}

// Toggle sets the state of the node addressed by relPath (slash
// separated, empty string for the root), cascades it downward, and
// recomputes the tri-state of every ancestor. It reports whether the
// path named an existing node.
func (n *Node) Toggle(relPath string, state State) bool {
	target := n.Find(relPath)
	if target == nil {
		return false
	}
	target.Set(state)
	n.recompute()
	return true
}

// Find returns the node addressed by relPath, or nil.
func (n *Node) Find(relPath string) *Node {
	if relPath == "" || relPath == "." {
		return n
	}
	segments := strings.Split(relPath, "/")
	current := n
outer:
	for _, seg := range segments {
		for _, c := range current.Children {
			if c.Name == seg {
				current = c
				continue outer
			}
		}
		return nil
	}
	return current
}

// recompute folds children states upward: a directory is Included iff
// all descendant files are, Excluded iff none are, Partial otherwise.
// Empty directories keep their own state. Returns the node's state.
func (n *Node) recompute() State {
	if !n.Dir || len(n.Children) == 0 {
		return n.State
	}

	allIncluded := true
	allExcluded := true
	for _, c := range n.Children {
		switch c.recompute() {
		case Included:
			allExcluded = false
		case Excluded:
			allIncluded = false
		case Partial:
			allIncluded = false
			allExcluded = false
		}
	}

	switch {
	case allIncluded:
		n.State = Included
	case allExcluded:
		n.State = Excluded
	default:
		n.State = Partial
	}
	return n.State
}

// Collect returns the included files in deterministic preorder, which
// with the lexicographic child ordering is relative-path order. The
// result is re-derived from the current tree state on every call.
func (n *Node) Collect() []Selected {
	var out []Selected
	n.walk(func(node *Node) {
		if !node.Dir && node.State == Included {
			out = append(out, Selected{Abs: node.AbsPath, Rel: node.RelPath})
		}
	})
	return out
}

// Files returns every file node in preorder regardless of state.
func (n *Node) Files() []Selected {
	var out []Selected
	n.walk(func(node *Node) {
		if !node.Dir {
			out = append(out, Selected{Abs: node.AbsPath, Rel: node.RelPath})
		}
	})
	return out
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}
