// Package hierarchy renders a selection of relative paths as a
// tree diagram for embedding at the head of a merged artifact.
package hierarchy

import (
	"sort"
	"strings"

	"weld/pkg/format"
)

// Branch glyphs.
const (
	teeBranch   = "├── "
	lastBranch  = "└── "
	contIndent  = "│   "
	emptyIndent = "    "
)

// node is an intermediate directory entry while folding paths into a
// forest. Files are leaves without children.
type node struct {
	children map[string]*node
	files    []string
}

func newNode() *node {
	return &node{children: map[string]*node{}}
}

// Render produces a multi-line tree diagram of the given
// slash-separated relative paths. Directories are rendered once even
// when several files share them, directories sort before files within
// a level, and ordering is case-insensitive. Duplicate paths collapse.
// Render is a pure function of its input.
func Render(relPaths []string) string {
	root := newNode()
	seen := map[string]bool{}

	for _, p := range relPaths {
		p = strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true

		parts := strings.Split(p, "/")
		current := root
		for _, dir := range parts[:len(parts)-1] {
			child, ok := current.children[dir]
			if !ok {
				child = newNode()
				current.children[dir] = child
			}
			current = child
		}
		name := parts[len(parts)-1]
		if !contains(current.files, name) {
			current.files = append(current.files, name)
		}
	}

	var lines []string
	renderChildren(root, "", &lines)
	return strings.Join(lines, "\n")
}

// Block wraps the rendering in the hierarchy start and end markers,
// ready to be written as the first block of an artifact.
func Block(relPaths []string) string {
	return format.TreeStart + "\n" + Render(relPaths) + "\n" + format.TreeEnd + "\n"
}

// renderChildren emits one level of the tree: directories first, then
// files, each sorted case-insensitively.
func renderChildren(n *node, indent string, lines *[]string) {
	dirs := make([]string, 0, len(n.children))
	for name := range n.children {
		dirs = append(dirs, name)
	}
	sortFold(dirs)

	files := append([]string(nil), n.files...)
	sortFold(files)

	total := len(dirs) + len(files)
	for i, name := range dirs {
		last := i == total-1
		*lines = append(*lines, indent+branch(last)+name+"/")
		childIndent := indent + contIndent
		if last {
			childIndent = indent + emptyIndent
		}
		renderChildren(n.children[name], childIndent, lines)
	}
	for i, name := range files {
		last := len(dirs)+i == total-1
		*lines = append(*lines, indent+branch(last)+name)
	}
}

func branch(last bool) string {
	if last {
		return lastBranch
	}
	return teeBranch
}

func sortFold(names []string) {
	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
