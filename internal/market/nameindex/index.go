// Package nameindex maps normalized item display names to market page
// numbers. It is an unbalanced binary search tree rebuilt from a snapshot
// on every session open, so lookup cost is bounded by catalog size.
package nameindex

import "strings"

type node struct {
	key         string
	page        int
	left, right *node
}

// Index resolves a fuzzy name query to a page number.
type Index struct {
	root *node
	size int
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Normalize lowercases a name and strips all whitespace, matching the form
// keys are stored under.
func Normalize(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Len reports the number of distinct keys stored.
func (ix *Index) Len() int {
	return ix.size
}

// Insert stores a page under the normalized form of name. Inserting an
// existing key overwrites its page (last write wins).
func (ix *Index) Insert(name string, page int) {
	key := Normalize(name)
	if key == "" {
		return
	}
	if ix.root == nil {
		ix.root = &node{key: key, page: page}
		ix.size++
		return
	}
	n := ix.root
	for {
		switch {
		case key == n.key:
			n.page = page
			return
		case key < n.key:
			if n.left == nil {
				n.left = &node{key: key, page: page}
				ix.size++
				return
			}
			n = n.left
		default:
			if n.right == nil {
				n.right = &node{key: key, page: page}
				ix.size++
				return
			}
			n = n.right
		}
	}
}

// Find resolves a query to a page. A node whose key contains the query as
// a substring wins; otherwise the walk descends lexicographically and the
// page of the node it stops at is returned as a best-effort fallback.
// Callers use the result for convenience paging only, so the approximate
// fallback is intentional and must not be tightened into a nearest-key
// search.
func (ix *Index) Find(query string) (int, bool) {
	if ix.root == nil {
		return 0, false
	}
	query = Normalize(query)
	if query == "" {
		return 0, false
	}
	n := ix.root
	for {
		if strings.Contains(n.key, query) {
			return n.page, true
		}
		if query > n.key && n.right != nil {
			n = n.right
			continue
		}
		if query < n.key && n.left != nil {
			n = n.left
			continue
		}
		return n.page, true
	}
}
