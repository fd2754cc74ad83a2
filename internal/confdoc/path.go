package confdoc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPath is returned when a path cannot be walked or written.
var ErrInvalidPath = errors.New("confdoc: invalid path")

// Path addresses a node inside a Document. Array elements are addressed by
// their decimal index.
type Path []string

// ParsePath splits a dotted path ("agents.defaults.model").
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "."))
}

// String renders the path in dotted form.
func (p Path) String() string { return strings.Join(p, ".") }

// Get returns the value at path.
func Get(doc Document, path ...string) (any, bool) {
	var cur any = doc
	for _, seg := range path {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// GetMap returns the object at path, or nil when absent or not an object.
func GetMap(doc Document, path ...string) map[string]any {
	v, ok := Get(doc, path...)
	if !ok {
		return nil
	}
	return AsMap(v)
}

// Set writes value at path in place, creating intermediate objects as
// needed. Intermediate scalars are replaced by objects; array segments must
// address an existing element.
func Set(doc Document, value any, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	var cur any = doc
	for i, seg := range path {
		last := i == len(path)-1
		switch node := cur.(type) {
		case map[string]any:
			if last {
				node[seg] = CloneValue(value)
				return nil
			}
			next := node[seg]
			if AsMap(next) == nil && AsSlice(next) == nil {
				next = map[string]any{}
			}
			next = Normalize(next)
			node[seg] = next
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("%w: %s: index %q out of range", ErrInvalidPath, Path(path[:i+1]), seg)
			}
			if last {
				node[idx] = CloneValue(value)
				return nil
			}
			next := node[idx]
			if AsMap(next) == nil && AsSlice(next) == nil {
				next = map[string]any{}
			}
			next = Normalize(next)
			node[idx] = next
			cur = next
		default:
			return fmt.Errorf("%w: %s", ErrInvalidPath, Path(path[:i]))
		}
	}
	return nil
}

// Delete removes the value at path in place. Removing an array element
// shifts the following elements. It reports whether anything was removed.
func Delete(doc Document, path ...string) bool {
	if len(path) == 0 {
		return false
	}
	parentPath, leaf := path[:len(path)-1], path[len(path)-1]
	parent, ok := Get(doc, parentPath...)
	if !ok {
		return false
	}
	switch node := parent.(type) {
	case map[string]any:
		if _, ok := node[leaf]; !ok {
			return false
		}
		delete(node, leaf)
		return true
	case []any:
		idx, err := strconv.Atoi(leaf)
		if err != nil || idx < 0 || idx >= len(node) {
			return false
		}
		trimmed := append(node[:idx:idx], node[idx+1:]...)
		if len(parentPath) == 0 {
			return false
		}
		return Set(doc, trimmed, parentPath...) == nil
	default:
		return false
	}
}
