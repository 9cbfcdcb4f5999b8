package jsontree

import "strings"

// Visitor is called for every object member during Walk. Returning false
// skips the member's subtree.
type Visitor func(path []string, key string, value Value) bool

// Walk visits object members depth-first in document order. Array elements
// are descended into but do not produce a visit of their own.
func Walk(v Value, fn Visitor) {
	walk(v, nil, fn)
}

func walk(v Value, path []string, fn Visitor) {
	switch v.kind {
	case Array:
		for _, item := range v.items {
			walk(item, path, fn)
		}
	case Object:
		for _, f := range v.fields {
			if !fn(path, f.Key, f.Value) {
				continue
			}
			walk(f.Value, append(path[:len(path):len(path)], f.Key), fn)
		}
	}
}

// HasAnyKey reports whether any member at any depth has a lower-cased name in keys.
func HasAnyKey(v Value, keys map[string]struct{}) bool {
	found := false
	Walk(v, func(_ []string, key string, _ Value) bool {
		if found {
			return false
		}
		if _, ok := keys[strings.ToLower(key)]; ok {
			found = true
			return false
		}
		return true
	})
	return found
}

// FindString returns the first non-blank string member named key (compared
// case-insensitively), searching depth-first in document order.
func FindString(v Value, key string) (string, bool) {
	var (
		out   string
		found bool
	)
	Walk(v, func(_ []string, k string, member Value) bool {
		if found {
			return false
		}
		if strings.EqualFold(k, key) {
			if s, ok := member.Str(); ok && strings.TrimSpace(s) != "" {
				out = strings.TrimSpace(s)
				found = true
				return false
			}
		}
		return true
	})
	return out, found
}
