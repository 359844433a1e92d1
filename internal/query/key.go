package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Key identifies a cached read, e.g. Key{"quizzes", page, limit, title}.
// Keys compare structurally: pointers are dereferenced, nil pointers equal
// nil, and trailing nils are dropped, so an absent filter and a nil one
// land in the same slot.
type Key []any

// Hash is the canonical string form of the key.
func (k Key) Hash() string {
	return "[" + strings.Join(k.parts(), ",") + "]"
}

// HasPrefix reports whether prefix matches the leading elements of k.
func (k Key) HasPrefix(prefix Key) bool {
	return hasPrefix(k.parts(), prefix.parts())
}

func (k Key) String() string {
	return k.Hash()
}

func (k Key) parts() []string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = encodePart(v)
	}
	for len(parts) > 0 && parts[len(parts)-1] == "null" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}

func encodePart(v any) string {
	v = deref(v)
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprintf("%#v", v))
	}
	return string(b)
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}
