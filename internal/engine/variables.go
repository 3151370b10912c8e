package engine

import (
	"regexp"
	"sort"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)

// VariableStore holds the string variables captured during one run. It is
// owned by a single run and is not safe for concurrent use.
type VariableStore struct {
	values map[string]string
}

// NewVariableStore returns an empty store.
func NewVariableStore() *VariableStore {
	return &VariableStore{values: make(map[string]string)}
}

// Set stores value under name, replacing any previous value.
func (s *VariableStore) Set(name, value string) {
	s.values[name] = value
}

// Get returns the value stored under name.
func (s *VariableStore) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns the stored names in sorted order.
func (s *VariableStore) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the stored values.
func (s *VariableStore) Snapshot() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Interpolate replaces ${name} with stored values. Unknown names are left as written.
func (s *VariableStore) Interpolate(text string) string {
	if len(s.values) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		if v, ok := s.values[name]; ok {
			return v
		}
		return m
	})
}
