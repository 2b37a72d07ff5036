package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// TargetConfig declares one external document that traces may point to.
type TargetConfig struct {
	// ID is the key under which the target is declared.
	ID   string `json:"-" yaml:"-" toml:"-"`
	Name string `json:"name" yaml:"name" toml:"name"`

	// Source is an optional path, relative to the book root, to the target
	// document. It is only used for the coverage report.
	Source string `json:"source,omitempty" yaml:"source,omitempty" toml:"source"`
	// RecordPattern overrides the regexp used to find record ids in Source.
	RecordPattern string `json:"record-pattern,omitempty" yaml:"record-pattern,omitempty" toml:"record-pattern"`
}

// DisplayName is the name used in footnotes. It falls back to the id.
func (t TargetConfig) DisplayName() string {
	if t.Name == "" {
		return t.ID
	}
	return t.Name
}

// DuplicateTargetError reports a target id declared more than once.
type DuplicateTargetError struct {
	ID string
}

func (e *DuplicateTargetError) Error() string {
	return fmt.Sprintf("target %q is declared more than once", e.ID)
}

// Targets is the ordered set of declared targets. It decodes from an object
// keyed by target id and keeps declaration order where the format allows.
type Targets []TargetConfig

// IDs returns the declared ids in order.
func (ts Targets) IDs() []string {
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}

// Validate rejects duplicate or unusable ids.
func (ts Targets) Validate() error {
	seen := make(map[string]bool, len(ts))
	for _, t := range ts {
		if !ValidTargetID(t.ID) {
			return fmt.Errorf("invalid target id %q: use letters, digits, '_' or '-'", t.ID)
		}
		if seen[t.ID] {
			return &DuplicateTargetError{ID: t.ID}
		}
		seen[t.ID] = true
	}
	return nil
}

// ValidTargetID reports whether id can be referenced from a marker.
func ValidTargetID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

func (ts *Targets) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("targets: %w", err)
	}
	if tok == nil {
		*ts = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("targets: expected an object keyed by target id")
	}

	var out Targets
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("targets: %w", err)
		}
		id, _ := keyTok.(string)
		var t TargetConfig
		if err := dec.Decode(&t); err != nil {
			return fmt.Errorf("targets.%s: %w", id, err)
		}
		if seen[id] {
			return &DuplicateTargetError{ID: id}
		}
		seen[id] = true
		t.ID = id
		out = append(out, t)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("targets: %w", err)
	}
	*ts = out
	return nil
}

func (ts Targets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, t := range ts {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(t.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (ts *Targets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("targets: expected a mapping keyed by target id (line %d)", node.Line)
	}
	var out Targets
	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		id := node.Content[i].Value
		var t TargetConfig
		if err := node.Content[i+1].Decode(&t); err != nil {
			return fmt.Errorf("targets.%s: %w", id, err)
		}
		if seen[id] {
			return &DuplicateTargetError{ID: id}
		}
		seen[id] = true
		t.ID = id
		out = append(out, t)
	}
	*ts = out
	return nil
}

// UnmarshalTOML receives the decoded table. TOML itself rejects duplicate
// keys, and table order is not preserved, so ids are sorted.
func (ts *Targets) UnmarshalTOML(v any) error {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("targets: expected a table keyed by target id")
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(Targets, 0, len(ids))
	for _, id := range ids {
		fields, ok := m[id].(map[string]any)
		if !ok {
			return fmt.Errorf("targets.%s: expected a table", id)
		}
		t := TargetConfig{ID: id}
		if t.Name, ok = stringField(fields, "name"); !ok {
			return fmt.Errorf("targets.%s.name: expected a string", id)
		}
		if t.Source, ok = stringField(fields, "source"); !ok {
			return fmt.Errorf("targets.%s.source: expected a string", id)
		}
		if t.RecordPattern, ok = stringField(fields, "record-pattern"); !ok {
			return fmt.Errorf("targets.%s.record-pattern: expected a string", id)
		}
		out = append(out, t)
	}
	*ts = out
	return nil
}

func stringField(m map[string]any, key string) (string, bool) {
	v, present := m[key]
	if !present {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}
