package ir

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MemoryState is the persisted state of the memory manager.
type MemoryState struct {
	Threshold float64      `json:"threshold" yaml:"threshold"`
	Streak    int          `json:"streak" yaml:"streak"`
	History   []Adjustment `json:"history,omitempty" yaml:"history,omitempty"`
	Outcomes  []Outcome    `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	Core      []CoreMemory `json:"core,omitempty" yaml:"core,omitempty"`
}

// Snapshot is the complete persisted state of one engine instance.
//
// Round-tripping a snapshot must reproduce identical catalog contents,
// identical decision log order and an identical threshold value.
type Snapshot struct {
	Version    string                         `json:"version" yaml:"version"`
	Patterns   []PatternRecord                `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Philosophy map[Topic]map[string]FactValue `json:"philosophy,omitempty" yaml:"philosophy,omitempty"`
	Decisions  []DecisionRecord               `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	Memory     MemoryState                    `json:"memory" yaml:"memory"`
}

// LastSeq returns the highest decision seq in the snapshot, or 0.
func (s *Snapshot) LastSeq() int64 {
	var last int64
	for _, d := range s.Decisions {
		if d.Seq > last {
			last = d.Seq
		}
	}
	return last
}

// EncodeSnapshot renders a snapshot as YAML.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot parses a YAML snapshot and checks its version.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version == "" {
		return nil, NewInvalidInput("decode snapshot", "snapshot version is missing")
	}
	if s.Version != SnapshotVersion {
		return nil, NewInvalidInput("decode snapshot",
			fmt.Sprintf("unsupported snapshot version %q (want %q)", s.Version, SnapshotVersion))
	}
	return &s, nil
}
