package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/arbiter/internal/ir"
)

// marshalJSON encodes v as compact JSON TEXT without HTML escaping.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline.
	return strings.TrimSpace(buf.String()), nil
}

func marshalPhases(phases []ir.Phase) (string, error) {
	if len(phases) == 0 {
		return "[]", nil
	}
	s, err := marshalJSON(phases)
	if err != nil {
		return "", fmt.Errorf("marshal phases: %w", err)
	}
	return s, nil
}

func unmarshalPhases(data string) ([]ir.Phase, error) {
	if data == "" || data == "[]" || data == "null" {
		return nil, nil
	}
	var phases []ir.Phase
	if err := json.Unmarshal([]byte(data), &phases); err != nil {
		return nil, fmt.Errorf("unmarshal phases: %w", err)
	}
	return phases, nil
}

func marshalFact(v ir.FactValue) (string, error) {
	s, err := marshalJSON(v)
	if err != nil {
		return "", fmt.Errorf("marshal fact: %w", err)
	}
	return s, nil
}

func unmarshalFact(data string) (ir.FactValue, error) {
	var v ir.FactValue
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return ir.FactValue{}, fmt.Errorf("unmarshal fact: %w", err)
	}
	return v, nil
}

// Timestamps are stored as Unix nanoseconds and read back in UTC.
func timeToNanos(t time.Time) int64 {
	return t.UnixNano()
}

func nanosToTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
