package ledger

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the full state for the persistence layer.
func (s *State) Encode() ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return raw, nil
}

// Decode restores a state previously produced by Encode.
func Decode(raw []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if s.Status == "" {
		s.Status = StatusSetup
	}
	if s.IdempotencyKeys == nil {
		s.IdempotencyKeys = make(map[string]bool)
	}
	return &s, nil
}
