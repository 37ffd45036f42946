// Package scenario loads scenario definitions and graded transcripts.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/medeval/internal/model"
)

const dateLayout = "2006-01-02"

// Load reads and validates a scenario YAML file
func Load(path string) (*model.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes scenario YAML, rejecting unknown fields, then validates it
func Parse(data []byte) (*model.Scenario, error) {
	var sc model.Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := Validate(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadTranscript reads a transcript JSON file
func LoadTranscript(path string) (*model.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	var tr model.Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("parse transcript %s: %w", path, err)
	}

	if len(tr.Conversation) == 0 {
		return nil, fmt.Errorf("transcript %s has no conversation turns", path)
	}
	hasAnswer := false
	seen := make(map[string]bool, len(tr.Conversation))
	for i, turn := range tr.Conversation {
		switch turn.Role {
		case model.RoleUser, model.RoleAssistant:
		default:
			return nil, fmt.Errorf("transcript %s: turn %d has unknown role %q", path, i, turn.Role)
		}
		if turn.TurnID != "" {
			if seen[turn.TurnID] {
				return nil, fmt.Errorf("transcript %s: duplicate turn_id %q", path, turn.TurnID)
			}
			seen[turn.TurnID] = true
		}
		if turn.Role == model.RoleAssistant {
			hasAnswer = true
		}
	}
	if !hasAnswer {
		return nil, fmt.Errorf("transcript %s has no assistant turns to grade", path)
	}

	return &tr, nil
}

// IsCurrent reports whether at falls inside the scenario's temporal validity window.
// Scenarios without a window are always current.
func IsCurrent(sc *model.Scenario, at time.Time) bool {
	tv := sc.TemporalValidity
	if tv == nil {
		return true
	}
	day := at.UTC().Format(dateLayout)
	if tv.ValidFrom != "" && day < tv.ValidFrom {
		return false
	}
	if tv.ValidUntil != "" && day > tv.ValidUntil {
		return false
	}
	return true
}
