// Package profile defines agent profiles: the per-agent configuration a call
// is bridged with (provider, instructions, voice).
//
// Profiles are immutable once fetched. A Store is consulted once per call,
// before any model connection is made.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no profile exists for an agent ID.
var ErrNotFound = errors.New("profile: not found")

// ErrInvalid is wrapped by validation failures.
var ErrInvalid = errors.New("profile: invalid")

// ProviderOpenAI is the only model provider the bridge can dial.
const ProviderOpenAI = "openai"

// Profile is the configuration of one voice agent.
type Profile struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name,omitempty" json:"name,omitempty"`
	Provider     string   `yaml:"provider" json:"provider"`
	Instructions string   `yaml:"instructions" json:"instructions"`
	Voice        string   `yaml:"voice,omitempty" json:"voice,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

// Validate checks that p can be stored and served.
func (p *Profile) Validate() error {
	if err := ValidateID(p.ID); err != nil {
		return err
	}
	if p.Provider == "" {
		return fmt.Errorf("%w: %s: provider is required", ErrInvalid, p.ID)
	}
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return fmt.Errorf("%w: %s: temperature %v out of range", ErrInvalid, p.ID, *p.Temperature)
	}
	return nil
}

// ValidateID checks that id is usable as a storage name.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty id", ErrInvalid)
	case strings.ContainsAny(id, "/\\:"), strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: id %q", ErrInvalid, id)
	}
	return nil
}

// Store looks up agent profiles.
type Store interface {
	// Get returns the profile for agentID, or an error wrapping ErrNotFound.
	Get(ctx context.Context, agentID string) (*Profile, error)
}

// Manager is a Store that can also be edited.
type Manager interface {
	Store
	Put(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, agentID string) error
	List(ctx context.Context) ([]*Profile, error)
}
