// Package profile resolves a requester id to a CulturalProfile.
package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wisdomgate/internal/model"
)

// ErrNotFound is returned when a provider has no profile for a requester.
var ErrNotFound = errors.New("profile not found")

// Provider looks up cultural profiles. Implementations must honor ctx.
type Provider interface {
	Lookup(ctx context.Context, requesterID string) (model.CulturalProfile, error)
}

// Static is an in-memory provider. It is never mutated after construction.
type Static struct {
	profiles map[string]model.CulturalProfile
}

// NewStatic builds a provider from profiles keyed by RequesterID.
// Profiles without a requester id are rejected.
func NewStatic(profiles ...model.CulturalProfile) (*Static, error) {
	s := &Static{profiles: make(map[string]model.CulturalProfile, len(profiles))}
	for i, p := range profiles {
		if p.RequesterID == "" {
			return nil, fmt.Errorf("profile %d: requester_id is required", i)
		}
		s.profiles[p.RequesterID] = p
	}
	return s, nil
}

// Lookup returns the profile for requesterID or ErrNotFound.
func (s *Static) Lookup(ctx context.Context, requesterID string) (model.CulturalProfile, error) {
	if err := ctx.Err(); err != nil {
		return model.CulturalProfile{}, err
	}
	p, ok := s.profiles[requesterID]
	if !ok {
		return model.CulturalProfile{}, ErrNotFound
	}
	return p, nil
}

// IDs returns the stored requester ids, sorted.
func (s *Static) IDs() []string {
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// fileDocument is the on-disk shape of a profiles file.
type fileDocument struct {
	Profiles []model.CulturalProfile `yaml:"profiles"`
}

// DefaultPath returns ~/.wisdomgate/profiles.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wisdomgate", "profiles.yaml")
}

// LoadFile reads a YAML profiles file into a Static provider.
// An empty path means DefaultPath; a missing file yields an empty provider.
func LoadFile(path string) (*Static, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return NewStatic()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStatic()
		}
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	return NewStatic(doc.Profiles...)
}

// Chain tries providers in order and returns the first hit.
// ErrNotFound moves on to the next provider; any other error stops the chain.
type Chain []Provider

// Lookup implements Provider.
func (c Chain) Lookup(ctx context.Context, requesterID string) (model.CulturalProfile, error) {
	for _, p := range c {
		if p == nil {
			continue
		}
		prof, err := p.Lookup(ctx, requesterID)
		if err == nil {
			return prof, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return model.CulturalProfile{}, err
		}
	}
	return model.CulturalProfile{}, ErrNotFound
}
