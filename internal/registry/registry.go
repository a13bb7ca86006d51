// Package registry holds the protection record of every known tradition.
// A Registry is built once and is read-only afterwards, so lookups are safe
// from any number of goroutines.
package registry

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/textmatch"
)

//go:embed defaults/protection.yaml
var defaultYAML []byte

// Document is the on-disk shape of a registry file.
type Document struct {
	DefaultReciprocity model.Reciprocity       `yaml:"default_reciprocity"`
	Traditions         []model.ProtectionRecord `yaml:"traditions"`
}

// Registry maps tradition ids to protection records.
type Registry struct {
	records            map[string]model.ProtectionRecord
	ids                []string
	members            map[string]textmatch.PhraseSet
	defaultReciprocity model.Reciprocity
	hash               string
}

// New validates a document and builds a Registry.
// Every record needs a unique id and a known level, and a closed
// tradition must require permission.
func New(doc Document) (*Registry, error) {
	r := &Registry{
		records:            make(map[string]model.ProtectionRecord, len(doc.Traditions)),
		members:            make(map[string]textmatch.PhraseSet, len(doc.Traditions)),
		defaultReciprocity: doc.DefaultReciprocity,
	}

	for i, rec := range doc.Traditions {
		id := strings.TrimSpace(rec.TraditionID)
		if id == "" {
			return nil, fmt.Errorf("tradition %d: id is required", i)
		}
		if _, dup := r.records[id]; dup {
			return nil, fmt.Errorf("tradition %q: duplicate id", id)
		}
		level, err := model.ParseLevel(string(rec.Level))
		if err != nil {
			return nil, fmt.Errorf("tradition %q: %w", id, err)
		}
		if level == model.Closed && !rec.RequiresPermission {
			return nil, fmt.Errorf("tradition %q: closed level requires requires_permission", id)
		}
		rec.TraditionID = id
		rec.Level = level
		if rec.Name == "" {
			rec.Name = id
		}

		r.records[id] = rec
		r.ids = append(r.ids, id)
		r.members[id] = textmatch.NewPhraseSet(rec.MembershipKeywords...)
	}
	sort.Strings(r.ids)

	if r.defaultReciprocity.Guidance == "" {
		r.defaultReciprocity.Guidance = "Consider supporting the cultural preservation and community development of the originating tradition."
	}
	return r, nil
}

// Parse decodes YAML registry data and builds a Registry.
func Parse(data []byte) (*Registry, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse protection registry: %w", err)
	}
	r, err := New(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid protection registry: %w", err)
	}
	r.hash = hashBytes(data)
	return r, nil
}

// NewDefault returns the built-in registry.
func NewDefault() *Registry {
	r, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("registry: built-in protection registry is invalid: %v", err))
	}
	return r
}

// DefaultYAML returns the built-in registry source.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

// DefaultPath returns ~/.wisdomgate/protection.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wisdomgate", "protection.yaml")
}

// Load reads a registry file. An empty path means DefaultPath.
// A missing file yields the built-in registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return NewDefault(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return nil, fmt.Errorf("failed to read protection registry: %w", err)
	}
	return Parse(data)
}

// Lookup returns the record for traditionID.
func (r *Registry) Lookup(traditionID string) (model.ProtectionRecord, bool) {
	rec, ok := r.records[traditionID]
	return rec, ok
}

// Traditions returns all registered ids, sorted.
func (r *Registry) Traditions() []string {
	return append([]string(nil), r.ids...)
}

// Len returns the number of registered traditions.
func (r *Registry) Len() int { return len(r.ids) }

// IsMember reports whether background mentions any membership keyword of
// the tradition. Unknown traditions have no members.
func (r *Registry) IsMember(traditionID, background string) bool {
	ps, ok := r.members[traditionID]
	if !ok {
		return false
	}
	_, hit := ps.MatchText(background)
	return hit
}

// Reciprocity returns the tradition's reciprocity guidance, or the registry
// default when the tradition declares none.
func (r *Registry) Reciprocity(traditionID string) model.Reciprocity {
	if rec, ok := r.records[traditionID]; ok && rec.Reciprocity.Guidance != "" {
		return rec.Reciprocity
	}
	return r.defaultReciprocity
}

// Consultants returns the cultural authorities listed for a tradition.
func (r *Registry) Consultants(traditionID string) []string {
	rec, ok := r.records[traditionID]
	if !ok {
		return nil
	}
	return append([]string(nil), rec.Consultants...)
}

// Hash returns "sha256:<hex>" of the source the registry was parsed from,
// or an empty string for registries built directly with New.
func (r *Registry) Hash() string { return r.hash }

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
