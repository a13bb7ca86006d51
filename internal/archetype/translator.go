// Package archetype translates universal concepts into tradition-specific
// expressions. Tables are loaded once and never mutated, so a Translator is
// safe for concurrent use and every translation is deterministic.
package archetype

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

//go:embed defaults/archetypes.yaml
var defaultYAML []byte

// Concept is the universal description of an archetype.
type Concept struct {
	Description   string   `yaml:"description" json:"description"`
	Qualities     []string `yaml:"qualities" json:"qualities"`
	ShadowAspects []string `yaml:"shadow_aspects" json:"shadow_aspects"`
}

// System is one tradition's set of expressions.
type System struct {
	ID            string                               `yaml:"id"`
	Name          string                               `yaml:"name"`
	Attribution   string                               `yaml:"attribution"`
	Notes         []string                             `yaml:"notes"`
	Expressions   map[string]model.ArchetypeExpression `yaml:"expressions"`
	Supplementary []model.ArchetypeExpression          `yaml:"supplementary"`
}

// Document is the on-disk shape of an archetype table file.
type Document struct {
	Concepts   map[string]Concept               `yaml:"concepts"`
	Threads    []string                         `yaml:"threads"`
	Framings   map[model.ProtectionLevel]string `yaml:"framings"`
	Traditions []System                         `yaml:"traditions"`
}

// Translation is the result of Translate. Expression is nil when the
// tradition has nothing close enough; Guidance is always set.
type Translation struct {
	Concept         string                     `json:"concept"`
	TraditionID     string                     `json:"tradition_id"`
	Expression      *model.ArchetypeExpression `json:"expression,omitempty"`
	NearestAnalogue bool                       `json:"nearest_analogue,omitempty"`
	Guidance        string                     `json:"guidance"`
}

// Translator resolves (concept, tradition) pairs.
type Translator struct {
	concepts map[string]Concept
	systems  map[string]System
	ids      []string
	threads  []string
	framings map[model.ProtectionLevel]string
	hash     string
}

// New validates a document and builds a Translator.
func New(doc Document) (*Translator, error) {
	t := &Translator{
		concepts: make(map[string]Concept, len(doc.Concepts)),
		systems:  make(map[string]System, len(doc.Traditions)),
		threads:  append([]string(nil), doc.Threads...),
		framings: make(map[model.ProtectionLevel]string, len(doc.Framings)),
	}
	for name, c := range doc.Concepts {
		key := textmatch.Fold(name)
		if key == "" {
			return nil, fmt.Errorf("concept with empty name")
		}
		if len(c.Qualities) == 0 {
			return nil, fmt.Errorf("concept %q: qualities are required", name)
		}
		t.concepts[key] = c
	}
	for level, f := range doc.Framings {
		if !level.Valid() {
			return nil, fmt.Errorf("framing for unknown level %q", level)
		}
		t.framings[level] = f
	}
	for i, s := range doc.Traditions {
		if s.ID == "" {
			return nil, fmt.Errorf("tradition %d: id is required", i)
		}
		if _, dup := t.systems[s.ID]; dup {
			return nil, fmt.Errorf("tradition %q: duplicate id", s.ID)
		}
		exprs := make(map[string]model.ArchetypeExpression, len(s.Expressions))
		for concept, e := range s.Expressions {
			key := textmatch.Fold(concept)
			if _, ok := t.concepts[key]; !ok {
				return nil, fmt.Errorf("tradition %q: expression for unknown concept %q", s.ID, concept)
			}
			if e.CulturalName == "" {
				return nil, fmt.Errorf("tradition %q: %s expression has no cultural_name", s.ID, concept)
			}
			exprs[key] = e
		}
		s.Expressions = exprs
		if s.Name == "" {
			s.Name = s.ID
		}
		t.systems[s.ID] = s
		t.ids = append(t.ids, s.ID)
	}
	sort.Strings(t.ids)
	return t, nil
}

// Parse decodes YAML archetype tables.
func Parse(data []byte) (*Translator, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse archetype tables: %w", err)
	}
	t, err := New(doc)
	if err != nil {
		return nil, fmt.Errorf("invalid archetype tables: %w", err)
	}
	h := sha256.Sum256(data)
	t.hash = "sha256:" + hex.EncodeToString(h[:])
	return t, nil
}

// NewDefault returns a Translator over the built-in tables.
func NewDefault() *Translator {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("archetype: built-in tables are invalid: %v", err))
	}
	return t
}

// DefaultYAML returns the built-in table source.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

// DefaultPath returns ~/.wisdomgate/archetypes.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wisdomgate", "archetypes.yaml")
}

// Load reads archetype tables from path. An empty path means DefaultPath;
// a missing file yields the built-in tables.
func Load(path string) (*Translator, error) {
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
		return nil, fmt.Errorf("failed to read archetype tables: %w", err)
	}
	return Parse(data)
}

// Translate resolves concept for traditionID.
//
// Resolution order:
//  1. Exact expression for (concept, tradition)
//  2. First supplementary role sharing a quality with the concept
//  3. No expression; guidance points at the universal description
func (t *Translator) Translate(concept, traditionID string) Translation {
	key := textmatch.Fold(concept)
	out := Translation{Concept: key, TraditionID: traditionID}

	universal, known := t.concepts[key]
	if !known {
		out.Guidance = fmt.Sprintf("Concept %q is not a recognized universal archetype.", concept)
		return out
	}

	sys, ok := t.systems[traditionID]
	if !ok {
		out.Guidance = fmt.Sprintf("Cultural archetype system for %q not available. %s", traditionID, universalGuidance(key, universal))
		return out
	}

	// Step 1: Exact expression
	if e, ok := sys.Expressions[key]; ok {
		out.Expression = e.Clone()
		out.Guidance = cultureGuidance(sys, e)
		return out
	}

	// Step 2: Supplementary roles in declared order
	canonical := textmatch.NewPhraseSet(universal.Qualities...)
	for _, role := range sys.Supplementary {
		if sharesQuality(role.SacredQualities, canonical) {
			out.Expression = role.Clone()
			out.NearestAnalogue = true
			out.Guidance = fmt.Sprintf("No direct correspondence found, but %s shares similar qualities. %s",
				role.CulturalName, cultureGuidance(sys, role))
			return out
		}
	}

	// Step 3: Universal fallback
	out.Guidance = fmt.Sprintf("No %s correspondence in %s. %s", key, sys.Name, universalGuidance(key, universal))
	return out
}

// TraditionsFor returns the sorted ids of traditions that yield an
// expression (exact or analogue) for concept.
func (t *Translator) TraditionsFor(concept string) []string {
	var ids []string
	for _, id := range t.ids {
		if t.Translate(concept, id).Expression != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Traditions returns every tradition with an archetype system, sorted.
func (t *Translator) Traditions() []string {
	return append([]string(nil), t.ids...)
}

// Concepts returns the known universal concepts, sorted.
func (t *Translator) Concepts() []string {
	names := make([]string, 0, len(t.concepts))
	for k := range t.concepts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Universal returns the universal description of concept.
func (t *Translator) Universal(concept string) (Concept, bool) {
	c, ok := t.concepts[textmatch.Fold(concept)]
	return c, ok
}

// Attribution returns the archetype-system attribution for a tradition.
func (t *Translator) Attribution(traditionID string) string {
	return t.systems[traditionID].Attribution
}

// TraditionName returns the display name of a tradition, or its id.
func (t *Translator) TraditionName(traditionID string) string {
	if s, ok := t.systems[traditionID]; ok {
		return s.Name
	}
	return traditionID
}

// Label returns the short tradition name used inside sentences
// ("Celtic" for "Celtic Traditions").
func (t *Translator) Label(traditionID string) string {
	return strings.TrimSuffix(t.TraditionName(traditionID), " Traditions")
}

// QuickName returns just the cultural name for an exact expression.
func (t *Translator) QuickName(concept, traditionID string) (string, bool) {
	e, ok := t.systems[traditionID].Expressions[textmatch.Fold(concept)]
	if !ok {
		return "", false
	}
	return e.CulturalName, true
}

// Framing renders the respectful framing line for a protection level.
// Unknown levels use the open framing.
func (t *Translator) Framing(level model.ProtectionLevel, traditionID string, e *model.ArchetypeExpression) string {
	if e == nil {
		return ""
	}
	f, ok := t.framings[level]
	if !ok {
		f = t.framings[model.Open]
	}
	r := strings.NewReplacer("{tradition}", t.Label(traditionID), "{name}", e.CulturalName)
	return r.Replace(f)
}

// Threads returns the universal thread keywords used to find overlap
// between traditions.
func (t *Translator) Threads() []string {
	return append([]string(nil), t.threads...)
}

// Hash returns "sha256:<hex>" of the parsed source.
func (t *Translator) Hash() string { return t.hash }

// sharesQuality reports whether any role quality equals a canonical quality
// or contains it as a whole word ("grounding wisdom" shares "grounding").
func sharesQuality(roleQualities []string, canonical textmatch.PhraseSet) bool {
	for _, q := range roleQualities {
		if _, ok := canonical.MatchText(q); ok {
			return true
		}
	}
	return false
}

func cultureGuidance(sys System, e model.ArchetypeExpression) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This wisdom comes from %s.", sys.Name)
	if len(e.AppropriateUse) > 0 {
		fmt.Fprintf(&b, " Appropriate contexts include: %s.", strings.Join(e.AppropriateUse, ", "))
	}
	if len(e.Taboos) > 0 {
		fmt.Fprintf(&b, " Please avoid: %s.", strings.Join(e.Taboos, ", "))
	}
	if len(sys.Notes) > 0 {
		b.WriteString(" " + sys.Notes[0])
	}
	return b.String()
}

func universalGuidance(name string, c Concept) string {
	return fmt.Sprintf("Use the universal %s archetype: %s Qualities: %s.",
		name, c.Description, strings.Join(c.Qualities, ", "))
}
