// Package shadow detects cultural-trauma themes in free text.
// Detection is deterministic phrase matching; there is no classifier.
package shadow

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/textmatch"
)

//go:embed defaults/shadow.yaml
var defaultYAML []byte

// categoryOrder fixes the order triggers are reported in.
var categoryOrder = []model.TriggerID{
	model.TriggerSuppression,
	model.TriggerIntergenerational,
	model.TriggerFragmentation,
	model.TriggerDisconnection,
}

// CultureResources lists healing resources and modalities for a culture.
type CultureResources struct {
	Resources  []string `yaml:"resources"`
	Modalities []string `yaml:"modalities"`
}

// ReadinessPhrases groups the phrases that move readiness.
type ReadinessPhrases struct {
	HelpSeeking []string `yaml:"help_seeking"`
	Curiosity   []string `yaml:"curiosity"`
	Resistance  []string `yaml:"resistance"`
}

// Document is the on-disk shape of a shadow phrase file.
type Document struct {
	Triggers        map[model.TriggerID][]string `yaml:"triggers"`
	Readiness       ReadinessPhrases             `yaml:"readiness"`
	Guidance        map[model.TriggerID]string   `yaml:"guidance"`
	DefaultGuidance string                       `yaml:"default_guidance"`
	Safeguards      []string                     `yaml:"safeguards"`
	Cultures        map[string]CultureResources  `yaml:"cultures"`
	DefaultCulture  CultureResources             `yaml:"default_culture"`
}

// Matcher scores free text against precompiled phrase sets.
// It holds only immutable data and is safe for concurrent use.
type Matcher struct {
	triggers    map[model.TriggerID]textmatch.PhraseSet
	helpSeeking textmatch.PhraseSet
	curiosity   textmatch.PhraseSet
	resistance  textmatch.PhraseSet
	scoring     Scoring
	doc         Document
}

// New compiles a phrase document with the given scoring.
func New(doc Document, scoring Scoring) (*Matcher, error) {
	if err := scoring.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shadow scoring: %w", err)
	}
	m := &Matcher{
		triggers: make(map[model.TriggerID]textmatch.PhraseSet, len(categoryOrder)),
		scoring:  scoring,
		doc:      doc,
	}
	for id := range doc.Triggers {
		if !knownTrigger(id) {
			return nil, fmt.Errorf("unknown trigger category %q", id)
		}
	}
	for _, id := range categoryOrder {
		m.triggers[id] = textmatch.NewPhraseSet(doc.Triggers[id]...)
	}
	m.helpSeeking = textmatch.NewPhraseSet(doc.Readiness.HelpSeeking...)
	m.curiosity = textmatch.NewPhraseSet(doc.Readiness.Curiosity...)
	m.resistance = textmatch.NewPhraseSet(doc.Readiness.Resistance...)
	return m, nil
}

// Parse decodes YAML phrase tables.
func Parse(data []byte, scoring Scoring) (*Matcher, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse shadow phrases: %w", err)
	}
	return New(doc, scoring)
}

// NewDefault returns a Matcher over the built-in phrases and default scoring.
func NewDefault() *Matcher {
	m, err := Parse(defaultYAML, DefaultScoring())
	if err != nil {
		panic(fmt.Sprintf("shadow: built-in phrases are invalid: %v", err))
	}
	return m
}

// DefaultYAML returns the built-in phrase source.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

// DefaultPath returns ~/.wisdomgate/shadow.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wisdomgate", "shadow.yaml")
}

// Load reads phrase tables from path. An empty path means DefaultPath;
// a missing file yields the built-in phrases.
func Load(path string, scoring Scoring) (*Matcher, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return Parse(data, scoring)
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read shadow phrases: %w", err)
		}
	}
	return Parse(defaultYAML, scoring)
}

// Scoring returns the constants the matcher was built with.
func (m *Matcher) Scoring() Scoring { return m.scoring }

// Assess scans text for trigger categories. Each category contributes at
// most one trigger. Trauma markers extend the suppression and
// intergenerational categories for this call only. Returns nil when no
// category matched.
func (m *Matcher) Assess(text string, trauma *model.TraumaContext) *model.ShadowAssessment {
	folded := textmatch.Fold(text)

	var extra map[model.TriggerID]textmatch.PhraseSet
	if trauma != nil {
		extra = map[model.TriggerID]textmatch.PhraseSet{
			model.TriggerSuppression:       textmatch.NewPhraseSet(trauma.SuppressionMarkers...),
			model.TriggerIntergenerational: textmatch.NewPhraseSet(trauma.IntergenerationalMarkers...),
		}
	}

	var triggers []model.TriggerID
	for _, id := range categoryOrder {
		_, hit := m.triggers[id].Match(folded)
		if !hit {
			_, hit = extra[id].Match(folded)
		}
		if hit {
			triggers = append(triggers, id)
		}
	}
	if len(triggers) == 0 {
		return nil
	}

	return &model.ShadowAssessment{
		Triggers:   triggers,
		Severity:   m.scoring.SeverityFor(len(triggers)),
		Readiness:  m.readiness(folded),
		Guidance:   m.guidanceFor(triggers[0]),
		Safeguards: append([]string(nil), m.doc.Safeguards...),
	}
}

// AssessFor runs Assess with the profile's trauma context and adds the
// resources, modalities and strengths for its primary culture.
func (m *Matcher) AssessFor(text string, profile model.CulturalProfile) *model.ShadowAssessment {
	a := m.Assess(text, profile.TraumaContext)
	if a == nil {
		return nil
	}
	res, ok := m.doc.Cultures[profile.PrimaryCulture]
	if !ok {
		res = m.doc.DefaultCulture
	}
	a.Resources = append([]string(nil), res.Resources...)
	a.Modalities = append([]string(nil), res.Modalities...)
	if len(profile.Strengths) > 0 {
		a.Guidance += " Your cultural heritage offers these strengths for your healing: " +
			strings.Join(profile.Strengths, ", ") + "."
	}
	return a
}

// Readiness scores text on its own, without requiring a trigger.
func (m *Matcher) Readiness(text string) float64 {
	return m.readiness(textmatch.Fold(text))
}

// readiness applies each polarity group at most once, then clamps.
func (m *Matcher) readiness(folded string) float64 {
	r := m.scoring.BaseReadiness
	if _, ok := m.helpSeeking.Match(folded); ok {
		r += m.scoring.HelpSeeking
	}
	if _, ok := m.curiosity.Match(folded); ok {
		r += m.scoring.Curiosity
	}
	if _, ok := m.resistance.Match(folded); ok {
		r -= m.scoring.Resistance
	}
	return m.scoring.clamp(r)
}

func (m *Matcher) guidanceFor(id model.TriggerID) string {
	if g, ok := m.doc.Guidance[id]; ok && g != "" {
		return g
	}
	return m.doc.DefaultGuidance
}

func knownTrigger(id model.TriggerID) bool {
	for _, c := range categoryOrder {
		if c == id {
			return true
		}
	}
	return false
}
