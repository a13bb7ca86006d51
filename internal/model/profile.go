package model

// TraumaContext carries profile-specific phrases that extend shadow detection.
type TraumaContext struct {
	SuppressionMarkers       []string `yaml:"suppression_markers,omitempty" json:"suppression_markers,omitempty"`
	IntergenerationalMarkers []string `yaml:"intergenerational_markers,omitempty" json:"intergenerational_markers,omitempty"`
}

// Preferences are requester choices about the pipeline.
type Preferences struct {
	// CulturalEnhancement nil means no preference, which enhances.
	CulturalEnhancement *bool `yaml:"cultural_enhancement,omitempty" json:"cultural_enhancement,omitempty"`
}

// CulturalProfile describes a requester's cultural context.
// The core reads profiles and never mutates them.
type CulturalProfile struct {
	RequesterID        string         `yaml:"requester_id" json:"requester_id"`
	PrimaryCulture     string         `yaml:"primary_culture" json:"primary_culture"`
	CulturalIdentities []string       `yaml:"cultural_identities,omitempty" json:"cultural_identities,omitempty"`
	TraumaContext      *TraumaContext `yaml:"trauma_context,omitempty" json:"trauma_context,omitempty"`
	Strengths          []string       `yaml:"strengths,omitempty" json:"strengths,omitempty"`
	Preferences        Preferences    `yaml:"preferences,omitempty" json:"preferences"`
}

// WantsEnhancement reports whether the requester has not opted out.
func (p CulturalProfile) WantsEnhancement() bool {
	return p.Preferences.CulturalEnhancement == nil || *p.Preferences.CulturalEnhancement
}

// UniversalCulture is the primary culture of a profile with no detected context.
const UniversalCulture = "universal"

// HasIdentity reports whether id is the primary culture or one of the identities.
func (p CulturalProfile) HasIdentity(id string) bool {
	if p.PrimaryCulture == id {
		return true
	}
	for _, c := range p.CulturalIdentities {
		if c == id {
			return true
		}
	}
	return false
}

// ArchetypeExpression is a tradition-specific rendering of a universal concept.
type ArchetypeExpression struct {
	CulturalName      string   `yaml:"cultural_name" json:"cultural_name"`
	TraditionalRole   string   `yaml:"traditional_role" json:"traditional_role"`
	SacredQualities   []string `yaml:"sacred_qualities" json:"sacred_qualities"`
	ShadowWisdom      []string `yaml:"shadow_wisdom,omitempty" json:"shadow_wisdom,omitempty"`
	AppropriateUse    []string `yaml:"appropriate_use,omitempty" json:"appropriate_use,omitempty"`
	Taboos            []string `yaml:"taboos,omitempty" json:"taboos,omitempty"`
	ModernIntegration string   `yaml:"modern_integration,omitempty" json:"modern_integration,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate shared tables.
func (e ArchetypeExpression) Clone() *ArchetypeExpression {
	c := e
	c.SacredQualities = append([]string(nil), e.SacredQualities...)
	c.ShadowWisdom = append([]string(nil), e.ShadowWisdom...)
	c.AppropriateUse = append([]string(nil), e.AppropriateUse...)
	c.Taboos = append([]string(nil), e.Taboos...)
	return &c
}

// TriggerID names a shadow trigger category.
type TriggerID string

const (
	TriggerSuppression       TriggerID = "cultural_suppression"
	TriggerIntergenerational TriggerID = "intergenerational_trauma"
	TriggerFragmentation     TriggerID = "identity_fragmentation"
	TriggerDisconnection     TriggerID = "spiritual_disconnection"
)

// Severity grades a shadow assessment by trigger count.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityComplex  Severity = "complex"
)

// SeverityRank orders severities for monotonicity checks.
var SeverityRank = map[Severity]int{
	SeverityMild:     1,
	SeverityModerate: 2,
	SeveritySevere:   3,
	SeverityComplex:  4,
}

// ShadowAssessment is produced only when at least one trigger matched.
type ShadowAssessment struct {
	Triggers   []TriggerID `json:"triggers"`
	Severity   Severity    `json:"severity"`
	Readiness  float64     `json:"readiness"`
	Guidance   string      `json:"guidance,omitempty"`
	Resources  []string    `json:"resources,omitempty"`
	Safeguards []string    `json:"safeguards,omitempty"`
	Modalities []string    `json:"modalities,omitempty"`
}
