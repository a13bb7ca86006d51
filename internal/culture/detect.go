// Package culture derives a CulturalProfile from free text and profile hints.
package culture

import (
	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/registry"
	"github.com/ppiankov/wisdomgate/internal/textmatch"
)

// cultureRule defines keyword detection and defaults for a single culture.
type cultureRule struct {
	ID        string
	Keywords  []string
	Strengths []string
	Trauma    *model.TraumaContext
}

// detectionRules are checked in order; the first hit becomes the primary
// culture when no hint names one. Deterministic keyword matching only.
var detectionRules = []cultureRule{
	{
		ID:        "native_american",
		Keywords:  []string{"medicine wheel", "four directions", "sweat lodge", "tribal", "nation"},
		Strengths: []string{"connection to nature", "community wisdom", "ceremonial healing", "ancestral guidance"},
		Trauma: &model.TraumaContext{
			SuppressionMarkers:       []string{"ceremony prohibition", "language prohibition", "boarding school", "boarding schools"},
			IntergenerationalMarkers: []string{"disconnection from tradition", "language loss", "spiritual suppression"},
		},
	},
	{
		ID:        "african_american",
		Keywords:  []string{"african american", "black american", "great migration"},
		Strengths: []string{"community resilience", "spiritual depth", "creative expression", "survival wisdom"},
		Trauma: &model.TraumaContext{
			SuppressionMarkers:       []string{"spiritual practice suppression", "cultural identity denial", "ancestral connection loss"},
			IntergenerationalMarkers: []string{"cultural disconnection", "ancestral knowledge loss", "community fragmentation"},
		},
	},
	{
		ID:        "african_traditional",
		Keywords:  []string{"ubuntu", "orisha", "ancestral", "ancestors"},
		Strengths: []string{"community support", "ancestral wisdom", "rhythmic healing", "collective strength"},
	},
	{
		ID:        "celtic",
		Keywords:  []string{"druid", "nature spirits", "tree of life", "samhain", "beltane"},
		Strengths: []string{"nature connection", "storytelling wisdom", "seasonal awareness", "mystical insight"},
	},
	{
		ID:        "hindu",
		Keywords:  []string{"dharma", "karma", "chakra", "yoga", "vedic", "sanskrit"},
		Strengths: []string{"spiritual discipline", "cosmic perspective", "ethical framework", "devotional practice"},
	},
	{
		ID:        "buddhist",
		Keywords:  []string{"meditation", "mindfulness", "buddha", "sangha"},
		Strengths: []string{"compassion cultivation", "mindfulness mastery", "suffering transformation", "wisdom seeking"},
	},
	{
		ID:        "taoist",
		Keywords:  []string{"qi", "chi", "yin yang", "tao", "wu wei"},
		Strengths: []string{"balance philosophy", "harmony seeking", "elder respect"},
	},
	{
		ID:       "islamic",
		Keywords: []string{"allah", "quran", "sufi"},
	},
	{
		ID:       "judaic",
		Keywords: []string{"tikkun olam", "torah", "covenant"},
	},
}

// universalStrengths are used when nothing cultural was detected.
var universalStrengths = []string{"adaptability", "openness", "integration"}

type compiledRule struct {
	cultureRule
	set textmatch.PhraseSet
}

// Detector matches text against culture keywords. Registered traditions
// contribute their membership keywords. Safe for concurrent use.
type Detector struct {
	rules []compiledRule
}

// New builds a Detector. A nil registry means the built-in registry.
func New(reg *registry.Registry) *Detector {
	if reg == nil {
		reg = registry.NewDefault()
	}
	d := &Detector{}
	seen := make(map[string]bool)
	for _, r := range detectionRules {
		keywords := append([]string(nil), r.Keywords...)
		if rec, ok := reg.Lookup(r.ID); ok {
			keywords = append(keywords, rec.MembershipKeywords...)
		}
		d.rules = append(d.rules, compiledRule{cultureRule: r, set: textmatch.NewPhraseSet(keywords...)})
		seen[r.ID] = true
	}
	for _, id := range reg.Traditions() {
		if seen[id] {
			continue
		}
		rec, _ := reg.Lookup(id)
		d.rules = append(d.rules, compiledRule{
			cultureRule: cultureRule{ID: id},
			set:         textmatch.NewPhraseSet(rec.MembershipKeywords...),
		})
	}
	return d
}

// Cultures returns the culture ids the detector knows, in match order.
func (d *Detector) Cultures() []string {
	ids := make([]string, len(d.rules))
	for i, r := range d.rules {
		ids[i] = r.ID
	}
	return ids
}

// Detect builds a profile from text. Hint fields win over detected ones
// and a hint's identities are kept as declared; the hint itself is never
// modified. Text detection only fills the primary culture, strengths and
// trauma context.
func (d *Detector) Detect(text string, hint *model.CulturalProfile) model.CulturalProfile {
	folded := textmatch.Fold(text)

	var detected []string
	for _, r := range d.rules {
		if _, ok := r.set.Match(folded); ok {
			detected = append(detected, r.ID)
		}
	}

	var p model.CulturalProfile
	if hint != nil {
		p.RequesterID = hint.RequesterID
		p.PrimaryCulture = hint.PrimaryCulture
		p.TraumaContext = hint.TraumaContext
		p.Preferences = hint.Preferences
		p.Strengths = append([]string(nil), hint.Strengths...)
		p.CulturalIdentities = append([]string(nil), hint.CulturalIdentities...)
	}

	if p.PrimaryCulture == "" || p.PrimaryCulture == model.UniversalCulture {
		if len(detected) > 0 {
			p.PrimaryCulture = detected[0]
		} else {
			p.PrimaryCulture = model.UniversalCulture
		}
	}

	// Detected cultures never join a declared profile's identities.
	if hint == nil {
		p.CulturalIdentities = dedupe(detected)
	}
	if len(p.CulturalIdentities) == 0 {
		if hint != nil && hint.PrimaryCulture != "" && hint.PrimaryCulture != model.UniversalCulture {
			p.CulturalIdentities = []string{hint.PrimaryCulture}
		} else {
			p.CulturalIdentities = []string{model.UniversalCulture}
		}
	}

	rule, known := d.rule(p.PrimaryCulture)
	if len(p.Strengths) == 0 {
		switch {
		case known && len(rule.Strengths) > 0:
			p.Strengths = append([]string(nil), rule.Strengths...)
		case p.PrimaryCulture == model.UniversalCulture:
			p.Strengths = append([]string(nil), universalStrengths...)
		}
	}
	if p.TraumaContext == nil && known && rule.Trauma != nil {
		tc := model.TraumaContext{
			SuppressionMarkers:       append([]string(nil), rule.Trauma.SuppressionMarkers...),
			IntergenerationalMarkers: append([]string(nil), rule.Trauma.IntergenerationalMarkers...),
		}
		p.TraumaContext = &tc
	}
	return p
}

func (d *Detector) rule(id string) (cultureRule, bool) {
	for _, r := range d.rules {
		if r.ID == id {
			return r.cultureRule, true
		}
	}
	return cultureRule{}, false
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
