package enhance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/wisdomgate/internal/archetype"
	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/textmatch"
)

// maxOverlap caps the universal threads listed in synthesis.
const maxOverlap = 5

// maxAlternates caps the other-tradition names mentioned after the primary one.
const maxAlternates = 2

// synthesize appends to the base response. It never rewrites it.
func (o *Orchestrator) synthesize(st *run, res *model.EnhancementResult) (string, []string) {
	var sections []string

	if len(st.translations) > 0 {
		primary := st.translations[0]
		e := primary.Expression
		d := st.decisions[primary.TraditionID]
		name := o.translator.Label(primary.TraditionID)

		if f := o.translator.Framing(d.Level, primary.TraditionID, e); f != "" {
			sections = append(sections, f)
		}

		owner := "the " + name
		if st.profile.HasIdentity(primary.TraditionID) {
			owner = "your " + name
		}
		line := fmt.Sprintf("In %s tradition, this %s energy is known as %s - %s.",
			owner, primary.Concept, e.CulturalName, e.TraditionalRole)
		if e.ModernIntegration != "" {
			line += " " + e.ModernIntegration
		}
		if primary.NearestAnalogue {
			line += fmt.Sprintf(" There is no direct %s correspondence here; %s is the nearest analogue.",
				primary.Concept, e.CulturalName)
		}
		if len(e.SacredQualities) > 0 {
			line += " Sacred qualities: " + strings.Join(e.SacredQualities, ", ") + "."
		}
		sections = append(sections, line)

		if alts := o.alternates(st.translations[1:]); alts != "" {
			sections = append(sections, alts)
		}
	}

	if res.Shadow != nil && res.Shadow.Guidance != "" {
		sections = append(sections, res.Shadow.Guidance)
	}

	overlap := thematicOverlap(o.translator.Threads(), st.translations)
	if len(overlap) > 0 {
		sections = append(sections, "The universal threads connecting these traditions include: "+
			strings.Join(overlap, ", ")+".")
	}

	if attrs := o.attributions(st); len(attrs) > 0 {
		sections = append(sections, "Attribution: "+strings.Join(attrs, "; "))
	}

	if len(sections) == 0 {
		return st.req.BaseResponse, overlap
	}
	return st.req.BaseResponse + "\n\n" + strings.Join(sections, "\n\n"), overlap
}

func (o *Orchestrator) alternates(rest []archetype.Translation) string {
	if len(rest) == 0 {
		return ""
	}
	if len(rest) > maxAlternates {
		rest = rest[:maxAlternates]
	}
	names := make([]string, len(rest))
	for i, t := range rest {
		names[i] = fmt.Sprintf("%s (%s)", t.Expression.CulturalName, o.translator.Label(t.TraditionID))
	}
	return "Across traditions this energy is also known as " + strings.Join(names, ", ") + "."
}

// thematicOverlap ranks threads by how many expressions carry them as a
// whole word in a sacred quality. Ties keep the threads order.
func thematicOverlap(threads []string, translations []archetype.Translation) []string {
	type scored struct {
		thread string
		count  int
		pos    int
	}
	var hits []scored
	for pos, thread := range threads {
		phrase := textmatch.Fold(thread)
		if phrase == "" {
			continue
		}
		count := 0
		for _, t := range translations {
			for _, q := range t.Expression.SacredQualities {
				if textmatch.Contains(textmatch.Fold(q), phrase) {
					count++
					break
				}
			}
		}
		if count > 0 {
			hits = append(hits, scored{thread: thread, count: count, pos: pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].pos < hits[j].pos
	})
	if len(hits) > maxOverlap {
		hits = hits[:maxOverlap]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.thread
	}
	return out
}

// attributions returns one entry per tradition whose expression was used.
func (o *Orchestrator) attributions(st *run) []string {
	out := make([]string, 0, len(st.translations))
	for _, t := range st.translations {
		attr := st.decisions[t.TraditionID].AttributionRequired
		if attr == "" {
			attr = o.translator.Attribution(t.TraditionID)
		}
		if attr == "" {
			attr = o.translator.Label(t.TraditionID) + " tradition"
		}
		out = append(out, fmt.Sprintf("%s: %s", t.Expression.CulturalName, attr))
	}
	return out
}

// finalize fills recommendations, attributions and the compliance report.
// It works from whatever earlier stages produced.
func (o *Orchestrator) finalize(st *run, res *model.EnhancementResult) {
	var recs []string
	culture := st.profile.PrimaryCulture
	if culture != "" && culture != model.UniversalCulture {
		name := o.cultureName(culture)
		recs = append(recs,
			fmt.Sprintf("Connect with %s cultural community", name),
			fmt.Sprintf("Learn more about your %s traditional wisdom", name))
	} else {
		recs = append(recs, "Connect with communities whose wisdom you draw on")
	}
	recs = append(recs,
		"Seek guidance from cultural elders or wisdom keepers",
		"Explore how other cultures understand similar archetypal energies",
		"Always honor the cultural origins of wisdom you explore",
		"Seek permission before adopting practices from other cultures",
		"Support communities whose wisdom you benefit from")

	if res.Translation != nil {
		recs = append(recs, fmt.Sprintf("Explore %s practices that resonate with you", res.Translation.CulturalName))
	}
	if res.Shadow != nil && len(res.Shadow.Modalities) > 0 {
		recs = append(recs, "Consider culturally grounded healing: "+strings.Join(res.Shadow.Modalities, ", "))
	}
	for _, d := range res.Decisions {
		if !d.Permitted && d.Suggestion != "" {
			recs = append(recs, d.Suggestion)
		}
	}
	res.Recommendations = dedupe(recs)

	// Only expressions that made it into the text are attributed.
	if res.Enhanced {
		res.Attributions = o.attributions(st)
	}

	var safeguards []string
	respected := true
	for _, t := range st.translations {
		d, ok := st.decisions[t.TraditionID]
		if !ok || !d.Permitted {
			respected = false
		}
		safeguards = append(safeguards, d.Conditions...)
	}
	if res.Shadow != nil {
		safeguards = append(safeguards, res.Shadow.Safeguards...)
	}
	res.Report.ProtocolsRespected = respected
	res.Report.Safeguards = dedupe(safeguards)
}

// cultureName prefers the registry's name for a culture id.
func (o *Orchestrator) cultureName(id string) string {
	name := id
	if rec, ok := o.evaluator.Registry().Lookup(id); ok {
		name = rec.Name
	} else if n := o.translator.TraditionName(id); n != id {
		name = n
	}
	return strings.TrimSuffix(name, " Traditions")
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
