package permission

import (
	"strings"

	"github.com/ppiankov/wisdomgate/internal/model"
)

// Evidence is the set of facts a request demonstrates, as a bitmask.
type Evidence uint8

const (
	EvidenceMember           Evidence = 1 << iota // Background matches a membership keyword
	EvidenceConsentedContext                      // Appropriate context with community consent
	EvidenceElder                                 // Elder permission
	EvidenceConsent                               // Community consent

	EvidenceNone Evidence = 0
)

var evidenceNames = []struct {
	bit  Evidence
	name string
}{
	{EvidenceMember, "membership"},
	{EvidenceConsentedContext, "consented context"},
	{EvidenceElder, "elder permission"},
	{EvidenceConsent, "community consent"},
}

// Has reports whether every bit of want is present.
func (e Evidence) Has(want Evidence) bool { return e&want == want }

// EvidenceLabel returns a human-readable label for an evidence set.
func EvidenceLabel(e Evidence) string {
	if e == EvidenceNone {
		return "none"
	}
	var parts []string
	for _, n := range evidenceNames {
		if e.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, " and ")
}

// RequiredEvidence returns the alternative evidence sets that permit a
// level; any one of them suffices. Open needs nothing. Elder permission
// appears in every alternative from Sacred upward. Unknown levels return
// nil, which nothing satisfies.
func RequiredEvidence(level model.ProtectionLevel) []Evidence {
	switch level {
	case model.Open:
		return []Evidence{EvidenceNone}
	case model.Restricted:
		return []Evidence{EvidenceMember, EvidenceConsentedContext}
	case model.Sacred:
		return []Evidence{EvidenceElder | EvidenceConsent}
	case model.Closed:
		return []Evidence{EvidenceMember | EvidenceElder}
	default:
		return nil
	}
}

// Satisfies reports whether ev meets one of the level's requirements.
func Satisfies(level model.ProtectionLevel, ev Evidence) bool {
	for _, req := range RequiredEvidence(level) {
		if ev.Has(req) {
			return true
		}
	}
	return false
}

// RequiredLabel renders the alternatives of a level, joined by "or".
func RequiredLabel(level model.ProtectionLevel) string {
	alts := RequiredEvidence(level)
	if len(alts) == 0 {
		return "unavailable"
	}
	labels := make([]string, len(alts))
	for i, a := range alts {
		labels[i] = EvidenceLabel(a)
	}
	return strings.Join(labels, " or ")
}
