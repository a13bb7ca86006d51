// Package permission decides whether a requester may draw on a tradition.
package permission

import (
	"fmt"
	"strings"

	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/registry"
	"github.com/ppiankov/wisdomgate/internal/textmatch"
)

// Closed-level attribution and the condition tag that forbids re-sharing.
const (
	InternalUseOnly   = "internal use only"
	NoExternalSharing = "no-external-sharing"
)

// Evaluator applies the four-state decision procedure against a registry.
// It holds only immutable data and is safe for concurrent use.
type Evaluator struct {
	reg           *registry.Registry
	contexts      map[string]textmatch.PhraseSet
	inappropriate map[string]textmatch.PhraseSet
}

// New builds an Evaluator. A nil registry means the built-in registry.
func New(reg *registry.Registry) *Evaluator {
	if reg == nil {
		reg = registry.NewDefault()
	}
	e := &Evaluator{
		reg:           reg,
		contexts:      make(map[string]textmatch.PhraseSet),
		inappropriate: make(map[string]textmatch.PhraseSet),
	}
	for _, id := range reg.Traditions() {
		rec, _ := reg.Lookup(id)
		e.contexts[id] = textmatch.NewPhraseSet(rec.AppropriateContexts...)
		e.inappropriate[id] = textmatch.NewPhraseSet(rec.InappropriateContexts...)
	}
	return e
}

// Registry returns the registry the evaluator consults.
func (e *Evaluator) Registry() *registry.Registry { return e.reg }

// Evaluate decides a single request.
//
// Evaluation order (must not be changed):
//  1. Registry lookup: unknown tradition is denied
//  2. Evidence: membership, consented context, elder permission
//  3. Level gate: evidence must reach the level's minimum
//  4. Decision assembly: conditions, attribution, reciprocity or denial guidance
func (e *Evaluator) Evaluate(req model.WisdomRequest) model.PermissionDecision {
	// Step 1: Registry lookup
	rec, ok := e.reg.Lookup(req.TraditionID)
	if !ok {
		return model.PermissionDecision{
			TraditionID:  req.TraditionID,
			Permitted:    false,
			DenialReason: fmt.Sprintf("tradition %q is not in the protection registry", req.TraditionID),
			Suggestion: fmt.Sprintf("Please verify %s wisdom through external sources (academic or community) before proceeding.",
				displayName(req.TraditionID)),
			PolicyID: "protection.unknown.deny",
		}
	}

	// Step 2: Evidence
	ev, matchedContext := e.evidence(rec, req)
	permitted := Satisfies(rec.Level, ev)

	// Steps 3-4: Level gate and decision assembly
	switch rec.Level {
	case model.Open:
		return e.permitOpen(rec)
	case model.Restricted:
		if permitted {
			return e.permitRestricted(rec, ev.Has(EvidenceMember), matchedContext)
		}
		return model.PermissionDecision{
			TraditionID:  rec.TraditionID,
			Level:        rec.Level,
			DenialReason: "This wisdom requires deeper cultural understanding or community consent. Learn more about the tradition first.",
			Suggestion: fmt.Sprintf("To access %s wisdom responsibly, consider: learning the cultural history, connecting with community cultural centers, participating in public cultural events, or studying with authorized teachers.",
				rec.Name),
			PolicyID: "protection.restricted.deny",
		}
	case model.Sacred:
		if permitted {
			return e.permitSacred(rec)
		}
		return model.PermissionDecision{
			TraditionID:  rec.TraditionID,
			Level:        rec.Level,
			DenialReason: "Sacred wisdom requires elder permission and community consent.",
			Suggestion:   elderConsultation(rec),
			PolicyID:     "protection.sacred.deny",
		}
	case model.Closed:
		if permitted {
			return e.permitClosed(rec)
		}
		return model.PermissionDecision{
			TraditionID:  rec.TraditionID,
			Level:        rec.Level,
			DenialReason: "This knowledge is not available outside the community.",
			Suggestion:   fmt.Sprintf("%s is protected for community members only. Explore openly shared teachings instead.", rec.Name),
			PolicyID:     "protection.closed.deny",
		}
	default:
		// Registries validate levels on load; anything else is denied.
		return model.PermissionDecision{
			TraditionID:  rec.TraditionID,
			Level:        rec.Level,
			DenialReason: fmt.Sprintf("unrecognized protection level %q", rec.Level),
			PolicyID:     "protection.invalid.deny",
		}
	}
}

// EvidenceFor reports the evidence a request demonstrates for its
// tradition. Unknown traditions always yield EvidenceNone.
func (e *Evaluator) EvidenceFor(req model.WisdomRequest) Evidence {
	rec, ok := e.reg.Lookup(req.TraditionID)
	if !ok {
		return EvidenceNone
	}
	ev, _ := e.evidence(rec, req)
	return ev
}

func (e *Evaluator) evidence(rec model.ProtectionRecord, req model.WisdomRequest) (Evidence, string) {
	var ev Evidence
	if e.reg.IsMember(rec.TraditionID, req.RequesterBackground) {
		ev |= EvidenceMember
	}
	matched, inContext := e.contexts[rec.TraditionID].MatchText(req.IntentionForUse)
	if inContext && req.CommunityConsent {
		ev |= EvidenceConsentedContext
	}
	if req.ElderPermission {
		ev |= EvidenceElder
	}
	if req.CommunityConsent {
		ev |= EvidenceConsent
	}
	return ev, matched
}

func (e *Evaluator) permitOpen(rec model.ProtectionRecord) model.PermissionDecision {
	return model.PermissionDecision{
		TraditionID: rec.TraditionID,
		Level:       rec.Level,
		Permitted:   true,
		Conditions: []string{
			"Proper attribution maintained",
			"Respectful context maintained",
			"Consider reciprocal support of the originating community",
		},
		AttributionRequired: rec.Attribution,
		ReciprocityGuidance: e.reg.Reciprocity(rec.TraditionID).Guidance,
		PolicyID:            "protection.open.permit",
	}
}

func (e *Evaluator) permitRestricted(rec model.ProtectionRecord, member bool, matchedContext string) model.PermissionDecision {
	basis := "Community consent verified for context: " + matchedContext
	if member {
		basis = "Cultural membership verified"
	}
	return model.PermissionDecision{
		TraditionID: rec.TraditionID,
		Level:       rec.Level,
		Permitted:   true,
		Conditions: []string{
			basis,
			"Use limited to appropriate cultural contexts",
			"Regular reciprocity to originating community expected",
		},
		AttributionRequired: rec.Attribution,
		ReciprocityGuidance: e.reg.Reciprocity(rec.TraditionID).Guidance,
		PolicyID:            "protection.restricted.permit",
	}
}

func (e *Evaluator) permitSacred(rec model.ProtectionRecord) model.PermissionDecision {
	recip := e.reg.Reciprocity(rec.TraditionID)
	guidance := recip.Guidance
	if len(recip.Practices) > 0 {
		guidance += " " + strings.Join(recip.Practices, " ")
	}
	return model.PermissionDecision{
		TraditionID: rec.TraditionID,
		Level:       rec.Level,
		Permitted:   true,
		Conditions: []string{
			"Elder permission and community consent verified",
			"Sacred reciprocity obligations must be fulfilled",
			"May not be re-shared without equivalent permission",
			"Ceremonial protocols must be respected",
		},
		AttributionRequired: rec.Attribution,
		ReciprocityGuidance: guidance,
		PolicyID:            "protection.sacred.permit",
	}
}

func (e *Evaluator) permitClosed(rec model.ProtectionRecord) model.PermissionDecision {
	return model.PermissionDecision{
		TraditionID: rec.TraditionID,
		Level:       rec.Level,
		Permitted:   true,
		Conditions: []string{
			"Community membership verified",
			"Elder permission confirmed",
			"Absolute confidentiality required",
			NoExternalSharing,
		},
		AttributionRequired: InternalUseOnly,
		ReciprocityGuidance: e.reg.Reciprocity(rec.TraditionID).Guidance,
		PolicyID:            "protection.closed.permit",
	}
}

func elderConsultation(rec model.ProtectionRecord) string {
	s := fmt.Sprintf("For %s sacred wisdom, please connect with recognized elders or cultural authorities through established cultural organizations or community centers.",
		rec.Name)
	if len(rec.Consultants) > 0 {
		s += " Starting points: " + strings.Join(rec.Consultants, ", ") + "."
	}
	return s
}

func displayName(id string) string {
	if id == "" {
		return "this tradition's"
	}
	return strings.ReplaceAll(id, "_", " ")
}
