package permission

import (
	"fmt"

	"github.com/ppiankov/wisdomgate/internal/textmatch"
)

// SharingCheck is the outcome of ValidateSharing.
type SharingCheck struct {
	Valid    bool   `json:"valid"`
	Guidance string `json:"guidance,omitempty"`
	Matched  string `json:"matched,omitempty"`
}

// ValidateSharing checks content about to be shared, and the intention
// behind it, against the tradition's inappropriate contexts.
func (e *Evaluator) ValidateSharing(traditionID, content, intention string) SharingCheck {
	if _, ok := e.reg.Lookup(traditionID); !ok {
		return SharingCheck{
			Guidance: "Tradition not recognized in the protection registry. Please verify before sharing.",
		}
	}

	// Inflected forms count: "commercialization" hits "commercial".
	ps := e.inappropriate[traditionID]
	for _, text := range []string{content, intention} {
		if hit, ok := ps.MatchStems(textmatch.Fold(text)); ok {
			return SharingCheck{
				Guidance: fmt.Sprintf("This content may violate cultural protocols for %s (%s). Please review your intention and approach.",
					displayName(traditionID), hit),
				Matched: hit,
			}
		}
	}
	return SharingCheck{Valid: true}
}
