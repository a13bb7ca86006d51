// Package registrydiff compares two protection registries so level and
// consent changes can be reviewed before they reach production.
package registrydiff

import (
	"fmt"
	"slices"

	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/registry"
)

// Change is one field that differs for a tradition present in both registries.
type Change struct {
	Tradition string `json:"tradition"`
	Field     string `json:"field"`
	Old       string `json:"old"`
	New       string `json:"new"`
	Comment   string `json:"comment,omitempty"` // "stricter" or "looser" when it applies
}

// TraditionChange is a tradition added to or removed from the registry.
type TraditionChange struct {
	Type      string                `json:"type"` // "added" or "removed"
	Tradition string                `json:"tradition"`
	Level     model.ProtectionLevel `json:"level"`
}

// DiffResult holds the comparison of two registries.
type DiffResult struct {
	OldPath          string            `json:"old_path"`
	NewPath          string            `json:"new_path"`
	OldHash          string            `json:"old_hash"`
	NewHash          string            `json:"new_hash"`
	Changes          []Change          `json:"changes"`
	TraditionChanges []TraditionChange `json:"tradition_changes"`
	HasChanges       bool              `json:"has_changes"`
}

// Diff compares two registries. Traditions are visited in sorted id order,
// so the result is deterministic.
func Diff(old, new *registry.Registry) *DiffResult {
	r := &DiffResult{OldHash: old.Hash(), NewHash: new.Hash()}

	for _, id := range new.Traditions() {
		n, _ := new.Lookup(id)
		o, existed := old.Lookup(id)
		if !existed {
			r.TraditionChanges = append(r.TraditionChanges, TraditionChange{Type: "added", Tradition: id, Level: n.Level})
			continue
		}
		diffRecord(r, o, n)
	}
	for _, id := range old.Traditions() {
		if _, ok := new.Lookup(id); !ok {
			o, _ := old.Lookup(id)
			r.TraditionChanges = append(r.TraditionChanges, TraditionChange{Type: "removed", Tradition: id, Level: o.Level})
		}
	}

	r.HasChanges = len(r.Changes) > 0 || len(r.TraditionChanges) > 0
	return r
}

func diffRecord(r *DiffResult, o, n model.ProtectionRecord) {
	if o.Level != n.Level {
		comment := "looser"
		if model.LevelRank[n.Level] > model.LevelRank[o.Level] {
			comment = "stricter"
		}
		r.Changes = append(r.Changes, Change{
			Tradition: n.TraditionID,
			Field:     "level",
			Old:       string(o.Level),
			New:       string(n.Level),
			Comment:   comment,
		})
	}
	diffBool(r, n.TraditionID, "requires_permission", o.RequiresPermission, n.RequiresPermission)
	diffBool(r, n.TraditionID, "requires_community_consent", o.RequiresCommunityConsent, n.RequiresCommunityConsent)
	if o.Attribution != n.Attribution {
		r.Changes = append(r.Changes, Change{
			Tradition: n.TraditionID,
			Field:     "attribution",
			Old:       o.Attribution,
			New:       n.Attribution,
		})
	}
	// A wider membership list admits more requesters to restricted and closed knowledge.
	diffSet(r, n.TraditionID, "membership_keywords", o.MembershipKeywords, n.MembershipKeywords, "looser", "stricter")
	diffSet(r, n.TraditionID, "appropriate_contexts", o.AppropriateContexts, n.AppropriateContexts, "looser", "stricter")
	diffSet(r, n.TraditionID, "inappropriate_contexts", o.InappropriateContexts, n.InappropriateContexts, "stricter", "looser")
}

func diffBool(r *DiffResult, id, field string, old, new bool) {
	if old == new {
		return
	}
	comment := "looser"
	if new {
		comment = "stricter"
	}
	r.Changes = append(r.Changes, Change{
		Tradition: id,
		Field:     field,
		Old:       fmt.Sprintf("%t", old),
		New:       fmt.Sprintf("%t", new),
		Comment:   comment,
	})
}

func diffSet(r *DiffResult, id, field string, old, new []string, addedComment, removedComment string) {
	for _, v := range new {
		if !slices.Contains(old, v) {
			r.Changes = append(r.Changes, Change{Tradition: id, Field: field, New: v, Comment: addedComment})
		}
	}
	for _, v := range old {
		if !slices.Contains(new, v) {
			r.Changes = append(r.Changes, Change{Tradition: id, Field: field, Old: v, Comment: removedComment})
		}
	}
}

// Stricter reports whether every change tightens protection.
func (r *DiffResult) Stricter() bool {
	for _, c := range r.Changes {
		if c.Comment == "looser" {
			return false
		}
	}
	for _, tc := range r.TraditionChanges {
		// Removing a tradition makes it unknown, and unknown traditions are denied.
		if tc.Type == "added" && tc.Level == model.Open {
			return false
		}
	}
	return true
}
