package model

import (
	"fmt"
	"strings"
)

// ProtectionLevel classifies how guarded a tradition's knowledge is.
type ProtectionLevel string

const (
	Open       ProtectionLevel = "open"
	Restricted ProtectionLevel = "restricted"
	Sacred     ProtectionLevel = "sacred"
	Closed     ProtectionLevel = "closed"
)

// LevelRank maps protection levels to a comparable integer.
// Open < Restricted < Sacred < Closed.
var LevelRank = map[ProtectionLevel]int{
	Open:       0,
	Restricted: 1,
	Sacred:     2,
	Closed:     3,
}

// ParseLevel converts a string to a ProtectionLevel.
// Unknown values return an error so callers can fail closed.
func ParseLevel(s string) (ProtectionLevel, error) {
	l := ProtectionLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := LevelRank[l]; !ok {
		return "", fmt.Errorf("unknown protection level %q", s)
	}
	return l, nil
}

// Valid reports whether l is one of the four known levels.
func (l ProtectionLevel) Valid() bool {
	_, ok := LevelRank[l]
	return ok
}

// Reciprocity describes how a requester can give back to a tradition.
type Reciprocity struct {
	Guidance  string   `yaml:"guidance" json:"guidance"`
	Practices []string `yaml:"practices,omitempty" json:"practices,omitempty"`
}

// ProtectionRecord is the registry entry for one tradition.
type ProtectionRecord struct {
	TraditionID              string          `yaml:"id" json:"tradition_id"`
	Name                     string          `yaml:"name" json:"name"`
	Level                    ProtectionLevel `yaml:"level" json:"level"`
	RequiresPermission       bool            `yaml:"requires_permission" json:"requires_permission"`
	RequiresCommunityConsent bool            `yaml:"requires_community_consent" json:"requires_community_consent"`
	AppropriateContexts      []string        `yaml:"appropriate_contexts" json:"appropriate_contexts"`
	InappropriateContexts    []string        `yaml:"inappropriate_contexts" json:"inappropriate_contexts"`
	Attribution              string          `yaml:"attribution" json:"attribution"`
	MembershipKeywords       []string        `yaml:"membership_keywords" json:"membership_keywords"`
	Reciprocity              Reciprocity     `yaml:"reciprocity" json:"reciprocity"`
	Consultants              []string        `yaml:"consultants,omitempty" json:"consultants,omitempty"`
}

// WisdomRequest asks whether a requester may use a tradition's knowledge.
type WisdomRequest struct {
	TraditionID         string `json:"tradition_id"`
	RequesterBackground string `json:"requester_background"`
	IntentionForUse     string `json:"intention_for_use"`
	CommunityConsent    bool   `json:"community_consent"`
	ElderPermission     bool   `json:"elder_permission"`
}

// PermissionDecision is the outcome of evaluating a WisdomRequest.
// Empty strings mean the field does not apply.
type PermissionDecision struct {
	TraditionID         string          `json:"tradition_id"`
	Level               ProtectionLevel `json:"level,omitempty"`
	Permitted           bool            `json:"permitted"`
	Conditions          []string        `json:"conditions,omitempty"`
	AttributionRequired string          `json:"attribution_required,omitempty"`
	ReciprocityGuidance string          `json:"reciprocity_guidance,omitempty"`
	DenialReason        string          `json:"denial_reason,omitempty"`
	Suggestion          string          `json:"suggestion,omitempty"`
	PolicyID            string          `json:"policy_id"`
}

// Decision returns "permit" or "deny".
func (d PermissionDecision) Decision() string {
	if d.Permitted {
		return "permit"
	}
	return "deny"
}
