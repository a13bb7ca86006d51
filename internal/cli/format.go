package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/wisdomgate/internal/archetype"
	"github.com/ppiankov/wisdomgate/internal/model"
)

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	return string(data), nil
}

func formatDecision(d model.PermissionDecision) string {
	var b strings.Builder
	level := string(d.Level)
	if level == "" {
		level = "unregistered"
	}
	fmt.Fprintf(&b, "%s  %s (%s)  [%s]\n", strings.ToUpper(d.Decision()), d.TraditionID, level, d.PolicyID)
	if d.DenialReason != "" {
		fmt.Fprintf(&b, "  Reason:      %s\n", d.DenialReason)
	}
	if d.Suggestion != "" {
		fmt.Fprintf(&b, "  Suggestion:  %s\n", d.Suggestion)
	}
	for _, c := range d.Conditions {
		fmt.Fprintf(&b, "  Condition:   %s\n", c)
	}
	if d.AttributionRequired != "" {
		fmt.Fprintf(&b, "  Attribution: %s\n", d.AttributionRequired)
	}
	if d.ReciprocityGuidance != "" {
		fmt.Fprintf(&b, "  Reciprocity: %s\n", d.ReciprocityGuidance)
	}
	return b.String()
}

func formatTranslation(t archetype.Translation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s in %s\n", t.Concept, t.TraditionID)
	if e := t.Expression; e != nil {
		fmt.Fprintf(&b, "  Name:       %s\n", e.CulturalName)
		fmt.Fprintf(&b, "  Role:       %s\n", e.TraditionalRole)
		if len(e.SacredQualities) > 0 {
			fmt.Fprintf(&b, "  Qualities:  %s\n", strings.Join(e.SacredQualities, ", "))
		}
		for _, w := range e.ShadowWisdom {
			fmt.Fprintf(&b, "  Shadow:     %s\n", w)
		}
		if e.ModernIntegration != "" {
			fmt.Fprintf(&b, "  Today:      %s\n", e.ModernIntegration)
		}
		if t.NearestAnalogue {
			b.WriteString("  (nearest analogue, not a direct expression)\n")
		}
	}
	fmt.Fprintf(&b, "  Guidance:   %s\n", t.Guidance)
	return b.String()
}

func formatAssessment(a *model.ShadowAssessment, readiness float64) string {
	if a == nil {
		return fmt.Sprintf("No shadow triggers detected. Readiness: %.2f\n", readiness)
	}
	var b strings.Builder
	triggers := make([]string, len(a.Triggers))
	for i, t := range a.Triggers {
		triggers[i] = string(t)
	}
	fmt.Fprintf(&b, "Severity:   %s\n", a.Severity)
	fmt.Fprintf(&b, "Triggers:   %s\n", strings.Join(triggers, ", "))
	fmt.Fprintf(&b, "Readiness:  %.2f\n", a.Readiness)
	if a.Guidance != "" {
		fmt.Fprintf(&b, "Guidance:   %s\n", a.Guidance)
	}
	for _, r := range a.Resources {
		fmt.Fprintf(&b, "  resource:  %s\n", r)
	}
	for _, s := range a.Safeguards {
		fmt.Fprintf(&b, "  safeguard: %s\n", s)
	}
	return b.String()
}

func formatHealth(r model.HealthReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall: %s\n\n", r.Overall)
	for _, m := range r.Modules {
		fmt.Fprintf(&b, "  %-26s %s", m.Name, m.State)
		if m.Error != "" {
			fmt.Fprintf(&b, "  (%s)", m.Error)
		}
		b.WriteString("\n")
	}
	if len(r.RecommendedActions) > 0 {
		b.WriteString("\nRecommended:\n")
		for _, a := range r.RecommendedActions {
			fmt.Fprintf(&b, "  - %s\n", a)
		}
	}
	return b.String()
}
