package cli

import (
	"strings"
	"testing"

	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/permission"
	"github.com/ppiankov/wisdomgate/internal/registry"
)

func TestFormatDecision(t *testing.T) {
	ev := permission.New(registry.NewDefault())

	permit := formatDecision(ev.Evaluate(model.WisdomRequest{TraditionID: "celtic"}))
	if !strings.HasPrefix(permit, "PERMIT  celtic (open)") {
		t.Errorf("unexpected permit header: %q", permit)
	}
	if !strings.Contains(permit, "Attribution:") {
		t.Error("expected attribution line")
	}

	deny := formatDecision(ev.Evaluate(model.WisdomRequest{TraditionID: "atlantean"}))
	if !strings.HasPrefix(deny, "DENY  atlantean (unregistered)") {
		t.Errorf("unexpected deny header: %q", deny)
	}
	if !strings.Contains(deny, "Reason:") {
		t.Error("expected reason line")
	}
}

func TestFormatAssessmentNone(t *testing.T) {
	got := formatAssessment(nil, 0.5)
	if got != "No shadow triggers detected. Readiness: 0.50\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestFormatHealth(t *testing.T) {
	out := formatHealth(model.HealthReport{
		Overall: model.Degraded,
		Modules: []model.ModuleStatus{
			{Name: "protection_registry", State: model.StateReady},
			{Name: "shadow_matcher", State: model.StateError, Error: "boom"},
		},
		RecommendedActions: []string{"Investigate errors in: shadow_matcher"},
	})
	for _, want := range []string{"Overall: degraded", "shadow_matcher", "(boom)", "- Investigate errors in: shadow_matcher"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}
