package scenario

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/permission"
	"github.com/ppiankov/wisdomgate/internal/registry"
)

// Run evaluates all cases in a scenario against the given evaluator.
// Cases are independent; the evaluator holds no per-request state.
func Run(s *Scenario, ev *permission.Evaluator) *RunResult {
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		d := ev.Evaluate(model.WisdomRequest{
			TraditionID:         c.Tradition,
			RequesterBackground: c.Background,
			IntentionForUse:     c.Intention,
			CommunityConsent:    c.Consent,
			ElderPermission:     c.Elder,
		})
		expected := strings.ToLower(strings.TrimSpace(c.Expect))
		actual := d.Decision()

		cr := CaseResult{
			Index:     i + 1,
			Tradition: c.Tradition,
			Level:     string(d.Level),
			Expected:  expected,
			Actual:    actual,
			Reason:    d.DenialReason,
		}

		cr.Passed = actual == expected
		if cr.Passed && c.Condition != "" && !slices.Contains(d.Conditions, c.Condition) {
			cr.Passed = false
			cr.Actual = actual + " without " + c.Condition
		}
		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}

		result.Cases = append(result.Cases, cr)
	}

	return result
}

// LoadAndRun loads a scenario YAML file and the protection registry, and runs.
func LoadAndRun(path, registryPath string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	for i, c := range s.Cases {
		switch strings.ToLower(strings.TrimSpace(c.Expect)) {
		case "permit", "deny":
		default:
			return nil, fmt.Errorf("scenario %s case %d: expect must be permit or deny, got %q", path, i+1, c.Expect)
		}
	}

	reg, err := registry.Load(registryPath)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	result := Run(&s, permission.New(reg))
	result.File = path

	return result, nil
}
