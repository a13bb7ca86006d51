package registrydiff

import (
	"strings"
	"testing"

	"github.com/ppiankov/wisdomgate/internal/registry"
)

func parse(t *testing.T, src string) *registry.Registry {
	t.Helper()
	r, err := registry.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return r
}

const base = `
traditions:
  - id: celtic
    level: open
    membership_keywords: [celtic, irish]
    inappropriate_contexts: [misrepresentation]
  - id: maori
    level: restricted
    requires_community_consent: true
    membership_keywords: [maori]
`

func TestIdenticalRegistriesNoChanges(t *testing.T) {
	r := Diff(registry.NewDefault(), registry.NewDefault())
	if r.HasChanges {
		t.Errorf("expected no changes, got %d changes + %d tradition changes",
			len(r.Changes), len(r.TraditionChanges))
	}
	if r.OldHash != r.NewHash {
		t.Error("expected equal hashes")
	}
}

func TestLevelChangeDetected(t *testing.T) {
	old := parse(t, base)
	new := parse(t, strings.Replace(base, "level: restricted", "level: sacred", 1))

	r := Diff(old, new)
	if !r.HasChanges {
		t.Fatal("expected changes")
	}
	if len(r.Changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", r.Changes)
	}
	c := r.Changes[0]
	if c.Tradition != "maori" || c.Field != "level" || c.Old != "restricted" || c.New != "sacred" {
		t.Errorf("unexpected change %+v", c)
	}
	if c.Comment != "stricter" {
		t.Errorf("expected stricter, got %q", c.Comment)
	}
	if !r.Stricter() {
		t.Error("expected overall stricter")
	}
}

func TestLoosenedConsentAndWiderMembership(t *testing.T) {
	old := parse(t, base)
	src := strings.Replace(base, "requires_community_consent: true", "requires_community_consent: false", 1)
	src = strings.Replace(src, "membership_keywords: [maori]", "membership_keywords: [maori, pacific]", 1)
	new := parse(t, src)

	r := Diff(old, new)
	if len(r.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %+v", r.Changes)
	}
	for _, c := range r.Changes {
		if c.Comment != "looser" {
			t.Errorf("expected looser for %s, got %q", c.Field, c.Comment)
		}
	}
	if r.Stricter() {
		t.Error("expected diff to be reported as looser")
	}
}

func TestInappropriateContextRemovedIsLooser(t *testing.T) {
	old := parse(t, base)
	new := parse(t, strings.Replace(base, "inappropriate_contexts: [misrepresentation]", "inappropriate_contexts: []", 1))

	r := Diff(old, new)
	if len(r.Changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", r.Changes)
	}
	if r.Changes[0].Old != "misrepresentation" || r.Changes[0].Comment != "looser" {
		t.Errorf("unexpected change %+v", r.Changes[0])
	}
}

func TestTraditionAddedAndRemoved(t *testing.T) {
	old := parse(t, base)
	new := parse(t, `
traditions:
  - id: celtic
    level: open
    membership_keywords: [celtic, irish]
    inappropriate_contexts: [misrepresentation]
  - id: local_lineage
    level: closed
    requires_permission: true
`)

	r := Diff(old, new)
	if len(r.TraditionChanges) != 2 {
		t.Fatalf("expected 2 tradition changes, got %+v", r.TraditionChanges)
	}
	if r.TraditionChanges[0].Type != "added" || r.TraditionChanges[0].Tradition != "local_lineage" {
		t.Errorf("unexpected first change %+v", r.TraditionChanges[0])
	}
	if r.TraditionChanges[1].Type != "removed" || r.TraditionChanges[1].Tradition != "maori" {
		t.Errorf("unexpected second change %+v", r.TraditionChanges[1])
	}
	if !r.Stricter() {
		t.Error("adding a closed tradition and removing one should count as stricter")
	}
}

func TestFormatText(t *testing.T) {
	old := parse(t, base)
	new := parse(t, strings.Replace(base, "level: restricted", "level: sacred", 1))
	r := Diff(old, new)
	r.OldPath, r.NewPath = "a.yaml", "b.yaml"

	out := FormatText(r)
	for _, want := range []string{"Registry diff: a.yaml -> b.yaml", "  maori:", "restricted -> sacred  (stricter)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	same := Diff(old, old)
	if !strings.Contains(FormatText(same), "No changes detected.") {
		t.Error("expected no-change message")
	}
}
