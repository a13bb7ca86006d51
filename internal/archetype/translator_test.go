package archetype

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/wisdomgate/internal/model"
)

func TestExactExpression(t *testing.T) {
	tr := NewDefault()
	got := tr.Translate("fire", "celtic")
	if got.Expression == nil {
		t.Fatalf("expected expression, got guidance %q", got.Guidance)
	}
	if got.Expression.CulturalName != "Brigid's Flame" {
		t.Errorf("expected Brigid's Flame, got %q", got.Expression.CulturalName)
	}
	if got.NearestAnalogue {
		t.Error("expected exact match, not analogue")
	}
	if !strings.Contains(got.Guidance, "Celtic Traditions") {
		t.Errorf("expected guidance to name the tradition, got %q", got.Guidance)
	}
}

func TestShadowWisdomIsAList(t *testing.T) {
	got := NewDefault().Translate("water", "celtic")
	if got.Expression == nil {
		t.Fatalf("expected expression, got guidance %q", got.Guidance)
	}
	want := []string{"Stagnant emotions transformed into flowing wisdom"}
	if diff := cmp.Diff(want, got.Expression.ShadowWisdom); diff != "" {
		t.Errorf("shadow wisdom mismatch (-want +got):\n%s", diff)
	}
}

func TestNearestAnalogueFallback(t *testing.T) {
	tr := NewDefault()
	tests := []struct {
		concept   string
		tradition string
		want      string
	}{
		{"air", "celtic", "The Bard"},
		{"earth", "celtic", "Oak Grove Keeper"},
		{"air", "taoist", "Jin"},
	}
	for _, tt := range tests {
		got := tr.Translate(tt.concept, tt.tradition)
		if got.Expression == nil {
			t.Errorf("%s/%s: expected analogue, got none", tt.concept, tt.tradition)
			continue
		}
		if !got.NearestAnalogue {
			t.Errorf("%s/%s: expected nearest analogue flag", tt.concept, tt.tradition)
		}
		if got.Expression.CulturalName != tt.want {
			t.Errorf("%s/%s: expected %q, got %q", tt.concept, tt.tradition, tt.want, got.Expression.CulturalName)
		}
	}
}

func TestNoExpressionFallsBackToUniversal(t *testing.T) {
	tr := NewDefault()
	got := tr.Translate("aether", "celtic")
	if got.Expression != nil {
		t.Fatalf("expected no expression, got %q", got.Expression.CulturalName)
	}
	if !strings.Contains(got.Guidance, "universal aether archetype") {
		t.Errorf("expected universal guidance, got %q", got.Guidance)
	}
}

func TestUnknownTraditionAndConcept(t *testing.T) {
	tr := NewDefault()
	if got := tr.Translate("fire", "atlantean"); got.Expression != nil || got.Guidance == "" {
		t.Errorf("expected guidance only for unknown tradition, got %+v", got)
	}
	if got := tr.Translate("plasma", "celtic"); got.Expression != nil || !strings.Contains(got.Guidance, "not a recognized") {
		t.Errorf("expected unknown concept guidance, got %+v", got)
	}
}

func TestTranslateIsIdempotent(t *testing.T) {
	tr := NewDefault()
	for _, concept := range tr.Concepts() {
		for _, id := range append(tr.Traditions(), "unknown") {
			first := tr.Translate(concept, id)
			second := tr.Translate(concept, id)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("%s/%s: translations differ (-first +second):\n%s", concept, id, diff)
			}
		}
	}
}

func TestTranslationsDoNotShareTables(t *testing.T) {
	tr := NewDefault()
	first := tr.Translate("water", "celtic")
	first.Expression.SacredQualities[0] = "mutated"
	second := tr.Translate("water", "celtic")
	if second.Expression.SacredQualities[0] == "mutated" {
		t.Error("expected returned expressions to be copies")
	}
}

func TestConceptFolding(t *testing.T) {
	tr := NewDefault()
	if got := tr.Translate("  FIRE ", "native_american"); got.Expression == nil || got.Expression.CulturalName != "Thunder Being" {
		t.Errorf("expected folded concept lookup, got %+v", got)
	}
}

func TestTraditionsFor(t *testing.T) {
	tr := NewDefault()
	got := tr.TraditionsFor("air")
	want := []string{"buddhist", "celtic", "hindu", "native_american", "taoist"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TraditionsFor(air) mismatch (-want +got):\n%s", diff)
	}
	if got := tr.TraditionsFor("aether"); !cmp.Equal(got, []string{"hindu"}) {
		t.Errorf("expected only hindu for aether, got %v", got)
	}
}

func TestFraming(t *testing.T) {
	tr := NewDefault()
	e := tr.Translate("fire", "native_american").Expression
	got := tr.Framing(model.Sacred, "native_american", e)
	if !strings.Contains(got, "With humility and permission") || !strings.Contains(got, "Thunder Being") {
		t.Errorf("unexpected sacred framing %q", got)
	}
	open := tr.Framing(model.Open, "celtic", tr.Translate("water", "celtic").Expression)
	if open != "Drawing inspiration from Celtic wisdom traditions, we honor the Sacred Well archetype." {
		t.Errorf("unexpected open framing %q", open)
	}
	if tr.Label("celtic") != "Celtic" || tr.Label("unknown_x") != "unknown_x" {
		t.Errorf("unexpected labels %q %q", tr.Label("celtic"), tr.Label("unknown_x"))
	}
	if tr.Framing(model.Open, "celtic", nil) != "" {
		t.Error("expected empty framing without expression")
	}
}

func TestQuickName(t *testing.T) {
	tr := NewDefault()
	if name, ok := tr.QuickName("water", "hindu"); !ok || name != "Apas" {
		t.Errorf("expected Apas, got %q (%v)", name, ok)
	}
	if _, ok := tr.QuickName("air", "celtic"); ok {
		t.Error("expected no quick name for analogue-only pair")
	}
}

func TestParseRejectsUnknownConcept(t *testing.T) {
	data := `
concepts:
  fire: {qualities: [energy]}
traditions:
  - id: x
    expressions:
      plasma: {cultural_name: P}
`
	if _, err := Parse([]byte(data)); err == nil {
		t.Fatal("expected error for expression on unknown concept")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	tr, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tr.Traditions()) != len(NewDefault().Traditions()) {
		t.Errorf("expected default traditions, got %v", tr.Traditions())
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archetypes.yaml")
	if err := os.WriteFile(path, []byte("concepts: [not, a, map]"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
