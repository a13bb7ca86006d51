package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/wisdomgate/internal/model"
)

func TestStaticLookup(t *testing.T) {
	s, err := NewStatic(model.CulturalProfile{RequesterID: "u1", PrimaryCulture: "celtic"})
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	p, err := s.Lookup(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.PrimaryCulture != "celtic" {
		t.Errorf("expected celtic, got %q", p.PrimaryCulture)
	}
	if _, err := s.Lookup(context.Background(), "u2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStaticHonorsCancelledContext(t *testing.T) {
	s, _ := NewStatic(model.CulturalProfile{RequesterID: "u1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Lookup(ctx, "u1"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewStaticRequiresID(t *testing.T) {
	if _, err := NewStatic(model.CulturalProfile{PrimaryCulture: "x"}); err == nil {
		t.Fatal("expected error for missing requester id")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
profiles:
  - requester_id: ana
    primary_culture: native_american
    cultural_identities: [native_american]
    trauma_context:
      suppression_markers: [boarding school]
  - requester_id: bo
    primary_culture: celtic
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := s.IDs(); len(got) != 2 || got[0] != "ana" {
		t.Fatalf("expected [ana bo], got %v", got)
	}
	p, _ := s.Lookup(context.Background(), "ana")
	if p.TraumaContext == nil || p.TraumaContext.SuppressionMarkers[0] != "boarding school" {
		t.Errorf("expected trauma markers, got %+v", p.TraumaContext)
	}
}

func TestLoadFileMissing(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(s.IDs()) != 0 {
		t.Errorf("expected empty provider, got %v", s.IDs())
	}
}

type failingProvider struct{ err error }

func (f failingProvider) Lookup(context.Context, string) (model.CulturalProfile, error) {
	return model.CulturalProfile{}, f.err
}

func TestChain(t *testing.T) {
	second, _ := NewStatic(model.CulturalProfile{RequesterID: "u1", PrimaryCulture: "hindu"})
	c := Chain{failingProvider{ErrNotFound}, nil, second}

	p, err := c.Lookup(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.PrimaryCulture != "hindu" {
		t.Errorf("expected hindu, got %q", p.PrimaryCulture)
	}

	boom := errors.New("boom")
	c = Chain{failingProvider{boom}, second}
	if _, err := c.Lookup(context.Background(), "u1"); !errors.Is(err, boom) {
		t.Errorf("expected chain to stop on hard error, got %v", err)
	}
	if _, err := (Chain{}).Lookup(context.Background(), "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from empty chain, got %v", err)
	}
}
