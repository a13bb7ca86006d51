package enhance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ppiankov/wisdomgate/internal/archetype"
	"github.com/ppiankov/wisdomgate/internal/culture"
	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/permission"
	"github.com/ppiankov/wisdomgate/internal/profile"
	"github.com/ppiankov/wisdomgate/internal/registry"
	"github.com/ppiankov/wisdomgate/internal/shadow"
)

const base = "Water teaches us to flow around obstacles."

func newTestOrchestrator(t *testing.T, cfg Config, mutate func(*Deps)) *Orchestrator {
	t.Helper()
	reg := registry.NewDefault()
	deps := Deps{
		Evaluator:  permission.New(reg),
		Translator: archetype.NewDefault(),
		Matcher:    shadow.NewDefault(),
		Detector:   culture.New(reg),
		Logger:     zap.NewNop(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	o, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func enabled() Config {
	return Config{Enabled: true, ProfileTimeout: time.Second, DefaultIntention: "personal learning and growth"}
}

func celticProfile() *model.CulturalProfile {
	return &model.CulturalProfile{PrimaryCulture: "celtic", CulturalIdentities: []string{"celtic"}}
}

func stageByName(res model.EnhancementResult, name string) (model.StageReport, bool) {
	for _, s := range res.Report.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return model.StageReport{}, false
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(enabled(), Deps{}); err == nil {
		t.Fatal("expected error without collaborators")
	}
}

func TestEnhanceOpenTradition(t *testing.T) {
	o := newTestOrchestrator(t, enabled(), nil)
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		Message:      "I want to understand flow",
		BaseResponse: base,
		Concept:      "water",
		Traditions:   []string{"celtic"},
		Profile:      celticProfile(),
	})

	if !res.BaseResponsePreserved || !strings.HasPrefix(res.EnhancedText, base) {
		t.Fatalf("expected base response preserved, got %q", res.EnhancedText)
	}
	if !res.Enhanced {
		t.Fatal("expected enhancement")
	}
	if res.Tradition != "celtic" || res.Translation == nil || res.Translation.CulturalName != "Sacred Well" {
		t.Fatalf("expected Sacred Well from celtic, got %q %+v", res.Tradition, res.Translation)
	}
	if !res.Permission.Permitted || res.Permission.AttributionRequired == "" {
		t.Errorf("expected permitted decision with attribution, got %+v", res.Permission)
	}
	for _, want := range []string{
		"Drawing inspiration from Celtic wisdom traditions",
		"In your Celtic tradition, this water energy is known as Sacred Well - Well Keeper.",
		"Attribution: Sacred Well: Traditional Celtic wisdom",
	} {
		if !strings.Contains(res.EnhancedText, want) {
			t.Errorf("expected %q in text:\n%s", want, res.EnhancedText)
		}
	}
	if len(res.Attributions) != 1 {
		t.Errorf("expected one attribution, got %v", res.Attributions)
	}
	if res.Report.ProfileSource != SourceRequest || !res.Report.ProtocolsRespected {
		t.Errorf("unexpected report %+v", res.Report)
	}
	if res.RequestID == "" {
		t.Error("expected generated request id")
	}
}

func TestEnhanceDisabledIsPassThrough(t *testing.T) {
	cfg := enabled()
	cfg.Enabled = false
	o := newTestOrchestrator(t, cfg, nil)
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		Message:      "my family patterns feel generational",
		BaseResponse: base,
		Concept:      "water",
		Profile:      celticProfile(),
	})
	if res.EnhancedText != base || res.Enhanced {
		t.Fatalf("expected verbatim base response, got %q", res.EnhancedText)
	}
	if !res.BaseResponsePreserved || res.Report.ProfileSource != SourceDisabled {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestEnhanceSacredDeniedWithoutElder(t *testing.T) {
	o := newTestOrchestrator(t, enabled(), nil)
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		Message:      "tell me about fire",
		BaseResponse: base,
		Concept:      "fire",
		Traditions:   []string{"native_american"},
	})
	if res.Permission.Permitted {
		t.Fatal("expected sacred tradition denied")
	}
	if !strings.Contains(res.Permission.Suggestion, "elders") {
		t.Errorf("expected elder consultation suggestion, got %q", res.Permission.Suggestion)
	}
	if res.Translation != nil || strings.Contains(res.EnhancedText, "Thunder Being") {
		t.Errorf("expected no translation of a denied tradition, got %q", res.EnhancedText)
	}
	if s, _ := stageByName(res, StageTranslation); !s.Skipped {
		t.Errorf("expected translation stage skipped, got %+v", s)
	}
	found := false
	for _, r := range res.Recommendations {
		if r == res.Permission.Suggestion {
			found = true
		}
	}
	if !found {
		t.Errorf("expected denial suggestion in recommendations, got %v", res.Recommendations)
	}
}

func TestEnhanceSacredPermittedWithElderAndConsent(t *testing.T) {
	o := newTestOrchestrator(t, enabled(), nil)
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		BaseResponse:     base,
		Concept:          "fire",
		Traditions:       []string{"native_american"},
		ElderPermission:  true,
		CommunityConsent: true,
	})
	if !res.Permission.Permitted || res.Translation == nil {
		t.Fatalf("expected permitted translation, got %+v", res.Permission)
	}
	if !strings.Contains(res.EnhancedText, "With humility and permission") {
		t.Errorf("expected sacred framing, got:\n%s", res.EnhancedText)
	}
	if !strings.Contains(res.EnhancedText, "In the Native American tradition") {
		t.Errorf("expected outsider phrasing, got:\n%s", res.EnhancedText)
	}
}

func TestEnhanceMentionedTraditionIsNotMembership(t *testing.T) {
	o := newTestOrchestrator(t, enabled(), nil)
	tests := []struct {
		name       string
		req        model.EnhancementRequest
		wantPolicy string
	}{
		{
			name: "restricted named in message",
			req: model.EnhancementRequest{
				Message:    "Tell me what the maori say about water",
				Concept:    "water",
				Traditions: []string{"maori"},
				Profile:    celticProfile(),
			},
			wantPolicy: "protection.restricted.deny",
		},
		{
			name: "closed named in message with elder permission",
			req: model.EnhancementRequest{
				Message:         "I read about lakota ceremonies",
				Concept:         "air",
				Traditions:      []string{"native_american_ceremonial"},
				ElderPermission: true,
				Profile:         celticProfile(),
			},
			wantPolicy: "protection.closed.deny",
		},
		{
			name: "detected profile only",
			req: model.EnhancementRequest{
				Message:    "I grew up in Aotearoa",
				Concept:    "water",
				Traditions: []string{"maori"},
			},
			wantPolicy: "protection.restricted.deny",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.BaseResponse = base
			res := o.Enhance(context.Background(), tt.req)
			if res.Permission.Permitted {
				t.Fatalf("expected deny, got %+v", res.Permission)
			}
			if res.Permission.PolicyID != tt.wantPolicy {
				t.Errorf("expected %s, got %s", tt.wantPolicy, res.Permission.PolicyID)
			}
			if tt.req.Profile != nil && len(res.Profile.CulturalIdentities) != 1 {
				t.Errorf("expected declared identities only, got %v", res.Profile.CulturalIdentities)
			}
		})
	}
}

func TestEnhanceDeclaredMembershipPermitsRestricted(t *testing.T) {
	o := newTestOrchestrator(t, enabled(), nil)
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		BaseResponse: base,
		Concept:      "water",
		Traditions:   []string{"maori"},
		Profile:      &model.CulturalProfile{PrimaryCulture: "maori", CulturalIdentities: []string{"maori"}},
	})
	if !res.Permission.Permitted || res.Permission.PolicyID != "protection.restricted.permit" {
		t.Fatalf("expected declared member permitted, got %+v", res.Permission)
	}
}

func TestEnhanceImplicatesConceptTraditions(t *testing.T) {
	o := newTestOrchestrator(t, enabled(), nil)
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		BaseResponse: base,
		Concept:      "fire",
		Profile:      &model.CulturalProfile{PrimaryCulture: "hindu", CulturalIdentities: []string{"hindu"}},
	})
	if len(res.Decisions) != 5 {
		t.Fatalf("expected 5 decisions for fire, got %d", len(res.Decisions))
	}
	if res.Decisions[0].TraditionID != "hindu" || res.Tradition != "hindu" {
		t.Errorf("expected primary culture first, got %s / %s", res.Decisions[0].TraditionID, res.Tradition)
	}
	if res.Translation.CulturalName != "Agni" {
		t.Errorf("expected Agni, got %q", res.Translation.CulturalName)
	}
	// native_american stays denied, the four open traditions are used
	if len(res.Attributions) != 4 {
		t.Errorf("expected 4 attributions, got %v", res.Attributions)
	}
	if !strings.Contains(res.EnhancedText, "Across traditions this energy is also known as") {
		t.Errorf("expected alternates line, got:\n%s", res.EnhancedText)
	}
	if strings.Contains(res.EnhancedText, "Thunder Being") {
		t.Error("expected denied tradition to stay out of the text")
	}
}

func TestEnhanceShadowIndependentOfPermission(t *testing.T) {
	o := newTestOrchestrator(t, enabled(), nil)
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		Message:      "I was not allowed to speak and these family patterns repeat",
		BaseResponse: base,
		Concept:      "fire",
		Traditions:   []string{"native_american"},
	})
	if res.Shadow == nil {
		t.Fatal("expected shadow assessment")
	}
	if res.Shadow.Severity != model.SeverityModerate {
		t.Errorf("expected moderate severity for two categories, got %s", res.Shadow.Severity)
	}
	if !strings.Contains(res.EnhancedText, res.Shadow.Guidance) {
		t.Error("expected shadow guidance appended")
	}
	if len(res.Report.Safeguards) == 0 {
		t.Error("expected safeguards in report")
	}
}

type blockingProvider struct{}

func (blockingProvider) Lookup(ctx context.Context, _ string) (model.CulturalProfile, error) {
	<-ctx.Done()
	return model.CulturalProfile{}, ctx.Err()
}

type panickingProvider struct{}

func (panickingProvider) Lookup(context.Context, string) (model.CulturalProfile, error) {
	panic("provider exploded")
}

func TestEnhanceProfileTimeoutFallsBack(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := enabled()
	cfg.ProfileTimeout = 20 * time.Millisecond
	o := newTestOrchestrator(t, cfg, func(d *Deps) { d.Profiles = blockingProvider{} })

	start := time.Now()
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		RequesterID:  "slow",
		Message:      "my grandmother kept the beltane fires",
		BaseResponse: base,
		Concept:      "water",
	})
	if time.Since(start) > 2*time.Second {
		t.Fatal("expected lookup timeout to bound the call")
	}
	if res.Report.ProfileSource != SourceFallback {
		t.Errorf("expected fallback profile source, got %q", res.Report.ProfileSource)
	}
	if res.Profile.PrimaryCulture != "celtic" {
		t.Errorf("expected detected celtic profile, got %q", res.Profile.PrimaryCulture)
	}
	if !res.BaseResponsePreserved || !strings.HasPrefix(res.EnhancedText, base) {
		t.Error("expected base response preserved")
	}
}

func TestEnhanceProviderPanicFallsBack(t *testing.T) {
	defer goleak.VerifyNone(t)

	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Profiles = panickingProvider{} })
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		RequesterID:  "boom",
		BaseResponse: base,
		Concept:      "water",
	})
	if res.Report.ProfileSource != SourceFallback {
		t.Errorf("expected fallback, got %q", res.Report.ProfileSource)
	}
}

func TestEnhanceProviderHitAndMiss(t *testing.T) {
	static, err := profile.NewStatic(model.CulturalProfile{
		RequesterID:        "ana",
		PrimaryCulture:     "taoist",
		CulturalIdentities: []string{"taoist"},
	})
	if err != nil {
		t.Fatal(err)
	}
	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Profiles = static })

	hit := o.Enhance(context.Background(), model.EnhancementRequest{RequesterID: "ana", BaseResponse: base, Concept: "water"})
	if hit.Report.ProfileSource != SourceProvider || hit.Tradition != "taoist" {
		t.Errorf("expected provider profile driving taoist, got %q / %q", hit.Report.ProfileSource, hit.Tradition)
	}

	miss := o.Enhance(context.Background(), model.EnhancementRequest{RequesterID: "bo", BaseResponse: base, Concept: "water"})
	if miss.Report.ProfileSource != SourceDetected {
		t.Errorf("expected detected profile on miss, got %q", miss.Report.ProfileSource)
	}
}

func TestEnhanceCancelledContextStillFinalizes(t *testing.T) {
	o := newTestOrchestrator(t, enabled(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := o.Enhance(ctx, model.EnhancementRequest{BaseResponse: base, Concept: "water", Traditions: []string{"celtic"}})
	if res.EnhancedText != base || res.Enhanced {
		t.Errorf("expected base response only, got %q", res.EnhancedText)
	}
	for _, name := range []string{StageProfile, StagePermission, StageShadow, StageSynthesis} {
		if s, ok := stageByName(res, name); !ok || !s.Skipped {
			t.Errorf("expected %s skipped, got %+v", name, s)
		}
	}
	if s, ok := stageByName(res, StageFinalize); !ok || !s.OK {
		t.Errorf("expected finalize to run, got %+v", s)
	}
	if len(res.Recommendations) == 0 {
		t.Error("expected recommendations even after cancellation")
	}
}

type memRecorder struct {
	mu         sync.Mutex
	entries    []model.PermissionDecision
	requesters []string
	outcomes   []model.EnhancementResult
	err        error
	panics     bool
}

func (m *memRecorder) RecordEnhancement(requester string, res model.EnhancementResult, hash string) error {
	if m.panics {
		panic("recorder exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requesters = append(m.requesters, requester)
	m.outcomes = append(m.outcomes, res)
	return m.err
}

func (m *memRecorder) RecordDecision(_ string, d model.PermissionDecision, hash string) error {
	if m.panics {
		panic("recorder exploded")
	}
	if hash == "" {
		return errors.New("missing registry hash")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, d)
	return m.err
}

func TestEnhanceRecordsEveryDecision(t *testing.T) {
	rec := &memRecorder{}
	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Recorder = rec })
	o.Enhance(context.Background(), model.EnhancementRequest{BaseResponse: base, Concept: "fire"})
	if len(rec.entries) != 5 {
		t.Errorf("expected 5 recorded decisions, got %d", len(rec.entries))
	}
}

func TestEnhanceRecorderFailureIsNotFatal(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Recorder = rec })
	res := o.Enhance(context.Background(), model.EnhancementRequest{BaseResponse: base, Concept: "water", Traditions: []string{"celtic"}})
	if !res.Enhanced {
		t.Error("expected enhancement despite recorder errors")
	}
}

func TestEnhanceStagePanicIsContained(t *testing.T) {
	rec := &memRecorder{panics: true}
	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Recorder = rec })
	res := o.Enhance(context.Background(), model.EnhancementRequest{BaseResponse: base, Concept: "water", Traditions: []string{"celtic"}})

	s, ok := stageByName(res, StagePermission)
	if !ok || s.OK || !strings.Contains(s.Error, ErrStageFailure.Error()) {
		t.Fatalf("expected failed permission stage, got %+v", s)
	}
	if !res.BaseResponsePreserved || !strings.HasPrefix(res.EnhancedText, base) {
		t.Error("expected base response preserved")
	}
	if f, _ := stageByName(res, StageFinalize); !f.OK {
		t.Error("expected finalize to run after a failed stage")
	}
}

func TestSelfTestDoesNotRecord(t *testing.T) {
	rec := &memRecorder{}
	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Recorder = rec })
	if err := o.SelfTest(context.Background()); err != nil {
		t.Fatalf("SelfTest: %v", err)
	}
	if len(rec.entries) != 0 {
		t.Errorf("expected self-test to skip recording, got %d", len(rec.entries))
	}
}

func TestEnhanceAlwaysPreservesBase(t *testing.T) {
	o := newTestOrchestrator(t, enabled(), nil)
	inputs := []model.EnhancementRequest{
		{},
		{BaseResponse: "x", Concept: "unknown"},
		{BaseResponse: "", Concept: "fire", Message: "lost my roots"},
		{BaseResponse: base, Concept: "aether", Traditions: []string{"celtic", "celtic", " ", "nowhere"}},
		{BaseResponse: base, Concept: "air", Traditions: []string{"native_american_ceremonial"}, ElderPermission: true},
	}
	for i, req := range inputs {
		res := o.Enhance(context.Background(), req)
		if !res.BaseResponsePreserved || !strings.HasPrefix(res.EnhancedText, req.BaseResponse) {
			t.Errorf("case %d: base not preserved: %q", i, res.EnhancedText)
		}
	}
}

func TestEnhanceConcurrentUse(t *testing.T) {
	defer goleak.VerifyNone(t)

	o := newTestOrchestrator(t, enabled(), nil)
	want := o.Enhance(context.Background(), model.EnhancementRequest{RequestID: "r", BaseResponse: base, Concept: "fire"}).EnhancedText

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := o.Enhance(context.Background(), model.EnhancementRequest{RequestID: "r", BaseResponse: base, Concept: "fire"})
			if got.EnhancedText != want {
				t.Errorf("expected deterministic output under concurrency")
			}
		}()
	}
	wg.Wait()
}

func optOut() model.Preferences {
	off := false
	return model.Preferences{CulturalEnhancement: &off}
}

func TestEnhanceOptOutIsPassThrough(t *testing.T) {
	rec := &memRecorder{}
	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Recorder = rec })
	p := celticProfile()
	p.Preferences = optOut()
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		RequesterID:  "ana",
		Message:      "my family patterns feel generational",
		BaseResponse: base,
		Concept:      "water",
		Traditions:   []string{"celtic"},
		Profile:      p,
	})
	if res.EnhancedText != base || res.Enhanced {
		t.Fatalf("expected verbatim base response, got %q", res.EnhancedText)
	}
	if !res.Report.OptedOut || !res.BaseResponsePreserved {
		t.Errorf("expected opted-out report, got %+v", res.Report)
	}
	if len(res.Decisions) != 0 || res.Shadow != nil {
		t.Errorf("expected no pipeline work after opt-out, got %d decisions", len(res.Decisions))
	}
	if len(rec.entries) != 0 {
		t.Errorf("expected no decisions recorded, got %d", len(rec.entries))
	}
	if len(rec.outcomes) != 1 || !rec.outcomes[0].Report.OptedOut || rec.requesters[0] != "ana" {
		t.Errorf("expected one opted-out outcome for ana, got %v", rec.requesters)
	}
}

func TestEnhanceProviderOptOut(t *testing.T) {
	static, err := profile.NewStatic(model.CulturalProfile{
		RequesterID:    "bo",
		PrimaryCulture: "celtic",
		Preferences:    optOut(),
	})
	if err != nil {
		t.Fatal(err)
	}
	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Profiles = static })
	res := o.Enhance(context.Background(), model.EnhancementRequest{RequesterID: "bo", BaseResponse: base, Concept: "water"})
	if res.Enhanced || !res.Report.OptedOut || res.Report.ProfileSource != SourceProvider {
		t.Errorf("expected provider opt-out, got %+v", res.Report)
	}
}

func TestEnhanceRecordsOutcomeForKnownRequester(t *testing.T) {
	rec := &memRecorder{}
	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Recorder = rec })

	o.Enhance(context.Background(), model.EnhancementRequest{
		RequesterID:  "ana",
		BaseResponse: base,
		Concept:      "water",
		Traditions:   []string{"celtic"},
		Profile:      celticProfile(),
	})
	o.Enhance(context.Background(), model.EnhancementRequest{BaseResponse: base, Concept: "water", Traditions: []string{"celtic"}})

	if len(rec.outcomes) != 1 {
		t.Fatalf("expected one recorded outcome, got %d", len(rec.outcomes))
	}
	if rec.requesters[0] != "ana" || !rec.outcomes[0].Enhanced {
		t.Errorf("expected enhanced outcome for ana, got %q %+v", rec.requesters[0], rec.outcomes[0].Report)
	}
}

func TestEnhanceOutcomeRecorderPanicIsContained(t *testing.T) {
	rec := &memRecorder{}
	o := newTestOrchestrator(t, enabled(), func(d *Deps) { d.Recorder = panicOnOutcome{rec} })
	res := o.Enhance(context.Background(), model.EnhancementRequest{
		RequesterID:  "ana",
		BaseResponse: base,
		Concept:      "water",
		Traditions:   []string{"celtic"},
		Profile:      celticProfile(),
	})
	if !res.Enhanced || !strings.HasPrefix(res.EnhancedText, base) {
		t.Errorf("expected enhancement to survive a recorder panic, got %q", res.EnhancedText)
	}
}

type panicOnOutcome struct{ *memRecorder }

func (panicOnOutcome) RecordEnhancement(string, model.EnhancementResult, string) error {
	panic("outcome recorder exploded")
}
