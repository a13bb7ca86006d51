package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/wisdomgate/internal/model"
)

// recorder collects the order in which modules are initialized.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) module(name string, deps ...string) Module {
	return Module{
		Name:         name,
		Dependencies: deps,
		Capabilities: []string{name + ".cap"},
		Init: func(context.Context) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.calls = append(r.calls, name)
			return nil
		},
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func standardGraph(r *recorder) []Module {
	return []Module{
		r.module("enhancement_orchestrator", "protection_registry", "context_detector",
			"permission_evaluator", "archetype_translator", "shadow_matcher"),
		r.module("shadow_matcher", "context_detector", "protection_registry"),
		r.module("archetype_translator", "protection_registry"),
		r.module("permission_evaluator", "protection_registry"),
		r.module("protection_registry"),
		r.module("context_detector"),
	}
}

func TestOrderRespectsDependencies(t *testing.T) {
	r := &recorder{}
	in, err := New(nil, standardGraph(r)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []string{
		"protection_registry",
		"archetype_translator",
		"permission_evaluator",
		"context_detector",
		"shadow_matcher",
		"enhancement_orchestrator",
	}
	if diff := cmp.Diff(want, in.Order()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestOrderIsDeterministic(t *testing.T) {
	r := &recorder{}
	first, _ := New(nil, standardGraph(r)...)
	for i := 0; i < 10; i++ {
		again, _ := New(nil, standardGraph(r)...)
		if diff := cmp.Diff(first.Order(), again.Order()); diff != "" {
			t.Fatalf("order changed between runs:\n%s", diff)
		}
	}
}

func TestNewRejectsBadGraphs(t *testing.T) {
	r := &recorder{}
	tests := []struct {
		name    string
		modules []Module
	}{
		{"cycle", []Module{r.module("a", "b"), r.module("b", "a")}},
		{"self", []Module{r.module("a", "a")}},
		{"unknown dep", []Module{r.module("a", "ghost")}},
		{"duplicate", []Module{r.module("a"), r.module("a")}},
		{"unnamed", []Module{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(nil, tt.modules...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInitializeAllHealthy(t *testing.T) {
	r := &recorder{}
	in, _ := New(nil, standardGraph(r)...)

	report, err := in.InitializeAll(context.Background())
	if err != nil {
		t.Fatalf("InitializeAll: %v", err)
	}
	if report.Overall != model.Healthy {
		t.Errorf("expected healthy, got %s", report.Overall)
	}
	if diff := cmp.Diff(in.Order(), r.got()); diff != "" {
		t.Errorf("init order mismatch:\n%s", diff)
	}
	if len(report.Capabilities) != 6 {
		t.Errorf("expected 6 capabilities, got %v", report.Capabilities)
	}
	if diff := cmp.Diff([]string{"System operating normally - no actions required"}, report.RecommendedActions); diff != "" {
		t.Errorf("recommendations mismatch:\n%s", diff)
	}
}

func TestOrchestratorReadyOnlyAfterDependencies(t *testing.T) {
	r := &recorder{}
	modules := standardGraph(r)
	var in *Initializer
	var depsReady bool
	modules[0].SelfTest = func(context.Context) error {
		depsReady = true
		for _, dep := range modules[0].Dependencies {
			if st, _ := in.Status(dep); st.State != model.StateReady {
				depsReady = false
			}
		}
		return nil
	}
	in, _ = New(nil, modules...)
	if _, err := in.InitializeAll(context.Background()); err != nil {
		t.Fatalf("InitializeAll: %v", err)
	}
	if !depsReady {
		t.Error("expected every dependency ready before the orchestrator self-test")
	}
}

func TestFailedSelfTestAbortsSequence(t *testing.T) {
	r := &recorder{}
	modules := standardGraph(r)
	boom := errors.New("boom")
	modules[2].SelfTest = func(context.Context) error { return boom } // archetype_translator

	in, _ := New(nil, modules...)
	report, err := in.InitializeAll(context.Background())
	if !errors.Is(err, ErrModuleInit) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrModuleInit wrapping boom, got %v", err)
	}

	st, _ := in.Status("archetype_translator")
	if st.State != model.StateError || st.Error == "" {
		t.Errorf("expected error state with message, got %+v", st)
	}
	for _, name := range []string{"permission_evaluator", "shadow_matcher", "enhancement_orchestrator"} {
		if st, _ := in.Status(name); st.State != model.StateNotInitialized {
			t.Errorf("expected %s not initialized, got %s", name, st.State)
		}
	}
	if report.Overall != model.Critical {
		t.Errorf("expected critical, got %s", report.Overall)
	}
}

func TestInitPanicBecomesError(t *testing.T) {
	in, _ := New(nil, Module{Name: "a", Init: func(context.Context) error { panic("kaboom") }})
	_, err := in.InitializeAll(context.Background())
	if !errors.Is(err, ErrModuleInit) {
		t.Fatalf("expected ErrModuleInit, got %v", err)
	}
	if st, _ := in.Status("a"); st.State != model.StateError {
		t.Errorf("expected error state, got %s", st.State)
	}
}

func TestCancelledContextStopsStartup(t *testing.T) {
	r := &recorder{}
	in, _ := New(nil, standardGraph(r)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := in.InitializeAll(ctx)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrModuleInit) {
		t.Fatalf("expected cancellation wrapped in ErrModuleInit, got %v", err)
	}
	if len(r.got()) != 0 {
		t.Errorf("expected no module started, got %v", r.got())
	}
}

func TestRestartOnlyRerunsOneModule(t *testing.T) {
	r := &recorder{}
	in, _ := New(nil, standardGraph(r)...)
	if _, err := in.InitializeAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, _ := in.Status("protection_registry")

	if err := in.Restart(context.Background(), "shadow_matcher"); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	calls := r.got()
	if calls[len(calls)-1] != "shadow_matcher" || len(calls) != 7 {
		t.Errorf("expected one extra shadow_matcher init, got %v", calls)
	}
	after, _ := in.Status("protection_registry")
	if !after.LastUpdated.Equal(before.LastUpdated) {
		t.Error("expected untouched module status to stay the same")
	}
}

func TestRestartRequiresReadyDependencies(t *testing.T) {
	r := &recorder{}
	in, _ := New(nil, standardGraph(r)...)
	err := in.Restart(context.Background(), "shadow_matcher")
	if !errors.Is(err, ErrModuleInit) {
		t.Fatalf("expected ErrModuleInit, got %v", err)
	}
	if err := in.Restart(context.Background(), "ghost"); err == nil {
		t.Error("expected error for unknown module")
	}
}

func TestRestartAllRecovers(t *testing.T) {
	r := &recorder{}
	modules := standardGraph(r)
	fail := true
	modules[1].Init = func(context.Context) error { // shadow_matcher
		if fail {
			return errors.New("tables missing")
		}
		return nil
	}
	in, _ := New(nil, modules...)
	if _, err := in.InitializeAll(context.Background()); err == nil {
		t.Fatal("expected first start to fail")
	}

	fail = false
	report, err := in.RestartAll(context.Background())
	if err != nil {
		t.Fatalf("RestartAll: %v", err)
	}
	if report.Overall != model.Healthy {
		t.Errorf("expected healthy after restart, got %s", report.Overall)
	}
}

func TestOverall(t *testing.T) {
	st := func(states ...model.ModuleState) []model.ModuleStatus {
		out := make([]model.ModuleStatus, len(states))
		for i, s := range states {
			out[i] = model.ModuleStatus{Name: string(rune('a' + i)), State: s}
		}
		return out
	}
	R, E, I, N := model.StateReady, model.StateError, model.StateInitializing, model.StateNotInitialized
	tests := []struct {
		name string
		mods []model.ModuleStatus
		want model.OverallStatus
	}{
		{"all ready", st(R, R, R), model.Healthy},
		{"majority ready with error", st(R, R, E), model.Degraded},
		{"majority ready no error", st(R, R, I), model.Critical},
		{"half ready", st(R, E), model.Critical},
		{"none ready", st(N, N), model.Critical},
		{"empty", nil, model.Healthy},
	}
	for _, tt := range tests {
		if got := Overall(tt.mods); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestHealthRecommendations(t *testing.T) {
	mods := []model.ModuleStatus{
		{Name: "a", State: model.StateReady},
		{Name: "b", State: model.StateReady},
		{Name: "c", State: model.StateError},
	}
	got := recommendations(mods, Overall(mods))
	want := []string{
		"Investigate errors in: c",
		"Monitor system performance and consider module restart",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("recommendations mismatch (-want +got):\n%s", diff)
	}
}

func TestHealthCheckConcurrentWithRestart(t *testing.T) {
	r := &recorder{}
	in, _ := New(nil, standardGraph(r)...)
	in.InitializeAll(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				report := in.HealthCheck()
				if len(report.Modules) != 6 {
					t.Errorf("expected 6 modules, got %d", len(report.Modules))
				}
			}
		}()
	}
	for j := 0; j < 10; j++ {
		in.RestartAll(context.Background())
	}
	wg.Wait()
}
