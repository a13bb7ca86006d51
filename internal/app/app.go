// Package app is the composition root: it builds every component from
// config, starts them through the lifecycle initializer and publishes the
// ready set for request handling.
package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ppiankov/wisdomgate/internal/archetype"
	"github.com/ppiankov/wisdomgate/internal/audit"
	"github.com/ppiankov/wisdomgate/internal/config"
	"github.com/ppiankov/wisdomgate/internal/culture"
	"github.com/ppiankov/wisdomgate/internal/enhance"
	"github.com/ppiankov/wisdomgate/internal/lifecycle"
	"github.com/ppiankov/wisdomgate/internal/logging"
	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/permission"
	"github.com/ppiankov/wisdomgate/internal/profile"
	"github.com/ppiankov/wisdomgate/internal/profile/sqlite"
	"github.com/ppiankov/wisdomgate/internal/registry"
	"github.com/ppiankov/wisdomgate/internal/shadow"
)

// Module names.
const (
	ModuleRegistry     = "protection_registry"
	ModuleDetector     = "context_detector"
	ModuleEvaluator    = "permission_evaluator"
	ModuleTranslator   = "archetype_translator"
	ModuleMatcher      = "shadow_matcher"
	ModuleOrchestrator = "enhancement_orchestrator"
)

// Components is one immutable, fully initialized set of collaborators.
type Components struct {
	Registry     *registry.Registry
	Detector     *culture.Detector
	Evaluator    *permission.Evaluator
	Translator   *archetype.Translator
	Matcher      *shadow.Matcher
	Orchestrator *enhance.Orchestrator
}

// App owns long-lived resources and the live component set.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *sqlite.Store
	audit    *audit.Log
	profiles profile.Provider

	init *lifecycle.Initializer

	// runMu serializes module runs with publishing. staging holds the
	// latest instance of each module; built holds the set the current
	// orchestrator was wired from, which is what gets published.
	runMu   sync.Mutex
	staging Components
	built   Components
	live    atomic.Pointer[Components]
}

// New opens the profile store and audit log named by cfg and wires the
// module graph. Nothing is initialized until Initialize.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{cfg: cfg, logger: logging.OrNop(logger)}

	var chain profile.Chain
	if cfg.Profiles.DB != "" {
		store, err := sqlite.Open(cfg.Profiles.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to open profile store: %w", err)
		}
		a.store = store
		chain = append(chain, store)
	}
	if cfg.Profiles.File != "" {
		static, err := profile.LoadFile(cfg.Profiles.File)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		chain = append(chain, static)
	}
	if len(chain) > 0 {
		a.profiles = chain
	}

	if cfg.Audit.Log != "" {
		l, err := audit.Open(cfg.Audit.Log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.audit = l
	}

	in, err := lifecycle.New(a.logger, a.modules()...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.init = in
	return a, nil
}

func (a *App) modules() []lifecycle.Module {
	return []lifecycle.Module{
		{
			Name:         ModuleRegistry,
			Capabilities: []string{"protection_lookup", "membership_check"},
			Init: func(context.Context) error {
				reg, err := registry.Load(a.cfg.Data.Protection)
				if err != nil {
					return err
				}
				a.staging.Registry = reg
				return nil
			},
			SelfTest: func(context.Context) error {
				if a.staging.Registry.Len() == 0 {
					return errors.New("protection registry is empty")
				}
				return nil
			},
		},
		{
			Name:         ModuleDetector,
			Capabilities: []string{"culture_detection"},
			Init: func(context.Context) error {
				// Reads the registry file on its own so detection has no start-order coupling.
				reg, err := registry.Load(a.cfg.Data.Protection)
				if err != nil {
					return err
				}
				a.staging.Detector = culture.New(reg)
				return nil
			},
			SelfTest: func(context.Context) error {
				if p := a.staging.Detector.Detect("", nil); p.PrimaryCulture != model.UniversalCulture {
					return fmt.Errorf("empty text detected as %q", p.PrimaryCulture)
				}
				return nil
			},
		},
		{
			Name:         ModuleEvaluator,
			Dependencies: []string{ModuleRegistry},
			Capabilities: []string{"permission_evaluation", "sharing_validation"},
			Init: func(context.Context) error {
				a.staging.Evaluator = permission.New(a.staging.Registry)
				return nil
			},
			SelfTest: func(context.Context) error {
				d := a.staging.Evaluator.Evaluate(model.WisdomRequest{TraditionID: "wisdomgate.selftest.unregistered"})
				if d.Permitted {
					return errors.New("unregistered tradition was permitted")
				}
				return nil
			},
		},
		{
			Name:         ModuleTranslator,
			Dependencies: []string{ModuleRegistry},
			Capabilities: []string{"archetype_translation"},
			Init: func(context.Context) error {
				tr, err := archetype.Load(a.cfg.Data.Archetypes)
				if err != nil {
					return err
				}
				for _, id := range tr.Traditions() {
					if _, ok := a.staging.Registry.Lookup(id); !ok {
						a.logger.Warn("archetype tradition missing from protection registry; it will always be denied",
							zap.String("tradition", id))
					}
				}
				a.staging.Translator = tr
				return nil
			},
			SelfTest: func(context.Context) error {
				tr := a.staging.Translator
				concepts, traditions := tr.Concepts(), tr.Traditions()
				if len(concepts) == 0 || len(traditions) == 0 {
					return errors.New("archetype tables are empty")
				}
				first := tr.Translate(concepts[0], traditions[0])
				if !reflect.DeepEqual(first, tr.Translate(concepts[0], traditions[0])) {
					return errors.New("translation is not idempotent")
				}
				return nil
			},
		},
		{
			Name:         ModuleMatcher,
			Dependencies: []string{ModuleDetector, ModuleRegistry},
			Capabilities: []string{"shadow_assessment"},
			Init: func(context.Context) error {
				m, err := shadow.Load(a.cfg.Data.Shadow, a.cfg.Shadow)
				if err != nil {
					return err
				}
				a.staging.Matcher = m
				return nil
			},
			SelfTest: func(context.Context) error {
				if a.staging.Matcher.Assess("", nil) != nil {
					return errors.New("empty text produced an assessment")
				}
				s := a.staging.Matcher.Scoring()
				if r := a.staging.Matcher.Readiness(""); r < s.MinReadiness || r > s.MaxReadiness {
					return fmt.Errorf("readiness %v outside bounds", r)
				}
				return nil
			},
		},
		{
			Name: ModuleOrchestrator,
			Dependencies: []string{
				ModuleRegistry, ModuleDetector, ModuleEvaluator, ModuleTranslator, ModuleMatcher,
			},
			Capabilities: []string{"response_enhancement"},
			Init: func(context.Context) error {
				deps := enhance.Deps{
					Evaluator:  a.staging.Evaluator,
					Translator: a.staging.Translator,
					Matcher:    a.staging.Matcher,
					Detector:   a.staging.Detector,
					Profiles:   a.profiles,
					Logger:     a.logger,
				}
				if a.audit != nil {
					deps.Recorder = a.audit
				}
				o, err := enhance.New(enhance.Config{
					Enabled:          a.cfg.Enhancement.Enabled,
					ProfileTimeout:   a.cfg.Enhancement.ProfileTimeout,
					DefaultIntention: a.cfg.Enhancement.DefaultIntention,
				}, deps)
				if err != nil {
					return err
				}
				a.staging.Orchestrator = o
				a.built = Components{
					// The registry the evaluator actually consults, which may
					// predate a registry restart.
					Registry:     a.staging.Evaluator.Registry(),
					Detector:     a.staging.Detector,
					Evaluator:    a.staging.Evaluator,
					Translator:   a.staging.Translator,
					Matcher:      a.staging.Matcher,
					Orchestrator: o,
				}
				return nil
			},
			SelfTest: func(ctx context.Context) error {
				return a.staging.Orchestrator.SelfTest(ctx)
			},
		},
	}
}

// Initialize starts every module and publishes the result.
func (a *App) Initialize(ctx context.Context) (model.HealthReport, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	report, err := a.init.InitializeAll(ctx)
	if err != nil {
		return report, err
	}
	a.publishLocked()
	return report, nil
}

// Reload rebuilds every module from config. On failure the previously
// published components keep serving.
func (a *App) Reload(ctx context.Context) (model.HealthReport, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	report, err := a.init.RestartAll(ctx)
	if err != nil {
		a.logger.Error("reload failed, keeping previous components", zap.Error(err))
		return report, err
	}
	a.publishLocked()
	a.logger.Info("components reloaded", zap.String("registry_hash", a.built.Registry.Hash()))
	return report, nil
}

// Restart re-runs one module. Dependents keep the instances they were
// built with; only restarting the orchestrator publishes a new set, made
// of exactly the instances it was wired from.
func (a *App) Restart(ctx context.Context, name string) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if err := a.init.Restart(ctx, name); err != nil {
		return err
	}
	if name == ModuleOrchestrator {
		a.publishLocked()
	}
	return nil
}

// publishLocked must be called with runMu held.
func (a *App) publishLocked() {
	snap := a.built
	a.live.Store(&snap)
}

// Health reports module status.
func (a *App) Health() model.HealthReport { return a.init.HealthCheck() }

// Modules returns module names in start order.
func (a *App) Modules() []string { return a.init.Order() }

// Components returns the live set, or nil before a successful Initialize.
func (a *App) Components() *Components { return a.live.Load() }

// Orchestrator returns the live orchestrator, or nil.
func (a *App) Orchestrator() *enhance.Orchestrator {
	if c := a.live.Load(); c != nil {
		return c.Orchestrator
	}
	return nil
}

// Config returns the settings the app was built with.
func (a *App) Config() *config.Config { return a.cfg }

// ProfileStore returns the SQLite store, or nil when profiles.db is unset.
func (a *App) ProfileStore() *sqlite.Store { return a.store }

// AuditLog returns the decision log, or nil when audit.log is unset.
func (a *App) AuditLog() *audit.Log { return a.audit }

// Close releases the profile store and audit log.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	return errors.Join(errs...)
}
