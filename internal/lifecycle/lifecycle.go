// Package lifecycle starts modules in dependency order and reports their health.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/wisdomgate/internal/logging"
	"github.com/ppiankov/wisdomgate/internal/model"
)

// ErrModuleInit wraps every startup and restart failure.
var ErrModuleInit = errors.New("module initialization failed")

// Module is one startable unit. Init builds it; SelfTest proves it works
// before it is marked ready. Either may be nil.
type Module struct {
	Name         string
	Dependencies []string
	Capabilities []string
	Init         func(ctx context.Context) error
	SelfTest     func(ctx context.Context) error
}

// Initializer owns module status. Only InitializeAll, Restart and
// RestartAll write status, and they are serialized.
type Initializer struct {
	logger  *zap.Logger
	modules map[string]Module
	order   []string
	now     func() time.Time

	runMu sync.Mutex

	mu     sync.RWMutex
	status map[string]model.ModuleStatus
}

// New validates the module graph and fixes the start order.
// Ties between independent modules keep registration order.
func New(logger *zap.Logger, modules ...Module) (*Initializer, error) {
	in := &Initializer{
		logger:  logging.OrNop(logger),
		modules: make(map[string]Module, len(modules)),
		now:     time.Now,
		status:  make(map[string]model.ModuleStatus, len(modules)),
	}
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		if m.Name == "" {
			return nil, fmt.Errorf("module name is required")
		}
		if _, dup := in.modules[m.Name]; dup {
			return nil, fmt.Errorf("duplicate module %q", m.Name)
		}
		in.modules[m.Name] = m
		names = append(names, m.Name)
	}
	for _, m := range modules {
		for _, dep := range m.Dependencies {
			if _, ok := in.modules[dep]; !ok {
				return nil, fmt.Errorf("module %q depends on unknown module %q", m.Name, dep)
			}
		}
	}

	order, err := topoSort(names, in.modules)
	if err != nil {
		return nil, err
	}
	in.order = order
	in.resetLocked()
	return in, nil
}

// topoSort is Kahn's algorithm, always picking the earliest-registered ready module.
func topoSort(names []string, modules map[string]Module) ([]string, error) {
	indegree := make(map[string]int, len(names))
	dependents := make(map[string][]string, len(names))
	for _, name := range names {
		for _, dep := range modules[name].Dependencies {
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	order := make([]string, 0, len(names))
	done := make(map[string]bool, len(names))
	for len(order) < len(names) {
		picked := ""
		for _, name := range names {
			if !done[name] && indegree[name] == 0 {
				picked = name
				break
			}
		}
		if picked == "" {
			var stuck []string
			for _, name := range names {
				if !done[name] {
					stuck = append(stuck, name)
				}
			}
			return nil, fmt.Errorf("dependency cycle among modules: %s", strings.Join(stuck, ", "))
		}
		done[picked] = true
		order = append(order, picked)
		for _, d := range dependents[picked] {
			indegree[d]--
		}
	}
	return order, nil
}

// Order returns the start order.
func (in *Initializer) Order() []string {
	return append([]string(nil), in.order...)
}

// InitializeAll starts every module in order and stops at the first failure.
func (in *Initializer) InitializeAll(ctx context.Context) (model.HealthReport, error) {
	in.runMu.Lock()
	defer in.runMu.Unlock()

	err := in.runAll(ctx)
	return in.HealthCheck(), err
}

// RestartAll resets every module to not_initialized and starts them again.
func (in *Initializer) RestartAll(ctx context.Context) (model.HealthReport, error) {
	in.runMu.Lock()
	defer in.runMu.Unlock()

	in.mu.Lock()
	in.resetLocked()
	in.mu.Unlock()

	err := in.runAll(ctx)
	return in.HealthCheck(), err
}

// Restart re-runs one module. Its dependencies must already be ready;
// dependents are left as they are.
func (in *Initializer) Restart(ctx context.Context, name string) error {
	in.runMu.Lock()
	defer in.runMu.Unlock()

	m, ok := in.modules[name]
	if !ok {
		return fmt.Errorf("unknown module %q", name)
	}
	for _, dep := range m.Dependencies {
		st, _ := in.Status(dep)
		if st.State != model.StateReady {
			return fmt.Errorf("%w: %s: dependency %s is %s", ErrModuleInit, name, dep, st.State)
		}
	}
	return in.run(ctx, m)
}

func (in *Initializer) runAll(ctx context.Context) error {
	for _, name := range in.order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrModuleInit, name, err)
		}
		if err := in.run(ctx, in.modules[name]); err != nil {
			return err
		}
	}
	return nil
}

func (in *Initializer) run(ctx context.Context, m Module) error {
	in.setState(m.Name, model.StateInitializing, "")
	start := in.now()

	err := call(ctx, m.Init)
	if err == nil {
		err = call(ctx, m.SelfTest)
		if err != nil {
			err = fmt.Errorf("self-test: %w", err)
		}
	}
	if err != nil {
		in.setState(m.Name, model.StateError, err.Error())
		in.logger.Error("module failed",
			zap.String("module", m.Name),
			zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrModuleInit, m.Name, err)
	}

	in.setState(m.Name, model.StateReady, "")
	in.logger.Debug("module ready",
		zap.String("module", m.Name),
		zap.Duration("elapsed", in.now().Sub(start)))
	return nil
}

// call runs fn and turns a panic into an error.
func call(ctx context.Context, fn func(context.Context) error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func (in *Initializer) setState(name string, state model.ModuleState, errMsg string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	st := in.status[name]
	st.State = state
	st.Error = errMsg
	st.LastUpdated = in.now().UTC()
	in.status[name] = st
}

func (in *Initializer) resetLocked() {
	for _, name := range in.order {
		m := in.modules[name]
		in.status[name] = model.ModuleStatus{
			Name:         name,
			State:        model.StateNotInitialized,
			Dependencies: append([]string(nil), m.Dependencies...),
			Capabilities: append([]string(nil), m.Capabilities...),
			LastUpdated:  in.now().UTC(),
		}
	}
}

// Status returns a copy of one module's status.
func (in *Initializer) Status(name string) (model.ModuleStatus, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	st, ok := in.status[name]
	return cloneStatus(st), ok
}

func cloneStatus(st model.ModuleStatus) model.ModuleStatus {
	st.Dependencies = append([]string(nil), st.Dependencies...)
	st.Capabilities = append([]string(nil), st.Capabilities...)
	return st
}
