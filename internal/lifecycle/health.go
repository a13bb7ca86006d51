package lifecycle

import (
	"strings"

	"github.com/ppiankov/wisdomgate/internal/model"
)

// HealthCheck snapshots every module. It may run concurrently with a
// restart and then reflects whichever states were visible at the time.
//
// Overall status:
//  1. healthy: every module ready
//  2. degraded: more than half ready and at least one in error
//  3. critical: anything else
func (in *Initializer) HealthCheck() model.HealthReport {
	in.mu.RLock()
	modules := make([]model.ModuleStatus, 0, len(in.order))
	for _, name := range in.order {
		modules = append(modules, cloneStatus(in.status[name]))
	}
	in.mu.RUnlock()

	return model.HealthReport{
		Overall:            Overall(modules),
		Modules:            modules,
		Capabilities:       capabilities(modules),
		RecommendedActions: recommendations(modules, Overall(modules)),
		CheckedAt:          in.now().UTC(),
	}
}

// Overall grades a set of module statuses.
func Overall(modules []model.ModuleStatus) model.OverallStatus {
	ready, failed := 0, 0
	for _, m := range modules {
		switch m.State {
		case model.StateReady:
			ready++
		case model.StateError:
			failed++
		}
	}
	switch {
	case ready == len(modules):
		return model.Healthy
	case ready*2 > len(modules) && failed > 0:
		return model.Degraded
	default:
		return model.Critical
	}
}

func capabilities(modules []model.ModuleStatus) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range modules {
		if m.State != model.StateReady {
			continue
		}
		for _, c := range m.Capabilities {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func recommendations(modules []model.ModuleStatus, overall model.OverallStatus) []string {
	var failed, starting []string
	for _, m := range modules {
		switch m.State {
		case model.StateError:
			failed = append(failed, m.Name)
		case model.StateInitializing:
			starting = append(starting, m.Name)
		}
	}

	var recs []string
	if len(failed) > 0 {
		recs = append(recs, "Investigate errors in: "+strings.Join(failed, ", "))
	}
	if len(starting) > 0 {
		recs = append(recs, "Wait for initialization to complete: "+strings.Join(starting, ", "))
	}
	switch overall {
	case model.Critical:
		recs = append(recs,
			"Consider restarting the module system",
			"Check system dependencies and configuration")
	case model.Degraded:
		recs = append(recs, "Monitor system performance and consider module restart")
	}
	if len(recs) == 0 {
		recs = append(recs, "System operating normally - no actions required")
	}
	return recs
}
