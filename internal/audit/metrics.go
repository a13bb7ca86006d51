package audit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/wisdomgate/internal/model"
)

// RequesterMetrics aggregates one requester's enhancement history.
type RequesterMetrics struct {
	RequesterID         string `json:"requester_id"`
	Requests            int    `json:"requests"`
	EnhancementsApplied int    `json:"enhancements_applied"`
	// ProtocolsRespected counts enhancements that drew on a tradition
	// above open with every protocol honored.
	ProtocolsRespected    int    `json:"protocols_respected"`
	CrossCulturalInsights int    `json:"cross_cultural_insights"`
	OptedOut              int    `json:"opted_out"`
	LastTimestamp         string `json:"last_timestamp"`
}

// Metrics aggregates enhancement entries per requester, sorted by id.
// An empty requesterID returns every requester. Entries without a
// requester are not attributed to anyone.
func Metrics(path, requesterID string) ([]RequesterMetrics, error) {
	result, err := Replay(path, ReplayFilter{RequesterID: requesterID})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*RequesterMetrics)
	for _, e := range result.Entries {
		if e.Type != TypeEnhancement || e.RequesterID == "" {
			continue
		}
		m, ok := byID[e.RequesterID]
		if !ok {
			m = &RequesterMetrics{RequesterID: e.RequesterID}
			byID[e.RequesterID] = m
		}
		m.add(e)
	}

	out := make([]RequesterMetrics, 0, len(byID))
	for _, m := range byID {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequesterID < out[j].RequesterID })
	return out, nil
}

func (m *RequesterMetrics) add(e AuditEntry) {
	m.Requests++
	m.LastTimestamp = e.Timestamp
	switch e.Decision {
	case OutcomeOptedOut:
		m.OptedOut++
		return
	case OutcomeEnhanced:
		m.EnhancementsApplied++
	default:
		return
	}
	if lvl := model.ProtectionLevel(e.Level); e.Respected && lvl.Valid() && model.LevelRank[lvl] > model.LevelRank[model.Open] {
		m.ProtocolsRespected++
	}
	if e.Insights > 0 {
		m.CrossCulturalInsights++
	}
}

// FormatMetrics renders metrics as a text table.
func FormatMetrics(ms []RequesterMetrics) string {
	if len(ms) == 0 {
		return "No enhancement history found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %8s %8s %9s %8s %9s\n", "REQUESTER", "REQUESTS", "ENHANCED", "PROTOCOLS", "INSIGHTS", "OPTED-OUT")
	for _, m := range ms {
		fmt.Fprintf(&b, "%-20s %8d %8d %9d %8d %9d\n",
			truncate(m.RequesterID, 20), m.Requests, m.EnhancementsApplied,
			m.ProtocolsRespected, m.CrossCulturalInsights, m.OptedOut)
	}
	return b.String()
}
