package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "------------------------------------------------------------------"

// FormatTimeline renders a replay as a text timeline.
func FormatTimeline(result *ReplayResult) string {
	label := result.Filter.label()
	if len(result.Entries) == 0 {
		return fmt.Sprintf("%s | No entries found.\n", label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s to %s UTC\n", label,
		formatStamp(result.Summary.FirstTimestamp, "2006-01-02 15:04:05"),
		formatStamp(result.Summary.LastTimestamp, "15:04:05"))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		fmt.Fprintf(&b, "%-10s %-7s %-11s %-26s %s\n",
			formatStamp(e.Timestamp, "15:04:05"),
			strings.ToUpper(e.Decision),
			e.Level,
			truncate(e.Tradition, 26),
			e.PolicyID)
	}

	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Summary: %d permit, %d deny", result.Summary.PermitCount, result.Summary.DenyCount)
	if result.Summary.MaxLevel != "" {
		fmt.Fprintf(&b, " | Highest level: %s", result.Summary.MaxLevel)
	}
	b.WriteString("\n")
	return b.String()
}

// FormatJSON renders a replay as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func (f ReplayFilter) label() string {
	switch {
	case f.RequestID != "":
		return "Request: " + f.RequestID
	case f.RequesterID != "":
		return "Requester: " + f.RequesterID
	case f.Tradition != "":
		return "Tradition: " + f.Tradition
	default:
		return "All entries"
	}
}

func formatStamp(ts, layout string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format(layout)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
