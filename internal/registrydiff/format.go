package registrydiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	if !r.HasChanges {
		return fmt.Sprintf("Registry diff: %s -> %s\n\nNo changes detected.\n", r.OldPath, r.NewPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Registry diff: %s -> %s\n", r.OldPath, r.NewPath)

	if len(r.TraditionChanges) > 0 {
		b.WriteString("\n  Traditions:\n")
		for _, tc := range r.TraditionChanges {
			sign := "+"
			if tc.Type == "removed" {
				sign = "-"
			}
			fmt.Fprintf(&b, "    %s %s (%s)\n", sign, tc.Tradition, tc.Level)
		}
	}

	current := ""
	for _, c := range r.Changes {
		if c.Tradition != current {
			current = c.Tradition
			fmt.Fprintf(&b, "\n  %s:\n", current)
		}
		switch {
		case c.Old == "":
			fmt.Fprintf(&b, "    %-28s + %s", c.Field+":", c.New)
		case c.New == "":
			fmt.Fprintf(&b, "    %-28s - %s", c.Field+":", c.Old)
		default:
			fmt.Fprintf(&b, "    %-28s %s -> %s", c.Field+":", c.Old, c.New)
		}
		if c.Comment != "" {
			fmt.Fprintf(&b, "  (%s)", c.Comment)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}
