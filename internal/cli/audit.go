package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wisdomgate/internal/audit"
)

var (
	replayRequest   string
	replayTradition string
	replayFrom      string
	replayTo        string
	replayFormat    string
	replayRequester string
	metricsFormat   string
	metricsFor      string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditReplayCmd)
	auditCmd.AddCommand(auditMetricsCmd)
	auditReplayCmd.Flags().StringVar(&replayRequest, "request", "", "Only entries for this request id")
	auditReplayCmd.Flags().StringVar(&replayTradition, "tradition", "", "Only entries for this tradition")
	auditReplayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	auditReplayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	auditReplayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
	auditReplayCmd.Flags().StringVar(&replayRequester, "requester", "", "Only entries for this requester id")
	auditMetricsCmd.Flags().StringVar(&metricsFor, "requester", "", "Only metrics for this requester id")
	auditMetricsCmd.Flags().StringVarP(&metricsFormat, "format", "f", "text", "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained decision log.\nThe path defaults to audit.log from config.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of an audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditVerify,
}

var auditReplayCmd = &cobra.Command{
	Use:   "replay [path]",
	Short: "Render a decision timeline from the audit log",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditReplay,
}

var auditMetricsCmd = &cobra.Command{
	Use:   "metrics [path]",
	Short: "Summarize enhancement outcomes per requester",
	Long:  "Counts enhancements applied, protocols respected and cross-cultural\ninsights for each requester recorded in the audit log.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditMetrics,
}

func auditPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cfg != nil && cfg.Audit.Log != "" {
		return cfg.Audit.Log, nil
	}
	return "", errors.New("no audit log path given and audit.log is not configured")
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}
	result := audit.Verify(path)
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditReplay(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}

	filter := audit.ReplayFilter{RequestID: replayRequest, Tradition: replayTradition, RequesterID: replayRequester}
	if replayFrom != "" {
		from, err := time.Parse(time.RFC3339, replayFrom)
		if err != nil {
			return fmt.Errorf("invalid --from time %q: %w", replayFrom, err)
		}
		filter.From = from
	}
	if replayTo != "" {
		to, err := time.Parse(time.RFC3339, replayTo)
		if err != nil {
			return fmt.Errorf("invalid --to time %q: %w", replayTo, err)
		}
		filter.To = to
	}

	result, err := audit.Replay(path, filter)
	if err != nil {
		return err
	}

	switch replayFormat {
	case "json":
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(audit.FormatTimeline(result))
	}
	return nil
}

func runAuditMetrics(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}
	ms, err := audit.Metrics(path, metricsFor)
	if err != nil {
		return err
	}

	switch metricsFormat {
	case "json":
		data, err := json.MarshalIndent(ms, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
		fmt.Println(string(data))
	default:
		fmt.Print(audit.FormatMetrics(ms))
	}
	return nil
}
