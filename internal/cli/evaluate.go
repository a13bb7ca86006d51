package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/wisdomgate/internal/model"
)

var (
	evalBackground string
	evalIntention  string
	evalConsent    bool
	evalElder      bool
	evalFormat     string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalBackground, "background", "", "Requester's cultural background")
	evaluateCmd.Flags().StringVar(&evalIntention, "intention", "", "Intended use of the knowledge")
	evaluateCmd.Flags().BoolVar(&evalConsent, "consent", false, "Community consent has been obtained")
	evaluateCmd.Flags().BoolVar(&evalElder, "elder", false, "Elder permission has been obtained")
	evaluateCmd.Flags().StringVarP(&evalFormat, "format", "f", "text", "Output format (text|json)")
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <tradition>",
	Short: "Decide whether a tradition's wisdom may be used",
	Long: "Evaluates a wisdom request against the protection registry and prints\n" +
		"permit or deny with conditions, attribution and reciprocity guidance.\n\n" +
		"Exit code 0 on permit, 2 on deny. The decision is written to the audit log\n" +
		"when audit.log is configured.",
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := startApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c := a.Components()
	d := c.Evaluator.Evaluate(model.WisdomRequest{
		TraditionID:         args[0],
		RequesterBackground: evalBackground,
		IntentionForUse:     evalIntention,
		CommunityConsent:    evalConsent,
		ElderPermission:     evalElder,
	})
	if log := a.AuditLog(); log != nil {
		if err := log.RecordDecision(uuid.NewString(), d, c.Registry.Hash()); err != nil {
			logger.Warn("audit write failed", zap.Error(err))
		}
	}

	switch evalFormat {
	case "json":
		if err := printJSON(d); err != nil {
			return err
		}
	default:
		fmt.Print(formatDecision(d))
	}

	if !d.Permitted {
		a.Close()
		os.Exit(2)
	}
	return nil
}
