package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validateIntention string

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateIntention, "intention", "", "Intention behind sharing")
}

var validateCmd = &cobra.Command{
	Use:   "validate <tradition> <content>",
	Short: "Check content against a tradition's sharing protocols",
	Long:  "Matches content and intention against the tradition's inappropriate\ncontexts. Exits 0 if sharing is appropriate, 1 otherwise. The outcome is\nwritten to the audit log when audit.log is configured.",
	Args:  cobra.ExactArgs(2),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := startApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c := a.Components()
	check := c.Evaluator.ValidateSharing(args[0], args[1], validateIntention)
	if log := a.AuditLog(); log != nil {
		if err := log.RecordSharing(uuid.NewString(), args[0], check.Valid, check.Matched, c.Registry.Hash()); err != nil {
			logger.Warn("audit write failed", zap.Error(err))
		}
	}
	if check.Valid {
		fmt.Println("OK: content is appropriate to share")
		return nil
	}
	fmt.Fprintf(os.Stderr, "NOT OK: %s\n", check.Guidance)
	a.Close()
	os.Exit(1)
	return nil
}
