package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wisdomgate/internal/app"
	"github.com/ppiankov/wisdomgate/internal/model"
)

var healthFormat string

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().StringVarP(&healthFormat, "format", "f", "text", "Output format (text|json)")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Initialize every module and report health",
	Long:  "Starts modules in dependency order, runs their self-tests and prints\nthe health report. Exits 0 only when the system is healthy.",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	report, initErr := a.Initialize(cmd.Context())
	switch healthFormat {
	case "json":
		if err := printJSON(report); err != nil {
			return err
		}
	default:
		fmt.Print(formatHealth(report))
	}

	if initErr != nil || report.Overall != model.Healthy {
		a.Close()
		os.Exit(1)
	}
	return nil
}
