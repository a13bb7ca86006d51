package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wisdomgate/internal/model"
)

var (
	assessCulture string
	assessFormat  string
)

func init() {
	rootCmd.AddCommand(assessCmd)
	assessCmd.Flags().StringVar(&assessCulture, "culture", "", "Primary culture (detected from text when empty)")
	assessCmd.Flags().StringVarP(&assessFormat, "format", "f", "text", "Output format (text|json)")
}

var assessCmd = &cobra.Command{
	Use:   "assess <text>",
	Short: "Detect cultural shadow triggers in text",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssess,
}

func runAssess(cmd *cobra.Command, args []string) error {
	a, err := startApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c := a.Components()
	var hint *model.CulturalProfile
	if assessCulture != "" {
		hint = &model.CulturalProfile{PrimaryCulture: assessCulture}
	}
	p := c.Detector.Detect(args[0], hint)
	assessment := c.Matcher.AssessFor(args[0], p)
	readiness := c.Matcher.Readiness(args[0])

	if assessFormat == "json" {
		return printJSON(map[string]any{
			"culture":    p.PrimaryCulture,
			"assessment": assessment,
			"readiness":  readiness,
		})
	}
	fmt.Printf("Culture:    %s\n", p.PrimaryCulture)
	fmt.Print(formatAssessment(assessment, readiness))
	return nil
}
