package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wisdomgate/internal/model"
)

var (
	enhanceConcept    string
	enhanceBase       string
	enhanceMessage    string
	enhanceRequester  string
	enhanceTraditions []string
	enhanceIntention  string
	enhanceConsent    bool
	enhanceElder      bool
	enhanceFormat     string
)

func init() {
	rootCmd.AddCommand(enhanceCmd)
	enhanceCmd.Flags().StringVar(&enhanceConcept, "concept", "", "Universal concept to draw on (required)")
	enhanceCmd.Flags().StringVar(&enhanceBase, "base", "", "Base response to enhance (required)")
	enhanceCmd.Flags().StringVar(&enhanceMessage, "message", "", "Requester's message, used for culture detection")
	enhanceCmd.Flags().StringVar(&enhanceRequester, "requester", "", "Requester id for profile lookup")
	enhanceCmd.Flags().StringSliceVar(&enhanceTraditions, "tradition", nil, "Tradition to consider (repeatable)")
	enhanceCmd.Flags().StringVar(&enhanceIntention, "intention", "", "Intended use")
	enhanceCmd.Flags().BoolVar(&enhanceConsent, "consent", false, "Community consent has been obtained")
	enhanceCmd.Flags().BoolVar(&enhanceElder, "elder", false, "Elder permission has been obtained")
	enhanceCmd.Flags().StringVarP(&enhanceFormat, "format", "f", "text", "Output format (text|json)")
	enhanceCmd.MarkFlagRequired("concept")
	enhanceCmd.MarkFlagRequired("base")
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Enhance a response with permitted cultural wisdom",
	Long: "Runs the enhancement pipeline: profile, permission, translation, shadow\n" +
		"assessment and synthesis. The base response is always kept verbatim as\n" +
		"the start of the output.",
	RunE: runEnhance,
}

func runEnhance(cmd *cobra.Command, args []string) error {
	a, err := startApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.Orchestrator().Enhance(cmd.Context(), model.EnhancementRequest{
		RequesterID:      enhanceRequester,
		Message:          enhanceMessage,
		BaseResponse:     enhanceBase,
		Concept:          enhanceConcept,
		Traditions:       enhanceTraditions,
		Intention:        enhanceIntention,
		CommunityConsent: enhanceConsent,
		ElderPermission:  enhanceElder,
	})

	if enhanceFormat == "json" {
		return printJSON(res)
	}

	fmt.Println(res.EnhancedText)
	fmt.Println()
	fmt.Printf("Request:   %s\n", res.RequestID)
	fmt.Printf("Profile:   %s (%s)\n", res.Profile.PrimaryCulture, res.Report.ProfileSource)
	for _, d := range res.Decisions {
		fmt.Printf("Decision:  %-6s %s\n", d.Decision(), d.TraditionID)
	}
	if len(res.Recommendations) > 0 {
		fmt.Println("Recommendations:")
		for _, r := range res.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
	var failed []string
	for _, s := range res.Report.Stages {
		if !s.OK && !s.Skipped {
			failed = append(failed, s.Name)
		}
	}
	if len(failed) > 0 {
		fmt.Printf("Degraded stages: %s\n", strings.Join(failed, ", "))
	}
	return nil
}
