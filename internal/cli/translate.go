package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var translateFormat string

func init() {
	rootCmd.AddCommand(translateCmd)
	translateCmd.Flags().StringVarP(&translateFormat, "format", "f", "text", "Output format (text|json)")
}

var translateCmd = &cobra.Command{
	Use:   "translate <concept> [tradition]",
	Short: "Translate a universal concept into a tradition's expression",
	Long:  "With a tradition, prints that tradition's expression of the concept.\nWithout one, lists the traditions that carry the concept.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTranslate,
}

func runTranslate(cmd *cobra.Command, args []string) error {
	a, err := startApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	tr := a.Components().Translator
	if len(args) == 1 {
		ids := tr.TraditionsFor(args[0])
		if translateFormat == "json" {
			return printJSON(ids)
		}
		if len(ids) == 0 {
			fmt.Printf("No tradition carries %q.\n", args[0])
			return nil
		}
		fmt.Printf("%s: %s\n", args[0], strings.Join(ids, ", "))
		return nil
	}

	t := tr.Translate(args[0], args[1])
	if translateFormat == "json" {
		return printJSON(t)
	}
	fmt.Print(formatTranslation(t))
	return nil
}
