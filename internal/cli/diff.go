package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wisdomgate/internal/registry"
	"github.com/ppiankov/wisdomgate/internal/registrydiff"
)

var (
	diffFormat      string
	diffFailLoosens bool
)

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
	diffCmd.Flags().BoolVar(&diffFailLoosens, "fail-on-looser", false, "Exit 1 if any change loosens protection")
}

var diffCmd = &cobra.Command{
	Use:   "diff <old-registry> <new-registry>",
	Short: "Compare two protection registries",
	Long:  "Shows added and removed traditions and per-tradition changes to level,\nconsent flags, contexts and membership keywords, marking each as\nstricter or looser.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	old, err := loadRegistryFile(args[0])
	if err != nil {
		return err
	}
	new, err := loadRegistryFile(args[1])
	if err != nil {
		return err
	}

	result := registrydiff.Diff(old, new)
	result.OldPath, result.NewPath = args[0], args[1]

	switch diffFormat {
	case "json":
		out, err := registrydiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(registrydiff.FormatText(result))
	}

	if diffFailLoosens && !result.Stricter() {
		os.Exit(1)
	}
	return nil
}

// loadRegistryFile reads a registry that must exist; unlike registry.Load
// it does not fall back to the built-in table.
func loadRegistryFile(path string) (*registry.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return registry.Parse(data)
}
