package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wisdomgate/internal/archetype"
	"github.com/ppiankov/wisdomgate/internal/config"
	"github.com/ppiankov/wisdomgate/internal/profile/sqlite"
	"github.com/ppiankov/wisdomgate/internal/registry"
	"github.com/ppiankov/wisdomgate/internal/shadow"
)

var (
	initDir   string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", "", "Config directory (default ~/.wisdomgate)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap wisdomgate configuration and data tables",
	Long: `Creates the config directory with config.yaml, editable copies of the
built-in protection registry, archetype tables and shadow phrases, an
example profiles file, and the SQLite profile store.

Existing files are left alone unless --force is given.`,
	RunE: runInit,
}

const profilesExample = `# Static cultural profiles, looked up by requester id after the SQLite store.
# Example:
#
# profiles:
#   - requester_id: user-123
#     primary_culture: celtic
#     cultural_identities: [celtic]
#     strengths: [storytelling]
#     trauma_context:
#       suppression_markers: [language was taken]

profiles: []
`

func runInit(cmd *cobra.Command, args []string) error {
	dir := initDir
	if dir == "" {
		dir = config.Dir()
	}
	if dir == "" {
		return errors.New("cannot determine home directory; pass --dir")
	}

	var created []string
	files := []struct {
		name    string
		content []byte
	}{
		{"config.yaml", []byte(config.DefaultYAML(dir))},
		{"protection.yaml", registry.DefaultYAML()},
		{"archetypes.yaml", archetype.DefaultYAML()},
		{"shadow.yaml", shadow.DefaultYAML()},
		{"profiles.yaml", []byte(profilesExample)},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		wrote, err := writeIfMissing(path, f.content)
		if err != nil {
			return err
		}
		if wrote {
			created = append(created, path)
		}
	}

	dbPath := filepath.Join(dir, "profiles.db")
	_, statErr := os.Stat(dbPath)
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("create profile store: %w", err)
	}
	if err := store.Close(); err != nil {
		return err
	}
	if os.IsNotExist(statErr) {
		created = append(created, dbPath)
	}

	// Print summary.
	fmt.Println("wisdomgate init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
		fmt.Println()
	}

	fmt.Println("Verify:")
	fmt.Println("  wisdomgate health")
	fmt.Println()
	fmt.Println("Try a decision:")
	fmt.Println("  wisdomgate evaluate celtic --intention education")
	return nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path string, content []byte) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
