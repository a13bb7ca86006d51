package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wisdomgate/internal/model"
	"github.com/ppiankov/wisdomgate/internal/profile"
	"github.com/ppiankov/wisdomgate/internal/profile/sqlite"
)

var (
	profilePrimary      string
	profileIdentities   []string
	profileStrengths    []string
	profileSuppression  []string
	profileGenerational []string
	profileEnhancement  bool
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileGetCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	profileSetCmd.Flags().StringVar(&profilePrimary, "primary", "", "Primary culture (default universal)")
	profileSetCmd.Flags().StringSliceVar(&profileIdentities, "identity", nil, "Cultural identity (repeatable)")
	profileSetCmd.Flags().StringSliceVar(&profileStrengths, "strength", nil, "Cultural strength (repeatable)")
	profileSetCmd.Flags().StringSliceVar(&profileSuppression, "suppression-marker", nil, "Extra suppression phrase for shadow detection (repeatable)")
	profileSetCmd.Flags().StringSliceVar(&profileGenerational, "intergenerational-marker", nil, "Extra intergenerational phrase for shadow detection (repeatable)")
	profileSetCmd.Flags().BoolVar(&profileEnhancement, "enhancement", true, "Cultural enhancement preference (--enhancement=false opts out)")
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored cultural profiles",
	Long:  "Stores requester profiles in the SQLite database named by profiles.db.\nThe orchestrator looks profiles up by requester id.",
}

var profileSetCmd = &cobra.Command{
	Use:   "set <requester-id>",
	Short: "Create or replace a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSet,
}

var profileGetCmd = &cobra.Command{
	Use:   "get <requester-id>",
	Short: "Show a profile from the store or the profiles file",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileGet,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <requester-id>",
	Short: "Remove a stored profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

func openProfileStore() (*sqlite.Store, error) {
	if cfg.Profiles.DB == "" {
		return nil, errors.New("profiles.db is not configured (run wisdomgate init)")
	}
	return sqlite.Open(cfg.Profiles.DB)
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	store, err := openProfileStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p := model.CulturalProfile{
		RequesterID:        args[0],
		PrimaryCulture:     profilePrimary,
		CulturalIdentities: profileIdentities,
		Strengths:          profileStrengths,
	}
	if len(profileSuppression) > 0 || len(profileGenerational) > 0 {
		p.TraumaContext = &model.TraumaContext{
			SuppressionMarkers:       profileSuppression,
			IntergenerationalMarkers: profileGenerational,
		}
	}
	if cmd.Flags().Changed("enhancement") {
		pref := profileEnhancement
		p.Preferences.CulturalEnhancement = &pref
	}
	if err := store.Save(cmd.Context(), p); err != nil {
		return err
	}
	fmt.Printf("Saved profile %s\n", args[0])
	return nil
}

func runProfileGet(cmd *cobra.Command, args []string) error {
	var chain profile.Chain
	if cfg.Profiles.DB != "" {
		store, err := sqlite.Open(cfg.Profiles.DB)
		if err != nil {
			return err
		}
		defer store.Close()
		chain = append(chain, store)
	}
	if cfg.Profiles.File != "" {
		static, err := profile.LoadFile(cfg.Profiles.File)
		if err != nil {
			return err
		}
		chain = append(chain, static)
	}

	p, err := chain.Lookup(cmd.Context(), args[0])
	if errors.Is(err, profile.ErrNotFound) {
		return fmt.Errorf("no profile for %q", args[0])
	}
	if err != nil {
		return err
	}

	fmt.Printf("Requester:  %s\n", p.RequesterID)
	fmt.Printf("Primary:    %s\n", p.PrimaryCulture)
	if len(p.CulturalIdentities) > 0 {
		fmt.Printf("Identities: %s\n", strings.Join(p.CulturalIdentities, ", "))
	}
	if len(p.Strengths) > 0 {
		fmt.Printf("Strengths:  %s\n", strings.Join(p.Strengths, ", "))
	}
	if tc := p.TraumaContext; tc != nil {
		fmt.Printf("Markers:    %d suppression, %d intergenerational\n",
			len(tc.SuppressionMarkers), len(tc.IntergenerationalMarkers))
	}
	if !p.WantsEnhancement() {
		fmt.Println("Enhancement: opted out")
	}
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	store, err := openProfileStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted profile %s\n", args[0])
	return nil
}
