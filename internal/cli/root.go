package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/wisdomgate/internal/app"
	"github.com/ppiankov/wisdomgate/internal/config"
	"github.com/ppiankov/wisdomgate/internal/logging"
)

var (
	configPath string
	verbose    bool

	// Set by PersistentPreRunE for every subcommand.
	cfg     *config.Config
	cfgHash string
	logger  = zap.NewNop()
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.wisdomgate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

var rootCmd = &cobra.Command{
	Use:   "wisdomgate",
	Short: "Permission-gated cultural wisdom enhancement",
	Long: "Checks whether a requester may draw on a cultural tradition's knowledge,\n" +
		"translates universal concepts into tradition-specific expressions, and\n" +
		"enhances responses only with wisdom the requester is permitted to use.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, hash, err := config.Load(configPath)
		if err != nil {
			return err
		}
		level := c.Log.Level
		if verbose {
			level = "debug"
		}
		l, err := logging.New(level)
		if err != nil {
			return err
		}
		cfg, cfgHash, logger = c, hash, l
		logger.Debug("config loaded", zap.String("path", configPath), zap.String("sha256", cfgHash))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// startApp builds and initializes every component. Callers must Close it.
func startApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build components: %w", err)
	}
	if _, err := a.Initialize(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	out, err := marshalIndent(v)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
