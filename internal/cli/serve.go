package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/wisdomgate/internal/config"
	"github.com/ppiankov/wisdomgate/internal/server"
	"github.com/ppiankov/wisdomgate/internal/telemetry"
)

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "gRPC listen port (default server.port)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC health service with hot reload",
	Long: "Initializes every module and serves grpc.health.v1.Health.\n" +
		"Service \"\" is SERVING while the system is healthy or degraded;\n" +
		"wisdomgate.module.<name> is SERVING while that module is ready.\n" +
		"Data and config files are watched and reloaded on change.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}
	srv := server.New(a, server.Config{Port: port, HealthInterval: cfg.Server.HealthInterval}, logger)

	cfgFile := configPath
	if cfgFile == "" {
		cfgFile = config.DefaultPath()
	}
	watchPaths := []string{cfgFile, cfg.Data.Protection, cfg.Data.Archetypes, cfg.Data.Shadow, cfg.Profiles.File}
	reloader, err := server.NewReloader(srv, watchPaths)
	if err != nil {
		logger.Warn("hot-reload disabled", zap.Error(err))
	}
	if reloader != nil {
		go reloader.Run(ctx)
	}
	go srv.Watch(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down wisdomgate...")
		cancel()
		srv.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "wisdomgate health server listening on :%d\n", port)
	if reloader != nil && len(reloader.Paths()) > 0 {
		fmt.Fprintf(os.Stderr, "Watching %d file(s) for changes\n", len(reloader.Paths()))
	}
	fmt.Fprintln(os.Stderr)

	return srv.Serve()
}
