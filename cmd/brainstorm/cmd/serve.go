package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ai-brainstorm-platform/brainstorm-engine/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Expose the turn pipeline over HTTP and run until interrupted.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go eng.worker.Run(ctx)

	serverCfg := web.DefaultConfig()
	serverCfg.Addr = cfg.Server.Addr
	serverCfg.CORSOrigins = cfg.Server.AllowedOrigins

	srv := web.New(serverCfg, eng.coordinator, eng.store, eng.logger)
	if err := srv.Start(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	eng.logger.Info("shutdown signal received")
	return srv.Shutdown(context.Background())
}
