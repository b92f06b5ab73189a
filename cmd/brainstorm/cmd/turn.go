package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	turnProject string
	turnUser    string
)

var turnCmd = &cobra.Command{
	Use:   "turn [message]",
	Short: "Process a single conversation turn from the terminal",
	Long: `Run one message through the full turn pipeline and print the
resulting messages and state summary. Useful for scripting and for
poking at workflows without the HTTP server.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTurn,
}

func init() {
	turnCmd.Flags().StringVarP(&turnProject, "project", "p", "default",
		"project ID to process the turn against")
	turnCmd.Flags().StringVarP(&turnUser, "user", "u", "cli",
		"user ID attributed to the message")
	rootCmd.AddCommand(turnCmd)
}

func runTurn(cmd *cobra.Command, args []string) error {
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

	message := strings.Join(args, " ")
	result, err := eng.coordinator.Process(ctx, turnProject, turnUser, message)
	if err != nil {
		return err
	}

	for _, msg := range result.Messages {
		fmt.Println(msg)
		fmt.Println()
	}

	state := result.UpdatedState
	fmt.Printf("-- project %s at revision %d, %d item(s)\n",
		state.ID, state.Revision, len(state.Items))

	// Let the worker flush the fire-and-forget writes before exit.
	time.Sleep(100 * time.Millisecond)
	return nil
}
