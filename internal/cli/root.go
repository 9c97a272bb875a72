// Package cli defines the command tree: run, simulate and serve.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polypulse/engine/config"
	"github.com/polypulse/engine/internal/domain"
)

var (
	configPath string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "polypulse",
	Short:         "Paper-trading decision engine",
	Long:          "Scores a small market universe each cycle and trades it on paper. No real orders, ever.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = zap.NewProduction()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to yaml config")
	rootCmd.AddCommand(runCmd, simulateCmd, serveCmd)
}

// consoleObserver prints log-type progress events; structured payloads stay
// on the SSE/audit side.
func consoleObserver(domainEvent domain.ProgressEvent) {
	if domainEvent.Type == domain.EventLog && domainEvent.Message != "" {
		fmt.Println(domainEvent.Message)
	}
}
