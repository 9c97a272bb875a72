package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/services/digest"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the three standard bankroll tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer app.close()

		summaries, err := app.eng.RunSimulations(cmd.Context(), consoleObserver)
		if err != nil {
			return err
		}

		for _, summary := range summaries {
			text := digest.Format(summary, time.Now())
			fmt.Println()
			fmt.Println(text)

			if app.sender != nil {
				if err := app.sender.Send(cmd.Context(), text); err != nil {
					logger.Error("send digest", zap.String("profile", summary.Profile), zap.Error(err))
				}
			}
		}
		return nil
	},
}
