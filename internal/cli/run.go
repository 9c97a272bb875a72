package cli

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/services/digest"
	"github.com/polypulse/engine/internal/services/engine"
)

var (
	runProfile  string
	runBankroll string
	runCycles   int
	runTarget   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one paper-trading session",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer app.close()

		params, err := applyRunOverrides(app.runParams(), runProfile, runBankroll, runCycles, runTarget)
		if err != nil {
			return err
		}
		params.Observer = consoleObserver

		summary, err := app.eng.Run(cmd.Context(), params)
		if err != nil {
			return err
		}

		text := digest.Format(summary, time.Now())
		fmt.Println()
		fmt.Println(text)

		if app.sender != nil {
			if err := app.sender.Send(cmd.Context(), text); err != nil {
				logger.Error("send digest", zap.Error(err))
			} else {
				fmt.Println("Digest sent to Telegram.")
			}
		}
		return nil
	},
}

// applyRunOverrides folds the run flags into the configured defaults. A
// bankroll override also resizes the risk limits, which are derived from the
// session's bankroll, not the configured one.
func applyRunOverrides(params engine.RunParams, profile, bankroll string, cycles int, target string) (engine.RunParams, error) {
	if profile != "" {
		params.Profile = profile
	}
	if bankroll != "" {
		b, err := decimal.NewFromString(bankroll)
		if err != nil || b.Sign() <= 0 {
			return engine.RunParams{}, fmt.Errorf("invalid --bankroll %q", bankroll)
		}
		params.Bankroll = b
		params.Risk = engine.DefaultRisk(b)
	}
	if cycles > 0 {
		params.MaxCycles = cycles
	}
	if target != "" {
		tgt, err := decimal.NewFromString(target)
		if err != nil || tgt.Sign() <= 0 {
			return engine.RunParams{}, fmt.Errorf("invalid --target %q", target)
		}
		params.TargetProfit = tgt
	}
	return params, nil
}

func init() {
	runCmd.Flags().StringVar(&runProfile, "profile", "", "portfolio profile name")
	runCmd.Flags().StringVar(&runBankroll, "bankroll", "", "seed bankroll in dollars")
	runCmd.Flags().IntVar(&runCycles, "cycles", 0, "max cycles for the session")
	runCmd.Flags().StringVar(&runTarget, "target", "", "session profit target in dollars")
}
