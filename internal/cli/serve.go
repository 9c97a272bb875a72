package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/polypulse/engine/internal/services/digest"
	"github.com/polypulse/engine/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard, streams and webhook",
	Long: "Starts the HTTP server with the dashboard page, SSE streams, strategy API and " +
		"the bias webhook. With a cron schedule configured, sessions also run unattended.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer app.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Schedule != "" {
			scheduler := cron.New()
			_, err := scheduler.AddFunc(cfg.Schedule, func() {
				logger.Info("scheduled session starting", zap.String("profile", cfg.Profile))
				summary, err := app.eng.Run(ctx, app.runParams())
				if err != nil {
					logger.Error("scheduled session", zap.Error(err))
					return
				}
				if app.sender != nil {
					if err := app.sender.Send(ctx, digest.Format(summary, time.Now())); err != nil {
						logger.Error("send digest", zap.Error(err))
					}
				}
			})
			if err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()
			logger.Info("scheduler armed", zap.String("spec", cfg.Schedule))
		}

		server := &web.Server{
			Addr:          cfg.HTTPAddr,
			Runner:        app.eng,
			Signals:       app.signals,
			Trades:        app.trades,
			Strategies:    app.strategies,
			Bias:          app.bias,
			Dashboard:     app.analytics,
			RunDefaults:   app.runParams(),
			WebhookSecret: cfg.WebhookSecret,
			Logger:        logger,
		}

		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		return server.Start(ctx)
	},
}
