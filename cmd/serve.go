package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/car-price-checker/internal/api"
	"github.com/sells-group/car-price-checker/internal/monitoring"
	"github.com/sells-group/car-price-checker/internal/notify"
	"github.com/sells-group/car-price-checker/internal/payment"
)

const shutdownTimeout = 15 * time.Second

var (
	servePort    int
	serveOffline string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the price check HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initCheck(ctx, "serve", serveOffline)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Alerter.Enabled() {
			go monitoring.NewChecker(env.Collector, env.Alerter, cfg.Monitoring).Run(ctx)
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildHandler(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildHandler wires the API routes to env and the optional email and
// payment providers.
func buildHandler(env *checkEnv) http.Handler {
	mailer := notify.New(cfg.Resend)
	if !mailer.Configured() {
		zap.L().Warn("PRICECHECK_RESEND_KEY not set, report emails are disabled")
	}

	payments := payment.New(cfg.Stripe, payment.NewCalculator(payment.RatesFromConfig(cfg.Checkout)))
	if !payments.Configured() {
		zap.L().Warn("PRICECHECK_STRIPE_SECRET_KEY not set, payments are disabled")
	}

	return api.NewRouter(cfg.Server, api.Deps{
		Checker:   env.Service,
		Parser:    env.Parser,
		Catalog:   env.Catalog,
		Mailer:    mailer,
		Payments:  payments,
		Collector: env.Collector,
	})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveOffline, "offline", "", "serve listings from a CSV, XLSX, or JSON file")
	rootCmd.AddCommand(serveCmd)
}
