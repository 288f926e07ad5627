package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/car-price-checker/internal/batch"
)

var (
	batchInput       string
	batchOutput      string
	batchConcurrency int
	batchOffline     string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Price every vehicle in a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}

		env, err := initCheck(ctx, "batch", batchOffline)
		if err != nil {
			return err
		}
		defer env.Close()

		inputs, err := batch.ReadInputs(ctx, batchInput)
		if err != nil {
			return err
		}

		results, sum := batch.Run(ctx, inputs, env.Parser, env.Service, cfg.Batch.Concurrency)

		out := batchOutput
		if out == "" {
			out = defaultBatchOutput(batchInput)
		}
		if err := batch.WriteResults(out, results); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d rows: %d priced (%d synthetic), %d failed. Results in %s\n",
			sum.Total, sum.Succeeded, sum.Synthetic, sum.Failed, out)
		return nil
	},
}

// defaultBatchOutput derives "cars.results.csv" from "cars.csv".
func defaultBatchOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".results" + ext
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV or XLSX file of vehicles")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "results file, CSV or XLSX by extension (default <input>.results.<ext>)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "checks in flight (default from config)")
	batchCmd.Flags().StringVar(&batchOffline, "offline", "", "price against listings in a CSV, XLSX, or JSON file")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
