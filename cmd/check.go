package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/car-price-checker/internal/intake"
	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/report"
)

// checkFlags are shared by both check subcommands.
var checkFlags struct {
	offline string
	json    bool
	pdf     string
	verbose bool
}

var (
	vinInput   intake.RawCheck
	quickInput intake.RawCheck
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Price a single vehicle",
}

var checkVINCmd = &cobra.Command{
	Use:   "vin",
	Short: "Price a vehicle by VIN",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd, func(ctx context.Context, env *checkEnv) (model.Descriptor, *model.PricingVerdict, error) {
			req, err := env.Parser.ParseVIN(vinInput)
			if err != nil {
				return model.Descriptor{}, nil, err
			}
			v, err := env.Service.CheckVIN(ctx, *req)
			return model.Descriptor{VIN: req}, v, err
		})
	},
}

var checkQuickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Price a vehicle from its year, make, model, and mileage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd, func(ctx context.Context, env *checkEnv) (model.Descriptor, *model.PricingVerdict, error) {
			req, err := env.Parser.ParseQuick(quickInput)
			if err != nil {
				return model.Descriptor{}, nil, err
			}
			v, err := env.Service.CheckQuick(ctx, *req)
			return model.Descriptor{Quick: req}, v, err
		})
	},
}

type checkFunc func(ctx context.Context, env *checkEnv) (model.Descriptor, *model.PricingVerdict, error)

func runCheck(cmd *cobra.Command, fn checkFunc) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initCheck(ctx, "check", checkFlags.offline)
	if err != nil {
		return err
	}
	defer env.Close()

	desc, v, err := fn(ctx, env)
	if err != nil {
		return err
	}

	rep := report.Report{Descriptor: desc, Verdict: *v, GeneratedAt: time.Now()}
	out := cmd.OutOrStdout()

	if checkFlags.json {
		if err := writeVerdictJSON(out, v, checkFlags.verbose); err != nil {
			return err
		}
	} else {
		formatSummary(out, rep.Summarize())
		if checkFlags.verbose {
			formatProvenance(out, v.Provenance)
		}
	}

	if checkFlags.pdf != "" {
		if err := writePDF(checkFlags.pdf, rep); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", checkFlags.pdf)
	}
	return nil
}

// writeVerdictJSON prints the verdict as the API returns it. verbose adds
// the provenance record the API keeps off the payload.
func writeVerdictJSON(out io.Writer, v *model.PricingVerdict, verbose bool) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	var payload any = v
	if verbose {
		payload = struct {
			*model.PricingVerdict
			Provenance model.Provenance `json:"provenance"`
		}{v, v.Provenance}
	}
	if err := enc.Encode(payload); err != nil {
		return eris.Wrap(err, "encode verdict")
	}
	return nil
}

// formatSummary writes a human-readable verdict to w.
func formatSummary(out io.Writer, s report.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "%s\n\n", s.Headline)

	section := func(title string, rows []report.Row) {
		if len(rows) == 0 {
			return
		}
		_, _ = fmt.Fprintln(w, title)
		for _, r := range rows {
			_, _ = fmt.Fprintf(w, "  %s:\t%s\n", r.Label, r.Value)
		}
		_, _ = fmt.Fprintln(w)
	}
	section("Vehicle", s.Vehicle)
	section("Market analysis", s.Market)
	section("Adjustments", s.Adjustments)

	_, _ = fmt.Fprintf(w, "Recommendation\n  %s\n", s.Recommendation)
	if s.OpeningOffer != "" {
		_, _ = fmt.Fprintf(w, "  Opening offer:\t%s\n", s.OpeningOffer)
	}
	if s.Negotiation != "" {
		_, _ = fmt.Fprintf(w, "  Negotiation range:\t%s\n", s.Negotiation)
	}
	_ = w.Flush()
}

func formatProvenance(out io.Writer, p model.Provenance) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Check ID:\t%s\n", p.CheckID)
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", p.Source)
	_, _ = fmt.Fprintf(w, "Synthetic:\t%t\n", p.Synthetic)
	if p.Reason != "" {
		_, _ = fmt.Fprintf(w, "Reason:\t%s\n", p.Reason)
	}
	_ = w.Flush()
}

func writePDF(path string, rep report.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := report.RenderPDF(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	return nil
}

// valueVar binds an intake.Value to a string flag.
type valueVar struct{ v *intake.Value }

func (f valueVar) String() string {
	if f.v == nil {
		return ""
	}
	return string(*f.v)
}

func (f valueVar) Set(s string) error { *f.v = intake.Value(s); return nil }

func (f valueVar) Type() string { return "string" }

func init() {
	for _, c := range []*cobra.Command{checkVINCmd, checkQuickCmd} {
		c.Flags().StringVar(&checkFlags.offline, "offline", "", "price against listings in a CSV, XLSX, or JSON file")
		c.Flags().BoolVar(&checkFlags.json, "json", false, "print the verdict as JSON")
		c.Flags().StringVar(&checkFlags.pdf, "pdf", "", "also write a PDF report to this path")
		c.Flags().BoolVarP(&checkFlags.verbose, "verbose", "v", false, "include check ID and price source")
	}

	checkVINCmd.Flags().Var(valueVar{&vinInput.VIN}, "vin", "17-character VIN")
	checkVINCmd.Flags().Var(valueVar{&vinInput.AskingPrice}, "price", "asking price (optional)")
	_ = checkVINCmd.MarkFlagRequired("vin")

	f := checkQuickCmd.Flags()
	f.Var(valueVar{&quickInput.Year}, "year", "model year")
	f.Var(valueVar{&quickInput.Make}, "make", "make, e.g. Toyota")
	f.Var(valueVar{&quickInput.Model}, "model", "model, e.g. Camry")
	f.Var(valueVar{&quickInput.Trim}, "trim", "trim level (optional)")
	f.Var(valueVar{&quickInput.Mileage}, "mileage", "odometer miles")
	f.Var(valueVar{&quickInput.Condition}, "condition", "Excellent, Good, Fair, or Poor")
	f.Var(valueVar{&quickInput.HasAccidents}, "accidents", "vehicle has accident history")
	f.Lookup("accidents").NoOptDefVal = "true"
	f.Var(valueVar{&quickInput.ZipCode}, "zip", "5-digit ZIP code")
	f.Var(valueVar{&quickInput.AskingPrice}, "price", "asking price")
	for _, name := range []string{"year", "make", "model", "mileage", "condition", "zip", "price"} {
		_ = checkQuickCmd.MarkFlagRequired(name)
	}

	checkCmd.AddCommand(checkVINCmd, checkQuickCmd)
	rootCmd.AddCommand(checkCmd)
}
