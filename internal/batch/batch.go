// Package batch prices many vehicles from a spreadsheet. Rows fail
// individually; one bad row never stops the run.
package batch

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/car-price-checker/internal/intake"
	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/tabular"
)

// Checker prices one vehicle. *checker.Service satisfies it.
type Checker interface {
	Check(ctx context.Context, desc model.Descriptor) (*model.PricingVerdict, error)
}

// Result is the outcome for one input row. Row is 1-based, not counting
// the header.
type Result struct {
	Row     int
	Input   intake.RawCheck
	Verdict *model.PricingVerdict
	Err     error
}

// Summary counts results.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Synthetic int
}

// Header is the column order of written results.
var Header = []string{
	"row", "vin", "year", "make", "model", "trim", "mileage", "condition",
	"has_accidents", "zip_code", "asking_price",
	"market_value", "adjusted_market_value", "price_low", "price_high",
	"similar_listings", "difference", "classification", "recommendation",
	"source", "error",
}

// ReadInputs loads checks from a CSV or XLSX file. Columns are matched by
// name: vin, year, make, model, trim, mileage, condition, hasAccidents,
// zipCode, askingPrice (spacing, case, and underscores are ignored).
func ReadInputs(ctx context.Context, path string) ([]intake.RawCheck, error) {
	t, err := tabular.ReadFile(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: read inputs")
	}
	if !t.Has("vin") && !(t.Has("make") && t.Has("model")) {
		return nil, eris.Errorf("batch: %s needs a vin column or make and model columns", path)
	}

	out := make([]intake.RawCheck, len(t.Rows))
	for i := range t.Rows {
		get := func(col string) intake.Value { return intake.Value(t.Get(i, col)) }
		out[i] = intake.RawCheck{
			VIN:          get("vin"),
			Year:         get("year"),
			Make:         get("make"),
			Model:        get("model"),
			Trim:         get("trim"),
			Mileage:      get("mileage"),
			Condition:    get("condition"),
			HasAccidents: firstNonEmpty(get("hasAccidents"), get("accidents")),
			ZipCode:      firstNonEmpty(get("zipCode"), get("zip")),
			AskingPrice:  firstNonEmpty(get("askingPrice"), get("price")),
		}
	}
	return out, nil
}

// Run validates and prices every input with at most concurrency checks in
// flight. Results come back in input order.
func Run(ctx context.Context, inputs []intake.RawCheck, parser *intake.Parser, checker Checker, concurrency int) ([]Result, Summary) {
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("batch: processing",
		zap.Int("rows", len(inputs)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]Result, len(inputs))
	var succeeded, failed, synthetic atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, raw := range inputs {
		g.Go(func() error {
			res := Result{Row: i + 1, Input: raw}
			defer func() { results[i] = res }()

			desc, err := parser.ParseCheck(raw)
			if err != nil {
				res.Err = err
				failed.Add(1)
				return nil
			}

			v, err := checker.Check(gctx, desc)
			if err != nil {
				res.Err = err
				failed.Add(1)
				zap.L().Warn("batch: row failed", zap.Int("row", res.Row), zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			res.Verdict = v
			succeeded.Add(1)
			if v.Provenance.Synthetic {
				synthetic.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{
		Total:     len(inputs),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Synthetic: int(synthetic.Load()),
	}
	zap.L().Info("batch: complete",
		zap.Int("total", sum.Total),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("synthetic", sum.Synthetic),
	)
	return results, sum
}

// Records converts results to table rows in Header order.
func Records(results []Result) [][]string {
	rows := make([][]string, len(results))
	for i, r := range results {
		in := r.Input
		row := []string{
			strconv.Itoa(r.Row), in.VIN.String(), in.Year.String(), in.Make.String(), in.Model.String(),
			in.Trim.String(), in.Mileage.String(), in.Condition.String(), in.HasAccidents.String(),
			in.ZipCode.String(), in.AskingPrice.String(),
		}
		if v := r.Verdict; v != nil {
			row = append(row,
				strconv.Itoa(v.MarketValue),
				strconv.Itoa(v.AdjustedMarketValue),
				strconv.Itoa(v.PriceRange.Low),
				strconv.Itoa(v.PriceRange.High),
				strconv.Itoa(v.SimilarListings),
				strconv.Itoa(v.Difference),
				v.Classification(),
				v.Recommendation,
				string(v.Provenance.Source),
				"",
			)
		} else {
			row = append(row, "", "", "", "", "", "", "", "", "", errText(r.Err))
		}
		rows[i] = row
	}
	return rows
}

// WriteResults writes results to a CSV or XLSX file.
func WriteResults(path string, results []Result) error {
	if err := tabular.WriteFile(path, Header, Records(results)); err != nil {
		return eris.Wrap(err, "batch: write results")
	}
	return nil
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func firstNonEmpty(vals ...intake.Value) intake.Value {
	for _, v := range vals {
		if v.String() != "" {
			return v
		}
	}
	return ""
}
