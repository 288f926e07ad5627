package listings

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/car-price-checker/internal/model"
	"github.com/sells-group/car-price-checker/internal/tabular"
	"github.com/sells-group/car-price-checker/pkg/marketcheck"
)

// FileSource serves listings from a local file loaded once at startup. JSON
// files hold an array of listing objects in the MarketCheck shape; CSV and
// XLSX files need a price column and may carry vin, make, model, year, and
// miles columns.
type FileSource struct {
	path     string
	listings []marketcheck.Listing
}

// NewFileSource loads listings from path.
func NewFileSource(ctx context.Context, path string) (*FileSource, error) {
	var (
		ls  []marketcheck.Listing
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		ls, err = loadJSON(ctx, path)
	} else {
		ls, err = loadTable(ctx, path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "listings: load %s", path)
	}
	return &FileSource{path: path, listings: ls}, nil
}

// Len returns the number of loaded listings.
func (s *FileSource) Len() int { return len(s.listings) }

// ForVIN returns listings whose VIN matches, plus listings without a VIN.
func (s *FileSource) ForVIN(ctx context.Context, vin string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("file vin lookup", err)
	}
	var matched []marketcheck.Listing
	for _, l := range s.listings {
		if l.VIN == "" || strings.EqualFold(l.VIN, vin) {
			matched = append(matched, l)
		}
	}
	return &Result{
		Comparables: toComparables(matched),
		Details:     detailsFromListings(model.CarDetails{}, matched),
		Source:      model.PriceSourceFile,
	}, nil
}

// ForVehicle returns listings matching the query's make, model, and year.
// Blank listing fields match anything.
func (s *FileSource) ForVehicle(ctx context.Context, q Query) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("file vehicle lookup", err)
	}
	var matched []marketcheck.Listing
	for _, l := range s.listings {
		mk, md, yr := l.Vehicle()
		if mk != "" && !strings.EqualFold(mk, q.Make) {
			continue
		}
		if md != "" && !strings.EqualFold(md, q.Model) {
			continue
		}
		if yr != 0 && q.Year != 0 && yr != q.Year {
			continue
		}
		matched = append(matched, l)
	}
	return &Result{
		Comparables: toComparables(matched),
		Details:     model.CarDetails{Make: q.Make, Model: q.Model, Year: q.Year},
		Source:      model.PriceSourceFile,
	}, nil
}

func loadJSON(ctx context.Context, path string) ([]marketcheck.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open file")
	}
	defer f.Close()
	return tabular.CollectJSONArray[marketcheck.Listing](ctx, f)
}

func loadTable(ctx context.Context, path string) ([]marketcheck.Listing, error) {
	tbl, err := tabular.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if !tbl.Has("price") && !tbl.Has("price_display") && !tbl.Has("asking_price") {
		return nil, eris.New("no price column")
	}

	out := make([]marketcheck.Listing, 0, len(tbl.Rows))
	for i := range tbl.Rows {
		year, _ := strconv.Atoi(tbl.Get(i, "year"))
		out = append(out, marketcheck.Listing{
			VIN:          strings.ToUpper(tbl.Get(i, "vin")),
			Price:        marketcheck.FlexNumber(marketcheck.ParseNumber(tbl.Get(i, "price"))),
			PriceDisplay: marketcheck.FlexNumber(marketcheck.ParseNumber(tbl.Get(i, "price_display"))),
			AskingPrice:  marketcheck.FlexNumber(marketcheck.ParseNumber(tbl.Get(i, "asking_price"))),
			Miles:        marketcheck.FlexNumber(marketcheck.ParseNumber(tbl.Get(i, "miles"))),
			Odometer:     marketcheck.FlexNumber(marketcheck.ParseNumber(tbl.Get(i, "odometer"))),
			Year:         marketcheck.FlexNumber(year),
			Make:         tbl.Get(i, "make"),
			Model:        tbl.Get(i, "model"),
		})
	}
	return out, nil
}
