package model

// PriceSource names where the comparable prices behind a verdict came from.
type PriceSource string

const (
	PriceSourceMarketCheck PriceSource = "marketcheck"
	PriceSourceFile        PriceSource = "file"
	PriceSourceSynthetic   PriceSource = "synthetic"
)

// Provenance records how a verdict was produced. Synthetic verdicts were
// derived from the asking price because no real market data was usable.
type Provenance struct {
	CheckID   string      `json:"check_id"`
	Source    PriceSource `json:"source"`
	Synthetic bool        `json:"synthetic"`
	Reason    string      `json:"reason,omitempty"`
}
