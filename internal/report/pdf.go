package report

import (
	"bytes"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"
)

const (
	margin     = 20.0
	fontFamily = "Helvetica"
)

type rgb struct{ r, g, b int }

var (
	colorTitle      = rgb{37, 99, 235}
	colorText       = rgb{0, 0, 0}
	colorMuted      = rgb{128, 128, 128}
	colorOverpriced = rgb{239, 68, 68}
	colorFair       = rgb{59, 130, 246}
	colorGoodDeal   = rgb{16, 185, 129}
)

func toneColor(tone string) rgb {
	switch tone {
	case "overpriced":
		return colorOverpriced
	case "fair":
		return colorFair
	default:
		return colorGoodDeal
	}
}

// RenderPDF writes the report as a single-page A4 PDF.
func RenderPDF(w io.Writer, r Report) error {
	s := r.Summarize()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(Title, false)
	pdf.SetCreator("Car Price Checker", false)
	pdf.SetCatalogSort(true)
	if !r.GeneratedAt.IsZero() {
		pdf.SetCreationDate(r.GeneratedAt)
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		setFont(pdf, "", 8, colorMuted)
		pdf.CellFormat(0, 5, s.Footer, "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	bodyW := pageW - 2*margin

	setFont(pdf, "B", 20, colorTitle)
	pdf.CellFormat(0, 10, Title, "", 1, "C", false, 0, "")
	pdf.Ln(5)

	setFont(pdf, "", 12, colorText)
	for _, row := range s.Vehicle {
		if row.Label == "Accidents" && row.Value != "Yes" {
			continue
		}
		label := row.Label
		if label == "Accidents" {
			label = "Accident History"
		}
		pdf.CellFormat(0, 10, label+": "+row.Value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	setFont(pdf, "B", 16, toneColor(s.Tone))
	pdf.CellFormat(0, 10, s.Headline, "", 1, "L", false, 0, "")
	pdf.Ln(5)

	heading(pdf, "Market Analysis", 14)
	setFont(pdf, "", 11, colorText)
	for _, row := range s.Market {
		pdf.CellFormat(0, 7, row.Label+": "+row.Value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	if len(s.Adjustments) > 0 {
		heading(pdf, "Applied Adjustments:", 12)
		setFont(pdf, "", 10, colorText)
		for _, row := range s.Adjustments {
			pdf.CellFormat(0, 7, row.Label+": "+row.Value, "", 1, "L", false, 0, "")
		}
		pdf.Ln(5)
	}

	heading(pdf, "Recommendation:", 12)
	setFont(pdf, "", 10, colorText)
	pdf.MultiCell(bodyW, 5, s.Recommendation, "", "L", false)
	pdf.Ln(10)

	if s.Negotiation != "" {
		heading(pdf, "Negotiation Range:", 12)
		setFont(pdf, "", 11, colorText)
		pdf.CellFormat(0, 7, s.Negotiation, "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return eris.Wrap(err, "report: render pdf")
	}
	return nil
}

// PDFBytes renders the report into memory.
func PDFBytes(r Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderPDF(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func heading(pdf *fpdf.Fpdf, text string, size float64) {
	setFont(pdf, "B", size, colorText)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
}

func setFont(pdf *fpdf.Fpdf, style string, size float64, c rgb) {
	pdf.SetFont(fontFamily, style, size)
	pdf.SetTextColor(c.r, c.g, c.b)
}
