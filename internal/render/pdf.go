package render

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/logger"
)

const (
	pageWidth = 190.0 // A4 printable width in mm
	lineH     = 6.0
)

// PDFRenderer lays the recap out as a multi-page PDF:
// summary, top movers chart, full table, headlines, quality checks
type PDFRenderer struct {
	dir    string
	logger *logger.Logger
}

// NewPDFRenderer creates a PDFRenderer
func NewPDFRenderer(dir string, log *logger.Logger) *PDFRenderer {
	return &PDFRenderer{dir: dir, logger: log.WithField("module", "render_pdf")}
}

func (r *PDFRenderer) Format() string { return FormatPDF }

// Render implements contracts.Renderer
func (r *PDFRenderer) Render(ctx context.Context, recap *contracts.Recap) (string, error) {
	if err := ensureDir(r.dir); err != nil {
		return "", err
	}

	path := Path(r.dir, recap.Date, FormatPDF)
	err := writeAtomic(path, func(w io.Writer) error {
		return WritePDF(w, recap)
	})
	if err != nil {
		return "", err
	}

	r.logger.WithFields(map[string]interface{}{
		"path":   path,
		"status": recap.Status,
	}).Info("PDF recap written")
	return path, nil
}

// WritePDF renders recap into w
func WritePDF(w io.Writer, recap *contracts.Recap) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(contracts.ArtifactName(recap.Date), false)
	pdf.SetAuthor("recap", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	// 1. Title (+ degraded banner)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(31, 119, 180)
	pdf.CellFormat(pageWidth, 12, "Daily Market Recap - "+recap.Date.Format("January 02, 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if recap.Status == contracts.ReportDegraded {
		pdf.SetFillColor(192, 57, 43)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(pageWidth, 7, tr(recap.Banner), "", "C", true)
		pdf.Ln(4)
	}

	// 2. Executive summary
	heading(pdf, "Executive Summary")
	s := recap.Summary
	body(pdf)
	for _, line := range []string{
		fmt.Sprintf("Total assets tracked: %d (%d with returns)", s.Instruments, s.WithReturns),
		fmt.Sprintf("Average return: %.2f%%  (std dev %.2f%%)", s.MeanReturnPct, s.StdDevPct),
		fmt.Sprintf("Gainers: %d | Losers: %d | Unchanged: %d", s.Gainers, s.Losers, s.Unchanged),
		fmt.Sprintf("Data quality score: %.1f%%", recap.Quality.Score*100),
	} {
		pdf.CellFormat(pageWidth, lineH, "- "+line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// 3. Top movers as horizontal bars
	heading(pdf, fmt.Sprintf("Top %d Performers", len(recap.TopMovers)))
	topChart(pdf, recap.TopMovers)
	pdf.Ln(4)

	// 4. Full table
	heading(pdf, "Daily Prices & Returns (All Assets)")
	returnsTable(pdf, recap.Table)

	// 5. Headlines
	pdf.AddPage()
	heading(pdf, "Key News of the Day")
	body(pdf)
	if len(recap.Headlines) == 0 {
		pdf.CellFormat(pageWidth, lineH, "No news available.", "", 1, "L", false, 0, "")
	}
	for i, n := range recap.Headlines {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.MultiCell(pageWidth, 5, tr(fmt.Sprintf("%d. [%s] %s", i+1, n.Instrument, n.Title)), "", "L", false)
		pdf.SetFont("Helvetica", "I", 9)
		meta := n.Publisher
		if !n.PublishedAt.IsZero() {
			meta += " - " + n.PublishedAt.Format("2006-01-02 15:04")
		}
		pdf.CellFormat(pageWidth-20, 5, tr(meta), "", 0, "L", false, 0, "")
		pdf.SetTextColor(31, 119, 180)
		pdf.CellFormat(20, 5, "Read more", "", 1, "R", false, 0, n.Link)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	// 6. Quality report
	pdf.AddPage()
	heading(pdf, "Data Quality Report")
	body(pdf)
	verdict := "PASSED"
	if !recap.Quality.Passed {
		verdict = "FAILED"
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(pageWidth, lineH, fmt.Sprintf("Quality score: %.1f%% (threshold %.1f%%) - %s",
		recap.Quality.Score*100, recap.Quality.Threshold*100, verdict), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	for _, c := range recap.Quality.Checks {
		mark := "[OK]  "
		pdf.SetTextColor(39, 174, 96)
		if !c.Passed {
			mark = "[FAIL]"
			pdf.SetTextColor(192, 57, 43)
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, lineH, mark+" "+c.Rule, "", 0, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(pageWidth-40, lineH, tr(c.Detail), "", "L", false)
	}

	if pdf.Err() {
		return fmt.Errorf("layout pdf: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(44, 62, 80)
	pdf.CellFormat(pageWidth, 9, text, "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func body(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
}

func topChart(pdf *fpdf.Fpdf, top []contracts.ReturnRecord) {
	if len(top) == 0 {
		body(pdf)
		pdf.CellFormat(pageWidth, lineH, "No returns available.", "", 1, "L", false, 0, "")
		return
	}

	maxAbs := 0.0
	for _, r := range top {
		maxAbs = math.Max(maxAbs, math.Abs(r.ReturnPct.Float64))
	}
	if maxAbs == 0 {
		maxAbs = 1
	}

	const labelW, valueW, barH = 25.0, 25.0, 6.0
	barMax := pageWidth - labelW - valueW
	pdf.SetFont("Helvetica", "", 9)
	for _, r := range top {
		y := pdf.GetY()
		pct := r.ReturnPct.Float64
		pdf.CellFormat(labelW, barH, r.Instrument, "", 0, "L", false, 0, "")

		if pct >= 0 {
			pdf.SetFillColor(39, 174, 96)
		} else {
			pdf.SetFillColor(192, 57, 43)
		}
		w := math.Max(0.5, barMax*math.Abs(pct)/maxAbs)
		pdf.Rect(10+labelW, y+1, w, barH-2, "F")

		pdf.SetX(10 + labelW + barMax)
		pdf.CellFormat(valueW, barH, fmt.Sprintf("%+.2f%%", pct), "", 1, "R", false, 0, "")
	}
}

func returnsTable(pdf *fpdf.Fpdf, rows []contracts.ReturnRecord) {
	cols := []string{"Ticker", "Close Price", "Daily Return", "Return %"}
	w := pageWidth / float64(len(cols))

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(31, 119, 180)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range cols {
		pdf.CellFormat(w, 7, c, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 220)
	for _, r := range rows {
		pct := "n/a"
		if r.ReturnPct.Valid {
			pct = fmt.Sprintf("%.2f%%", r.ReturnPct.Float64)
		}
		pdf.CellFormat(w, 6, r.Instrument, "1", 0, "C", true, 0, "")
		pdf.CellFormat(w, 6, fmt.Sprintf("$%.2f", r.Close), "1", 0, "C", true, 0, "")
		pdf.CellFormat(w, 6, fmt.Sprintf("$%.2f", r.DailyReturn), "1", 0, "C", true, 0, "")
		pdf.CellFormat(w, 6, pct, "1", 1, "C", true, 0, "")
	}
}
