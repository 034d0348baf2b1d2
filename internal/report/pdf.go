package report

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/seenimoa/marketbrief/pkg/models"
	"github.com/seenimoa/marketbrief/pkg/utils"
)

const (
	pdfFont     = "Helvetica"
	bodySize    = 10.0
	lineHeight  = 5.0
	marginMM    = 15.0
	contentWide = 210.0 - 2*marginMM
)

var tableHeader = []string{"Ticker", "Last Close", "Change", "% Change"}

// PDFRenderer renders a ReportResult as an A4 PDF document.
type PDFRenderer struct {
	title  string
	logger arbor.ILogger
	md     goldmark.Markdown
}

// NewPDFRenderer creates a renderer that prints title at the top of page one.
func NewPDFRenderer(title string, logger arbor.ILogger) *PDFRenderer {
	if title == "" {
		title = "Market Summary Report"
	}
	return &PDFRenderer{
		title:  title,
		logger: logger,
		md:     goldmark.New(),
	}
}

// Render produces the PDF bytes: title, timestamp, price table, market
// narrative and one subsection per sector summary.
func (r *PDFRenderer) Render(result *models.ReportResult, generatedAt time.Time) ([]byte, error) {
	if result == nil {
		result = &models.ReportResult{}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.SetTitle(r.title, true)
	pdf.SetCreator("marketbrief", true)
	pdf.SetCreationDate(generatedAt)
	pdf.AddPage()

	w := &pdfWriter{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
		md:  r.md,
	}

	w.header(r.title, generatedAt)
	w.priceTable(result.PriceRecords)

	if paras := paragraphs(result.MarketSummary); len(paras) > 0 {
		w.sectionHeading("Market Summary", 14)
		w.narrative(paras)
	}

	sectors := result.OrderedSectors()
	if len(sectors) > 0 {
		w.sectionHeading("Sector Analysis", 14)
		for _, sec := range sectors {
			w.sectionHeading(sec.Title, 12)
			w.narrative(paragraphs(sec.Summary))
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, &RenderError{Stage: "layout", Err: err}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Stage: "output", Err: err}
	}

	pages, err := countPages(buf.Bytes())
	if err != nil {
		return nil, &RenderError{Stage: "verify", Err: err}
	}

	r.logger.Debug().
		Str("report_id", result.ID).
		Int("pages", pages).
		Int("bytes", buf.Len()).
		Msg("PDF rendered")

	return buf.Bytes(), nil
}

// countPages reads the document back with pdfcpu.
func countPages(b []byte) (int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(b), model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	md     goldmark.Markdown
	source []byte
	size   float64
	bold   bool
	italic bool
}

func (w *pdfWriter) header(title string, generatedAt time.Time) {
	w.pdf.SetFont(pdfFont, "B", 18)
	w.pdf.CellFormat(0, 10, w.tr(title), "", 1, "C", false, 0, "")
	w.pdf.SetFont(pdfFont, "I", 9)
	w.pdf.SetTextColor(100, 100, 100)
	w.pdf.CellFormat(0, 6, w.tr("Generated: "+utils.DisplayTime(generatedAt)), "", 1, "C", false, 0, "")
	w.pdf.SetTextColor(0, 0, 0)
	w.pdf.Ln(4)
}

func (w *pdfWriter) priceTable(records []models.PriceRecord) {
	col := contentWide / float64(len(tableHeader))

	w.pdf.SetFont(pdfFont, "B", bodySize)
	w.pdf.SetFillColor(230, 230, 230)
	for i, h := range tableHeader {
		align := "R"
		if i == 0 {
			align = "L"
		}
		w.pdf.CellFormat(col, 7, h, "1", 0, align, true, 0, "")
	}
	w.pdf.Ln(-1)

	w.pdf.SetFont(pdfFont, "", bodySize)
	for _, rec := range records {
		w.pdf.CellFormat(col, 6, w.tr(rec.Ticker), "1", 0, "L", false, 0, "")
		w.pdf.CellFormat(col, 6, utils.FormatPrice(rec.LastClose), "1", 0, "R", false, 0, "")
		w.setChangeColor(rec.Change)
		w.pdf.CellFormat(col, 6, utils.FormatSigned(rec.Change), "1", 0, "R", false, 0, "")
		w.pdf.CellFormat(col, 6, utils.FormatPct(rec.PercentChange), "1", 0, "R", false, 0, "")
		w.pdf.SetTextColor(0, 0, 0)
		w.pdf.Ln(-1)
	}
	w.pdf.Ln(4)
}

func (w *pdfWriter) setChangeColor(change float64) {
	switch {
	case change > 0:
		w.pdf.SetTextColor(0, 128, 0)
	case change < 0:
		w.pdf.SetTextColor(192, 0, 0)
	}
}

func (w *pdfWriter) sectionHeading(title string, size float64) {
	w.pdf.Ln(2)
	w.pdf.SetFont(pdfFont, "B", size)
	w.pdf.MultiCell(0, size*0.5, w.tr(title), "", "L", false)
	w.pdf.Ln(1)
}

// narrative writes each paragraph as its own block, interpreting inline
// Markdown with goldmark.
func (w *pdfWriter) narrative(paras []string) {
	for _, p := range paras {
		w.source = []byte(p)
		w.size = bodySize
		w.bold, w.italic = false, false
		w.updateFont()

		doc := w.md.Parser().Parse(text.NewReader(w.source))
		_ = ast.Walk(doc, w.walk)
		w.pdf.Ln(lineHeight + 2)
	}
	w.source = nil
}

func (w *pdfWriter) updateFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(pdfFont, style, w.size)
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			w.size = headingSize(node.Level)
			w.bold = true
		} else {
			w.size = bodySize
			w.bold = false
			w.pdf.Ln(lineHeight + 1)
		}
		w.updateFont()

	case *ast.Paragraph:
		if !entering && node.NextSibling() != nil {
			w.pdf.Ln(lineHeight)
		}

	case *ast.ListItem:
		if entering {
			if node.PreviousSibling() != nil {
				w.pdf.Ln(lineHeight)
			}
			w.pdf.Write(lineHeight, w.tr(listMarker(node)))
		}

	case *ast.AutoLink:
		if entering {
			w.pdf.Write(lineHeight, w.tr(string(node.Label(w.source))))
		}
		return ast.WalkSkipChildren, nil

	case *ast.RawHTML:
		if entering {
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				w.pdf.Write(lineHeight, w.tr(string(seg.Value(w.source))))
			}
		}
		return ast.WalkSkipChildren, nil

	case *ast.HTMLBlock:
		if entering {
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				w.pdf.Write(lineHeight, w.tr(strings.TrimRight(string(seg.Value(w.source)), "\r\n")))
				w.pdf.Ln(lineHeight)
			}
			if node.HasClosure() {
				w.pdf.Write(lineHeight, w.tr(strings.TrimRight(string(node.ClosureLine.Value(w.source)), "\r\n")))
				w.pdf.Ln(lineHeight)
			}
		}
		return ast.WalkSkipChildren, nil

	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.updateFont()

	case *ast.CodeSpan:
		if entering {
			w.pdf.Write(lineHeight, w.tr(string(node.Text(w.source))))
		}
		return ast.WalkSkipChildren, nil

	case *ast.Text:
		if entering {
			w.pdf.Write(lineHeight, w.tr(string(node.Segment.Value(w.source))))
			switch {
			case node.HardLineBreak():
				w.pdf.Ln(lineHeight)
			case node.SoftLineBreak():
				w.pdf.Write(lineHeight, " ")
			}
		}

	case *ast.String:
		if entering {
			w.pdf.Write(lineHeight, w.tr(string(node.Value)))
		}
	}
	return ast.WalkContinue, nil
}

// listMarker returns "N. " for items of an ordered list, counting from the
// list's start number, and "- " otherwise.
func listMarker(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "- "
	}
	n := list.Start
	for sib := item.PreviousSibling(); sib != nil; sib = sib.PreviousSibling() {
		n++
	}
	return strconv.Itoa(n) + ". "
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 14
	case 2:
		return 12
	default:
		return 11
	}
}

// plainText strips inline Markdown markers for the text rendition.
func plainText(s string) string {
	return strings.NewReplacer("**", "", "__", "").Replace(s)
}
