package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	labelColWidth = 50.0
	rowHeight     = 8.0
	headerHeight  = 22.0
	imageBoxW     = 140.0
	imageBoxH     = 105.0
	qrWidth       = 45.0
)

// Render produces the certificate PDF. Any unrecoverable rendering error
// aborts the whole document; a partial PDF is never returned.
func Render(cert Certificate) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(0, 12, tr("PAT Inspection Certificate"), "", 1, "C", false, 0, "")
	doc.Ln(6)

	for _, section := range buildSections(cert) {
		switch s := section.(type) {
		case headerSection:
			renderHeader(doc, tr, s)
		case tableSection:
			renderTable(doc, tr, s)
		case textSection:
			renderText(doc, tr, s)
		case imageSection:
			renderImage(doc, tr, s)
		case qrSection:
			renderQR(doc, tr, s)
		case footerSection:
			renderFooter(doc, tr, s)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}

func contentWidth(doc *fpdf.Fpdf) float64 {
	pageW, _ := doc.GetPageSize()
	left, _, right, _ := doc.GetMargins()
	return pageW - left - right
}

func renderHeader(doc *fpdf.Fpdf, tr func(string) string, s headerSection) {
	left, _, _, _ := doc.GetMargins()
	top := doc.GetY()

	doc.SetDrawColor(0, 0, 0)
	doc.Rect(left, top, contentWidth(doc), headerHeight, "D")

	doc.SetY(top + 4)
	doc.SetFont("Helvetica", "", 14)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 7, tr("Serial Number: "+s.Serial), "", 1, "C", false, 0, "")

	doc.SetFont("Helvetica", "B", 14)
	if s.Passed {
		doc.SetTextColor(0, 153, 0)
		doc.CellFormat(0, 7, "PASSED", "", 1, "C", false, 0, "")
	} else {
		doc.SetTextColor(204, 0, 0)
		doc.CellFormat(0, 7, "FAILED", "", 1, "C", false, 0, "")
	}
	doc.SetTextColor(0, 0, 0)
	doc.SetY(top + headerHeight + 8)
}

func renderSectionTitle(doc *fpdf.Fpdf, tr func(string) string, title string) {
	doc.SetFont("Helvetica", "B", 14)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	left, _, _, _ := doc.GetMargins()
	y := doc.GetY()
	doc.SetDrawColor(0, 0, 0)
	doc.Line(left, y, left+contentWidth(doc), y)
	doc.Ln(4)
}

// renderTable draws a key-value table: bold fixed-width first column,
// light-grey rows, bottom border only.
func renderTable(doc *fpdf.Fpdf, tr func(string) string, s tableSection) {
	renderSectionTitle(doc, tr, s.Title)

	valueWidth := contentWidth(doc) - labelColWidth
	doc.SetDrawColor(221, 221, 221)
	for _, r := range s.Rows {
		if r.Highlight {
			if s.Passed {
				doc.SetFillColor(204, 255, 204)
			} else {
				doc.SetFillColor(255, 204, 204)
			}
		} else {
			doc.SetFillColor(238, 238, 238)
		}
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(labelColWidth, rowHeight, tr(r.Label), "B", 0, "L", true, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.CellFormat(valueWidth, rowHeight, tr(r.Value), "B", 1, "L", true, 0, "")
	}
	doc.Ln(8)
}

func renderText(doc *fpdf.Fpdf, tr func(string) string, s textSection) {
	renderSectionTitle(doc, tr, s.Title)
	doc.SetFont("Helvetica", "", 11)
	doc.MultiCell(0, 6, tr(s.Body), "", "L", false)
	doc.Ln(8)
}

func renderImage(doc *fpdf.Fpdf, tr func(string) string, s imageSection) {
	renderSectionTitle(doc, tr, s.Title)

	if len(s.JPEG) == 0 {
		doc.SetFont("Helvetica", "I", 11)
		msg := s.Fallback
		if msg == "" {
			msg = "Image could not be displayed"
		}
		doc.MultiCell(0, 6, tr(msg), "", "L", false)
		doc.Ln(8)
		return
	}

	opts := fpdf.ImageOptions{ImageType: "JPEG", ReadDpi: false}
	info := doc.RegisterImageOptionsReader("equipment-image", opts, bytes.NewReader(s.JPEG))
	if doc.Err() {
		return
	}
	w, h := fitBox(info.Width(), info.Height(), imageBoxW, imageBoxH)
	ensureSpace(doc, h)
	pageW, _ := doc.GetPageSize()
	x := (pageW - w) / 2
	y := doc.GetY()
	doc.ImageOptions("equipment-image", x, y, w, h, false, opts, 0, "")
	doc.SetY(y + h + 8)
}

func renderQR(doc *fpdf.Fpdf, tr func(string) string, s qrSection) {
	renderSectionTitle(doc, tr, s.Title)

	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	doc.RegisterImageOptionsReader("verification-qr", opts, bytes.NewReader(s.PNG))
	if doc.Err() {
		return
	}
	ensureSpace(doc, qrWidth+14)
	pageW, _ := doc.GetPageSize()
	y := doc.GetY()
	doc.ImageOptions("verification-qr", (pageW-qrWidth)/2, y, qrWidth, qrWidth, false, opts, 0, "")
	doc.SetY(y + qrWidth + 3)

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, 5, tr("Scan to verify certificate or visit:"), "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "I", 10)
	doc.CellFormat(0, 5, tr(s.URL), "", 1, "C", false, 0, "")
}

func renderFooter(doc *fpdf.Fpdf, tr func(string) string, s footerSection) {
	doc.Ln(12)
	doc.SetFont("Helvetica", "I", 10)
	generated := s.GeneratedAt.Format("02/01/2006 at 15:04")
	doc.CellFormat(0, 5, tr("This certificate was generated on "+generated), "", 1, "C", false, 0, "")
	doc.CellFormat(0, 5, tr(AppName), "", 1, "C", false, 0, "")
}

func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	if scale > 1 {
		scale = 1
	}
	return w * scale, h * scale
}

func ensureSpace(doc *fpdf.Fpdf, needed float64) {
	_, pageH := doc.GetPageSize()
	_, _, _, bottom := doc.GetMargins()
	if doc.GetY()+needed > pageH-bottom-15 {
		doc.AddPage()
	}
}
