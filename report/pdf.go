package report

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"caringai-backend/patients"
)

const disclaimer = "This is not a substitute for professional medical advice, diagnosis, or treatment. " +
	"Always seek the advice of your physician or other qualified health provider with any questions " +
	"you may have regarding a medical condition."

var (
	inlineMarkRe = regexp.MustCompile(`\*{1,2}`)
	numItemRe    = regexp.MustCompile(`^\d+\. `)
)

// RenderPDF lays the markdown body out as an A4 report: branded header,
// patient information block, body with heading levels mapped to font
// sizes, disclaimer footer.
func RenderPDF(p patients.Patient, bodyMarkdown string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(44, 62, 80)
	pdf.CellFormat(0, 10, tr("Medical Consultation Report"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(127, 140, 141)
	pdf.CellFormat(0, 5, tr("Dr. CaringAI Virtual Healthcare Assistant"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, tr("Date: "+time.Now().Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(44, 62, 80)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, tr("Patient Information"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(51, 51, 51)
	for _, row := range [][2]string{
		{"Name", p.Nickname},
		{"Date of Birth", p.DateOfBirth},
		{"Gender", p.Gender},
	} {
		val := row[1]
		if strings.TrimSpace(val) == "" {
			val = notSpecified
		}
		pdf.CellFormat(0, 6, tr(row[0]+": "+val), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, rawLine := range strings.Split(bodyMarkdown, "\n") {
		line := strings.TrimSpace(rawLine)
		switch {
		case line == "":
			pdf.Ln(2)
		case strings.HasPrefix(line, "### "):
			pdf.SetFont("Helvetica", "B", 12)
			pdf.SetTextColor(44, 62, 80)
			pdf.MultiCell(0, 6, tr(plainText(strings.TrimPrefix(line, "### "))), "", "L", false)
		case strings.HasPrefix(line, "## "):
			pdf.SetFont("Helvetica", "B", 13)
			pdf.SetTextColor(52, 152, 219)
			pdf.MultiCell(0, 7, tr(plainText(strings.TrimPrefix(line, "## "))), "", "L", false)
		case strings.HasPrefix(line, "# "):
			pdf.SetFont("Helvetica", "B", 15)
			pdf.SetTextColor(44, 62, 80)
			pdf.MultiCell(0, 8, tr(plainText(strings.TrimPrefix(line, "# "))), "", "L", false)
		case strings.HasPrefix(line, "- "):
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetTextColor(51, 51, 51)
			pdf.MultiCell(0, 5.5, tr("  - "+plainText(strings.TrimPrefix(line, "- "))), "", "L", false)
		case numItemRe.MatchString(line):
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetTextColor(51, 51, 51)
			pdf.MultiCell(0, 5.5, tr("  "+plainText(line)), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetTextColor(51, 51, 51)
			pdf.MultiCell(0, 5.5, tr(plainText(line)), "", "L", false)
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(127, 140, 141)
	pdf.MultiCell(0, 4, tr("Disclaimer: "+disclaimer), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// plainText drops the inline emphasis markers; the PDF body renders a
// single face per line.
func plainText(s string) string {
	return inlineMarkRe.ReplaceAllString(s, "")
}
