package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"

	"checkclass/internal/domain"
)

// Columns of every exported report, in order.
var Columns = []string{"Student", "Class", "Date", "Time", "Status", "Teacher", "Reason"}

// Format is an export encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
)

// ParseFormat defaults to xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", domain.Invalid("unknown report format %q, use xlsx, pdf or csv", s)
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName is the download name of a report generated on day.
func (f Format) FileName(day time.Time) string {
	return fmt.Sprintf("reporte_asistencia_%s.%s", day.Format(domain.DateLayout), f)
}

// Row renders rec as report cells.
func Row(rec domain.AttendanceRecord) []string {
	class := rec.ClassName
	if class == "" {
		class = rec.ClassID
	}
	reason := rec.Reason
	if reason == "" {
		reason = "N/A"
	}
	return []string{rec.StudentName, class, rec.Date, rec.Time, string(rec.Status), rec.Teacher, reason}
}

// Write encodes recs in format f. Rows keep the order of recs.
func Write(w io.Writer, f Format, recs []domain.AttendanceRecord, generated time.Time) error {
	switch f {
	case FormatPDF:
		return WritePDF(w, recs, generated)
	case FormatCSV:
		return WriteCSV(w, recs)
	}
	return WriteXLSX(w, recs)
}

// WriteCSV writes a header line and one line per record.
func WriteCSV(w io.Writer, recs []domain.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(Row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SheetName is the worksheet holding the report rows.
const SheetName = "Asistencias"

// WriteXLSX writes a single-sheet workbook.
func WriteXLSX(w io.Writer, recs []domain.AttendanceRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for i, r := range recs {
		cells := Row(r)
		row := make([]any, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "G", 20); err != nil {
		return err
	}
	return f.Write(w)
}

var pdfWidths = []float64{45, 45, 25, 18, 25, 45, 74}

// WritePDF writes a paginated landscape document. The title and column header repeat on
// every page.
func WritePDF(w io.Writer, recs []domain.AttendanceRecord, generated time.Time) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Reporte de Asistencia", true)
	pdf.AliasNbPages("")
	pdf.SetAutoPageBreak(true, 15)

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 10, tr("Reporte de Asistencia"), "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, tr("Generado: "+generated.Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(240, 240, 240)
		for i, c := range Columns {
			pdf.CellFormat(pdfWidths[i], 7, c, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d records - page %d/{nb}", len(recs), pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	for _, r := range recs {
		for i, cell := range Row(r) {
			pdf.CellFormat(pdfWidths[i], 6, tr(truncate(cell, 48)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(recs) == 0 {
		pdf.CellFormat(0, 8, "No records match the filters", "", 1, "C", false, 0, "")
	}
	return pdf.Output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
