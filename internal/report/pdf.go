package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"AbsenSend/internal/models"
)

// RenderPDF lays the month grid out as a landscape A4 table and returns the
// document bytes, ready to be base64-encoded into a job payload. The config
// fields are optional letterhead and signatory copy.
func RenderPDF(g MonthGrid, cfg models.ReportConfig) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	if cfg.SchoolName != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 6, cfg.SchoolName, "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "Rekap Absensi Bulanan", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Kelas %s - %s %d", g.ClassName, MonthName(g.Month), g.Year),
		"", 1, "C", false, 0, "")
	pdf.Ln(3)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageW - left - right

	const (
		noW    = 8.0
		nameW  = 52.0
		sumW   = 9.0 // one column each for H, S, I, A
		rowH   = 5.0
		sumful = 4 * sumW
	)
	dayW := (usable - noW - nameW - sumful) / float64(g.Days)

	header := func() {
		pdf.SetFont("Arial", "B", 6)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(noW, rowH, "No", "1", 0, "C", true, 0, "")
		pdf.CellFormat(nameW, rowH, "Nama Siswa", "1", 0, "L", true, 0, "")
		for day := 1; day <= g.Days; day++ {
			pdf.CellFormat(dayW, rowH, fmt.Sprintf("%d", day), "1", 0, "C", true, 0, "")
		}
		for _, s := range []string{CellHadir, CellSakit, CellIzin, CellAlpha} {
			pdf.CellFormat(sumW, rowH, s, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(rowH)
	}
	header()

	pdf.SetFont("Arial", "", 6)
	for i, row := range g.Rows {
		if pdf.GetY() > 185 {
			pdf.AddPage()
			header()
			pdf.SetFont("Arial", "", 6)
		}

		pdf.CellFormat(noW, rowH, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(nameW, rowH, truncate(row.Name, 38), "1", 0, "L", false, 0, "")
		for day := 1; day <= g.Days; day++ {
			cell := row.Cells[day-1]
			fill := cell == CellLibur
			if fill {
				pdf.SetFillColor(245, 245, 245)
			}
			pdf.CellFormat(dayW, rowH, cell, "1", 0, "C", fill, 0, "")
		}
		for _, n := range []int{row.Hadir, row.Sakit, row.Izin, row.Alpha} {
			pdf.CellFormat(sumW, rowH, fmt.Sprintf("%d", n), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(rowH)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 7)
	pdf.CellFormat(0, 4, "H = hadir, T = terlambat, S = sakit, I = izin, A = alpha, L = libur, - = belum berlangsung",
		"", 1, "L", false, 0, "")

	if cfg.PrincipalName != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, "Kepala Sekolah,", "", 1, "R", false, 0, "")
		pdf.Ln(14)
		pdf.SetFont("Arial", "BU", 9)
		pdf.CellFormat(0, 5, cfg.PrincipalName, "", 1, "R", false, 0, "")
		if cfg.PrincipalNIP != "" {
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 5, "NIP. "+cfg.PrincipalNIP, "", 1, "R", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render recap pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
