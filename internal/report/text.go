package report

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects which daily cutoff a report covers.
type Kind string

const (
	CheckIn  Kind = "masuk"
	CheckOut Kind = "pulang"
)

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var dayNames = [...]string{
	"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu",
}

// FormatDate renders a date in Indonesian, e.g. "Senin, 2 Januari 2026".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s, %d %s %d",
		dayNames[int(t.Weekday())], t.Day(), monthNames[int(t.Month())-1], t.Year())
}

// MonthName returns the Indonesian name for a month.
func MonthName(m time.Month) string {
	return monthNames[int(m)-1]
}

// DailyUnattended formats the per-class daily report listing students who
// missed the given cutoff.
func DailyUnattended(kind Kind, date time.Time, className string, names []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*Laporan Siswa Belum Absen %s*\n", titleFor(kind))
	fmt.Fprintf(&b, "Kelas: %s\n", className)
	fmt.Fprintf(&b, "Tanggal: %s\n\n", FormatDate(date))

	for i, name := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}

	b.WriteString("\nPesan ini dibuat otomatis oleh sistem absensi.")
	return b.String()
}

// MonthlyCaption is the message attached to a monthly recap PDF job.
func MonthlyCaption(className string, year int, month time.Month) string {
	return fmt.Sprintf("Rekap absensi kelas %s untuk bulan %s %d terlampir.",
		className, MonthName(month), year)
}

// MonthlyFileName builds the attachment name for a recap PDF.
func MonthlyFileName(className string, year int, month time.Month) string {
	safe := strings.ReplaceAll(strings.TrimSpace(className), " ", "_")
	return fmt.Sprintf("Rekap_Absensi_%s_%s_%d.pdf", safe, MonthName(month), year)
}

func titleFor(kind Kind) string {
	if kind == CheckOut {
		return "Pulang"
	}
	return "Masuk"
}
