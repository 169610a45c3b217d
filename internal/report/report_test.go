package report

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AbsenSend/internal/models"
)

func feb(day int) time.Time {
	return time.Date(2026, time.February, day, 0, 0, 0, 0, time.UTC)
}

// A reference date past the whole month.
var afterFeb = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestBuildMonthGrid(t *testing.T) {
	students := []models.Student{
		{ID: "s1", Nama: "Budi", ClassID: "c1", Status: models.StudentActive},
	}
	records := []models.AttendanceRecord{
		{StudentID: "s1", RecordDate: feb(2), Status: "hadir"},
		{StudentID: "s1", RecordDate: feb(3), Status: "sakit"},
		{StudentID: "s1", RecordDate: feb(4), Status: "izin"},
		{StudentID: "s1", RecordDate: feb(5), Status: "terlambat"},
		// Out-of-month record must be ignored.
		{StudentID: "s1", RecordDate: time.Date(2026, time.January, 30, 0, 0, 0, 0, time.UTC), Status: "hadir"},
	}
	holidays := []models.Holiday{
		{StartDate: feb(16), EndDate: feb(17)},
	}

	grid := BuildMonthGrid("Kelas 10 IPA 1", students, records, holidays, 2026, time.February, time.UTC, afterFeb)

	assert.Equal(t, 28, grid.Days)
	require.Len(t, grid.Rows, 1)
	row := grid.Rows[0]

	// 2026-02-01 is a Sunday.
	assert.Equal(t, CellLibur, row.Cells[0])
	assert.Equal(t, CellHadir, row.Cells[1])
	assert.Equal(t, CellSakit, row.Cells[2])
	assert.Equal(t, CellIzin, row.Cells[3])
	assert.Equal(t, CellTerlambat, row.Cells[4])
	// Holiday range.
	assert.Equal(t, CellLibur, row.Cells[15])
	assert.Equal(t, CellLibur, row.Cells[16])
	// School day without any record.
	assert.Equal(t, CellAlpha, row.Cells[5])

	// 28 days - 8 weekend days - 2 holidays = 18 school days.
	// hadir + terlambat = 2, sakit = 1, izin = 1, rest alpha.
	assert.Equal(t, 2, row.Hadir)
	assert.Equal(t, 1, row.Sakit)
	assert.Equal(t, 1, row.Izin)
	assert.Equal(t, 14, row.Alpha)
}

func TestBuildMonthGridMidMonthLeavesFutureDaysBlank(t *testing.T) {
	students := []models.Student{
		{ID: "s1", Nama: "Budi", ClassID: "c1", Status: models.StudentActive},
	}
	records := []models.AttendanceRecord{
		{StudentID: "s1", RecordDate: feb(2), Status: "hadir"},
		{StudentID: "s1", RecordDate: feb(3), Status: "sakit"},
	}

	// Recap requested on Tuesday 2026-02-10, mid-month.
	grid := BuildMonthGrid("Kelas 10 IPA 1", students, records, nil, 2026, time.February, time.UTC, feb(10))

	require.Len(t, grid.Rows, 1)
	row := grid.Rows[0]

	assert.Equal(t, CellHadir, row.Cells[1])
	assert.Equal(t, CellSakit, row.Cells[2])
	// The reference day itself still counts.
	assert.Equal(t, CellAlpha, row.Cells[9])
	// Everything past it is blank, weekends included.
	for day := 11; day <= grid.Days; day++ {
		assert.Equal(t, CellBlank, row.Cells[day-1], "day %d", day)
	}

	// School days up to the 10th: 2-6, 9, 10. One hadir, one sakit,
	// the rest alpha; the future days add nothing.
	assert.Equal(t, 1, row.Hadir)
	assert.Equal(t, 1, row.Sakit)
	assert.Equal(t, 0, row.Izin)
	assert.Equal(t, 5, row.Alpha)
}

func TestBuildMonthGridSortsStudentsByName(t *testing.T) {
	students := []models.Student{
		{ID: "s1", Nama: "Citra"},
		{ID: "s2", Nama: "Ani"},
		{ID: "s3", Nama: "Budi"},
	}

	grid := BuildMonthGrid("Kelas", students, nil, nil, 2026, time.February, time.UTC, afterFeb)

	require.Len(t, grid.Rows, 3)
	assert.Equal(t, "Ani", grid.Rows[0].Name)
	assert.Equal(t, "Budi", grid.Rows[1].Name)
	assert.Equal(t, "Citra", grid.Rows[2].Name)
}

func TestRenderPDFProducesDocument(t *testing.T) {
	students := []models.Student{
		{ID: "s1", Nama: "Budi"},
		{ID: "s2", Nama: "Ani"},
	}
	grid := BuildMonthGrid("Kelas 10 IPA 1", students, nil, nil, 2026, time.February, time.UTC, afterFeb)

	out, err := RenderPDF(grid, models.ReportConfig{})
	require.NoError(t, err)
	require.Greater(t, len(out), 4)
	assert.Equal(t, "%PDF", string(out[:4]))

	withLetterhead, err := RenderPDF(grid, models.ReportConfig{
		SchoolName:    "SMA Negeri 1",
		PrincipalName: "Dra. Siti Rahma",
		PrincipalNIP:  "19700101 199501 2 001",
	})
	require.NoError(t, err)
	assert.Greater(t, len(withLetterhead), len(out), "letterhead adds content")
}

func TestDailyUnattendedMessage(t *testing.T) {
	// Friday 2026-01-02.
	date := time.Date(2026, time.January, 2, 8, 30, 0, 0, time.UTC)
	msg := DailyUnattended(CheckIn, date, "Kelas 10 IPA 1", []string{"Ani", "Budi"})

	assert.Contains(t, msg, "*Laporan Siswa Belum Absen Masuk*")
	assert.Contains(t, msg, "Kelas: Kelas 10 IPA 1")
	assert.Contains(t, msg, "Jumat, 2 Januari 2026")
	assert.Contains(t, msg, "1. Ani")
	assert.Contains(t, msg, "2. Budi")

	msgOut := DailyUnattended(CheckOut, date, "Kelas 10 IPA 1", []string{"Ani"})
	assert.Contains(t, msgOut, "Belum Absen Pulang")
}

func TestTruncateIsRuneSafe(t *testing.T) {
	assert.Equal(t, "Budi", truncate("Budi", 10))
	assert.Equal(t, "Budi Sa...", truncate("Budi Santoso Wijaya", 10))

	// Multi-byte runes right at the cut point.
	long := "Aáéíóú Ñandú Çelik Rahmawati"
	got := truncate(long, 10)
	assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	assert.Equal(t, 10, len([]rune(got)))
}

func TestMonthlyNames(t *testing.T) {
	assert.Equal(t, "Rekap_Absensi_Kelas_10_IPA_1_Februari_2026.pdf",
		MonthlyFileName("Kelas 10 IPA 1", 2026, time.February))
	assert.Contains(t, MonthlyCaption("Kelas 10 IPA 1", 2026, time.February), "Februari 2026")
}
