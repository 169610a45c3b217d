package report

import (
	"sort"
	"strings"
	"time"

	"AbsenSend/internal/models"
)

// Cell markers for the monthly grid.
const (
	CellHadir     = "H"
	CellTerlambat = "T"
	CellSakit     = "S"
	CellIzin      = "I"
	CellAlpha     = "A"
	CellLibur     = "L"
	CellBlank     = "-"
)

type StudentRow struct {
	Name  string
	Cells []string

	Hadir int
	Sakit int
	Izin  int
	Alpha int
}

// MonthGrid is the per-class day-by-day attendance matrix for one month.
// Libur days (weekends and holiday ranges) carry no absence weight.
type MonthGrid struct {
	ClassName string
	Year      int
	Month     time.Month
	Days      int
	Libur     map[int]bool
	Rows      []StudentRow
}

// BuildMonthGrid assembles the grid for one class. Records outside the month
// or belonging to other students are ignored. Days after asOf have not
// happened yet; they render blank and carry no absence weight, so a recap for
// the in-progress month does not count the remaining days as alpha.
func BuildMonthGrid(
	className string,
	students []models.Student,
	records []models.AttendanceRecord,
	holidays []models.Holiday,
	year int,
	month time.Month,
	loc *time.Location,
	asOf time.Time,
) MonthGrid {

	days := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	today := dayStart(asOf, loc)

	libur := make(map[int]bool)
	for day := 1; day <= days; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, loc)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			libur[day] = true
			continue
		}
		for _, h := range holidays {
			if !date.Before(dayStart(h.StartDate, loc)) && !date.After(dayStart(h.EndDate, loc)) {
				libur[day] = true
				break
			}
		}
	}

	// studentID -> day -> status
	byStudent := make(map[string]map[int]string)
	for _, rec := range records {
		d := rec.RecordDate.In(loc)
		if d.Year() != year || d.Month() != month {
			continue
		}
		if byStudent[rec.StudentID] == nil {
			byStudent[rec.StudentID] = make(map[int]string)
		}
		byStudent[rec.StudentID][d.Day()] = rec.Status
	}

	grid := MonthGrid{
		ClassName: className,
		Year:      year,
		Month:     month,
		Days:      days,
		Libur:     libur,
	}

	sorted := make([]models.Student, len(students))
	copy(sorted, students)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Nama < sorted[j].Nama })

	for _, st := range sorted {
		row := StudentRow{Name: st.Nama, Cells: make([]string, days)}
		for day := 1; day <= days; day++ {
			if time.Date(year, month, day, 0, 0, 0, 0, loc).After(today) {
				row.Cells[day-1] = CellBlank
				continue
			}
			if libur[day] {
				row.Cells[day-1] = CellLibur
				continue
			}
			cell := cellFor(byStudent[st.ID][day])
			row.Cells[day-1] = cell
			switch cell {
			case CellHadir, CellTerlambat:
				row.Hadir++
			case CellSakit:
				row.Sakit++
			case CellIzin:
				row.Izin++
			case CellAlpha:
				row.Alpha++
			}
		}
		grid.Rows = append(grid.Rows, row)
	}

	return grid
}

// cellFor maps a stored attendance status to a grid cell. A school day with
// no record at all counts as alpha.
func cellFor(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "hadir":
		return CellHadir
	case "terlambat":
		return CellTerlambat
	case "sakit":
		return CellSakit
	case "izin":
		return CellIzin
	case "":
		return CellAlpha
	default:
		return CellAlpha
	}
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	d := t.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}
