package recap

import (
	"context"
	"fmt"
	"time"

	"AbsenSend/internal/models"
)

type fakeDirectory struct {
	classes  []models.Class
	students []models.Student
	records  []models.AttendanceRecord
	holidays []models.Holiday
	hours    models.SchoolHours
	report   models.ReportConfig
	err      error
}

func (f *fakeDirectory) Classes(ctx context.Context) ([]models.Class, error) {
	return f.classes, f.err
}

func (f *fakeDirectory) ActiveStudents(ctx context.Context) ([]models.Student, error) {
	return f.students, f.err
}

func (f *fakeDirectory) AttendanceBetween(ctx context.Context, from, to time.Time) ([]models.AttendanceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var in []models.AttendanceRecord
	for _, rec := range f.records {
		if !rec.RecordDate.Before(from) && rec.RecordDate.Before(to) {
			in = append(in, rec)
		}
	}
	return in, nil
}

func (f *fakeDirectory) HolidaysOverlapping(ctx context.Context, from, to time.Time) ([]models.Holiday, error) {
	if f.err != nil {
		return nil, f.err
	}
	var in []models.Holiday
	for _, h := range f.holidays {
		if !h.EndDate.Before(from) && !h.StartDate.After(to) {
			in = append(in, h)
		}
	}
	return in, nil
}

func (f *fakeDirectory) SchoolHours(ctx context.Context) (models.SchoolHours, error) {
	return f.hours, f.err
}

func (f *fakeDirectory) ReportConfig(ctx context.Context) (models.ReportConfig, error) {
	return f.report, f.err
}

type fakeQueue struct {
	jobs []models.Job
	err  error
}

func (f *fakeQueue) EnqueueJob(ctx context.Context, job models.Job) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.jobs = append(f.jobs, job)
	return fmt.Sprintf("job-%d", len(f.jobs)), nil
}

type fakeMarkers struct {
	runs map[string]string
	err  error
}

func newFakeMarkers() *fakeMarkers {
	return &fakeMarkers{runs: make(map[string]string)}
}

func (f *fakeMarkers) LastRecapRun(ctx context.Context, target string) (string, error) {
	return f.runs[target], f.err
}

func (f *fakeMarkers) SetRecapRun(ctx context.Context, target, period string) error {
	if f.err != nil {
		return f.err
	}
	f.runs[target] = period
	return nil
}
