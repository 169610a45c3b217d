package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"AbsenSend/internal/models"
)

// Read-only views over the dashboard-owned reference collections, plus the
// monthly recap idempotence marker.

func (c *Client) Classes(ctx context.Context) ([]models.Class, error) {
	docs, err := c.fs.Collection(classesCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}

	classes := make([]models.Class, 0, len(docs))
	for _, doc := range docs {
		var cl models.Class
		if err := doc.DataTo(&cl); err != nil {
			return nil, fmt.Errorf("class %s: %w", doc.Ref.ID, err)
		}
		cl.ID = doc.Ref.ID
		classes = append(classes, cl)
	}
	return classes, nil
}

func (c *Client) ActiveStudents(ctx context.Context) ([]models.Student, error) {
	docs, err := c.fs.Collection(studentsCollection).
		Where("status", "==", models.StudentActive).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}

	students := make([]models.Student, 0, len(docs))
	for _, doc := range docs {
		var st models.Student
		if err := doc.DataTo(&st); err != nil {
			return nil, fmt.Errorf("student %s: %w", doc.Ref.ID, err)
		}
		st.ID = doc.Ref.ID
		students = append(students, st)
	}
	return students, nil
}

// AttendanceBetween returns records with from <= recordDate < to.
func (c *Client) AttendanceBetween(ctx context.Context, from, to time.Time) ([]models.AttendanceRecord, error) {
	docs, err := c.fs.Collection(attendanceCollection).
		Where("recordDate", ">=", from).
		Where("recordDate", "<", to).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	records := make([]models.AttendanceRecord, 0, len(docs))
	for _, doc := range docs {
		var rec models.AttendanceRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("attendance %s: %w", doc.Ref.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// HolidaysOverlapping returns holiday ranges that touch [from, to]. Firestore
// allows a range filter on one field only, so the endDate side is filtered
// here.
func (c *Client) HolidaysOverlapping(ctx context.Context, from, to time.Time) ([]models.Holiday, error) {
	docs, err := c.fs.Collection(holidaysCollection).
		Where("startDate", "<=", to).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}

	holidays := make([]models.Holiday, 0, len(docs))
	for _, doc := range docs {
		var h models.Holiday
		if err := doc.DataTo(&h); err != nil {
			return nil, fmt.Errorf("holiday %s: %w", doc.Ref.ID, err)
		}
		if h.EndDate.Before(from) {
			continue
		}
		holidays = append(holidays, h)
	}
	return holidays, nil
}

func (c *Client) SchoolHours(ctx context.Context) (models.SchoolHours, error) {
	doc, err := c.fs.Collection(settingsCollection).Doc("schoolHours").Get(ctx)
	if err != nil {
		return models.SchoolHours{}, fmt.Errorf("read school hours: %w", err)
	}

	var hours models.SchoolHours
	if err := doc.DataTo(&hours); err != nil {
		return models.SchoolHours{}, fmt.Errorf("decode school hours: %w", err)
	}
	return hours, nil
}

// ReportConfig reads the letterhead and signatory settings for the recap PDF.
// A missing document is fine; the PDF renders without the optional copy.
func (c *Client) ReportConfig(ctx context.Context) (models.ReportConfig, error) {
	doc, err := c.fs.Collection(settingsCollection).Doc("reportConfig").Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.ReportConfig{}, nil
	}
	if err != nil {
		return models.ReportConfig{}, fmt.Errorf("read report config: %w", err)
	}

	var cfg models.ReportConfig
	if err := doc.DataTo(&cfg); err != nil {
		return models.ReportConfig{}, fmt.Errorf("decode report config: %w", err)
	}
	return cfg, nil
}

// LastRecapRun reads the lastRun_<target> marker; an absent document or field
// reads as "never ran".
func (c *Client) LastRecapRun(ctx context.Context, target string) (string, error) {
	doc, err := c.fs.Collection(settingsCollection).Doc("monthlyRecapStatus").Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read recap marker: %w", err)
	}

	val, err := doc.DataAt("lastRun_" + target)
	if err != nil {
		// Field not present yet for this target.
		return "", nil
	}
	period, _ := val.(string)
	return period, nil
}

func (c *Client) SetRecapRun(ctx context.Context, target, period string) error {
	_, err := c.fs.Collection(settingsCollection).Doc("monthlyRecapStatus").Set(ctx,
		map[string]interface{}{"lastRun_" + target: period},
		firestore.MergeAll,
	)
	if err != nil {
		return fmt.Errorf("persist recap marker: %w", err)
	}
	return nil
}
