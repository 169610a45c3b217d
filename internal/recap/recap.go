// Package recap synthesizes attendance report jobs into the notification
// queue, on daily and monthly schedules and on manual triggers. It only
// produces queue documents; delivery is the consumer's business.
package recap

import (
	"context"
	"time"

	"AbsenSend/internal/models"
)

// Directory is the read-only view over the dashboard-owned collections.
type Directory interface {
	Classes(ctx context.Context) ([]models.Class, error)
	ActiveStudents(ctx context.Context) ([]models.Student, error)
	AttendanceBetween(ctx context.Context, from, to time.Time) ([]models.AttendanceRecord, error)
	HolidaysOverlapping(ctx context.Context, from, to time.Time) ([]models.Holiday, error)
	SchoolHours(ctx context.Context) (models.SchoolHours, error)
	ReportConfig(ctx context.Context) (models.ReportConfig, error)
}

// Queue is the producer side of the notification queue.
type Queue interface {
	EnqueueJob(ctx context.Context, job models.Job) (string, error)
}

// Markers persists the monthly idempotence state.
type Markers interface {
	LastRecapRun(ctx context.Context, target string) (string, error)
	SetRecapRun(ctx context.Context, target, period string) error
}
