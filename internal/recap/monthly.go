package recap

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"AbsenSend/internal/metrics"
	"AbsenSend/internal/models"
	"AbsenSend/internal/report"
)

// monthlyRunHour is the local hour on the last day of the month at which the
// scheduled recap fires.
const monthlyRunHour = 20

// Monthly generates the per-class PDF recap, on schedule or on a manual
// trigger, idempotently per (target, period) via the persisted marker.
type Monthly struct {
	dir     Directory
	queue   Queue
	markers Markers
	log     *zap.Logger

	loc          *time.Location
	interval     time.Duration
	enqueueDelay time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

func NewMonthly(dir Directory, queue Queue, markers Markers, log *zap.Logger, loc *time.Location, interval, enqueueDelay time.Duration) *Monthly {
	if interval <= 0 {
		interval = time.Hour
	}
	if enqueueDelay <= 0 {
		enqueueDelay = 500 * time.Millisecond
	}
	return &Monthly{
		dir:          dir,
		queue:        queue,
		markers:      markers,
		log:          log,
		loc:          loc,
		interval:     interval,
		enqueueDelay: enqueueDelay,
		now:          time.Now,
		sleep:        time.Sleep,
	}
}

func (m *Monthly) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("monthly recap scheduler started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

func (m *Monthly) runOnce(ctx context.Context) {
	now := m.now().In(m.loc)

	lastDay := now.AddDate(0, 0, 1).Day() == 1
	if !lastDay || now.Hour() != monthlyRunHour {
		return
	}

	// Month is zero-based throughout, matching the trigger convention.
	if err := m.Generate(ctx, now.Year(), int(now.Month())-1, TargetAllGrades); err != nil {
		m.log.Error("scheduled monthly recap failed", zap.Error(err))
	}
}

// Generate builds and enqueues one PDF job per class in the target scope.
// The marker check up front makes a repeat call for the same period a no-op;
// the marker is written only after every class was enqueued, so a failed run
// is retried whole by the next tick or a manual trigger.
func (m *Monthly) Generate(ctx context.Context, year, month0 int, target string) error {
	if month0 < 0 || month0 > 11 {
		return fmt.Errorf("month %d out of range 0-11", month0)
	}
	period := fmt.Sprintf("%d-%d", year, month0)

	last, err := m.markers.LastRecapRun(ctx, target)
	if err != nil {
		return err
	}
	if last == period {
		m.log.Info("monthly recap already ran for period, skipping",
			zap.String("target", target), zap.String("period", period))
		return nil
	}

	classes, err := m.dir.Classes(ctx)
	if err != nil {
		return err
	}
	targets := ResolveTarget(classes, target)
	if len(targets) == 0 {
		m.log.Warn("recap target matched no class", zap.String("target", target))
		return nil
	}

	month := time.Month(month0 + 1)
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, m.loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	students, err := m.dir.ActiveStudents(ctx)
	if err != nil {
		return err
	}
	records, err := m.dir.AttendanceBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return err
	}
	holidays, err := m.dir.HolidaysOverlapping(ctx, monthStart, monthEnd)
	if err != nil {
		return err
	}
	reportCfg, err := m.dir.ReportConfig(ctx)
	if err != nil {
		return err
	}

	byClass := make(map[string][]models.Student)
	for _, st := range students {
		byClass[st.ClassID] = append(byClass[st.ClassID], st)
	}

	runID := uuid.NewString()
	log := m.log.With(zap.String("run_id", runID),
		zap.String("target", target), zap.String("period", period))

	enqueued := 0
	for _, cl := range targets {
		if cl.WhatsappGroupName == "" {
			log.Warn("class has no whatsapp group, skipping",
				zap.String("class_id", cl.ID))
			continue
		}

		grid := report.BuildMonthGrid(cl.Name, byClass[cl.ID], records, holidays, year, month, m.loc, m.now().In(m.loc))
		pdfBytes, err := report.RenderPDF(grid, reportCfg)
		if err != nil {
			return fmt.Errorf("recap pdf for class %s: %w", cl.ID, err)
		}

		job := models.Job{
			Type: "recap_pdf",
			Payload: models.JobPayload{
				Recipient:    cl.WhatsappGroupName,
				Message:      report.MonthlyCaption(cl.Name, year, month),
				FileData:     base64.StdEncoding.EncodeToString(pdfBytes),
				FileMimetype: "application/pdf",
				FileName:     report.MonthlyFileName(cl.Name, year, month),
			},
			Metadata: map[string]interface{}{
				"runId":   runID,
				"classId": cl.ID,
				"period":  period,
			},
		}
		if _, err := m.queue.EnqueueJob(ctx, job); err != nil {
			return fmt.Errorf("enqueue recap for class %s: %w", cl.ID, err)
		}
		metrics.RecapJobsEnqueued.Inc()
		enqueued++

		// Paces writes against the store, independent of delivery pacing.
		m.sleep(m.enqueueDelay)
	}

	if err := m.markers.SetRecapRun(ctx, target, period); err != nil {
		return err
	}

	log.Info("monthly recap generated", zap.Int("classes", enqueued))
	return nil
}
