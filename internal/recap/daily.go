package recap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"AbsenSend/internal/metrics"
	"AbsenSend/internal/models"
	"AbsenSend/internal/report"
)

// Daily checks every interval whether a cutoff (school check-in or check-out
// time plus grace) has passed and, once per calendar day per cutoff, enqueues
// one unattended-student report per class group.
type Daily struct {
	dir   Directory
	queue Queue
	log   *zap.Logger

	loc      *time.Location
	interval time.Duration
	grace    time.Duration

	now func() time.Time

	// In-memory once-per-day flags, reset when the calendar date changes.
	flagDate   string
	sentMasuk  bool
	sentPulang bool
}

func NewDaily(dir Directory, queue Queue, log *zap.Logger, loc *time.Location, interval, grace time.Duration) *Daily {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if grace <= 0 {
		grace = time.Hour
	}
	return &Daily{
		dir:      dir,
		queue:    queue,
		log:      log,
		loc:      loc,
		interval: interval,
		grace:    grace,
		now:      time.Now,
	}
}

func (d *Daily) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info("daily report scheduler started", zap.Duration("interval", d.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.runOnce(ctx); err != nil {
				d.log.Error("daily report check failed", zap.Error(err))
			}
		}
	}
}

func (d *Daily) runOnce(ctx context.Context) error {
	now := d.now().In(d.loc)

	today := now.Format("2006-01-02")
	if today != d.flagDate {
		d.flagDate = today
		d.sentMasuk = false
		d.sentPulang = false
	}

	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return nil
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc)
	holidays, err := d.dir.HolidaysOverlapping(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if len(holidays) > 0 {
		return nil
	}

	hours, err := d.dir.SchoolHours(ctx)
	if err != nil {
		return err
	}

	if !d.sentMasuk {
		cutoff, err := d.cutoff(now, hours.JamMasuk)
		if err != nil {
			return err
		}
		if now.After(cutoff) {
			if err := d.report(ctx, report.CheckIn, now); err != nil {
				return err
			}
			d.sentMasuk = true
		}
	}

	if !d.sentPulang {
		cutoff, err := d.cutoff(now, hours.JamPulang)
		if err != nil {
			return err
		}
		if now.After(cutoff) {
			if err := d.report(ctx, report.CheckOut, now); err != nil {
				return err
			}
			d.sentPulang = true
		}
	}

	return nil
}

// cutoff turns an "HH:MM" school time into today's deadline plus grace.
func (d *Daily) cutoff(now time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad school hours %q: %w", hhmm, err)
	}
	return time.Date(now.Year(), now.Month(), now.Day(),
		t.Hour(), t.Minute(), 0, 0, d.loc).Add(d.grace), nil
}

// report enqueues one text job per class with a configured group, listing
// active students missing the cutoff: no record at all for check-in, a record
// without a checkout for check-out.
func (d *Daily) report(ctx context.Context, kind report.Kind, now time.Time) error {
	students, err := d.dir.ActiveStudents(ctx)
	if err != nil {
		return err
	}
	classes, err := d.dir.Classes(ctx)
	if err != nil {
		return err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc)
	records, err := d.dir.AttendanceBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	byStudent := make(map[string]models.AttendanceRecord, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}

	missing := make(map[string][]string) // classID -> student names
	for _, st := range students {
		rec, ok := byStudent[st.ID]
		switch kind {
		case report.CheckIn:
			if !ok {
				missing[st.ClassID] = append(missing[st.ClassID], st.Nama)
			}
		case report.CheckOut:
			if ok && rec.TimestampPulang == nil {
				missing[st.ClassID] = append(missing[st.ClassID], st.Nama)
			}
		}
	}

	enqueued := 0
	for _, cl := range classes {
		names := missing[cl.ID]
		if len(names) == 0 || cl.WhatsappGroupName == "" {
			continue
		}
		sort.Strings(names)

		job := models.Job{
			Type: "recap",
			Payload: models.JobPayload{
				Recipient: cl.WhatsappGroupName,
				Message:   report.DailyUnattended(kind, now, cl.Name, names),
			},
			Metadata: map[string]interface{}{
				"report":  string(kind),
				"date":    now.Format("2006-01-02"),
				"classId": cl.ID,
			},
		}
		if _, err := d.queue.EnqueueJob(ctx, job); err != nil {
			return fmt.Errorf("enqueue daily report for class %s: %w", cl.ID, err)
		}
		metrics.RecapJobsEnqueued.Inc()
		enqueued++
	}

	d.log.Info("daily unattended report enqueued",
		zap.String("kind", string(kind)), zap.Int("classes", enqueued))
	return nil
}
