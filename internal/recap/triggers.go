package recap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"AbsenSend/internal/models"
)

// TriggerStore is the manual_triggers slice of the store.
type TriggerStore interface {
	WatchPendingTriggers(ctx context.Context) (<-chan []models.ManualTrigger, error)
	MarkTriggerProcessing(ctx context.Context, id string) error
	MarkTriggerFailed(ctx context.Context, id, errMsg string) error
	DeleteTrigger(ctx context.Context, id string) error
}

// Generator runs a monthly recap outside its schedule.
type Generator interface {
	Generate(ctx context.Context, year, month0 int, target string) error
}

// TriggerListener lets the dashboard request "run monthly recap now". A
// trigger is deleted on success and marked failed otherwise.
type TriggerListener struct {
	store TriggerStore
	gen   Generator
	log   *zap.Logger

	delay time.Duration
	sleep func(time.Duration)
}

func NewTriggerListener(st TriggerStore, gen Generator, log *zap.Logger, delay time.Duration) *TriggerListener {
	if delay <= 0 {
		delay = time.Second
	}
	return &TriggerListener{
		store: st,
		gen:   gen,
		log:   log,
		delay: delay,
		sleep: time.Sleep,
	}
}

func (l *TriggerListener) Run(ctx context.Context) error {
	batches, err := l.store.WatchPendingTriggers(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to manual triggers: %w", err)
	}

	l.log.Info("manual trigger listener started")
	for batch := range batches {
		for _, trg := range batch {
			if ctx.Err() != nil {
				return nil
			}
			l.handle(ctx, trg)
			l.sleep(l.delay)
		}
	}
	return nil
}

func (l *TriggerListener) handle(ctx context.Context, trg models.ManualTrigger) {
	log := l.log.With(zap.String("trigger_id", trg.ID))

	if err := l.store.MarkTriggerProcessing(ctx, trg.ID); err != nil {
		log.Error("failed to mark trigger processing", zap.Error(err))
		return
	}

	if reason := validateTrigger(trg); reason != "" {
		log.Warn("rejecting manual trigger", zap.String("reason", reason))
		if err := l.store.MarkTriggerFailed(ctx, trg.ID, reason); err != nil {
			log.Error("failed to mark trigger failed", zap.Error(err))
		}
		return
	}

	log.Info("running manual monthly recap",
		zap.Int64("year", trg.Year), zap.Int64("month", trg.Month),
		zap.String("target", trg.Target))

	if err := l.gen.Generate(ctx, int(trg.Year), int(trg.Month), trg.Target); err != nil {
		log.Error("manual recap failed", zap.Error(err))
		if ferr := l.store.MarkTriggerFailed(ctx, trg.ID, err.Error()); ferr != nil {
			log.Error("failed to mark trigger failed", zap.Error(ferr))
		}
		return
	}

	if err := l.store.DeleteTrigger(ctx, trg.ID); err != nil {
		log.Error("failed to delete completed trigger", zap.Error(err))
	}
}

func validateTrigger(trg models.ManualTrigger) string {
	if trg.Type != models.TriggerMonthlyRecap {
		return fmt.Sprintf("unsupported trigger type %q", trg.Type)
	}
	if trg.Year <= 0 {
		return fmt.Sprintf("invalid year %d", trg.Year)
	}
	if trg.Month < 0 || trg.Month > 11 {
		return fmt.Sprintf("invalid month %d, expected 0-11", trg.Month)
	}
	if trg.Target == "" {
		return "trigger has no target"
	}
	return ""
}
