package recap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"AbsenSend/internal/models"
)

type fakeTriggerStore struct {
	processing []string
	failed     map[string]string
	deleted    []string
}

func newFakeTriggerStore() *fakeTriggerStore {
	return &fakeTriggerStore{failed: make(map[string]string)}
}

func (f *fakeTriggerStore) WatchPendingTriggers(ctx context.Context) (<-chan []models.ManualTrigger, error) {
	ch := make(chan []models.ManualTrigger)
	close(ch)
	return ch, nil
}

func (f *fakeTriggerStore) MarkTriggerProcessing(ctx context.Context, id string) error {
	f.processing = append(f.processing, id)
	return nil
}

func (f *fakeTriggerStore) MarkTriggerFailed(ctx context.Context, id, errMsg string) error {
	f.failed[id] = errMsg
	return nil
}

func (f *fakeTriggerStore) DeleteTrigger(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type generateCall struct {
	year, month int
	target      string
}

type fakeGenerator struct {
	calls []generateCall
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, year, month0 int, target string) error {
	f.calls = append(f.calls, generateCall{year, month0, target})
	return f.err
}

func newTestListener(st *fakeTriggerStore, gen *fakeGenerator) *TriggerListener {
	l := NewTriggerListener(st, gen, zap.NewNop(), time.Second)
	l.sleep = func(time.Duration) {}
	return l
}

func validTrigger() models.ManualTrigger {
	return models.ManualTrigger{
		ID:     "t1",
		Type:   models.TriggerMonthlyRecap,
		Year:   2026,
		Month:  1,
		Target: TargetAllGrades,
		Status: string(models.StatusPending),
	}
}

func TestValidTriggerRunsAndIsDeleted(t *testing.T) {
	st := newFakeTriggerStore()
	gen := &fakeGenerator{}
	l := newTestListener(st, gen)

	l.handle(context.Background(), validTrigger())

	assert.Equal(t, []string{"t1"}, st.processing)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, generateCall{2026, 1, TargetAllGrades}, gen.calls[0])
	assert.Equal(t, []string{"t1"}, st.deleted)
	assert.Empty(t, st.failed)
}

func TestInvalidTriggerIsRejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ManualTrigger)
		reason string
	}{
		{"bad month", func(trg *models.ManualTrigger) { trg.Month = 12 }, "invalid month"},
		{"negative month", func(trg *models.ManualTrigger) { trg.Month = -1 }, "invalid month"},
		{"bad year", func(trg *models.ManualTrigger) { trg.Year = 0 }, "invalid year"},
		{"missing target", func(trg *models.ManualTrigger) { trg.Target = "" }, "no target"},
		{"wrong type", func(trg *models.ManualTrigger) { trg.Type = "weekly_recap" }, "unsupported trigger type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeTriggerStore()
			gen := &fakeGenerator{}
			l := newTestListener(st, gen)

			trg := validTrigger()
			tt.mutate(&trg)
			l.handle(context.Background(), trg)

			assert.Empty(t, gen.calls, "invalid triggers must not generate")
			assert.Empty(t, st.deleted)
			assert.Contains(t, st.failed["t1"], tt.reason)
		})
	}
}

func TestGeneratorErrorMarksTriggerFailed(t *testing.T) {
	st := newFakeTriggerStore()
	gen := &fakeGenerator{err: errors.New("firestore unavailable")}
	l := newTestListener(st, gen)

	l.handle(context.Background(), validTrigger())

	assert.Empty(t, st.deleted)
	assert.Equal(t, "firestore unavailable", st.failed["t1"])
}
