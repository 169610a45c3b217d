package queue

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"AbsenSend/internal/metrics"
	"AbsenSend/internal/models"
	"AbsenSend/internal/store"
	"AbsenSend/internal/wa"
)

// JobStore is the queue-side slice of the store.
type JobStore interface {
	WatchPendingJobs(ctx context.Context) (<-chan []models.Job, error)
	ClaimJob(ctx context.Context, id string) error
	MarkJobSent(ctx context.Context, id string) error
	MarkJobFailed(ctx context.Context, id, errMsg string) error
	RetryJob(ctx context.Context, id, errMsg string) error
}

// Messenger is the transport slice of the session.
type Messenger interface {
	SendText(ctx context.Context, jid, text string) error
	SendDocument(ctx context.Context, jid string, data []byte, mimetype, fileName, caption string) error
	ResolvePhone(ctx context.Context, digits string) (string, error)
}

type GroupResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

var phonePattern = regexp.MustCompile(`^\d+$`)

// Error-text markers the provider uses when throttling. Jobs failing with
// one of these bounce back to pending instead of terminating.
var rateLimitMarkers = []string{"rate-overlimit", "too-many-messages"}

// Consumer drains the job queue with at-most-one-in-flight, serial delivery.
// Seriality plus the randomized inter-job delay is the anti-spam posture
// toward the provider and must hold even on failures.
type Consumer struct {
	store  JobStore
	msg    Messenger
	groups GroupResolver
	log    *zap.Logger

	countryCode string
	delayMin    time.Duration
	delayMax    time.Duration

	sleep func(time.Duration)
	randn func(int64) int64
}

func NewConsumer(st JobStore, msg Messenger, groups GroupResolver, log *zap.Logger, countryCode string, delayMin, delayMax time.Duration) *Consumer {
	if delayMin <= 0 {
		delayMin = time.Second
	}
	if delayMax <= delayMin {
		delayMax = delayMin + 2*time.Second
	}
	return &Consumer{
		store:       st,
		msg:         msg,
		groups:      groups,
		log:         log,
		countryCode: countryCode,
		delayMin:    delayMin,
		delayMax:    delayMax,
		sleep:       time.Sleep,
		randn:       rand.Int63n,
	}
}

// Run subscribes to pending jobs and drains batches until the context ends.
// Batches arrive whenever the pending result set changes; draining them from
// a single goroutine keeps delivery strictly serial across batches too.
func (c *Consumer) Run(ctx context.Context) error {
	batches, err := c.store.WatchPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to pending jobs: %w", err)
	}

	c.log.Info("job queue consumer started")
	for batch := range batches {
		c.drain(ctx, batch)
	}
	c.log.Info("job queue consumer stopped")
	return nil
}

func (c *Consumer) drain(ctx context.Context, batch []models.Job) {
	for _, job := range batch {
		if ctx.Err() != nil {
			return
		}
		c.process(ctx, job)
		c.sleep(c.jitter())
	}
}

func (c *Consumer) process(ctx context.Context, job models.Job) {
	log := c.log.With(zap.String("job_id", job.ID), zap.String("type", job.Type))

	err := c.store.ClaimJob(ctx, job.ID)
	if errors.Is(err, store.ErrAlreadyClaimed) {
		log.Debug("job already claimed, skipping")
		return
	}
	if err != nil {
		log.Error("failed to claim job", zap.Error(err))
		return
	}

	if err := c.deliver(ctx, job); err != nil {
		c.settleFailure(ctx, job, err, log)
		return
	}

	if err := c.store.MarkJobSent(ctx, job.ID); err != nil {
		log.Error("failed to mark job sent", zap.Error(err))
		return
	}
	metrics.JobsSent.Inc()
	log.Info("job delivered", zap.String("recipient", job.Payload.Recipient))
}

func (c *Consumer) deliver(ctx context.Context, job models.Job) error {
	recipient := job.Payload.Recipient
	if recipient == "" {
		return errValidation("job payload has no recipient")
	}

	jid, err := c.resolveDestination(ctx, recipient)
	if err != nil {
		return err
	}

	if job.Payload.FileData != "" {
		data, err := base64.StdEncoding.DecodeString(job.Payload.FileData)
		if err != nil {
			return errValidation("invalid base64 file data: " + err.Error())
		}
		return c.msg.SendDocument(ctx, jid, data,
			job.Payload.FileMimetype, job.Payload.FileName, job.Payload.Message)
	}

	return c.msg.SendText(ctx, jid, job.Payload.Message)
}

func (c *Consumer) resolveDestination(ctx context.Context, recipient string) (string, error) {
	if phonePattern.MatchString(recipient) {
		jid, err := c.msg.ResolvePhone(ctx, NormalizePhone(recipient, c.countryCode))
		if errors.Is(err, wa.ErrNotRegistered) {
			return "", errValidation(fmt.Sprintf("recipient %s is not registered on WhatsApp", recipient))
		}
		if err != nil {
			return "", err
		}
		return jid, nil
	}

	jid, err := c.groups.Resolve(ctx, recipient)
	if errors.Is(err, wa.ErrGroupNotFound) {
		return "", errValidation(fmt.Sprintf("group %q not found in joined groups", recipient))
	}
	if err != nil {
		return "", err
	}
	return jid, nil
}

// settleFailure writes the terminal or retry status for a failed delivery.
func (c *Consumer) settleFailure(ctx context.Context, job models.Job, cause error, log *zap.Logger) {
	if errors.Is(cause, wa.ErrSessionClosed) {
		log.Warn("session offline, bouncing job back to pending", zap.Error(cause))
		if err := c.store.RetryJob(ctx, job.ID, cause.Error()); err != nil {
			log.Error("failed to bounce job", zap.Error(err))
			return
		}
		metrics.JobsRetried.Inc()
		return
	}

	if isRateLimited(cause) {
		log.Warn("rate limited, bouncing job back to pending", zap.Error(cause))
		if err := c.store.RetryJob(ctx, job.ID, "rate limited: "+cause.Error()); err != nil {
			log.Error("failed to bounce job", zap.Error(err))
			return
		}
		metrics.JobsRetried.Inc()
		return
	}

	log.Error("job delivery failed", zap.Error(cause))
	if err := c.store.MarkJobFailed(ctx, job.ID, cause.Error()); err != nil {
		log.Error("failed to mark job failed", zap.Error(err))
		return
	}
	metrics.JobsFailed.Inc()
}

func (c *Consumer) jitter() time.Duration {
	return c.delayMin + time.Duration(c.randn(int64(c.delayMax-c.delayMin)))
}

// NormalizePhone strips non-digits and rewrites a leading local zero to the
// configured country code, e.g. "0812-3456" -> "628123456".
func NormalizePhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "0") {
		return countryCode + digits[1:]
	}
	return digits
}

func isRateLimited(err error) bool {
	text := err.Error()
	for _, marker := range rateLimitMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

type validationError string

func errValidation(msg string) error { return validationError(msg) }

func (v validationError) Error() string { return string(v) }
