package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"AbsenSend/internal/models"
)

// WatchPendingJobs subscribes to the pending slice of the queue and delivers
// a fresh batch whenever the result set changes. The channel closes when the
// context is cancelled or the subscription dies.
func (c *Client) WatchPendingJobs(ctx context.Context) (<-chan []models.Job, error) {
	query := c.fs.Collection(jobsCollection).
		Where("status", "==", string(models.StatusPending)).
		OrderBy("createdAt", firestore.Asc)

	snaps := query.Snapshots(ctx)
	out := make(chan []models.Job, 1)

	go func() {
		defer close(out)
		defer snaps.Stop()

		for {
			snap, err := snaps.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				c.log.Error("pending-jobs subscription ended", zap.Error(err))
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				c.log.Error("failed to read pending-jobs snapshot", zap.Error(err))
				continue
			}

			jobs := make([]models.Job, 0, len(docs))
			for _, doc := range docs {
				var job models.Job
				if err := doc.DataTo(&job); err != nil {
					c.log.Error("malformed job document",
						zap.String("job_id", doc.Ref.ID), zap.Error(err))
					continue
				}
				job.ID = doc.Ref.ID
				jobs = append(jobs, job)
			}

			if len(jobs) == 0 {
				continue
			}

			select {
			case out <- jobs:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// ClaimJob transitions a job pending -> processing if and only if it is still
// pending, as a single transaction. This is the lock that prevents a double
// send when two drain passes see the same batch.
func (c *Client) ClaimJob(ctx context.Context, id string) error {
	ref := c.fs.Collection(jobsCollection).Doc(id)

	return c.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		st, err := snap.DataAt("status")
		if err != nil {
			return err
		}
		if st != string(models.StatusPending) {
			return ErrAlreadyClaimed
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(models.StatusProcessing)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
}

func (c *Client) MarkJobSent(ctx context.Context, id string) error {
	return c.setJobStatus(ctx, id, models.StatusSent, "")
}

func (c *Client) MarkJobFailed(ctx context.Context, id, errMsg string) error {
	return c.setJobStatus(ctx, id, models.StatusFailed, errMsg)
}

// RetryJob bounces a job back to pending so a later batch redelivers it.
func (c *Client) RetryJob(ctx context.Context, id, errMsg string) error {
	return c.setJobStatus(ctx, id, models.StatusPending, errMsg)
}

func (c *Client) setJobStatus(ctx context.Context, id string, st models.JobStatus, errMsg string) error {
	_, err := c.fs.Collection(jobsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "errorMessage", Value: errMsg},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	return err
}

// ReclaimStuck resets every job sitting in processing since before olderThan
// back to pending, in one batched write. Returns how many were reset.
func (c *Client) ReclaimStuck(ctx context.Context, olderThan time.Time) (int, error) {
	docs, err := c.fs.Collection(jobsCollection).
		Where("status", "==", string(models.StatusProcessing)).
		Where("updatedAt", "<=", olderThan).
		Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	bw := c.fs.BulkWriter(ctx)
	writes := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, doc := range docs {
		w, err := bw.Update(doc.Ref, []firestore.Update{
			{Path: "status", Value: string(models.StatusPending)},
			{Path: "errorMessage", Value: "reset by fail-safe"},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
		if err != nil {
			c.log.Error("failed to queue reclaim write",
				zap.String("job_id", doc.Ref.ID), zap.Error(err))
			continue
		}
		writes = append(writes, w)
	}
	bw.End()

	reclaimed := 0
	for _, w := range writes {
		if _, err := w.Results(); err != nil {
			c.log.Error("reclaim write failed", zap.Error(err))
			continue
		}
		reclaimed++
	}
	return reclaimed, nil
}

// EnqueueJob appends a new pending job, retrying transient RPC failures. The
// document ID is server-assigned and returned.
func (c *Client) EnqueueJob(ctx context.Context, job models.Job) (string, error) {
	ref := c.fs.Collection(jobsCollection).NewDoc()

	op := func() error {
		_, err := ref.Create(ctx, map[string]interface{}{
			"payload":      job.Payload,
			"status":       string(models.StatusPending),
			"type":         job.Type,
			"metadata":     job.Metadata,
			"errorMessage": "",
			"createdAt":    firestore.ServerTimestamp,
			"updatedAt":    firestore.ServerTimestamp,
		})
		// A retry after a lost-response success lands here.
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return err
	}

	if err := backoff.Retry(op, writeBackoff(ctx)); err != nil {
		return "", err
	}
	return ref.ID, nil
}
