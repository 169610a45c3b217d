package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"AbsenSend/internal/models"
)

// WatchPendingTriggers mirrors WatchPendingJobs for the manual_triggers
// collection.
func (c *Client) WatchPendingTriggers(ctx context.Context) (<-chan []models.ManualTrigger, error) {
	query := c.fs.Collection(triggersCollection).
		Where("status", "==", string(models.StatusPending))

	snaps := query.Snapshots(ctx)
	out := make(chan []models.ManualTrigger, 1)

	go func() {
		defer close(out)
		defer snaps.Stop()

		for {
			snap, err := snaps.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				c.log.Error("manual-triggers subscription ended", zap.Error(err))
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				c.log.Error("failed to read manual-triggers snapshot", zap.Error(err))
				continue
			}

			triggers := make([]models.ManualTrigger, 0, len(docs))
			for _, doc := range docs {
				var trg models.ManualTrigger
				if err := doc.DataTo(&trg); err != nil {
					// Malformed payloads still need a terminal status so the
					// dashboard sees the rejection.
					c.log.Warn("malformed manual trigger",
						zap.String("trigger_id", doc.Ref.ID), zap.Error(err))
					if ferr := c.MarkTriggerFailed(ctx, doc.Ref.ID, "malformed trigger payload"); ferr != nil {
						c.log.Error("failed to mark malformed trigger",
							zap.String("trigger_id", doc.Ref.ID), zap.Error(ferr))
					}
					continue
				}
				trg.ID = doc.Ref.ID
				triggers = append(triggers, trg)
			}

			if len(triggers) == 0 {
				continue
			}

			select {
			case out <- triggers:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (c *Client) MarkTriggerProcessing(ctx context.Context, id string) error {
	_, err := c.fs.Collection(triggersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(models.StatusProcessing)},
	})
	return err
}

func (c *Client) MarkTriggerFailed(ctx context.Context, id, errMsg string) error {
	_, err := c.fs.Collection(triggersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(models.StatusFailed)},
		{Path: "errorMessage", Value: errMsg},
	})
	return err
}

// DeleteTrigger removes a trigger once its recap run succeeded.
func (c *Client) DeleteTrigger(ctx context.Context, id string) error {
	_, err := c.fs.Collection(triggersCollection).Doc(id).Delete(ctx)
	return err
}
