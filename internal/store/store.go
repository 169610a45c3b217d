package store

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	jobsCollection     = "notification_queue"
	triggersCollection = "manual_triggers"
	settingsCollection = "settings"

	classesCollection    = "classes"
	studentsCollection   = "students"
	attendanceCollection = "attendance"
	holidaysCollection   = "holidays"
)

// ErrAlreadyClaimed signals that another drain pass transitioned the job out
// of pending between the batch snapshot and our claim.
var ErrAlreadyClaimed = errors.New("job already claimed")

// Client wraps the Firestore client. The job store is the single source of
// truth shared by the dashboard (producer) and this worker (consumer).
type Client struct {
	fs  *firestore.Client
	log *zap.Logger
}

func New(ctx context.Context, projectID string, log *zap.Logger) (*Client, error) {
	fs, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Client{fs: fs, log: log}, nil
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// writeBackoff bounds retries around single-document writes that may hit
// transient RPC failures.
func writeBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 15 * time.Second
	return backoff.WithContext(b, ctx)
}
