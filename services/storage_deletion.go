package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
	"github.com/shivamdarekar/TrendsWave/storage"
)

type deletionQueue interface {
	SendMessage(ctx context.Context, body string) error
}

type deletionPoller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

type deletionMessage struct {
	PublicID string `json:"publicId"`
}

// ImageDeleter removes stored images. With a queue configured deletions are
// sent to SQS and a worker removes the objects; otherwise they run inline.
type ImageDeleter struct {
	storage storage.Storage
	queue   deletionQueue
	logger  *zap.Logger
}

// NewImageDeleter accepts a nil queue for inline deletion.
func NewImageDeleter(store storage.Storage, queue *awspkg.SQSQueue, logger *zap.Logger) *ImageDeleter {
	d := &ImageDeleter{storage: store, logger: logger}
	if queue != nil {
		d.queue = queue
	}
	return d
}

// Delete removes every object in publicIDs. It keeps going after a failure
// and returns the first error.
func (d *ImageDeleter) Delete(ctx context.Context, publicIDs ...string) error {
	var firstErr error
	for _, id := range publicIDs {
		if id == "" {
			continue
		}
		if err := d.deleteOne(ctx, id); err != nil {
			d.logger.Warn("Failed to delete stored image", zap.String("public_id", id), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (d *ImageDeleter) deleteOne(ctx context.Context, publicID string) error {
	if d.queue != nil {
		body, _ := json.Marshal(deletionMessage{PublicID: publicID})
		err := d.queue.SendMessage(ctx, string(body))
		if err == nil {
			return nil
		}
		d.logger.Warn("Failed to enqueue image deletion, deleting inline", zap.String("public_id", publicID), zap.Error(err))
	}
	return d.storage.Delete(ctx, publicID)
}

// HandleMessage processes one queued deletion.
func (d *ImageDeleter) HandleMessage(ctx context.Context, body string) error {
	var msg deletionMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		// Malformed messages would be redelivered forever; drop them.
		d.logger.Error("Dropping malformed deletion message", zap.String("body", body), zap.Error(err))
		return nil
	}
	if msg.PublicID == "" {
		return nil
	}
	if err := d.storage.Delete(ctx, msg.PublicID); err != nil {
		return fmt.Errorf("delete %s: %w", msg.PublicID, err)
	}
	d.logger.Debug("Deleted stored image", zap.String("public_id", msg.PublicID))
	return nil
}

// StorageDeletionWorker drains the deletion queue until ctx is cancelled.
type StorageDeletionWorker struct {
	poller  deletionPoller
	deleter *ImageDeleter
	metrics awspkg.MetricsRecorder
	logger  *zap.Logger
}

func NewStorageDeletionWorker(poller *awspkg.SQSQueue, deleter *ImageDeleter, metrics awspkg.MetricsRecorder, logger *zap.Logger) *StorageDeletionWorker {
	return &StorageDeletionWorker{poller: poller, deleter: deleter, metrics: metrics, logger: logger}
}

// handle processes one message; a nil return acks it, so that is what gets
// counted.
func (w *StorageDeletionWorker) handle(ctx context.Context, body string) error {
	if err := w.deleter.HandleMessage(ctx, body); err != nil {
		return err
	}
	if w.metrics != nil && w.metrics.IsEnabled() {
		_ = w.metrics.RecordCount(ctx, awspkg.MetricSQSMessages, map[string]string{"Queue": "storage-delete"})
	}
	return nil
}

func (w *StorageDeletionWorker) Run(ctx context.Context) {
	w.logger.Info("Storage deletion worker started")
	if err := w.poller.StartPolling(ctx, w.handle); err != nil && ctx.Err() == nil {
		w.logger.Error("Storage deletion worker stopped", zap.Error(err))
	}
}
