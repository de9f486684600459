package service

import (
	"context"
	"fmt"
	"time"

	"printshop/storefront/internal/content"
	"printshop/storefront/internal/domain/task"
	"printshop/storefront/internal/queue"
	"printshop/storefront/internal/state"

	log "github.com/sirupsen/logrus"
)

// DirectIncrementer patches the download count on the content API inline.
type DirectIncrementer struct {
	client FieldIncrementer
}

func NewDirectIncrementer(client FieldIncrementer) *DirectIncrementer {
	return &DirectIncrementer{client: client}
}

func (d *DirectIncrementer) RecordDownload(ctx context.Context, itemID string) error {
	if err := d.client.IncrementField(ctx, itemID, content.DownloadCountField, 1); err != nil {
		return fmt.Errorf("failed to record download for %s: %w", itemID, err)
	}
	return nil
}

// QueuedIncrementer tallies the download as pending and hands it to the workers.
type QueuedIncrementer struct {
	queue   queue.Queue
	pending state.PendingDownloads
	now     func() time.Time
}

func NewQueuedIncrementer(queue queue.Queue, pending state.PendingDownloads) *QueuedIncrementer {
	return &QueuedIncrementer{
		queue:   queue,
		pending: pending,
		now:     time.Now,
	}
}

// RecordDownload tallies before enqueueing so a fast worker never releases a
// download that was not yet counted.
func (q *QueuedIncrementer) RecordDownload(ctx context.Context, itemID string) error {
	if err := q.pending.Add(ctx, itemID); err != nil {
		return fmt.Errorf("failed to record download for %s: %w", itemID, err)
	}

	msgID, err := q.queue.AddTask(ctx, &task.DownloadIncrementTask{
		ItemID:      itemID,
		RequestedAt: q.now().UTC(),
	})
	if err != nil {
		if releaseErr := q.pending.Release(ctx, itemID); releaseErr != nil {
			log.Warnf("⚠️ Failed to undo pending tally for %s: %v", itemID, releaseErr)
		}
		return fmt.Errorf("failed to enqueue download for %s: %w", itemID, err)
	}

	log.Debugf("📥 Queued download increment for %s as %s", itemID, msgID)
	return nil
}
