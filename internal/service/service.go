package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"printshop/storefront/internal/content"
	"printshop/storefront/internal/domain/task"
	"printshop/storefront/internal/queue"
	"printshop/storefront/internal/state"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// FieldIncrementer applies a numeric patch to a content document.
type FieldIncrementer interface {
	IncrementField(ctx context.Context, documentID, field string, by int) error
}

// Service drains queued download increments into the content API.
type Service struct {
	client      FieldIncrementer
	queue       queue.Queue
	pending     state.PendingDownloads
	groupName   string
	minIdleTime time.Duration
}

func NewService(
	client FieldIncrementer,
	queue queue.Queue,
	pending state.PendingDownloads,
	groupName string,
	minIdleTime int,
) *Service {
	if minIdleTime <= 0 {
		minIdleTime = 120
	}
	return &Service{
		client:      client,
		queue:       queue,
		pending:     pending,
		groupName:   groupName,
		minIdleTime: time.Duration(minIdleTime) * time.Second,
	}
}

func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	var wg sync.WaitGroup

	s.runWorkersForStream(ctx, &wg, max(numWorkers, 1), queue.StreamName(task.DownloadIncrementTaskType), "downloads")

	wg.Wait()
	return nil
}

func (s *Service) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, streamName, workerType string) {
	// Auto-claimer picks up increments a crashed or failing worker left un-acked
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.minIdleTime)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				consumer := fmt.Sprintf("autoclaimer-%s-%d", workerType, time.Now().UnixNano())
				claimedMessages, err := s.queue.AutoClaim(ctx, s.groupName, consumer, streamName, s.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", streamName, err)
					continue
				}
				if len(claimedMessages) > 0 {
					log.Infof("🔄 Auto-claimed %d messages from %s stream", len(claimedMessages), workerType)
					for _, msg := range claimedMessages {
						if err := s.processMessage(ctx, &msg); err != nil {
							log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("%s-worker-%d", workerType, workerID)
			log.Infof("🚀 Starting %s worker %d as consumer %s", workerType, workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 %s worker %d stopping", workerType, workerID)
					return
				default:
					msg, err := s.queue.GetTask(ctx, s.groupName, consumer, streamName)
					if err != nil {
						if ctx.Err() != nil {
							continue
						}
						log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
						continue
					}

					if msg != nil {
						if err := s.processMessage(ctx, msg); err != nil {
							log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}(i + 1)
	}
}

// processMessage acks only after the remote increment succeeded.
func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage) error {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return fmt.Errorf("invalid task type in message %s", msg.ID)
	}

	taskData, ok := msg.Values["task_data"].(string)
	if !ok {
		return fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	var streamName string
	switch taskType {
	case task.DownloadIncrementTaskType:
		streamName = queue.StreamName(task.DownloadIncrementTaskType)
		incTask, err := task.UnmarshalTask[*task.DownloadIncrementTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal download increment task data: %w", err)
		}

		if err := s.applyIncrement(ctx, incTask); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}

	if err := s.queue.AckTask(ctx, streamName, s.groupName, msg.ID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}

	return nil
}

func (s *Service) applyIncrement(ctx context.Context, incTask *task.DownloadIncrementTask) error {
	if incTask.ItemID == "" {
		return fmt.Errorf("download increment task has no item id")
	}

	if err := s.client.IncrementField(ctx, incTask.ItemID, content.DownloadCountField, 1); err != nil {
		return fmt.Errorf("failed to increment downloads for %s: %w", incTask.ItemID, err)
	}

	// The remote count already includes this download, so the message is acked regardless.
	if err := s.pending.Release(ctx, incTask.ItemID); err != nil {
		log.Warnf("⚠️ Increment applied but pending tally not released for %s: %v", incTask.ItemID, err)
	}

	log.Debugf("✅ Applied download increment for %s requested at %s",
		incTask.ItemID, incTask.RequestedAt.Format(time.RFC3339))
	return nil
}
