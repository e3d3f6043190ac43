package service

import (
	"context"
	"encoding/json"
	"time"

	"mergeflow/internal/model"
	"mergeflow/internal/repository"
	v1 "mergeflow/pkg/api/v1"
	"mergeflow/pkg/logger"

	"go.uber.org/zap"
)

// OutboxWorker drains pending publish events that the fast-path etcd sync
// missed. Together with the transactional outbox row this makes the
// DB-to-etcd propagation at-least-once.
type OutboxWorker struct {
	outboxRepo repository.OutboxInterface
	liveRepo   *repository.LiveRepository
	interval   time.Duration
}

func NewOutboxWorker(outboxRepo repository.OutboxInterface, liveRepo *repository.LiveRepository, interval time.Duration) *OutboxWorker {
	return &OutboxWorker{
		outboxRepo: outboxRepo,
		liveRepo:   liveRepo,
		interval:   interval,
	}
}

func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	logger.Info("outbox worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *OutboxWorker) processPending(ctx context.Context) {
	tasks, err := w.outboxRepo.FetchPending(ctx, 10)
	if err != nil {
		logger.Error("failed to fetch pending outbox tasks", zap.Error(err))
		return
	}

	for _, task := range tasks {
		logger.Debug("processing outbox task", zap.Int64("id", task.ID), zap.String("key", task.Key))

		var cfg v1.LiveConfig
		if err := json.Unmarshal([]byte(task.Payload), &cfg); err != nil {
			logger.Error("failed to unmarshal task payload", zap.Int64("id", task.ID), zap.Error(err))
			// payload is corrupt, no point retrying
			w.outboxRepo.UpdateStatus(ctx, uint64(task.ID), model.StatusFailed, task.RetryCount)
			continue
		}

		// task.Key already holds the full etcd path
		if _, err := w.liveRepo.SaveLiveIfNewer(ctx, task.Key, cfg); err != nil {
			logger.Warn("failed to sync task to etcd", zap.Int64("id", task.ID), zap.Error(err))
			newRetryCount := task.RetryCount + 1
			if newRetryCount >= 5 {
				logger.Error("task max retries reached", zap.Int64("id", task.ID))
				w.outboxRepo.UpdateStatus(ctx, uint64(task.ID), model.StatusFailed, newRetryCount)
			} else {
				w.outboxRepo.UpdateStatus(ctx, uint64(task.ID), model.StatusPending, newRetryCount)
			}
			continue
		}

		if err := w.outboxRepo.UpdateStatus(ctx, uint64(task.ID), model.StatusCompleted, task.RetryCount); err != nil {
			logger.Error("failed to mark task completed", zap.Int64("id", task.ID), zap.Error(err))
		} else {
			logger.Info("outbox task completed", zap.Int64("id", task.ID), zap.String("key", task.Key))
		}
	}
}
