package workers

import (
	"context"
	"time"

	"uru_backend/internal/logger"
	"uru_backend/internal/repositories"
)

// CleanupWorker убирает истекшие заявки на смену email. Строка с
// истекшим токеном и так не проходит верификацию, уборка лишь
// освобождает занятые email для новых заявок.
type CleanupWorker struct {
	store    repositories.Store
	interval time.Duration
}

func NewCleanupWorker(store repositories.Store, interval time.Duration) *CleanupWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupWorker{store: store, interval: interval}
}

// Start запускает фоновую уборку до отмены контекста
func (w *CleanupWorker) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *CleanupWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup worker stopped")
			return
		case <-ticker.C:
			w.runOnce()
		}
	}
}

func (w *CleanupWorker) runOnce() {
	removed, err := w.store.PendingEmailChanges().DeleteExpired(time.Now())
	if err != nil {
		logger.WithError(err).Error("pending email change cleanup failed")
		return
	}
	if removed > 0 {
		logger.Info("expired pending email changes removed", "count", removed)
	}
}
