package services

import (
	"context"
	"log"
	"time"

	"pgdesk/internal/jobs"
	"pgdesk/internal/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Notifier dispatches lifecycle notifications through an asynchronous,
// at-least-once channel. Dispatch never returns an error: enqueue failures are
// logged and discarded so a notification can never block, retry or roll back a
// tenancy state change.
type Notifier interface {
	Dispatch(ctx context.Context, n *models.Notification)
}

type asynqNotifier struct {
	client *asynq.Client
}

func NewAsynqNotifier(redisAddr, redisPassword string, redisDB int) Notifier {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	return &asynqNotifier{client: client}
}

func (s *asynqNotifier) Dispatch(ctx context.Context, n *models.Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	task, err := jobs.NewNotifyEventTask(n)
	if err != nil {
		log.Printf("Failed to build notification task for event %s: %v", n.EventType, err)
		return
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.Queue(jobs.NotificationQueue),
		asynq.MaxRetry(jobs.NotifyMaxRetry),
	)
	if err != nil {
		log.Printf("Failed to enqueue notification for event %s (tenant %s): %v", n.EventType, n.TenantCode, err)
	}
}

// noopNotifier is used where no queue is configured, mainly in tests.
type noopNotifier struct{}

func NewNoopNotifier() Notifier { return noopNotifier{} }

func (noopNotifier) Dispatch(context.Context, *models.Notification) {}
