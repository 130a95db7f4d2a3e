package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pgdesk/internal/models"

	"github.com/hibiken/asynq"
)

// Task type definitions
const (
	TypeNotifyEvent = "notify:event"

	// NotificationQueue isolates best-effort traffic from anything critical.
	NotificationQueue = "notifications"

	// NotifyMaxRetry bounds redelivery; asynq backs off exponentially between
	// attempts. At-least-once, never blocking the state change that queued it.
	NotifyMaxRetry = 3
)

// NewNotifyEventTask wraps a notification into an asynq task.
func NewNotifyEventTask(n *models.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotifyEvent, data), nil
}

// NotificationHandler consumes queued notification tasks.
type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

// HandleNotifyEvent delivers one queued notification. Delivery is a logged
// placeholder; production wires an SMS/email provider here.
func (h *NotificationHandler) HandleNotifyEvent(ctx context.Context, t *asynq.Task) error {
	var n models.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("[NOTIFY] event=%s tenant=%s to=%s subject=%q body=%q",
		n.EventType, n.TenantCode, n.Recipient, n.Subject, n.Body)

	return nil
}
