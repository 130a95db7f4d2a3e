package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification event types emitted by the tenancy lifecycle.
const (
	EventTenantOnboarded = "tenant_onboarded"
	EventRentReceived    = "rent_received"
	EventRentDue         = "rent_due"
	EventVacateRaised    = "vacate_raised"
	EventVacateWithdrawn = "vacate_withdrawn"
	EventTenantRemoved   = "tenant_removed"
	EventTenantRetained  = "tenant_retained"
)

// Notification is a best-effort message handed to the async dispatch queue.
// Delivery failures never block or roll back the state change that produced it.
type Notification struct {
	ID         uuid.UUID `json:"id"`
	TenantCode string    `json:"tenant_code"`
	Recipient  string    `json:"recipient"`
	EventType  string    `json:"event_type"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
