package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is a PG building registered by an owner. The core only reads it
// to resolve ownership and the human-readable name used in vacate snapshots.
type Property struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	PropertyCode string    `json:"property_code"`
	Name         string    `json:"name"`
	Location     string    `json:"location,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
