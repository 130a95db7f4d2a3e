package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	BedStatusVacant   = "vacant"
	BedStatusOccupied = "occupied"

	RoomStatusVacant            = "vacant"
	RoomStatusPartiallyOccupied = "partially-occupied"
	RoomStatusOccupied          = "occupied"
)

// Bed is a sub-document of Room. Status is "occupied" exactly when one active
// tenant's current stay references this bed id. No version token guards the
// sub-document; callers rely on the assign/clear idempotency checks to detect
// lost races.
type Bed struct {
	BedID       string `json:"bed_id"`
	Status      string `json:"status"`
	TenantPhone string `json:"tenant_phone,omitempty"`
	TenantCode  string `json:"tenant_code,omitempty"`
}

// Room holds its beds as a JSONB array. Status is a pure function of the bed
// statuses and is recomputed after every bed change.
type Room struct {
	ID           uuid.UUID `json:"id"`
	PropertyCode string    `json:"property_code"`
	RoomCode     string    `json:"room_code"`
	RoomNumber   int       `json:"room_number"`
	Floor        int       `json:"floor"`
	RoomType     string    `json:"room_type"`
	Beds         []Bed     `json:"beds"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MakeBedID derives the stable bed identifier from the room number and the
// bed's slot within the room, e.g. room 101 slot 1 -> "101-1".
func MakeBedID(roomNumber, slot int) string {
	return fmt.Sprintf("%d-%d", roomNumber, slot)
}

// RoomTypeForBedCount maps a bed count to the sharing type advertised for the
// room. Counts above four are grouped as dormitory.
func RoomTypeForBedCount(count int) string {
	switch count {
	case 1:
		return "single"
	case 2:
		return "double"
	case 3:
		return "triple"
	case 4:
		return "four-sharing"
	default:
		return "dormitory"
	}
}

// FindBed returns a pointer into the room's bed slice so callers can mutate
// the bed in place before persisting, or nil if the id is unknown.
func (r *Room) FindBed(bedID string) *Bed {
	for i := range r.Beds {
		if r.Beds[i].BedID == bedID {
			return &r.Beds[i]
		}
	}
	return nil
}

// AggregateRoomStatus recomputes the room-level status from its beds.
func AggregateRoomStatus(beds []Bed) string {
	occupied := 0
	for _, bed := range beds {
		if bed.Status == BedStatusOccupied {
			occupied++
		}
	}
	switch {
	case occupied == 0:
		return RoomStatusVacant
	case occupied == len(beds):
		return RoomStatusOccupied
	default:
		return RoomStatusPartiallyOccupied
	}
}
