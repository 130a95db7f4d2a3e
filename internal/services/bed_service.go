package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pgdesk/internal/caching"
	"pgdesk/internal/models"
	"pgdesk/internal/repositories"
)

var (
	ErrBedNotFound        = errors.New("bed not found")
	ErrBedAlreadyOccupied = errors.New("bed is already occupied")
	ErrBedAlreadyVacant   = errors.New("bed is already vacant")
)

// BedService is the bed coordinator: a thin synchronous wrapper over the
// occupancy store invoked by tenancy transitions. Callers invoke it before any
// tenancy-store write and abort on failure; if a tenancy write fails after a
// successful bed operation the two stores diverge with no reconciliation.
type BedService interface {
	Assign(ctx context.Context, roomCode, bedID, tenantPhone, tenantCode string) error
	Clear(ctx context.Context, roomCode, bedID string) error
}

type bedService struct {
	roomRepo     repositories.RoomRepository
	cacheService caching.CacheService
}

func NewBedService(roomRepo repositories.RoomRepository, cacheService caching.CacheService) BedService {
	return &bedService{
		roomRepo:     roomRepo,
		cacheService: cacheService,
	}
}

// Assign marks a vacant bed occupied and records the tenant's phone and code
// on it. The room document is read, mutated and written back whole; nothing
// guards against a concurrent assign observing the same vacant state.
func (s *bedService) Assign(ctx context.Context, roomCode, bedID, tenantPhone, tenantCode string) error {
	room, err := s.roomRepo.GetByCode(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("%w: room %s: %v", ErrBedNotFound, roomCode, err)
	}

	bed := room.FindBed(bedID)
	if bed == nil {
		return fmt.Errorf("%w: %s in room %s", ErrBedNotFound, bedID, roomCode)
	}
	if bed.Status == models.BedStatusOccupied {
		return fmt.Errorf("%w: %s in room %s", ErrBedAlreadyOccupied, bedID, roomCode)
	}

	bed.Status = models.BedStatusOccupied
	bed.TenantPhone = tenantPhone
	bed.TenantCode = tenantCode
	room.Status = models.AggregateRoomStatus(room.Beds)

	if err := s.roomRepo.UpdateBeds(ctx, roomCode, room.Beds, room.Status); err != nil {
		return fmt.Errorf("failed to assign bed %s: %w", bedID, err)
	}

	s.invalidateRoom(ctx, roomCode)
	return nil
}

// Clear marks an occupied bed vacant and drops the tenant reference. Clearing
// a vacant bed fails, which lets callers detect a racing clear.
func (s *bedService) Clear(ctx context.Context, roomCode, bedID string) error {
	room, err := s.roomRepo.GetByCode(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("%w: room %s: %v", ErrBedNotFound, roomCode, err)
	}

	bed := room.FindBed(bedID)
	if bed == nil {
		return fmt.Errorf("%w: %s in room %s", ErrBedNotFound, bedID, roomCode)
	}
	if bed.Status == models.BedStatusVacant {
		return fmt.Errorf("%w: %s in room %s", ErrBedAlreadyVacant, bedID, roomCode)
	}

	bed.Status = models.BedStatusVacant
	bed.TenantPhone = ""
	bed.TenantCode = ""
	room.Status = models.AggregateRoomStatus(room.Beds)

	if err := s.roomRepo.UpdateBeds(ctx, roomCode, room.Beds, room.Status); err != nil {
		return fmt.Errorf("failed to clear bed %s: %w", bedID, err)
	}

	s.invalidateRoom(ctx, roomCode)
	return nil
}

func (s *bedService) invalidateRoom(ctx context.Context, roomCode string) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeleteRoom(ctx, roomCode); err != nil {
		log.Printf("Failed to invalidate room cache for %s: %v", roomCode, err)
	}
}
