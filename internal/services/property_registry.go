package services

import (
	"context"
	"fmt"
	"log"

	"pgdesk/internal/caching"
	"pgdesk/internal/models"
	"pgdesk/internal/repositories"

	"github.com/google/uuid"
)

// PropertyInfo is the registry's view of a property: just enough to authorize
// an owner and label a snapshot.
type PropertyInfo struct {
	OwnerID      uuid.UUID `json:"owner_id"`
	PropertyCode string    `json:"property_code"`
	Name         string    `json:"name"`
	Location     string    `json:"location,omitempty"`
}

// PropertyRegistry resolves property identifiers to owner and metadata. The
// registry itself is an external collaborator; this interface is the core's
// whole dependency on it.
type PropertyRegistry interface {
	LookupByCode(ctx context.Context, propertyCode string) (*PropertyInfo, error)
}

type propertyRegistry struct {
	propertyRepo repositories.PropertyRepository
	cacheService caching.CacheService
}

func NewPropertyRegistry(propertyRepo repositories.PropertyRepository, cacheService caching.CacheService) PropertyRegistry {
	return &propertyRegistry{
		propertyRepo: propertyRepo,
		cacheService: cacheService,
	}
}

func (s *propertyRegistry) LookupByCode(ctx context.Context, propertyCode string) (*PropertyInfo, error) {
	if s.cacheService != nil {
		cached, err := s.cacheService.GetProperty(ctx, propertyCode)
		if err != nil {
			log.Printf("Property cache read failed for %s: %v", propertyCode, err)
		}
		if cached != nil {
			return infoFromProperty(cached), nil
		}
	}

	property, err := s.propertyRepo.GetByCode(ctx, propertyCode)
	if err != nil {
		return nil, fmt.Errorf("property %s not found: %w", propertyCode, err)
	}

	if s.cacheService != nil {
		if err := s.cacheService.SetProperty(ctx, property); err != nil {
			log.Printf("Property cache write failed for %s: %v", propertyCode, err)
		}
	}

	return infoFromProperty(property), nil
}

func infoFromProperty(property *models.Property) *PropertyInfo {
	return &PropertyInfo{
		OwnerID:      property.OwnerID,
		PropertyCode: property.PropertyCode,
		Name:         property.Name,
		Location:     property.Location,
	}
}
