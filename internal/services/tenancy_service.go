package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"pgdesk/internal/caching"
	"pgdesk/internal/common"
	"pgdesk/internal/models"
	"pgdesk/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OnboardTenantRequest carries everything needed to place a new tenant on a bed.
type OnboardTenantRequest struct {
	Name                 string          `json:"name"`
	Phone                string          `json:"phone"`
	NationalID           string          `json:"national_id"`
	Email                string          `json:"email"`
	PropertyCode         string          `json:"property_code"`
	RoomCode             string          `json:"room_code"`
	BedID                string          `json:"bed_id"`
	Rent                 decimal.Decimal `json:"rent"`
	Deposit              decimal.Decimal `json:"deposit"`
	NoticePeriodInMonths int             `json:"notice_period_in_months"`
}

// UpdateTenantRequest updates profile fields only; stay figures move through
// the billing and vacate services.
type UpdateTenantRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// TenancyService is the lifecycle orchestrator's onboarding half plus the read
// surface over the tenancy store.
type TenancyService interface {
	Onboard(ctx context.Context, actor common.Identity, req *OnboardTenantRequest) (*models.Tenant, error)
	UpdateProfile(ctx context.Context, actor common.Identity, tenantCode string, req *UpdateTenantRequest) (*models.Tenant, error)
	Delete(ctx context.Context, actor common.Identity, tenantCode string) error
	GetByCode(ctx context.Context, tenantCode string) (*models.Tenant, error)
	StayHistory(ctx context.Context, tenantCode string) ([]models.StayRecord, error)
	RoomByTenant(ctx context.Context, tenantCode string) (*models.Room, error)
	List(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
	Defaulters(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

type tenancyService struct {
	tenantRepo   repositories.TenantRepository
	roomRepo     repositories.RoomRepository
	beds         BedService
	registry     PropertyRegistry
	codes        TenantCodeResolver
	cacheService caching.CacheService
	notifier     Notifier
	now          func() time.Time
}

func NewTenancyService(
	tenantRepo repositories.TenantRepository,
	roomRepo repositories.RoomRepository,
	beds BedService,
	registry PropertyRegistry,
	codes TenantCodeResolver,
	cacheService caching.CacheService,
	notifier Notifier,
) TenancyService {
	return &tenancyService{
		tenantRepo:   tenantRepo,
		roomRepo:     roomRepo,
		beds:         beds,
		registry:     registry,
		codes:        codes,
		cacheService: cacheService,
		notifier:     notifier,
		now:          time.Now,
	}
}

// Onboard validates ownership, claims the bed, then writes the tenant record:
// a fresh row for a first-time tenant, or the returning tenant's existing row
// reactivated with the new stay and its history intact.
// The two writes cross store boundaries with no transaction: a bed-assign
// failure aborts cleanly, but a tenant-create failure after a successful
// assign leaves the stores divergent with no automatic reconciliation.
func (s *tenancyService) Onboard(ctx context.Context, actor common.Identity, req *OnboardTenantRequest) (*models.Tenant, error) {
	if err := validateOnboardRequest(req); err != nil {
		return nil, err
	}

	property, err := s.registry.LookupByCode(ctx, req.PropertyCode)
	if err != nil {
		return nil, err
	}
	if actor.Role != common.RoleOwner || actor.UserID != property.OwnerID {
		return nil, fmt.Errorf("only the property owner can onboard tenants")
	}

	if existing, err := s.tenantRepo.FindActiveByPhone(ctx, req.Phone); err != nil {
		return nil, fmt.Errorf("duplicate phone check failed: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("an active tenant already uses phone %s", req.Phone)
	}
	if existing, err := s.tenantRepo.FindActiveByNationalID(ctx, req.NationalID); err != nil {
		return nil, fmt.Errorf("duplicate national-id check failed: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("an active tenant already uses this national id")
	}

	tenantCode, err := s.codes.Resolve(ctx, req.Phone)
	if err != nil {
		return nil, err
	}

	// A reused code means a returning tenant: their inactive row is
	// reactivated in place so the code never maps to two rows.
	returning, err := s.tenantRepo.FindByCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("tenant lookup by code failed: %w", err)
	}

	if err := s.beds.Assign(ctx, req.RoomCode, req.BedID, req.Phone, tenantCode); err != nil {
		return nil, err
	}

	now := s.now()
	tenant := returning
	if tenant == nil {
		tenant = &models.Tenant{
			ID:          uuid.New(),
			TenantCode:  tenantCode,
			StayHistory: []models.StayRecord{},
		}
	}
	tenant.Name = req.Name
	tenant.Phone = req.Phone
	tenant.NationalID = req.NationalID
	tenant.Email = req.Email
	tenant.Status = models.TenantStatusActive
	tenant.CurrentStay = &models.CurrentStay{
		PropertyCode:         req.PropertyCode,
		RoomCode:             req.RoomCode,
		BedID:                req.BedID,
		Rent:                 req.Rent,
		RentPaid:             decimal.Zero,
		RentDue:              req.Rent, // full rent implicitly due
		RentPaidStatus:       models.RentStatusUnpaid,
		AdvanceBalance:       decimal.Zero,
		Deposit:              req.Deposit,
		NoticePeriodInMonths: req.NoticePeriodInMonths,
		AssignedAt:           now,
		Location:             property.Location,
	}

	if returning != nil {
		err = s.tenantRepo.Update(ctx, tenant)
	} else {
		err = s.tenantRepo.Create(ctx, tenant)
	}
	if err != nil {
		// The bed is already occupied in the occupancy store; the stores now
		// disagree and nothing reconciles them.
		log.Printf("Tenant write failed after bed %s/%s was assigned; occupancy and tenancy stores are now inconsistent: %v",
			req.RoomCode, req.BedID, err)
		return nil, fmt.Errorf("failed to persist tenant record: %w", err)
	}

	s.invalidate(ctx, tenantCode, req.PropertyCode)
	s.notifier.Dispatch(ctx, &models.Notification{
		TenantCode: tenantCode,
		Recipient:  req.Phone,
		EventType:  models.EventTenantOnboarded,
		Subject:    "Welcome to " + property.Name,
		Body:       fmt.Sprintf("You have been assigned bed %s in room %s. Your tenant code is %s.", req.BedID, req.RoomCode, tenantCode),
	})

	return tenant, nil
}

// UpdateProfile lets tenants edit their own record and owners edit tenants of
// properties they own.
func (s *tenancyService) UpdateProfile(ctx context.Context, actor common.Identity, tenantCode string, req *UpdateTenantRequest) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("tenant %s not found: %w", tenantCode, err)
	}
	if err := s.authorizeTenantAccess(ctx, actor, tenant); err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := common.ValidateRequiredString(*req.Name, "name"); err != nil {
			return nil, err
		}
		tenant.Name = *req.Name
	}
	if req.Email != nil {
		tenant.Email = *req.Email
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	s.invalidate(ctx, tenantCode, "")
	return tenant, nil
}

// Delete removes the tenant row. An active tenant's bed is cleared first so
// the occupancy store does not keep a dangling reference.
func (s *tenancyService) Delete(ctx context.Context, actor common.Identity, tenantCode string) error {
	if actor.Role != common.RoleOwner {
		return fmt.Errorf("only an owner can delete a tenant record")
	}

	tenant, err := s.tenantRepo.GetByCode(ctx, tenantCode)
	if err != nil {
		return fmt.Errorf("tenant %s not found: %w", tenantCode, err)
	}
	if err := s.authorizeTenantAccess(ctx, actor, tenant); err != nil {
		return err
	}

	if tenant.IsActive() {
		if err := s.beds.Clear(ctx, tenant.CurrentStay.RoomCode, tenant.CurrentStay.BedID); err != nil {
			return err
		}
	}

	if err := s.tenantRepo.Delete(ctx, tenantCode); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	s.invalidate(ctx, tenantCode, "")
	return nil
}

func (s *tenancyService) GetByCode(ctx context.Context, tenantCode string) (*models.Tenant, error) {
	if s.cacheService != nil {
		cached, err := s.cacheService.GetTenant(ctx, tenantCode)
		if err != nil {
			log.Printf("Tenant cache read failed for %s: %v", tenantCode, err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	tenant, err := s.tenantRepo.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("tenant %s not found: %w", tenantCode, err)
	}

	if s.cacheService != nil {
		if err := s.cacheService.SetTenant(ctx, tenant); err != nil {
			log.Printf("Tenant cache write failed for %s: %v", tenantCode, err)
		}
	}

	return tenant, nil
}

func (s *tenancyService) StayHistory(ctx context.Context, tenantCode string) ([]models.StayRecord, error) {
	tenant, err := s.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, err
	}
	return tenant.StayHistory, nil
}

func (s *tenancyService) RoomByTenant(ctx context.Context, tenantCode string) (*models.Room, error) {
	tenant, err := s.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive() {
		return nil, fmt.Errorf("tenant %s has no active stay", tenantCode)
	}

	roomCode := tenant.CurrentStay.RoomCode
	if s.cacheService != nil {
		cached, err := s.cacheService.GetRoom(ctx, roomCode)
		if err != nil {
			log.Printf("Room cache read failed for %s: %v", roomCode, err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	room, err := s.roomRepo.GetByCode(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("room %s not found: %w", roomCode, err)
	}

	if s.cacheService != nil {
		if err := s.cacheService.SetRoom(ctx, room); err != nil {
			log.Printf("Room cache write failed for %s: %v", roomCode, err)
		}
	}

	return room, nil
}

func (s *tenancyService) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.tenantRepo.List(ctx, limit, offset)
}

func (s *tenancyService) Defaulters(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.tenantRepo.ListDefaulters(ctx, s.now(), limit, offset)
}

// authorizeTenantAccess admits the tenant themself, or an owner who owns the
// tenant's current property. An inactive tenant has no property binding left,
// so any owner passes.
func (s *tenancyService) authorizeTenantAccess(ctx context.Context, actor common.Identity, tenant *models.Tenant) error {
	switch actor.Role {
	case common.RoleTenant:
		if actor.Phone != tenant.Phone {
			return fmt.Errorf("tenants can only manage their own record")
		}
		return nil
	case common.RoleOwner:
		if !tenant.IsActive() {
			return nil
		}
		property, err := s.registry.LookupByCode(ctx, tenant.CurrentStay.PropertyCode)
		if err != nil {
			return err
		}
		if actor.UserID != property.OwnerID {
			return fmt.Errorf("caller does not own property %s", tenant.CurrentStay.PropertyCode)
		}
		return nil
	default:
		return fmt.Errorf("unrecognized caller role")
	}
}

func (s *tenancyService) invalidate(ctx context.Context, tenantCode, propertyCode string) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.InvalidateTenantViews(ctx, tenantCode); err != nil {
		log.Printf("Failed to invalidate tenant cache for %s: %v", tenantCode, err)
	}
	if propertyCode != "" {
		if err := s.cacheService.InvalidatePropertyViews(ctx, propertyCode); err != nil {
			log.Printf("Failed to invalidate property cache for %s: %v", propertyCode, err)
		}
	}
}

func validateOnboardRequest(req *OnboardTenantRequest) error {
	if err := common.ValidateRequiredString(req.Name, "name"); err != nil {
		return err
	}
	if err := common.ValidatePhone(req.Phone, "phone"); err != nil {
		return err
	}
	if err := common.ValidateNationalID(req.NationalID, "national_id"); err != nil {
		return err
	}
	if err := common.ValidateRequiredString(req.PropertyCode, "property_code"); err != nil {
		return err
	}
	if err := common.ValidateRequiredString(req.RoomCode, "room_code"); err != nil {
		return err
	}
	if err := common.ValidateRequiredString(req.BedID, "bed_id"); err != nil {
		return err
	}
	if err := common.ValidatePositiveAmount(req.Rent, "rent"); err != nil {
		return err
	}
	if err := common.ValidateNonNegativeAmount(req.Deposit, "deposit"); err != nil {
		return err
	}
	if req.NoticePeriodInMonths < 0 {
		return fmt.Errorf("notice_period_in_months cannot be negative")
	}
	return nil
}
