package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pgdesk/internal/caching"
	"pgdesk/internal/common"
	"pgdesk/internal/models"
	"pgdesk/internal/repositories"

	"github.com/google/uuid"
)

// noticeMonthDays is the 30-day-month approximation used for vacate dates.
// Deliberately not calendar arithmetic.
const noticeMonthDays = 30

var (
	ErrAlreadyInNotice    = errors.New("tenant is already in a notice period")
	ErrDepositRequired    = errors.New("immediate vacate needs a deposit on file; please contact the owner")
	ErrNoOpenVacate       = errors.New("no open vacate request found")
	ErrOwnerResolvedOnly  = errors.New("this vacate must be resolved by owner")
	ErrWithdrawWindowOver = errors.New("the withdrawal window has elapsed")
	ErrNotOwnerRemoval    = errors.New("only owner-removed vacates can be retained")
)

// RaiseVacateRequest is a tenant-initiated move-out.
type RaiseVacateRequest struct {
	TenantCode        string `json:"tenant_code"`
	IsImmediateVacate bool   `json:"is_immediate_vacate"`
	Reason            string `json:"reason"`
}

// RemoveTenantRequest is an owner-initiated removal.
type RemoveTenantRequest struct {
	TenantCode        string `json:"tenant_code"`
	IsVacatedAlready  bool   `json:"is_vacated_already"`
	IsDepositRefunded bool   `json:"is_deposit_refunded"`
	Reason            string `json:"reason"`
}

// VacateResult couples the ledger record with the advisory text returned to
// the caller.
type VacateResult struct {
	Request  *models.VacateRequest `json:"request"`
	Advisory []string              `json:"advisory"`
}

// VacateService is the vacate/notice state machine. The bed is freed and the
// tenant marked inactive the moment a vacate is raised, not at the computed
// vacate date — preserved as-is from the product's behavior, even for
// notice-period vacates where the tenant may physically stay until the notice
// ends.
type VacateService interface {
	Raise(ctx context.Context, actor common.Identity, req *RaiseVacateRequest) (*VacateResult, error)
	Remove(ctx context.Context, actor common.Identity, req *RemoveTenantRequest) (*VacateResult, error)
	Withdraw(ctx context.Context, actor common.Identity, tenantCode string) (*models.Tenant, error)
	Retain(ctx context.Context, actor common.Identity, tenantCode string) (*models.Tenant, error)
	ExpireNotices(ctx context.Context, asOf time.Time) (int, error)
}

type vacateService struct {
	tenantRepo   repositories.TenantRepository
	vacateRepo   repositories.VacateRepository
	beds         BedService
	registry     PropertyRegistry
	cacheService caching.CacheService
	notifier     Notifier
	now          func() time.Time
}

func NewVacateService(
	tenantRepo repositories.TenantRepository,
	vacateRepo repositories.VacateRepository,
	beds BedService,
	registry PropertyRegistry,
	cacheService caching.CacheService,
	notifier Notifier,
) VacateService {
	return &vacateService{
		tenantRepo:   tenantRepo,
		vacateRepo:   vacateRepo,
		beds:         beds,
		registry:     registry,
		cacheService: cacheService,
		notifier:     notifier,
		now:          time.Now,
	}
}

// Raise moves an active tenant into the vacate flow. Immediate vacates need a
// non-zero deposit on file; notice vacates compute the vacate date as
// raisedAt + noticeMonths x 30 days.
func (s *vacateService) Raise(ctx context.Context, actor common.Identity, req *RaiseVacateRequest) (*VacateResult, error) {
	tenant, err := s.loadActiveTenant(ctx, req.TenantCode)
	if err != nil {
		return nil, err
	}
	if actor.Role != common.RoleTenant || actor.Phone != tenant.Phone {
		return nil, fmt.Errorf("only the tenant can raise their own vacate")
	}
	if req.IsImmediateVacate && tenant.CurrentStay.Deposit.Sign() <= 0 {
		return nil, ErrDepositRequired
	}

	return s.finalizeVacate(ctx, tenant, vacateParams{
		immediate:       req.IsImmediateVacate,
		reason:          req.Reason,
		removedByOwner:  false,
		depositRefunded: false,
	})
}

// Remove is the owner-initiated variant. IsVacatedAlready skips the notice
// framing; IsDepositRefunded only affects the advisory text and the snapshot.
// RemovedByOwner is set so only the owner may later reverse it.
func (s *vacateService) Remove(ctx context.Context, actor common.Identity, req *RemoveTenantRequest) (*VacateResult, error) {
	tenant, err := s.loadActiveTenant(ctx, req.TenantCode)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(ctx, actor, tenant.CurrentStay.PropertyCode); err != nil {
		return nil, err
	}

	return s.finalizeVacate(ctx, tenant, vacateParams{
		immediate:       req.IsVacatedAlready,
		reason:          req.Reason,
		removedByOwner:  true,
		depositRefunded: req.IsDepositRefunded,
	})
}

type vacateParams struct {
	immediate       bool
	reason          string
	removedByOwner  bool
	depositRefunded bool
}

// finalizeVacate runs the shared raise mechanics: snapshot, history fold, bed
// clear, tenant deactivation, ledger write — in that order. A bed-clear
// failure aborts before any tenancy write; a later failure leaves whatever has
// already landed (stated limitation, no compensation).
func (s *vacateService) finalizeVacate(ctx context.Context, tenant *models.Tenant, p vacateParams) (*VacateResult, error) {
	stay := tenant.CurrentStay
	now := s.now()

	property, err := s.registry.LookupByCode(ctx, stay.PropertyCode)
	if err != nil {
		return nil, err
	}

	vacateDate := now
	if !p.immediate {
		vacateDate = now.Add(time.Duration(stay.NoticePeriodInMonths) * noticeMonthDays * 24 * time.Hour)
	}

	status := models.VacateStatusCompleted
	var noticeStart, noticeEnd *time.Time
	if !p.immediate {
		status = models.VacateStatusNoticePeriod
		ns, ne := now, vacateDate
		noticeStart, noticeEnd = &ns, &ne
	}

	request := &models.VacateRequest{
		ID:                uuid.New(),
		TenantCode:        tenant.TenantCode,
		PropertyCode:      stay.PropertyCode,
		RoomCode:          stay.RoomCode,
		BedID:             stay.BedID,
		RaisedAt:          now,
		IsImmediateVacate: p.immediate,
		IsDepositRefunded: p.depositRefunded,
		VacateDate:        vacateDate,
		NoticeStart:       noticeStart,
		NoticeEnd:         noticeEnd,
		Status:            status,
		Reason:            p.reason,
		RemovedByOwner:    p.removedByOwner,
		PreviousSnapshot: &models.StaySnapshot{
			Stay:         *stay,
			PropertyName: property.Name,
		},
	}
	// The stay itself is about to be nulled, so the notice flag lives on the
	// snapshot until a restore clears it.
	request.PreviousSnapshot.Stay.IsInNoticePeriod = true

	if err := s.beds.Clear(ctx, stay.RoomCode, stay.BedID); err != nil {
		return nil, err
	}

	tenant.StayHistory = append(tenant.StayHistory, models.StayRecord{
		PropertyCode: stay.PropertyCode,
		RoomCode:     stay.RoomCode,
		BedID:        stay.BedID,
		From:         stay.AssignedAt,
		To:           vacateDate,
	})
	tenant.Status = models.TenantStatusInactive
	tenant.CurrentStay = nil

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		log.Printf("Tenant deactivation failed after bed %s/%s was cleared; occupancy and tenancy stores are now inconsistent: %v",
			request.RoomCode, request.BedID, err)
		return nil, fmt.Errorf("failed to deactivate tenant: %w", err)
	}

	if err := s.vacateRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to record vacate request: %w", err)
	}

	s.invalidate(ctx, tenant.TenantCode, request.PropertyCode)

	eventType := models.EventVacateRaised
	if p.removedByOwner {
		eventType = models.EventTenantRemoved
	}
	s.notifier.Dispatch(ctx, &models.Notification{
		TenantCode: tenant.TenantCode,
		Recipient:  tenant.Phone,
		EventType:  eventType,
		Subject:    "Vacate recorded for " + property.Name,
		Body:       fmt.Sprintf("Vacate date: %s.", vacateDate.Format("02 Jan 2006")),
	})

	return &VacateResult{
		Request:  request,
		Advisory: advisoryText(request, request.PreviousSnapshot.Stay),
	}, nil
}

// Withdraw reverses a tenant-raised vacate inside its window: 24 hours for
// immediate vacates, 7 days for notice-period ones, measured from raisedAt.
func (s *vacateService) Withdraw(ctx context.Context, actor common.Identity, tenantCode string) (*models.Tenant, error) {
	request, err := s.vacateRepo.GetOpenByTenantCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("vacate lookup failed: %w", err)
	}
	if request == nil || request.Settled(s.now()) {
		return nil, ErrNoOpenVacate
	}
	if request.RemovedByOwner {
		return nil, ErrOwnerResolvedOnly
	}
	if request.Status == models.VacateStatusWithdrawn {
		return nil, fmt.Errorf("vacate request was already withdrawn")
	}
	if s.now().After(request.WithdrawalDeadline()) {
		return nil, ErrWithdrawWindowOver
	}

	tenant, err := s.tenantRepo.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("tenant %s not found: %w", tenantCode, err)
	}
	if actor.Role != common.RoleTenant || actor.Phone != tenant.Phone {
		return nil, fmt.Errorf("only the tenant can withdraw their own vacate")
	}

	return s.restore(ctx, tenant, request, models.EventVacateWithdrawn)
}

// Retain is the owner-side reversal for removedByOwner requests. No time
// window applies.
func (s *vacateService) Retain(ctx context.Context, actor common.Identity, tenantCode string) (*models.Tenant, error) {
	request, err := s.vacateRepo.GetOpenByTenantCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("vacate lookup failed: %w", err)
	}
	if request == nil {
		return nil, ErrNoOpenVacate
	}
	if !request.RemovedByOwner {
		return nil, ErrNotOwnerRemoval
	}
	if err := s.authorizeOwner(ctx, actor, request.PropertyCode); err != nil {
		return nil, err
	}

	tenant, err := s.tenantRepo.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("tenant %s not found: %w", tenantCode, err)
	}

	return s.restore(ctx, tenant, request, models.EventTenantRetained)
}

// restore reinstates the snapshot: the same bed is re-assigned (the whole
// operation fails if it was taken meanwhile — no conflict resolution, the
// tenant stays inactive with the request still open), the just-added history
// entry is popped when it matches the vacate date, and the request is
// hard-deleted.
func (s *vacateService) restore(ctx context.Context, tenant *models.Tenant, request *models.VacateRequest, eventType string) (*models.Tenant, error) {
	stay, err := request.RestoreStay()
	if err != nil {
		return nil, err
	}

	// A rejoined tenant already holds a live stay under the same code; the old
	// snapshot must not clobber it.
	if tenant.IsActive() {
		return nil, fmt.Errorf("tenant %s already has an active stay", tenant.TenantCode)
	}

	if err := s.beds.Assign(ctx, request.RoomCode, request.BedID, tenant.Phone, tenant.TenantCode); err != nil {
		return nil, err
	}

	if n := len(tenant.StayHistory); n > 0 && tenant.StayHistory[n-1].To.Equal(request.VacateDate) {
		tenant.StayHistory = tenant.StayHistory[:n-1] // drop the phantom row
	}
	tenant.Status = models.TenantStatusActive
	tenant.CurrentStay = stay

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		log.Printf("Tenant reactivation failed after bed %s/%s was re-assigned; occupancy and tenancy stores are now inconsistent: %v",
			request.RoomCode, request.BedID, err)
		return nil, fmt.Errorf("failed to reactivate tenant: %w", err)
	}

	if err := s.vacateRepo.Delete(ctx, request.ID); err != nil {
		return nil, fmt.Errorf("failed to delete resolved vacate request: %w", err)
	}

	s.invalidate(ctx, tenant.TenantCode, request.PropertyCode)
	s.notifier.Dispatch(ctx, &models.Notification{
		TenantCode: tenant.TenantCode,
		Recipient:  tenant.Phone,
		EventType:  eventType,
		Subject:    "Your stay continues",
		Body:       fmt.Sprintf("Bed %s in room %s is yours again.", request.BedID, request.RoomCode),
	})

	return tenant, nil
}

// ExpireNotices flips notice-period requests whose vacate date has passed to
// the terminal completed marker. No further automated transition follows.
func (s *vacateService) ExpireNotices(ctx context.Context, asOf time.Time) (int, error) {
	requests, err := s.vacateRepo.ListExpiredNotice(ctx, asOf, 500)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired notices: %w", err)
	}

	expired := 0
	for _, request := range requests {
		if err := s.vacateRepo.UpdateStatus(ctx, request.ID, models.VacateStatusCompleted); err != nil {
			log.Printf("Failed to mark vacate %s completed: %v", request.ID, err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *vacateService) loadActiveTenant(ctx context.Context, tenantCode string) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("tenant %s not found: %w", tenantCode, err)
	}
	if !tenant.IsActive() {
		return nil, fmt.Errorf("tenant %s has no active stay", tenantCode)
	}
	if tenant.CurrentStay.IsInNoticePeriod {
		return nil, ErrAlreadyInNotice
	}
	open, err := s.vacateRepo.GetOpenByTenantCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("vacate lookup failed: %w", err)
	}
	// A settled request belongs to a finished earlier stay; the tenant may
	// have rejoined under the same code since.
	if open != nil && !open.Settled(s.now()) {
		return nil, ErrAlreadyInNotice
	}
	return tenant, nil
}

func (s *vacateService) authorizeOwner(ctx context.Context, actor common.Identity, propertyCode string) error {
	if actor.Role != common.RoleOwner {
		return fmt.Errorf("only the property owner can perform this operation")
	}
	property, err := s.registry.LookupByCode(ctx, propertyCode)
	if err != nil {
		return err
	}
	if actor.UserID != property.OwnerID {
		return fmt.Errorf("caller does not own property %s", propertyCode)
	}
	return nil
}

func (s *vacateService) invalidate(ctx context.Context, tenantCode, propertyCode string) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.InvalidateTenantViews(ctx, tenantCode); err != nil {
		log.Printf("Failed to invalidate tenant cache for %s: %v", tenantCode, err)
	}
	if err := s.cacheService.InvalidatePropertyViews(ctx, propertyCode); err != nil {
		log.Printf("Failed to invalidate property cache for %s: %v", propertyCode, err)
	}
}

// advisoryText explains the deposit expectation and the withdrawal deadline
// to the caller.
func advisoryText(request *models.VacateRequest, stay models.CurrentStay) []string {
	var advisory []string

	if request.IsImmediateVacate {
		if request.IsDepositRefunded {
			advisory = append(advisory, fmt.Sprintf("Deposit of %s has been refunded.", stay.Deposit.StringFixed(2)))
		} else {
			advisory = append(advisory, fmt.Sprintf("Deposit of %s is forfeited against the skipped notice period.", stay.Deposit.StringFixed(2)))
		}
	} else {
		advisory = append(advisory, fmt.Sprintf("Notice period ends on %s; the deposit is settled at move-out.", request.VacateDate.Format("02 Jan 2006")))
	}

	if request.RemovedByOwner {
		advisory = append(advisory, "This removal can only be reversed by the owner retaining the tenant.")
	} else {
		advisory = append(advisory, fmt.Sprintf("The vacate can be withdrawn until %s.", request.WithdrawalDeadline().Format("02 Jan 2006 15:04")))
	}

	return advisory
}
