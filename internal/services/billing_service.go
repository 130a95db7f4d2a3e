package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"pgdesk/internal/caching"
	"pgdesk/internal/models"
	"pgdesk/internal/repositories"

	"github.com/shopspring/decimal"
)

// interimDueWindow is the short follow-up window given when a payment leaves
// rent partially due.
const interimDueWindow = 7 * 24 * time.Hour

// RentPayment is one payment applied against the current cycle.
type RentPayment struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id"`
}

// NextCyclePreview projects the coming cycle's due without persisting
// anything. Only meaningful while the current cycle is fully paid.
type NextCyclePreview struct {
	Rent             decimal.Decimal `json:"rent"`
	AdvanceApplied   decimal.Decimal `json:"advance_applied"`
	ProjectedDue     decimal.Decimal `json:"projected_due"`
	RemainingAdvance decimal.Decimal `json:"remaining_advance"`
	NextRentDueDate  *time.Time      `json:"next_rent_due_date,omitempty"`
}

// BillingService applies rent payments to a stay and previews the next cycle.
// All arithmetic floors due at zero and carries overpayment to the advance
// balance; the next full-cycle due date stays pinned to the move-in
// day-of-month no matter when the payment lands.
type BillingService interface {
	ApplyRent(ctx context.Context, tenantCode string, payment RentPayment) (*models.Tenant, error)
	PreviewNextCycle(ctx context.Context, tenantCode string) (*NextCyclePreview, error)
}

type billingService struct {
	tenantRepo   repositories.TenantRepository
	cacheService caching.CacheService
	notifier     Notifier
	now          func() time.Time
}

func NewBillingService(tenantRepo repositories.TenantRepository, cacheService caching.CacheService, notifier Notifier) BillingService {
	return &billingService{
		tenantRepo:   tenantRepo,
		cacheService: cacheService,
		notifier:     notifier,
		now:          time.Now,
	}
}

func (s *billingService) ApplyRent(ctx context.Context, tenantCode string, payment RentPayment) (*models.Tenant, error) {
	if payment.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	tenant, err := s.tenantRepo.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("tenant %s not found: %w", tenantCode, err)
	}
	if !tenant.IsActive() {
		return nil, fmt.Errorf("tenant %s has no active stay to bill", tenantCode)
	}

	now := s.now()
	ApplyPayment(tenant.CurrentStay, payment, now)

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to record rent payment: %w", err)
	}

	s.invalidateTenant(ctx, tenantCode)
	s.notifier.Dispatch(ctx, &models.Notification{
		TenantCode: tenantCode,
		Recipient:  tenant.Phone,
		EventType:  models.EventRentReceived,
		Subject:    "Rent payment received",
		Body: fmt.Sprintf("Payment of %s received. Outstanding due: %s.",
			payment.Amount.StringFixed(2), tenant.CurrentStay.RentDue.StringFixed(2)),
	})

	return tenant, nil
}

// PreviewNextCycle projects the next cycle's due by offsetting the rent with
// the carried advance balance. Callable only once the current cycle is paid.
func (s *billingService) PreviewNextCycle(ctx context.Context, tenantCode string) (*NextCyclePreview, error) {
	tenant, err := s.tenantRepo.GetByCode(ctx, tenantCode)
	if err != nil {
		return nil, fmt.Errorf("tenant %s not found: %w", tenantCode, err)
	}
	if !tenant.IsActive() {
		return nil, fmt.Errorf("tenant %s has no active stay", tenantCode)
	}

	stay := tenant.CurrentStay
	if stay.RentPaidStatus != models.RentStatusPaid {
		return nil, fmt.Errorf("current cycle is not fully paid; settle the outstanding due first")
	}

	preview := &NextCyclePreview{
		Rent:            stay.Rent,
		NextRentDueDate: stay.NextRentDueDate,
	}
	projected := stay.Rent.Sub(stay.AdvanceBalance)
	if projected.Sign() < 0 {
		// The advance more than covers a full cycle; the rest keeps carrying.
		preview.AdvanceApplied = stay.Rent
		preview.ProjectedDue = decimal.Zero
		preview.RemainingAdvance = projected.Neg()
	} else {
		preview.AdvanceApplied = stay.AdvanceBalance
		preview.ProjectedDue = projected
		preview.RemainingAdvance = decimal.Zero
	}

	return preview, nil
}

// ApplyPayment folds one payment into the stay's rent figures in place.
func ApplyPayment(stay *models.CurrentStay, payment RentPayment, now time.Time) {
	totalPaid := stay.RentPaid.Add(payment.Amount)
	due := stay.Rent.Sub(totalPaid)

	stay.RentPaid = totalPaid
	if due.Sign() < 0 {
		stay.AdvanceBalance = due.Neg()
		stay.RentDue = decimal.Zero
	} else {
		stay.AdvanceBalance = decimal.Zero
		stay.RentDue = due
	}

	paidDate := now
	stay.RentPaidDate = &paidDate
	stay.RentPaidMethod = payment.Method
	stay.TransactionID = payment.TransactionID

	if stay.RentDue.Sign() > 0 {
		stay.RentPaidStatus = models.RentStatusUnpaid
		interim := now.Add(interimDueWindow)
		stay.RentDueDate = &interim
		stay.NextRentDueDate = &interim
	} else {
		stay.RentPaidStatus = models.RentStatusPaid
		next := NextCycleDueDate(stay.AssignedAt, now)
		stay.RentDueDate = &next
		stay.NextRentDueDate = &next
	}
}

// NextCycleDueDate is one month from now, pinned to the day-of-month the
// tenant moved in. Overflow past a short month rolls forward the way a
// date-normalizing setter would.
func NextCycleDueDate(assignedAt, now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, assignedAt.Day(),
		now.Hour(), now.Minute(), now.Second(), 0, now.Location())
}

func (s *billingService) invalidateTenant(ctx context.Context, tenantCode string) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.InvalidateTenantViews(ctx, tenantCode); err != nil {
		log.Printf("Failed to invalidate tenant cache for %s: %v", tenantCode, err)
	}
}
