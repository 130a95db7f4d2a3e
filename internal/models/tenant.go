package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"

	RentStatusPaid   = "paid"
	RentStatusUnpaid = "unpaid"
)

// CurrentStay is the embedded stay document of an active tenant. It is present
// exactly when the tenant is active; raising a vacate nulls it and folds the
// interval into StayHistory.
//
// Invariants: RentDue = max(Rent-RentPaid, 0), AdvanceBalance = max(RentPaid-Rent, 0),
// and RentPaidStatus is "paid" iff RentDue is zero.
type CurrentStay struct {
	PropertyCode         string          `json:"property_code"`
	RoomCode             string          `json:"room_code"`
	BedID                string          `json:"bed_id"`
	Rent                 decimal.Decimal `json:"rent"`
	RentPaid             decimal.Decimal `json:"rent_paid"`
	RentDue              decimal.Decimal `json:"rent_due"`
	RentPaidDate         *time.Time      `json:"rent_paid_date,omitempty"`
	RentDueDate          *time.Time      `json:"rent_due_date,omitempty"`
	RentPaidStatus       string          `json:"rent_paid_status"`
	RentPaidMethod       string          `json:"rent_paid_method,omitempty"`
	TransactionID        string          `json:"transaction_id,omitempty"`
	AdvanceBalance       decimal.Decimal `json:"advance_balance"`
	NextRentDueDate      *time.Time      `json:"next_rent_due_date,omitempty"`
	Deposit              decimal.Decimal `json:"deposit"`
	NoticePeriodInMonths int             `json:"notice_period_in_months"`
	IsInNoticePeriod     bool            `json:"is_in_notice_period"`
	AssignedAt           time.Time       `json:"assigned_at"`
	Location             string          `json:"location,omitempty"`
}

// StayRecord is one closed interval in a tenant's stay history. Entries are
// appended in chronological order and never overlap.
type StayRecord struct {
	PropertyCode string    `json:"property_code"`
	RoomCode     string    `json:"room_code"`
	BedID        string    `json:"bed_id"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
}

type Tenant struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	TenantCode  string       `json:"tenant_code" db:"tenant_code"`
	Name        string       `json:"name" db:"name"`
	Phone       string       `json:"phone" db:"phone"`
	NationalID  string       `json:"national_id" db:"national_id"`
	Email       string       `json:"email,omitempty" db:"email"`
	Status      string       `json:"status" db:"status"`
	CurrentStay *CurrentStay `json:"current_stay,omitempty" db:"current_stay"`
	StayHistory []StayRecord `json:"stay_history" db:"stay_history"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the tenant currently holds a stay. Exactly one of
// (active, CurrentStay != nil) or (inactive, CurrentStay == nil) holds.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive && t.CurrentStay != nil
}
