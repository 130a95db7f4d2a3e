package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	VacateStatusNoticePeriod = "noticeperiod"
	VacateStatusCompleted    = "completed"
	VacateStatusWithdrawn    = "withdrawn"
)

// Withdrawal windows, measured from RaisedAt.
const (
	ImmediateWithdrawWindow = 24 * time.Hour
	NoticeWithdrawWindow    = 7 * 24 * time.Hour
)

// StaySnapshot is the restorable copy of a tenant's stay taken at the moment a
// vacate is raised. A VacateRequest without a snapshot cannot be reversed.
type StaySnapshot struct {
	Stay         CurrentStay `json:"stay"`
	PropertyName string      `json:"property_name"`
}

// VacateRequest records one in-flight or expired move-out. At most one open
// request exists per tenant; withdrawn and retained requests are deleted,
// never archived.
type VacateRequest struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	TenantCode        string        `json:"tenant_code" db:"tenant_code"`
	PropertyCode      string        `json:"property_code" db:"property_code"`
	RoomCode          string        `json:"room_code" db:"room_code"`
	BedID             string        `json:"bed_id" db:"bed_id"`
	RaisedAt          time.Time     `json:"raised_at" db:"raised_at"`
	IsImmediateVacate bool          `json:"is_immediate_vacate" db:"is_immediate_vacate"`
	IsDepositRefunded bool          `json:"is_deposit_refunded" db:"is_deposit_refunded"`
	VacateDate        time.Time     `json:"vacate_date" db:"vacate_date"`
	NoticeStart       *time.Time    `json:"notice_start,omitempty" db:"notice_start"`
	NoticeEnd         *time.Time    `json:"notice_end,omitempty" db:"notice_end"`
	Status            string        `json:"status" db:"status"`
	Reason            string        `json:"reason,omitempty" db:"reason"`
	RemovedByOwner    bool          `json:"removed_by_owner" db:"removed_by_owner"`
	PreviousSnapshot  *StaySnapshot `json:"previous_snapshot,omitempty" db:"previous_snapshot"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
}

var ErrNoSnapshot = errors.New("vacate request has no restorable snapshot")

// WithdrawalDeadline returns the instant after which the tenant can no longer
// withdraw: 24 hours for immediate vacates, 7 days for notice-period ones.
func (v *VacateRequest) WithdrawalDeadline() time.Time {
	if v.IsImmediateVacate {
		return v.RaisedAt.Add(ImmediateWithdrawWindow)
	}
	return v.RaisedAt.Add(NoticeWithdrawWindow)
}

// Settled reports whether the request is terminal and past its withdrawal
// window. Completed requests survive in the ledger forever; once settled they
// belong to a finished stay and must not block or serve a later one.
func (v *VacateRequest) Settled(asOf time.Time) bool {
	return v.Status == VacateStatusCompleted && asOf.After(v.WithdrawalDeadline())
}

// RestoreStay materializes the stay to reinstate on withdraw or retain. The
// returned copy always has the notice flag cleared, so restoring a snapshot
// taken mid-raise cannot leave the tenant stuck in notice.
func (v *VacateRequest) RestoreStay() (*CurrentStay, error) {
	if v.PreviousSnapshot == nil {
		return nil, ErrNoSnapshot
	}
	stay := v.PreviousSnapshot.Stay
	stay.IsInNoticePeriod = false
	return &stay, nil
}
