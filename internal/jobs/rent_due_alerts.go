package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"pgdesk/internal/models"
	"pgdesk/internal/repositories"
)

// RentDueAlertService scans for defaulters — active tenants whose rent is
// unpaid past its due date — and queues reminder notifications.
type RentDueAlertService struct {
	tenantRepo repositories.TenantRepository
	enqueue    func(ctx context.Context, n *models.Notification)
}

type RentDueAlert struct {
	TenantCode  string
	TenantName  string
	Phone       string
	RentDue     string
	RentDueDate time.Time
}

func NewRentDueAlertService(tenantRepo repositories.TenantRepository, enqueue func(ctx context.Context, n *models.Notification)) *RentDueAlertService {
	return &RentDueAlertService{
		tenantRepo: tenantRepo,
		enqueue:    enqueue,
	}
}

// CheckDefaulters collects every tenant overdue as of the given instant.
func (a *RentDueAlertService) CheckDefaulters(ctx context.Context, asOf time.Time) ([]RentDueAlert, error) {
	defaulters, err := a.tenantRepo.ListDefaulters(ctx, asOf, 1000, 0)
	if err != nil {
		log.Printf("Failed to list defaulters: %v", err)
		return nil, err
	}

	var alerts []RentDueAlert
	for _, tenant := range defaulters {
		stay := tenant.CurrentStay
		if stay == nil || stay.RentDueDate == nil {
			continue
		}
		alerts = append(alerts, RentDueAlert{
			TenantCode:  tenant.TenantCode,
			TenantName:  tenant.Name,
			Phone:       tenant.Phone,
			RentDue:     stay.RentDue.StringFixed(2),
			RentDueDate: *stay.RentDueDate,
		})
	}

	return alerts, nil
}

// NotifyDefaulters queues one reminder per overdue tenant. Dispatch is
// best-effort; a failed enqueue is the dispatcher's problem, not ours.
func (a *RentDueAlertService) NotifyDefaulters(ctx context.Context, alerts []RentDueAlert) {
	if len(alerts) == 0 {
		log.Println("No rent-due alerts to send")
		return
	}

	for _, alert := range alerts {
		a.enqueue(ctx, &models.Notification{
			TenantCode: alert.TenantCode,
			Recipient:  alert.Phone,
			EventType:  models.EventRentDue,
			Subject:    "Rent overdue",
			Body: fmt.Sprintf("Hi %s, rent of %s was due on %s. Please pay at the earliest.",
				alert.TenantName, alert.RentDue, alert.RentDueDate.Format("02 Jan 2006")),
		})
	}

	log.Printf("Queued %d rent-due reminders", len(alerts))
}

// ScheduledRentDueCheck is the entry point wired into the scheduler.
func (a *RentDueAlertService) ScheduledRentDueCheck(ctx context.Context) error {
	log.Println("Starting scheduled rent-due check")

	alerts, err := a.CheckDefaulters(ctx, time.Now())
	if err != nil {
		log.Printf("Scheduled rent-due check failed: %v", err)
		return err
	}
	a.NotifyDefaulters(ctx, alerts)

	log.Println("Scheduled rent-due check completed successfully")
	return nil
}
