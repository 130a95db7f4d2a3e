package background

import (
	"context"
	"log"
	"sync"
	"time"

	"pgdesk/internal/jobs"
	"pgdesk/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler manages the periodic sweeps: expiring elapsed notice periods
// and reminding rent defaulters.
type JobScheduler struct {
	scheduler  gocron.Scheduler
	vacateSvc  services.VacateService
	rentAlert  *jobs.RentDueAlertService
	jobHandles map[string]gocron.Job
	mu         sync.RWMutex
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(vacateSvc services.VacateService, rentAlert *jobs.RentDueAlertService) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:  scheduler,
		vacateSvc:  vacateSvc,
		rentAlert:  rentAlert,
		jobHandles: make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	// Notice expiry sweep - every hour
	expiryJob, err := js.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(js.expireNotices, context.Background()),
		gocron.WithName("notice-expiry-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create notice expiry job: %v", err)
	} else {
		js.jobHandles["notice-expiry"] = expiryJob
	}

	// Rent due reminders - every 12 hours
	rentJob, err := js.scheduler.NewJob(
		gocron.DurationJob(12*time.Hour),
		gocron.NewTask(js.rentAlert.ScheduledRentDueCheck, context.Background()),
		gocron.WithName("rent-due-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create rent due job: %v", err)
	} else {
		js.jobHandles["rent-due"] = rentJob
	}

	log.Printf("Registered %d background jobs", len(js.jobHandles))
}

func (js *JobScheduler) expireNotices(ctx context.Context) error {
	expired, err := js.vacateSvc.ExpireNotices(ctx, time.Now())
	if err != nil {
		log.Printf("Notice expiry sweep failed: %v", err)
		return err
	}
	if expired > 0 {
		log.Printf("Marked %d elapsed notice periods completed", expired)
	}
	return nil
}
