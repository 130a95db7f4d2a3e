package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgdesk/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockTenantRepo struct {
	mock.Mock
}

func (m *mockTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *mockTenantRepo) GetByCode(ctx context.Context, tenantCode string) (*models.Tenant, error) {
	args := m.Called(ctx, tenantCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *mockTenantRepo) FindByCode(ctx context.Context, tenantCode string) (*models.Tenant, error) {
	args := m.Called(ctx, tenantCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *mockTenantRepo) FindActiveByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *mockTenantRepo) FindActiveByNationalID(ctx context.Context, nationalID string) (*models.Tenant, error) {
	args := m.Called(ctx, nationalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *mockTenantRepo) CodeByPhone(ctx context.Context, phone string) (string, error) {
	args := m.Called(ctx, phone)
	return args.String(0), args.Error(1)
}

func (m *mockTenantRepo) CodeExists(ctx context.Context, tenantCode string) (bool, error) {
	args := m.Called(ctx, tenantCode)
	return args.Bool(0), args.Error(1)
}

func (m *mockTenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *mockTenantRepo) Delete(ctx context.Context, tenantCode string) error {
	args := m.Called(ctx, tenantCode)
	return args.Error(0)
}

func (m *mockTenantRepo) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func (m *mockTenantRepo) ListDefaulters(ctx context.Context, asOf time.Time, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, asOf, limit, offset)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func overdueTenant(code string, dueDate time.Time) *models.Tenant {
	return &models.Tenant{
		TenantCode: code,
		Name:       "Asha",
		Phone:      "9876543210",
		Status:     models.TenantStatusActive,
		CurrentStay: &models.CurrentStay{
			RentDue:        decimal.NewFromInt(2000),
			RentPaidStatus: models.RentStatusUnpaid,
			RentDueDate:    &dueDate,
		},
	}
}

func TestCheckDefaulters_BuildsAlerts(t *testing.T) {
	repo := &mockTenantRepo{}
	svc := NewRentDueAlertService(repo, func(context.Context, *models.Notification) {})

	asOf := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	dueDate := asOf.Add(-72 * time.Hour)
	repo.On("ListDefaulters", mock.Anything, asOf, 1000, 0).
		Return([]*models.Tenant{overdueTenant("PG-AB12", dueDate)}, nil).Once()

	alerts, err := svc.CheckDefaulters(context.Background(), asOf)

	assert.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Equal(t, "PG-AB12", alerts[0].TenantCode)
	assert.Equal(t, "2000.00", alerts[0].RentDue)
	repo.AssertExpectations(t)
}

func TestCheckDefaulters_SkipsTenantsWithoutDueDate(t *testing.T) {
	repo := &mockTenantRepo{}
	svc := NewRentDueAlertService(repo, func(context.Context, *models.Notification) {})

	asOf := time.Now()
	broken := overdueTenant("PG-XX00", asOf)
	broken.CurrentStay.RentDueDate = nil
	repo.On("ListDefaulters", mock.Anything, asOf, 1000, 0).
		Return([]*models.Tenant{broken}, nil).Once()

	alerts, err := svc.CheckDefaulters(context.Background(), asOf)

	assert.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestNotifyDefaulters_QueuesOnePerAlert(t *testing.T) {
	repo := &mockTenantRepo{}
	var sent []*models.Notification
	svc := NewRentDueAlertService(repo, func(_ context.Context, n *models.Notification) {
		sent = append(sent, n)
	})

	svc.NotifyDefaulters(context.Background(), []RentDueAlert{
		{TenantCode: "PG-AB12", TenantName: "Asha", Phone: "9876543210", RentDue: "2000.00", RentDueDate: time.Now()},
		{TenantCode: "PG-CD34", TenantName: "Ravi", Phone: "9876500000", RentDue: "1500.00", RentDueDate: time.Now()},
	})

	assert.Len(t, sent, 2)
	assert.Equal(t, models.EventRentDue, sent[0].EventType)
	assert.Equal(t, "9876543210", sent[0].Recipient)
}

func TestCheckDefaulters_RepoFailureSurfaces(t *testing.T) {
	repo := &mockTenantRepo{}
	svc := NewRentDueAlertService(repo, func(context.Context, *models.Notification) {})

	repo.On("ListDefaulters", mock.Anything, mock.Anything, 1000, 0).
		Return(([]*models.Tenant)(nil), errors.New("store down")).Once()

	_, err := svc.CheckDefaulters(context.Background(), time.Now())
	assert.Error(t, err)
}
