package services

import (
	"context"
	"time"

	"pgdesk/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock repositories and collaborators shared by the service test suites.

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByCode(ctx context.Context, tenantCode string) (*models.Tenant, error) {
	args := m.Called(ctx, tenantCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByCode(ctx context.Context, tenantCode string) (*models.Tenant, error) {
	args := m.Called(ctx, tenantCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindActiveByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindActiveByNationalID(ctx context.Context, nationalID string) (*models.Tenant, error) {
	args := m.Called(ctx, nationalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) CodeByPhone(ctx context.Context, phone string) (string, error) {
	args := m.Called(ctx, phone)
	return args.String(0), args.Error(1)
}

func (m *MockTenantRepository) CodeExists(ctx context.Context, tenantCode string) (bool, error) {
	args := m.Called(ctx, tenantCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) Delete(ctx context.Context, tenantCode string) error {
	args := m.Called(ctx, tenantCode)
	return args.Error(0)
}

func (m *MockTenantRepository) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListDefaulters(ctx context.Context, asOf time.Time, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, asOf, limit, offset)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Create(ctx context.Context, room *models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepository) GetByCode(ctx context.Context, roomCode string) (*models.Room, error) {
	args := m.Called(ctx, roomCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockRoomRepository) UpdateBeds(ctx context.Context, roomCode string, beds []models.Bed, status string) error {
	args := m.Called(ctx, roomCode, beds, status)
	return args.Error(0)
}

func (m *MockRoomRepository) ListByProperty(ctx context.Context, propertyCode string) ([]*models.Room, error) {
	args := m.Called(ctx, propertyCode)
	return args.Get(0).([]*models.Room), args.Error(1)
}

type MockVacateRepository struct {
	mock.Mock
}

func (m *MockVacateRepository) Create(ctx context.Context, request *models.VacateRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockVacateRepository) GetOpenByTenantCode(ctx context.Context, tenantCode string) (*models.VacateRequest, error) {
	args := m.Called(ctx, tenantCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VacateRequest), args.Error(1)
}

func (m *MockVacateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockVacateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVacateRepository) ListExpiredNotice(ctx context.Context, asOf time.Time, limit int) ([]*models.VacateRequest, error) {
	args := m.Called(ctx, asOf, limit)
	return args.Get(0).([]*models.VacateRequest), args.Error(1)
}

type MockBedService struct {
	mock.Mock
}

func (m *MockBedService) Assign(ctx context.Context, roomCode, bedID, tenantPhone, tenantCode string) error {
	args := m.Called(ctx, roomCode, bedID, tenantPhone, tenantCode)
	return args.Error(0)
}

func (m *MockBedService) Clear(ctx context.Context, roomCode, bedID string) error {
	args := m.Called(ctx, roomCode, bedID)
	return args.Error(0)
}

type MockPropertyRegistry struct {
	mock.Mock
}

func (m *MockPropertyRegistry) LookupByCode(ctx context.Context, propertyCode string) (*PropertyInfo, error) {
	args := m.Called(ctx, propertyCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PropertyInfo), args.Error(1)
}

type MockIdentityRegistry struct {
	mock.Mock
}

func (m *MockIdentityRegistry) CodeByPhone(ctx context.Context, phone string) (string, error) {
	args := m.Called(ctx, phone)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityRegistry) CodeExists(ctx context.Context, tenantCode string) (bool, error) {
	args := m.Called(ctx, tenantCode)
	return args.Bool(0), args.Error(1)
}

// recordingNotifier captures dispatched notifications for assertions.
type recordingNotifier struct {
	sent []*models.Notification
}

func (r *recordingNotifier) Dispatch(_ context.Context, n *models.Notification) {
	r.sent = append(r.sent, n)
}
