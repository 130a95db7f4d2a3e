package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgdesk/internal/common"
	"pgdesk/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type VacateServiceTestSuite struct {
	suite.Suite
	mockTenantRepo *MockTenantRepository
	mockVacateRepo *MockVacateRepository
	mockBeds       *MockBedService
	mockRegistry   *MockPropertyRegistry
	notifier       *recordingNotifier
	service        *vacateService
	now            time.Time
	ownerID        uuid.UUID
}

func (suite *VacateServiceTestSuite) SetupTest() {
	suite.mockTenantRepo = &MockTenantRepository{}
	suite.mockVacateRepo = &MockVacateRepository{}
	suite.mockBeds = &MockBedService{}
	suite.mockRegistry = &MockPropertyRegistry{}
	suite.notifier = &recordingNotifier{}
	suite.now = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	suite.ownerID = uuid.New()
	suite.service = &vacateService{
		tenantRepo: suite.mockTenantRepo,
		vacateRepo: suite.mockVacateRepo,
		beds:       suite.mockBeds,
		registry:   suite.mockRegistry,
		notifier:   suite.notifier,
		now:        func() time.Time { return suite.now },
	}
}

func (suite *VacateServiceTestSuite) TearDownTest() {
	suite.mockTenantRepo.AssertExpectations(suite.T())
	suite.mockVacateRepo.AssertExpectations(suite.T())
	suite.mockBeds.AssertExpectations(suite.T())
	suite.mockRegistry.AssertExpectations(suite.T())
}

func TestVacateServiceTestSuite(t *testing.T) {
	suite.Run(t, new(VacateServiceTestSuite))
}

func (suite *VacateServiceTestSuite) activeTenant(deposit int64) *models.Tenant {
	return &models.Tenant{
		ID:         uuid.New(),
		TenantCode: "PG-AB12",
		Name:       "Asha",
		Phone:      "9876543210",
		Status:     models.TenantStatusActive,
		CurrentStay: &models.CurrentStay{
			PropertyCode:         "PROP1",
			RoomCode:             "PROP1-101",
			BedID:                "101-1",
			Rent:                 decimal.NewFromInt(6000),
			Deposit:              decimal.NewFromInt(deposit),
			NoticePeriodInMonths: 1,
			AssignedAt:           time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC),
		},
		StayHistory: []models.StayRecord{},
	}
}

func (suite *VacateServiceTestSuite) tenantActor() common.Identity {
	return common.Identity{UserID: uuid.New(), Role: common.RoleTenant, Phone: "9876543210"}
}

func (suite *VacateServiceTestSuite) ownerActor() common.Identity {
	return common.Identity{UserID: suite.ownerID, Role: common.RoleOwner}
}

func (suite *VacateServiceTestSuite) property() *PropertyInfo {
	return &PropertyInfo{OwnerID: suite.ownerID, PropertyCode: "PROP1", Name: "Sunrise PG"}
}

func (suite *VacateServiceTestSuite) expectRaisePath(tenant *models.Tenant) {
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(nil, nil).Once()
	suite.mockRegistry.On("LookupByCode", mock.Anything, "PROP1").Return(suite.property(), nil).Once()
	suite.mockBeds.On("Clear", mock.Anything, "PROP1-101", "101-1").Return(nil).Once()
	suite.mockTenantRepo.On("Update", mock.Anything, tenant).Return(nil).Once()
	suite.mockVacateRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.VacateRequest")).Return(nil).Once()
}

func (suite *VacateServiceTestSuite) TestRaise_ImmediateForfeitsDeposit() {
	tenant := suite.activeTenant(3000)
	suite.expectRaisePath(tenant)

	result, err := suite.service.Raise(context.Background(), suite.tenantActor(), &RaiseVacateRequest{
		TenantCode:        "PG-AB12",
		IsImmediateVacate: true,
		Reason:            "relocating",
	})

	assert.NoError(suite.T(), err)
	request := result.Request
	assert.Equal(suite.T(), models.VacateStatusCompleted, request.Status)
	assert.True(suite.T(), request.VacateDate.Equal(suite.now))
	assert.Nil(suite.T(), request.NoticeStart)

	// The tenant is deactivated the moment the vacate is raised.
	assert.Equal(suite.T(), models.TenantStatusInactive, tenant.Status)
	assert.Nil(suite.T(), tenant.CurrentStay)
	assert.Len(suite.T(), tenant.StayHistory, 1)
	assert.True(suite.T(), tenant.StayHistory[0].To.Equal(suite.now))

	assert.True(suite.T(), request.PreviousSnapshot.Stay.IsInNoticePeriod)
	assert.Equal(suite.T(), "Sunrise PG", request.PreviousSnapshot.PropertyName)

	joined := ""
	for _, line := range result.Advisory {
		joined += line + " "
	}
	assert.Contains(suite.T(), joined, "forfeited")
}

func (suite *VacateServiceTestSuite) TestRaise_ImmediateWithoutDepositRejected() {
	tenant := suite.activeTenant(0)
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(nil, nil).Once()

	_, err := suite.service.Raise(context.Background(), suite.tenantActor(), &RaiseVacateRequest{
		TenantCode:        "PG-AB12",
		IsImmediateVacate: true,
	})

	assert.ErrorIs(suite.T(), err, ErrDepositRequired)
	assert.Equal(suite.T(), models.TenantStatusActive, tenant.Status)
}

func (suite *VacateServiceTestSuite) TestRaise_NoticeComputesThirtyDayMonths() {
	tenant := suite.activeTenant(3000)
	suite.expectRaisePath(tenant)

	result, err := suite.service.Raise(context.Background(), suite.tenantActor(), &RaiseVacateRequest{
		TenantCode: "PG-AB12",
	})

	assert.NoError(suite.T(), err)
	request := result.Request
	assert.Equal(suite.T(), models.VacateStatusNoticePeriod, request.Status)
	assert.True(suite.T(), request.VacateDate.Equal(suite.now.Add(30*24*time.Hour)))
	assert.True(suite.T(), request.NoticeStart.Equal(suite.now))
	assert.True(suite.T(), request.NoticeEnd.Equal(request.VacateDate))
}

func (suite *VacateServiceTestSuite) TestRaise_WrongActorRejected() {
	tenant := suite.activeTenant(3000)
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(nil, nil).Once()

	stranger := common.Identity{UserID: uuid.New(), Role: common.RoleTenant, Phone: "1112223334"}
	_, err := suite.service.Raise(context.Background(), stranger, &RaiseVacateRequest{TenantCode: "PG-AB12"})

	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "only the tenant")
}

func (suite *VacateServiceTestSuite) TestRaise_OpenRequestBlocksSecondVacate() {
	tenant := suite.activeTenant(3000)
	open := &models.VacateRequest{
		ID:         uuid.New(),
		TenantCode: "PG-AB12",
		RaisedAt:   suite.now.Add(-time.Hour),
		Status:     models.VacateStatusNoticePeriod,
	}
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(open, nil).Once()

	_, err := suite.service.Raise(context.Background(), suite.tenantActor(), &RaiseVacateRequest{TenantCode: "PG-AB12"})

	assert.ErrorIs(suite.T(), err, ErrAlreadyInNotice)
}

func (suite *VacateServiceTestSuite) TestRaise_SettledRequestFromEarlierStayDoesNotBlock() {
	tenant := suite.activeTenant(3000)
	settled := &models.VacateRequest{
		ID:         uuid.New(),
		TenantCode: "PG-AB12",
		RaisedAt:   suite.now.Add(-60 * 24 * time.Hour),
		Status:     models.VacateStatusCompleted,
	}
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(settled, nil).Once()
	suite.mockRegistry.On("LookupByCode", mock.Anything, "PROP1").Return(suite.property(), nil).Once()
	suite.mockBeds.On("Clear", mock.Anything, "PROP1-101", "101-1").Return(nil).Once()
	suite.mockTenantRepo.On("Update", mock.Anything, tenant).Return(nil).Once()
	suite.mockVacateRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.VacateRequest")).Return(nil).Once()

	// The completed request belongs to a vacated-and-rejoined earlier stay; it
	// must not block a vacate of the current one.
	result, err := suite.service.Raise(context.Background(), suite.tenantActor(), &RaiseVacateRequest{
		TenantCode: "PG-AB12",
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.VacateStatusNoticePeriod, result.Request.Status)
}

func (suite *VacateServiceTestSuite) TestRaise_BedClearFailureAbortsBeforeTenancyWrite() {
	tenant := suite.activeTenant(3000)
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(nil, nil).Once()
	suite.mockRegistry.On("LookupByCode", mock.Anything, "PROP1").Return(suite.property(), nil).Once()
	suite.mockBeds.On("Clear", mock.Anything, "PROP1-101", "101-1").Return(ErrBedAlreadyVacant).Once()

	_, err := suite.service.Raise(context.Background(), suite.tenantActor(), &RaiseVacateRequest{TenantCode: "PG-AB12"})

	assert.ErrorIs(suite.T(), err, ErrBedAlreadyVacant)
	suite.mockTenantRepo.AssertNotCalled(suite.T(), "Update", mock.Anything, mock.Anything)
}

func (suite *VacateServiceTestSuite) openRequest(immediate bool, raisedAt time.Time) *models.VacateRequest {
	vacateDate := raisedAt
	if !immediate {
		vacateDate = raisedAt.Add(30 * 24 * time.Hour)
	}
	return &models.VacateRequest{
		ID:                uuid.New(),
		TenantCode:        "PG-AB12",
		PropertyCode:      "PROP1",
		RoomCode:          "PROP1-101",
		BedID:             "101-1",
		RaisedAt:          raisedAt,
		IsImmediateVacate: immediate,
		VacateDate:        vacateDate,
		Status:            models.VacateStatusNoticePeriod,
		PreviousSnapshot: &models.StaySnapshot{
			Stay: models.CurrentStay{
				PropertyCode:         "PROP1",
				RoomCode:             "PROP1-101",
				BedID:                "101-1",
				Rent:                 decimal.NewFromInt(6000),
				Deposit:              decimal.NewFromInt(3000),
				NoticePeriodInMonths: 1,
				IsInNoticePeriod:     true,
				AssignedAt:           time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC),
			},
			PropertyName: "Sunrise PG",
		},
	}
}

func (suite *VacateServiceTestSuite) inactiveTenantWithHistory(request *models.VacateRequest) *models.Tenant {
	return &models.Tenant{
		ID:         uuid.New(),
		TenantCode: "PG-AB12",
		Name:       "Asha",
		Phone:      "9876543210",
		Status:     models.TenantStatusInactive,
		StayHistory: []models.StayRecord{
			{
				PropertyCode: "PROP1",
				RoomCode:     "PROP1-101",
				BedID:        "101-1",
				From:         request.PreviousSnapshot.Stay.AssignedAt,
				To:           request.VacateDate,
			},
		},
	}
}

func (suite *VacateServiceTestSuite) TestWithdraw_RestoresStayAndPopsHistory() {
	request := suite.openRequest(false, suite.now.Add(-2*24*time.Hour))
	tenant := suite.inactiveTenantWithHistory(request)

	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(request, nil).Once()
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockBeds.On("Assign", mock.Anything, "PROP1-101", "101-1", "9876543210", "PG-AB12").Return(nil).Once()
	suite.mockTenantRepo.On("Update", mock.Anything, tenant).Return(nil).Once()
	suite.mockVacateRepo.On("Delete", mock.Anything, request.ID).Return(nil).Once()

	restored, err := suite.service.Withdraw(context.Background(), suite.tenantActor(), "PG-AB12")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TenantStatusActive, restored.Status)
	assert.NotNil(suite.T(), restored.CurrentStay)
	assert.False(suite.T(), restored.CurrentStay.IsInNoticePeriod)
	assert.Equal(suite.T(), "101-1", restored.CurrentStay.BedID)
	assert.Empty(suite.T(), restored.StayHistory, "the phantom history row is popped")
}

func (suite *VacateServiceTestSuite) TestWithdraw_ImmediateWindowElapsed() {
	request := suite.openRequest(true, suite.now.Add(-25*time.Hour))
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(request, nil).Once()

	_, err := suite.service.Withdraw(context.Background(), suite.tenantActor(), "PG-AB12")

	assert.ErrorIs(suite.T(), err, ErrWithdrawWindowOver)
}

func (suite *VacateServiceTestSuite) TestWithdraw_NoticeWindowElapsed() {
	request := suite.openRequest(false, suite.now.Add(-8*24*time.Hour))
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(request, nil).Once()

	_, err := suite.service.Withdraw(context.Background(), suite.tenantActor(), "PG-AB12")

	assert.ErrorIs(suite.T(), err, ErrWithdrawWindowOver)
}

func (suite *VacateServiceTestSuite) TestWithdraw_OwnerRemovalNeedsRetain() {
	request := suite.openRequest(false, suite.now.Add(-time.Hour))
	request.RemovedByOwner = true
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(request, nil).Once()

	_, err := suite.service.Withdraw(context.Background(), suite.tenantActor(), "PG-AB12")

	assert.ErrorIs(suite.T(), err, ErrOwnerResolvedOnly)
}

func (suite *VacateServiceTestSuite) TestWithdraw_NoOpenRequest() {
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(nil, nil).Once()

	_, err := suite.service.Withdraw(context.Background(), suite.tenantActor(), "PG-AB12")

	assert.ErrorIs(suite.T(), err, ErrNoOpenVacate)
}

func (suite *VacateServiceTestSuite) TestWithdraw_SettledRequestIsNotOpen() {
	request := suite.openRequest(true, suite.now.Add(-60*24*time.Hour))
	request.Status = models.VacateStatusCompleted
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(request, nil).Once()

	_, err := suite.service.Withdraw(context.Background(), suite.tenantActor(), "PG-AB12")

	assert.ErrorIs(suite.T(), err, ErrNoOpenVacate)
}

func (suite *VacateServiceTestSuite) TestWithdraw_RejoinedTenantIsNotClobbered() {
	request := suite.openRequest(false, suite.now.Add(-2*24*time.Hour))
	tenant := suite.activeTenant(3000)
	tenant.CurrentStay.RoomCode = "PROP1-205"
	tenant.CurrentStay.BedID = "205-1"

	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(request, nil).Once()
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()

	_, err := suite.service.Withdraw(context.Background(), suite.tenantActor(), "PG-AB12")

	// The new stay stays untouched; the old snapshot is not restored over it.
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "already has an active stay")
	assert.Equal(suite.T(), "205-1", tenant.CurrentStay.BedID)
	suite.mockBeds.AssertNotCalled(suite.T(), "Assign", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *VacateServiceTestSuite) TestWithdraw_BedReassignedFailsWholeOperation() {
	request := suite.openRequest(false, suite.now.Add(-time.Hour))
	tenant := suite.inactiveTenantWithHistory(request)

	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(request, nil).Once()
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockBeds.On("Assign", mock.Anything, "PROP1-101", "101-1", "9876543210", "PG-AB12").
		Return(ErrBedAlreadyOccupied).Once()

	_, err := suite.service.Withdraw(context.Background(), suite.tenantActor(), "PG-AB12")

	// The tenant stays inactive and the request stays open.
	assert.ErrorIs(suite.T(), err, ErrBedAlreadyOccupied)
	assert.Equal(suite.T(), models.TenantStatusInactive, tenant.Status)
	suite.mockTenantRepo.AssertNotCalled(suite.T(), "Update", mock.Anything, mock.Anything)
	suite.mockVacateRepo.AssertNotCalled(suite.T(), "Delete", mock.Anything, mock.Anything)
}

func (suite *VacateServiceTestSuite) TestRemove_SetsRemovedByOwner() {
	tenant := suite.activeTenant(3000)
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(nil, nil).Once()
	suite.mockRegistry.On("LookupByCode", mock.Anything, "PROP1").Return(suite.property(), nil).Twice()
	suite.mockBeds.On("Clear", mock.Anything, "PROP1-101", "101-1").Return(nil).Once()
	suite.mockTenantRepo.On("Update", mock.Anything, tenant).Return(nil).Once()
	suite.mockVacateRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.VacateRequest")).Return(nil).Once()

	result, err := suite.service.Remove(context.Background(), suite.ownerActor(), &RemoveTenantRequest{
		TenantCode:        "PG-AB12",
		IsVacatedAlready:  true,
		IsDepositRefunded: true,
		Reason:            "repeated violations",
	})

	assert.NoError(suite.T(), err)
	assert.True(suite.T(), result.Request.RemovedByOwner)
	assert.True(suite.T(), result.Request.IsDepositRefunded)
	assert.Len(suite.T(), suite.notifier.sent, 1)
	assert.Equal(suite.T(), models.EventTenantRemoved, suite.notifier.sent[0].EventType)
}

func (suite *VacateServiceTestSuite) TestRemove_NonOwnerRejected() {
	tenant := suite.activeTenant(3000)
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(nil, nil).Once()

	_, err := suite.service.Remove(context.Background(), suite.tenantActor(), &RemoveTenantRequest{TenantCode: "PG-AB12"})

	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "only the property owner")
}

func (suite *VacateServiceTestSuite) TestRetain_NoWindowApplies() {
	// Raised well past any withdrawal window; retain still works.
	request := suite.openRequest(false, suite.now.Add(-30*24*time.Hour))
	request.RemovedByOwner = true
	tenant := suite.inactiveTenantWithHistory(request)

	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(request, nil).Once()
	suite.mockRegistry.On("LookupByCode", mock.Anything, "PROP1").Return(suite.property(), nil).Once()
	suite.mockTenantRepo.On("GetByCode", mock.Anything, "PG-AB12").Return(tenant, nil).Once()
	suite.mockBeds.On("Assign", mock.Anything, "PROP1-101", "101-1", "9876543210", "PG-AB12").Return(nil).Once()
	suite.mockTenantRepo.On("Update", mock.Anything, tenant).Return(nil).Once()
	suite.mockVacateRepo.On("Delete", mock.Anything, request.ID).Return(nil).Once()

	restored, err := suite.service.Retain(context.Background(), suite.ownerActor(), "PG-AB12")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.TenantStatusActive, restored.Status)
	assert.Len(suite.T(), suite.notifier.sent, 1)
	assert.Equal(suite.T(), models.EventTenantRetained, suite.notifier.sent[0].EventType)
}

func (suite *VacateServiceTestSuite) TestRetain_TenantRaisedVacateRejected() {
	request := suite.openRequest(false, suite.now.Add(-time.Hour))
	suite.mockVacateRepo.On("GetOpenByTenantCode", mock.Anything, "PG-AB12").Return(request, nil).Once()

	_, err := suite.service.Retain(context.Background(), suite.ownerActor(), "PG-AB12")

	assert.ErrorIs(suite.T(), err, ErrNotOwnerRemoval)
}

func (suite *VacateServiceTestSuite) TestExpireNotices_FlipsElapsedToCompleted() {
	first := suite.openRequest(false, suite.now.Add(-40*24*time.Hour))
	second := suite.openRequest(false, suite.now.Add(-35*24*time.Hour))
	suite.mockVacateRepo.On("ListExpiredNotice", mock.Anything, suite.now, 500).
		Return([]*models.VacateRequest{first, second}, nil).Once()
	suite.mockVacateRepo.On("UpdateStatus", mock.Anything, first.ID, models.VacateStatusCompleted).Return(nil).Once()
	suite.mockVacateRepo.On("UpdateStatus", mock.Anything, second.ID, models.VacateStatusCompleted).
		Return(errors.New("write refused")).Once()

	expired, err := suite.service.ExpireNotices(context.Background(), suite.now)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, expired, "failed updates are skipped, not fatal")
}
