package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type TenantCodeServiceTestSuite struct {
	suite.Suite
	mockIdentity *MockIdentityRegistry
	service      *tenantCodeService
}

func (suite *TenantCodeServiceTestSuite) SetupTest() {
	suite.mockIdentity = &MockIdentityRegistry{}
	suite.service = &tenantCodeService{
		identity: suite.mockIdentity,
		suffix: func(length uint8) string {
			return strings.Repeat("A", int(length))
		},
	}
}

func (suite *TenantCodeServiceTestSuite) TearDownTest() {
	suite.mockIdentity.AssertExpectations(suite.T())
}

func TestTenantCodeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TenantCodeServiceTestSuite))
}

func (suite *TenantCodeServiceTestSuite) TestResolve_ReusesExistingCode() {
	suite.mockIdentity.On("CodeByPhone", mock.Anything, "9876543210").Return("PG-OLD1", nil).Once()

	code, err := suite.service.Resolve(context.Background(), "9876543210")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "PG-OLD1", code)
}

func (suite *TenantCodeServiceTestSuite) TestResolve_DrawsFreshCode() {
	suite.mockIdentity.On("CodeByPhone", mock.Anything, "9876543210").Return("", nil).Once()
	suite.mockIdentity.On("CodeExists", mock.Anything, "PG-AAAA").Return(false, nil).Once()

	code, err := suite.service.Resolve(context.Background(), "9876543210")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "PG-AAAA", code)
}

func (suite *TenantCodeServiceTestSuite) TestResolve_FallsBackToWiderKeyspace() {
	suite.mockIdentity.On("CodeByPhone", mock.Anything, "9876543210").Return("", nil).Once()
	suite.mockIdentity.On("CodeExists", mock.Anything, "PG-AAAA").Return(true, nil).Times(codeAttempts)
	suite.mockIdentity.On("CodeExists", mock.Anything, "PG-AAAAAAAA").Return(false, nil).Once()

	code, err := suite.service.Resolve(context.Background(), "9876543210")

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "PG-AAAAAAAA", code)
}

func (suite *TenantCodeServiceTestSuite) TestResolve_ExhaustedKeyspace() {
	suite.mockIdentity.On("CodeByPhone", mock.Anything, "9876543210").Return("", nil).Once()
	suite.mockIdentity.On("CodeExists", mock.Anything, "PG-AAAA").Return(true, nil).Times(codeAttempts)
	suite.mockIdentity.On("CodeExists", mock.Anything, "PG-AAAAAAAA").Return(true, nil).Times(codeAttempts)

	code, err := suite.service.Resolve(context.Background(), "9876543210")

	assert.ErrorIs(suite.T(), err, ErrCodeSpaceExhausted)
	assert.Empty(suite.T(), code)
}

func (suite *TenantCodeServiceTestSuite) TestResolve_IdentityLookupFailureAborts() {
	suite.mockIdentity.On("CodeByPhone", mock.Anything, "9876543210").Return("", errors.New("identity store down")).Once()

	_, err := suite.service.Resolve(context.Background(), "9876543210")

	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "identity store down")
}
