package directory_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	directory "github.com/campuskit/directory"
)

// MockUsers is a testify mock of the Users store adapter.
type MockUsers struct {
	mock.Mock
}

var _ directory.Users = (*MockUsers)(nil)

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*directory.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*directory.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*directory.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*directory.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *directory.User) (*directory.User, error) {
	args := m.Called(ctx, record)
	if user, ok := args.Get(0).(*directory.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, record *directory.User) (*directory.User, error) {
	args := m.Called(ctx, record)
	if user, ok := args.Get(0).(*directory.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) List(ctx context.Context, params directory.ListUsersParams) ([]*directory.User, int, error) {
	args := m.Called(ctx, params)
	if users, ok := args.Get(0).([]*directory.User); ok {
		return users, args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testConfig() *directory.Config {
	return &directory.Config{
		AccessTokenSecret:    "access-secret-for-tests",
		RefreshTokenSecret:   "refresh-secret-for-tests",
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      168 * time.Hour,
		TokenIssuer:          "campus-directory-test",
		BcryptCost:           4,
		FederatedDefaultRole: directory.RoleOfficeHead,
	}
}

func activeUser(id int64, email string) *directory.User {
	return &directory.User{
		ID:        id,
		Email:     email,
		Username:  "testuser",
		FirstName: "Test",
		LastName:  "User",
		Role:      directory.RoleOfficeHead,
		Status:    directory.UserStatusActive,
	}
}
