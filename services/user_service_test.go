package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yashrajoria/storefront-backend/models"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"
	"github.com/yashrajoria/storefront-backend/repository"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockUserRepo struct{ mock.Mock }

func (m *MockUserRepo) FindAll(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepo) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepo) Upsert(ctx context.Context, email string, updates map[string]interface{}) error {
	return m.Called(ctx, email, updates).Error(0)
}

func (m *MockUserRepo) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestUserService(t *testing.T, repo repository.UserRepo) (*UserService, *TokenService) {
	t.Helper()
	tokens, err := NewTokenService("test-secret")
	require.NoError(t, err)
	return NewUserService(repo, tokens, validator.New(), zap.NewNop()), tokens
}

func TestUserServiceLogin(t *testing.T) {
	t.Run("first login registers", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("CreateIfAbsent", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "a@b.com" && u.Role == models.RoleCustomer
		})).Return(true, nil)
		svc, tokens := newTestUserService(t, repo)

		res, err := svc.Login(context.Background(), &models.UserLoginRequest{Email: " a@b.com "})
		require.NoError(t, err)
		assert.Equal(t, "User registered", res.Message)

		email, err := tokens.VerifyToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", email)
	})

	t.Run("returning user logs in", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(false, nil)
		svc, _ := newTestUserService(t, repo)

		res, err := svc.Login(context.Background(), &models.UserLoginRequest{Email: "a@b.com"})
		require.NoError(t, err)
		assert.Equal(t, "Login successful", res.Message)
		assert.NotEmpty(t, res.Token)
	})

	t.Run("mixed case email maps to one user", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("CreateIfAbsent", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "ada@example.com"
		})).Return(false, nil)
		svc, tokens := newTestUserService(t, repo)

		res, err := svc.Login(context.Background(), &models.UserLoginRequest{Email: "Ada@Example.COM"})
		require.NoError(t, err)
		email, err := tokens.VerifyToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", email)
		repo.AssertExpectations(t)
	})

	t.Run("invalid email", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc, _ := newTestUserService(t, repo)

		_, err := svc.Login(context.Background(), &models.UserLoginRequest{Email: "nope"})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		repo.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(false, errors.New("mongo down"))
		svc, _ := newTestUserService(t, repo)

		_, err := svc.Login(context.Background(), &models.UserLoginRequest{Email: "a@b.com"})
		assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
	})
}

func TestUserServiceUpdate(t *testing.T) {
	name := "Ada"

	t.Run("own profile", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("Upsert", mock.Anything, "a@b.com", map[string]interface{}{"name": "Ada"}).Return(nil)
		repo.On("FindByEmail", mock.Anything, "a@b.com").Return(&models.User{Email: "a@b.com", Name: "Ada"}, nil)
		svc, _ := newTestUserService(t, repo)

		u, err := svc.Update(context.Background(), "a@b.com", "a@b.com", &models.UserUpdateRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Ada", u.Name)
		repo.AssertExpectations(t)
	})

	t.Run("own profile in another case", func(t *testing.T) {
		repo := new(MockUserRepo)
		repo.On("Upsert", mock.Anything, "a@b.com", map[string]interface{}{"name": "Ada"}).Return(nil)
		repo.On("FindByEmail", mock.Anything, "a@b.com").Return(&models.User{Email: "a@b.com", Name: "Ada"}, nil)
		svc, _ := newTestUserService(t, repo)

		_, err := svc.Update(context.Background(), "a@b.com", "A@B.com", &models.UserUpdateRequest{Name: &name})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("someone else's profile", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc, _ := newTestUserService(t, repo)

		_, err := svc.Update(context.Background(), "a@b.com", "c@d.com", &models.UserUpdateRequest{Name: &name})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUserServiceGetNotFound(t *testing.T) {
	repo := new(MockUserRepo)
	repo.On("FindByEmail", mock.Anything, "x@y.com").Return(nil, repository.ErrNotFound)
	svc, _ := newTestUserService(t, repo)

	_, err := svc.Get(context.Background(), "x@y.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
