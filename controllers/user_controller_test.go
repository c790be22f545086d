package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/yashrajoria/storefront-backend/models"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"
	"github.com/yashrajoria/storefront-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockUserService struct{ mock.Mock }

func (m *MockUserService) Login(ctx context.Context, req *models.UserLoginRequest) (*services.LoginResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, callerEmail, email string, req *models.UserUpdateRequest) (*models.User, error) {
	args := m.Called(ctx, callerEmail, email, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newUserRouter(svc UserService) *gin.Engine {
	uc := NewUserController(svc, zap.NewNop())
	r := gin.New()
	r.POST("/users", uc.Login)
	r.GET("/users", asUser("a@b.com"), uc.GetUsers)
	r.GET("/users/:email", asUser("a@b.com"), uc.GetUser)
	r.PATCH("/users/:email", asUser("a@b.com"), uc.UpdateUser)
	return r
}

func TestLogin(t *testing.T) {
	svc := new(MockUserService)
	svc.On("Login", mock.Anything, &models.UserLoginRequest{Email: "a@b.com", Name: "Ada"}).
		Return(&services.LoginResult{Token: "tok", Message: "User registered"}, nil)

	w := doJSON(newUserRouter(svc), http.MethodPost, "/users", map[string]string{"email": "a@b.com", "name": "Ada"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"tok","message":"User registered"}`, w.Body.String())
}

func TestLoginValidation(t *testing.T) {
	svc := new(MockUserService)
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, apperrors.ErrValidation)

	w := doJSON(newUserRouter(svc), http.MethodPost, "/users", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUsersAndUser(t *testing.T) {
	svc := new(MockUserService)
	svc.On("List", mock.Anything).Return([]models.User{{Email: "a@b.com"}}, nil)
	svc.On("Get", mock.Anything, "x@y.com").Return(nil, apperrors.ErrNotFound)
	r := newUserRouter(svc)

	w := doJSON(r, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/users/x@y.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUserPassesCaller(t *testing.T) {
	svc := new(MockUserService)
	svc.On("Update", mock.Anything, "a@b.com", "c@d.com", mock.Anything).Return(nil, apperrors.ErrForbidden)

	w := doJSON(newUserRouter(svc), http.MethodPatch, "/users/c@d.com", map[string]string{"name": "Eve"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertExpectations(t)
}
