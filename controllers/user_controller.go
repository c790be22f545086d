package controllers

import (
	"context"
	"net/http"

	"github.com/yashrajoria/storefront-backend/middleware"
	"github.com/yashrajoria/storefront-backend/models"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"
	"github.com/yashrajoria/storefront-backend/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserService interface {
	Login(ctx context.Context, req *models.UserLoginRequest) (*services.LoginResult, error)
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, callerEmail, email string, req *models.UserUpdateRequest) (*models.User, error)
}

type UserController struct {
	service UserService
	logger  *zap.Logger
}

func NewUserController(service UserService, logger *zap.Logger) *UserController {
	return &UserController{service: service, logger: logger}
}

// Login registers unknown users and returns a bearer token either way.
func (uc *UserController) Login(c *gin.Context) {
	var req models.UserLoginRequest
	if !bindJSON(c, uc.logger, &req) {
		return
	}
	res, err := uc.service.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, uc.logger, "Failed to log in user", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (uc *UserController) GetUsers(c *gin.Context) {
	users, err := uc.service.List(c.Request.Context())
	if err != nil {
		respondError(c, uc.logger, "Failed to list users", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (uc *UserController) GetUser(c *gin.Context) {
	user, err := uc.service.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, uc.logger, "Failed to get user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	caller, ok := middleware.GetEmail(c)
	if !ok {
		respondError(c, uc.logger, "Missing caller identity", apperrors.ErrUnauthenticated)
		return
	}
	var req models.UserUpdateRequest
	if !bindJSON(c, uc.logger, &req) {
		return
	}
	user, err := uc.service.Update(c.Request.Context(), caller, c.Param("email"), &req)
	if err != nil {
		respondError(c, uc.logger, "Failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
