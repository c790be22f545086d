package services

import (
	"context"

	"github.com/yashrajoria/storefront-backend/models"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"
	"github.com/yashrajoria/storefront-backend/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// LoginResult is returned by POST /users.
type LoginResult struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

type UserService struct {
	repo     repository.UserRepo
	tokens   *TokenService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewUserService(repo repository.UserRepo, tokens *TokenService, validate *validator.Validate, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, tokens: tokens, validate: validate, logger: logger}
}

// Login registers the user on first sight and always issues a token.
func (s *UserService) Login(ctx context.Context, req *models.UserLoginRequest) (*LoginResult, error) {
	req.Email = models.NormalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, describeValidation(err))
	}

	created, err := s.repo.CreateIfAbsent(ctx, &models.User{
		Email:    req.Email,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
		Role:     models.RoleCustomer,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	token, err := s.tokens.IssueToken(req.Email)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}

	msg := "Login successful"
	if created {
		msg = "User registered"
		s.logger.Info("User registered", zap.String("email", req.Email))
	}
	return &LoginResult{Token: token, Message: msg}, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return user, nil
}

// Update upserts the caller's own profile. Callers may not touch other users.
func (s *UserService) Update(ctx context.Context, callerEmail, email string, req *models.UserUpdateRequest) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if models.NormalizeEmail(callerEmail) != email {
		return nil, apperrors.ErrForbidden
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, describeValidation(err))
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.PhotoURL != nil {
		updates["photo_url"] = *req.PhotoURL
	}
	if err := s.repo.Upsert(ctx, email, updates); err != nil {
		return nil, mapRepoError(err)
	}
	return s.Get(ctx, email)
}
