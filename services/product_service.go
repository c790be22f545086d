package services

import (
	"context"
	"strings"
	"time"

	"github.com/yashrajoria/storefront-backend/models"
	apperrors "github.com/yashrajoria/storefront-backend/pkg/errors"
	"github.com/yashrajoria/storefront-backend/repository"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

type ProductListResponse struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
}

type ProductService struct {
	repo     repository.ProductRepo
	cache    *ProductCache
	validate *validator.Validate
	logger   *zap.Logger
}

func NewProductService(repo repository.ProductRepo, cache *ProductCache, validate *validator.Validate, logger *zap.Logger) *ProductService {
	return &ProductService{repo: repo, cache: cache, validate: validate, logger: logger}
}

func (s *ProductService) List(ctx context.Context, page, perPage int) (*ProductListResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	cached, version, ok := s.cache.GetList(ctx, page, perPage)
	if ok {
		return cached, nil
	}

	products, err := s.repo.Find(ctx, int64(perPage), int64((page-1)*perPage))
	if err != nil {
		return nil, mapRepoError(err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}

	resp := &ProductListResponse{Products: products, Total: total, Page: page, PerPage: perPage}
	s.cache.SetListAsync(version, page, perPage, resp)
	return resp, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseProductID(id)
	if err != nil {
		return nil, err
	}
	cached, version, ok := s.cache.GetProduct(ctx, id)
	if ok {
		return cached, nil
	}

	product, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.cache.SetProductAsync(version, id, product)
	return product, nil
}

func (s *ProductService) Create(ctx context.Context, req *models.ProductCreateRequest) (*models.Product, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, describeValidation(err))
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.Wrapf(apperrors.ErrValidation, "title must not be blank")
	}
	if _, err := ToMinorUnits(req.Price); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, err)
	}

	now := time.Now().UTC()
	product := &models.Product{
		Title:       strings.TrimSpace(req.Title),
		Price:       req.Price,
		Description: req.Description,
		Category:    req.Category,
		Images:      req.Images,
		Stock:       req.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if product.Images == nil {
		product.Images = []string{}
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, mapRepoError(err)
	}

	s.cache.InvalidateProduct(ctx, product.ID.Hex())
	s.logger.Info("Product created", zap.String("product_id", product.ID.Hex()))
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id string, req *models.ProductUpdateRequest) (*models.Product, error) {
	oid, err := parseProductID(id)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, describeValidation(err))
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Price != nil {
		if _, err := ToMinorUnits(*req.Price); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrValidation, err)
		}
		updates["price"] = *req.Price
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Images != nil {
		updates["images"] = req.Images
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if len(updates) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrValidation, "no update fields provided")
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.repo.Update(ctx, oid, updates); err != nil {
		return nil, mapRepoError(err)
	}
	s.cache.InvalidateProduct(ctx, id)

	product, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	oid, err := parseProductID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return mapRepoError(err)
	}
	s.cache.InvalidateProduct(ctx, id)
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

func parseProductID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperrors.Wrapf(apperrors.ErrValidation, "invalid product id %q", id)
	}
	return oid, nil
}
