package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/yashrajoria/storefront-backend/models"
	"github.com/yashrajoria/storefront-backend/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductService interface {
	List(ctx context.Context, page, perPage int) (*services.ProductListResponse, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, req *models.ProductCreateRequest) (*models.Product, error)
	Update(ctx context.Context, id string, req *models.ProductUpdateRequest) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductController struct {
	service ProductService
	logger  *zap.Logger
}

func NewProductController(service ProductService, logger *zap.Logger) *ProductController {
	return &ProductController{service: service, logger: logger}
}

// GetProducts handles GET /products?page=&per_page=
func (pc *ProductController) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(services.DefaultPerPage)))

	resp, err := pc.service.List(c.Request.Context(), page, perPage)
	if err != nil {
		respondError(c, pc.logger, "Failed to list products", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	product, err := pc.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, pc.logger, "Failed to get product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req models.ProductCreateRequest
	if !bindJSON(c, pc.logger, &req) {
		return
	}
	product, err := pc.service.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, pc.logger, "Failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (pc *ProductController) UpdateProduct(c *gin.Context) {
	var req models.ProductUpdateRequest
	if !bindJSON(c, pc.logger, &req) {
		return
	}
	product, err := pc.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, pc.logger, "Failed to update product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	if err := pc.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, pc.logger, "Failed to delete product", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}
