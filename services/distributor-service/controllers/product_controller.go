package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
)

type ProductController struct {
	products ProductCatalogue
}

func NewProductController(products ProductCatalogue) *ProductController {
	return &ProductController{products: products}
}

// List returns the catalogue
// GET /products
func (pc *ProductController) List(c *gin.Context) {
	products, err := pc.products.List(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	apperrors.OK(c, http.StatusOK, products)
}

// Upsert creates or replaces a product
// POST /products
func (pc *ProductController) Upsert(c *gin.Context) {
	var req models.UpsertProductRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := pc.products.Upsert(c.Request.Context(), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, p)
}
