package services

import (
	"context"
	"errors"

	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/repository"
)

// ProductService manages catalogue reference data
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, dependencyError(err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, productID string) (*models.Product, error) {
	p, err := s.repo.Get(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Product not found", err)
	}
	if err != nil {
		return nil, dependencyError(err)
	}
	return p, nil
}

func (s *ProductService) Upsert(ctx context.Context, req models.UpsertProductRequest) (*models.Product, error) {
	if err := models.ValidateProductKey(req.ProductID); err != nil {
		return nil, apperrors.Validation("Invalid product", err)
	}
	p := &models.Product{
		ProductID: req.ProductID,
		Name:      req.Name,
		Cost:      req.Cost,
		Price:     req.Price,
		EndPrice:  req.EndPrice,
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, dependencyError(err)
	}
	return p, nil
}
