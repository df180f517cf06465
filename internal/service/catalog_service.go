package service

import (
	"context"

	"github.com/fjod/loot_kingdom/internal/domain"
	r "github.com/fjod/loot_kingdom/internal/repository"
)

type CatalogService struct {
	repo r.RepoInterface
}

func NewCatalogService(repo r.RepoInterface) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

type UpdateProductRequest struct {
	Price *int64
	Stock *int32
}

// UpdateProduct is the admin write path. Existing orders keep their price
// snapshots.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*domain.Product, error) {
	if req.Price == nil && req.Stock == nil {
		return nil, ErrInvalidProduct
	}
	if (req.Price != nil && *req.Price < 0) || (req.Stock != nil && *req.Stock < 0) {
		return nil, ErrInvalidProduct
	}

	err := s.repo.InTx(ctx, func(tx r.RepoInterface) error {
		if req.Price != nil {
			if err := tx.UpdateProductPrice(ctx, id, *req.Price); err != nil {
				return err
			}
		}
		if req.Stock != nil {
			if err := tx.SetStock(ctx, id, *req.Stock); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, id)
}
