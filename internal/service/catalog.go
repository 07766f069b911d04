package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/snapshot"
	"godwillpos/backend/internal/xid"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	product = product.Normalize()
	if product.ID == "" {
		product.ID = xid.New("p")
	}
	if err := s.validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,stock=%s,price=%s", created.Name, created.Stock, created.NormalPrice))
	s.persist(ctx, snapshot.KeyProducts)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, product domain.Product) (domain.Product, error) {
	product.ID = id
	product = product.Normalize()
	if err := s.validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, product.ID)
	if err != nil {
		return domain.Product{}, err
	}
	saved, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("stock=%s->%s,price=%s->%s", existing.Stock, saved.Stock, existing.NormalPrice, saved.NormalPrice))
	s.persist(ctx, snapshot.KeyProducts)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "product_delete", "product", id, "")
	s.persist(ctx, snapshot.KeyProducts)
	return nil
}

// ImportProducts upserts a batch by id. The batch is validated as a whole
// before anything is written.
func (s *Service) ImportProducts(ctx context.Context, products []domain.Product) (domain.ImportResult, error) {
	if len(products) == 0 {
		return domain.ImportResult{}, fmt.Errorf("%w: no products to import", domain.ErrInvalidRecord)
	}
	batch := make([]domain.Product, 0, len(products))
	for _, product := range products {
		product = product.Normalize()
		if err := s.validateProduct(product); err != nil {
			return domain.ImportResult{}, err
		}
		batch = append(batch, product)
	}

	result, err := s.repo.ImportProducts(ctx, batch)
	if err != nil {
		return domain.ImportResult{}, err
	}
	s.logAudit(ctx, "product_import", "product", "*", fmt.Sprintf("inserted=%d,updated=%d", result.Inserted, result.Updated))
	s.persist(ctx, snapshot.KeyProducts)
	return result, nil
}

func (s *Service) validateProduct(product domain.Product) error {
	err := s.validate.Struct(product)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" "+fe.Tag())
	}
	return fmt.Errorf("%w: product %q: %s", domain.ErrInvalidRecord, product.ID, strings.Join(fields, ", "))
}
