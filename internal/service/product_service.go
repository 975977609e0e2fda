package service

import (
	"context"
	"time"

	"catalog-service/internal/model"
	"catalog-service/pkg/logger"
	"catalog-service/prometheus"

	"go.uber.org/zap"
)

// ProductService manages catalog products.
type ProductService struct {
	repo      ProductRepository
	files     FileStore
	cleaner   FileRemover
	generator DisplayInfoGenerator
	metrics   *prometheus.Metrics
	now       func() time.Time
}

// NewProductService creates a ProductService
func NewProductService(repo ProductRepository, files FileStore, cleaner FileRemover, generator DisplayInfoGenerator, metrics *prometheus.Metrics) *ProductService {
	return &ProductService{
		repo:      repo,
		files:     files,
		cleaner:   cleaner,
		generator: generator,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Create stores a new product with freshly generated display info
func (s *ProductService) Create(ctx context.Context, req model.CreateProductRequest, upload *model.Upload) (*model.Product, error) {
	status := req.Status
	if status == "" {
		status = model.StatusActive
	}
	now := stamp(s.now)
	product := &model.Product{
		Name:                  req.Name,
		Description:           req.Description,
		Category:              req.Category,
		Price:                 req.Price,
		StockAvailable:        req.StockAvailable,
		StockUnit:             req.StockUnit,
		StockWarningThreshold: req.StockWarningThreshold,
		DisplayInfo:           s.generator.Generate(),
		Status:                status,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if upload != nil {
		ref, err := s.files.Save(ctx, ProductUploads, upload.Filename, upload.Data)
		if err != nil {
			return nil, err
		}
		product.ImageURL = ref
	}

	if err := s.repo.Create(ctx, product); err != nil {
		s.cleaner.Remove(ctx, product.ImageURL)
		return nil, err
	}

	s.metrics.RecordEntityOperation("product", "create")
	logger.FromContext(ctx).Info("Product created", zap.String("product_id", product.ID.Hex()))
	return product, nil
}

// Get returns the product or ErrNotFound
func (s *ProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// List returns a page of products in creation order
func (s *ProductService) List(ctx context.Context, skip, limit int64) (*model.ListResponse[model.Product], error) {
	items, total, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	return &model.ListResponse[model.Product]{Items: items, Total: total}, nil
}

// Update merges upd into the stored product. Every accepted change,
// an image-only one included, regenerates the display info.
func (s *ProductService) Update(ctx context.Context, id string, upd model.ProductUpdate, upload *model.Upload) (*model.Product, error) {
	log := logger.FromContext(ctx).With(zap.String("product_id", id))

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	var newRef string
	if upload != nil {
		newRef, err = s.files.Save(ctx, ProductUploads, upload.Filename, upload.Data)
		if err != nil {
			return nil, err
		}
		upd.ImageURL = model.Some(newRef)
	}

	var patch model.Patch
	apply(&patch, model.ProductFieldName, upd.Name)
	apply(&patch, model.ProductFieldDescription, upd.Description)
	apply(&patch, model.ProductFieldCategory, upd.Category)
	apply(&patch, model.ProductFieldImageURL, upd.ImageURL)
	apply(&patch, model.ProductFieldPrice, upd.Price)
	apply(&patch, model.ProductFieldStockAvailable, upd.StockAvailable)
	apply(&patch, model.ProductFieldStockUnit, upd.StockUnit)
	apply(&patch, model.ProductFieldStockWarningThreshold, upd.StockWarningThreshold)
	apply(&patch, model.ProductFieldStatus, upd.Status)

	if patch.Empty() {
		log.Debug("Product update changes nothing")
		return existing, nil
	}
	patch.SetField(model.ProductFieldDisplayInfo, s.generator.Generate())
	patch.SetField(model.FieldUpdatedAt, stamp(s.now))

	ok, err := s.repo.Update(ctx, id, existing.Version, patch)
	if err != nil {
		s.cleaner.Remove(ctx, newRef)
		return nil, err
	}
	if !ok {
		s.cleaner.Remove(ctx, newRef)
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrNotFound
		}
		log.Warn("Product changed during update")
		return nil, ErrConcurrentUpdate
	}

	s.cleaner.Remove(ctx, staleImage(existing.ImageURL, upd.ImageURL))
	s.metrics.RecordEntityOperation("product", "update")

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	log.Info("Product updated")
	return updated, nil
}

// Delete removes the product and its image
func (s *ProductService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	s.cleaner.Remove(ctx, existing.ImageURL)
	s.metrics.RecordEntityOperation("product", "delete")
	logger.FromContext(ctx).Info("Product deleted", zap.String("product_id", id))
	return nil
}
