package repository

import (
	"context"

	"catalog-service/internal/model"
	"catalog-service/prometheus"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProductRepository persists products in the products collection.
type ProductRepository struct {
	docs documents[model.Product]
}

// NewProductRepository creates a repository over coll
func NewProductRepository(coll *mongo.Collection, metrics *prometheus.Metrics) *ProductRepository {
	return &ProductRepository{docs: newDocuments[model.Product](coll, metrics)}
}

// Create inserts the product and assigns its ID
func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	return r.docs.insert(ctx, product)
}

// GetByID returns nil when the product does not exist or id is malformed
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	return r.docs.getByID(ctx, id)
}

// List returns a page of products and the total count
func (r *ProductRepository) List(ctx context.Context, skip, limit int64) ([]model.Product, int64, error) {
	return r.docs.list(ctx, skip, limit)
}

// Update applies patch when the stored version matches
func (r *ProductRepository) Update(ctx context.Context, id string, version int64, patch model.Patch) (bool, error) {
	return r.docs.update(ctx, id, version, patch)
}

// Delete removes the product, reporting whether it existed
func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.docs.delete(ctx, id)
}
