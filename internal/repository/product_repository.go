package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPageSize = 12
	// DefaultHighlightLimit sizes the featured and new listings.
	DefaultHighlightLimit = 8
)

type productRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &productRepository{
		collection: db.Collection("products"),
	}
}

func (p productRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product

	err := p.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

func (p productRepository) ListProducts(ctx context.Context, f ProductFilter) (*ProductPage, error) {
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}

	filter := bson.M{}
	if f.Category != "" && f.Category != "all" {
		filter["category"] = f.Category
	}

	count, err := p.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(f.PageSize * (f.Page - 1))).
		SetLimit(int64(f.PageSize))

	cur, err := p.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cur.Close(ctx)

	products := []domain.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	pages := int((count + int64(f.PageSize) - 1) / int64(f.PageSize))
	return &ProductPage{
		Products: products,
		Page:     f.Page,
		Pages:    pages,
		Count:    count,
	}, nil
}

func (p productRepository) FeaturedProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	return p.flagged(ctx, "is_featured", limit)
}

func (p productRepository) NewProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	return p.flagged(ctx, "is_new", limit)
}

func (p productRepository) flagged(ctx context.Context, field string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = DefaultHighlightLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := p.collection.Find(ctx, bson.M{field: true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by %s: %w", field, err)
	}
	defer cur.Close(ctx)

	products := []domain.Product{}
	if err := cur.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (p productRepository) InsertProduct(ctx context.Context, product *domain.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	if _, err := p.collection.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (p *productRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "is_featured", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "is_new", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	if _, err := p.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}
