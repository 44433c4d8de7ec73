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

type mongoRepository struct {
	collection *mongo.Collection
}

func (m mongoRepository) FindCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	cart.Recompute()
	return &cart, nil
}

// SaveCart inserts a never persisted cart (Version 0) or replaces the stored
// document when its version still equals cart.Version. On success the
// cart's Version is incremented.
func (m mongoRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	base := cart.Version
	createdAt, updatedAt, id := cart.CreatedAt, cart.UpdatedAt, cart.ID

	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	cart.Version = base + 1

	var err error
	if base == 0 {
		if cart.ID == "" {
			cart.ID = uuid.NewString()
		}
		_, err = m.collection.InsertOne(ctx, cart)
		if mongo.IsDuplicateKeyError(err) {
			err = domain.ErrVersionConflict
		}
	} else {
		filter := bson.M{"user_id": cart.UserID, "version": base}
		var res *mongo.UpdateResult
		res, err = m.collection.ReplaceOne(ctx, filter, cart)
		if err == nil && res.MatchedCount == 0 {
			err = domain.ErrVersionConflict
		}
	}

	if err != nil {
		cart.Version, cart.CreatedAt, cart.UpdatedAt, cart.ID = base, createdAt, updatedAt, id
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to save cart: %w", err)
	}

	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}
