package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yashrajoria/storefront-backend/database"
	"github.com/yashrajoria/storefront-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOrderRepository relies on a unique index on source_session_id; a
// duplicate-key error on insert means the session was already reconciled.
type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{collection: database.Collection(db, "orders")}
}

func (r *MongoOrderRepository) InsertIfAbsent(ctx context.Context, order *models.Order) (bool, error) {
	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert order for session %s: %w", order.SourceSessionID, err)
	}
	return true, nil
}

func (r *MongoOrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.collection.FindOne(ctx, bson.M{"source_session_id": sessionID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order for session %s: %w", sessionID, err)
	}
	return &order, nil
}

func (r *MongoOrderRepository) FindByCustomerEmail(ctx context.Context, email string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"customer_email": email}, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (r *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source_session_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_source_session_id"),
		},
		{
			Keys:    bson.D{{Key: "customer_email", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("customer_email_created_at"),
		},
	})
	return err
}
