package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yashrajoria/storefront-backend/database"
	"github.com/yashrajoria/storefront-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: database.Collection(db, "users")}
}

func (r *MongoUserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// CreateIfAbsent is a single upsert with $setOnInsert, so an existing user is never overwritten.
func (r *MongoUserRepository) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	now := time.Now().UTC()
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	doc := bson.M{
		"email":      user.Email,
		"role":       user.Role,
		"created_at": now,
		"updated_at": now,
	}
	if user.Name != "" {
		doc["name"] = user.Name
	}
	if user.PhotoURL != "" {
		doc["photo_url"] = user.PhotoURL
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"email": user.Email},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("create user: %w", err)
	}
	return res.UpsertedCount == 1, nil
}

func (r *MongoUserRepository) Upsert(ctx context.Context, email string, updates map[string]interface{}) error {
	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	for k, v := range updates {
		set[k] = v
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"role": models.RoleCustomer, "created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	return err
}
