package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shivamdarekar/TrendsWave/database"
	"github.com/shivamdarekar/TrendsWave/models"
)

type MongoSubscriberRepository struct {
	collection *mongo.Collection
}

func NewSubscriberRepository(db *mongo.Database) *MongoSubscriberRepository {
	return &MongoSubscriberRepository{collection: db.Collection(database.SubscribersCollection)}
}

func (r *MongoSubscriberRepository) FindByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&sub); err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (r *MongoSubscriberRepository) Create(ctx context.Context, subscriber *models.Subscriber) error {
	if subscriber.ID.IsZero() {
		subscriber.ID = primitive.NewObjectID()
	}
	if subscriber.SubscribedAt.IsZero() {
		subscriber.SubscribedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, subscriber)
	return translate(err)
}
