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

type MongoCheckoutRepository struct {
	collection *mongo.Collection
}

func NewCheckoutRepository(db *mongo.Database) *MongoCheckoutRepository {
	return &MongoCheckoutRepository{collection: db.Collection(database.CheckoutsCollection)}
}

func (r *MongoCheckoutRepository) Create(ctx context.Context, checkout *models.Checkout) error {
	now := time.Now().UTC()
	if checkout.ID.IsZero() {
		checkout.ID = primitive.NewObjectID()
	}
	checkout.CreatedAt = now
	checkout.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, checkout)
	return translate(err)
}

func (r *MongoCheckoutRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Checkout, error) {
	var checkout models.Checkout
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&checkout); err != nil {
		return nil, translate(err)
	}
	return &checkout, nil
}

func (r *MongoCheckoutRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time, details models.PaymentDetails) (bool, error) {
	set := bson.M{
		"isPaid":        true,
		"paymentStatus": models.PaymentStatusPaid,
		"paidAt":        paidAt,
		"updatedAt":     time.Now().UTC(),
	}
	if details != nil {
		set["paymentDetails"] = details
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "isPaid": false}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoCheckoutRepository) MarkFinalized(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":         id,
		"user":        userID,
		"isPaid":      true,
		"isFinalized": false,
	}
	update := bson.M{"$set": bson.M{
		"isFinalized": true,
		"finalizedAt": at,
		"updatedAt":   time.Now().UTC(),
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
