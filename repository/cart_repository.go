package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shivamdarekar/TrendsWave/database"
	"github.com/shivamdarekar/TrendsWave/models"
)

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{collection: db.Collection(database.CartsCollection)}
}

// lineFilter matches the cart holding the line (productID, size, color).
func lineFilter(cartID, productID primitive.ObjectID, size, color string) bson.M {
	return bson.M{
		"_id": cartID,
		"products": bson.M{"$elemMatch": bson.M{
			"productId": productID,
			"size":      size,
			"color":     color,
		}},
	}
}

// totalPipeline recomputes totalPrice from the stored lines in one atomic
// update: sum of (discountPrice ?? price) * max(quantity, 1), rounded to cents.
var totalPipeline = mongo.Pipeline{
	{{Key: "$set", Value: bson.M{
		"totalPrice": bson.M{"$round": bson.A{
			bson.M{"$sum": bson.M{"$map": bson.M{
				"input": bson.M{"$ifNull": bson.A{"$products", bson.A{}}},
				"as":    "p",
				"in": bson.M{"$multiply": bson.A{
					bson.M{"$ifNull": bson.A{"$$p.discountPrice", "$$p.price"}},
					bson.M{"$max": bson.A{"$$p.quantity", 1}},
				}},
			}}},
			2,
		}},
		"updatedAt": "$$NOW",
	}}},
}

func (r *MongoCartRepository) findOne(ctx context.Context, filter bson.M) (*models.Cart, error) {
	var cart models.Cart
	if err := r.collection.FindOne(ctx, filter).Decode(&cart); err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (r *MongoCartRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	return r.findOne(ctx, bson.M{"user": userID})
}

func (r *MongoCartRepository) FindByGuest(ctx context.Context, guestID string) (*models.Cart, error) {
	return r.findOne(ctx, bson.M{"guestId": guestID})
}

func (r *MongoCartRepository) Create(ctx context.Context, cart *models.Cart) error {
	now := time.Now().UTC()
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	if cart.Products == nil {
		cart.Products = []models.CartItem{}
	}
	cart.CreatedAt = now
	cart.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, cart)
	return translate(err)
}

func (r *MongoCartRepository) IncrementItem(ctx context.Context, cartID, productID primitive.ObjectID, size, color string, qty int) (bool, error) {
	update := bson.M{"$inc": bson.M{"products.$.quantity": qty}}
	res, err := r.collection.UpdateOne(ctx, lineFilter(cartID, productID, size, color), update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// PushItem appends item unless the cart already holds its line. It returns
// ErrDuplicate in that case so the caller can increment instead.
func (r *MongoCartRepository) PushItem(ctx context.Context, cartID primitive.ObjectID, item models.CartItem) error {
	filter := bson.M{
		"_id": cartID,
		"products": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"productId": item.ProductID,
			"size":      item.Size,
			"color":     item.Color,
		}}},
	}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"products": item}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if n, err := r.collection.CountDocuments(ctx, bson.M{"_id": cartID}); err == nil && n == 0 {
			return ErrNotFound
		}
		return ErrDuplicate
	}
	return nil
}

func (r *MongoCartRepository) SetItemQuantity(ctx context.Context, cartID, productID primitive.ObjectID, size, color string, qty int) (bool, error) {
	update := bson.M{"$set": bson.M{"products.$.quantity": qty}}
	res, err := r.collection.UpdateOne(ctx, lineFilter(cartID, productID, size, color), update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoCartRepository) PullItem(ctx context.Context, cartID, productID primitive.ObjectID, size, color string) (bool, error) {
	update := bson.M{"$pull": bson.M{"products": bson.M{
		"productId": productID,
		"size":      size,
		"color":     color,
	}}}
	res, err := r.collection.UpdateOne(ctx, lineFilter(cartID, productID, size, color), update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoCartRepository) RecalculateTotal(ctx context.Context, cartID primitive.ObjectID) (*models.Cart, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var cart models.Cart
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": cartID}, totalPipeline, opts).Decode(&cart); err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

// Save replaces the stored cart with cart.
func (r *MongoCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCartRepository) AssignToUser(ctx context.Context, cartID, userID primitive.ObjectID) (*models.Cart, error) {
	update := bson.M{
		"$set":   bson.M{"user": userID, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"guestId": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var cart models.Cart
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": cartID}, update, opts).Decode(&cart); err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (r *MongoCartRepository) Delete(ctx context.Context, cartID primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": cartID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoCartRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"user": userID})
	return err
}
