package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shivamdarekar/TrendsWave/database"
	"github.com/shivamdarekar/TrendsWave/models"
)

// ProductQuery is a ready-to-run catalog query.
type ProductQuery struct {
	Filter bson.M
	Sort   bson.D
	Limit  int64
	Skip   int64
}

type MongoProductRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{collection: db.Collection(database.ProductsCollection)}
}

func (r *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *MongoProductRepository) Find(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	opts := options.Find()
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	filter := q.Filter
	if filter == nil {
		filter = bson.M{}
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := time.Now().UTC()
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, product)
	return translate(err)
}

func (r *MongoProductRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Product, error) {
	set["updatedAt"] = time.Now().UTC()
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *MongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *MongoProductRepository) PushImage(ctx context.Context, id primitive.ObjectID, image models.ProductImage) (*models.Product, error) {
	update := bson.M{
		"$push": bson.M{"images": image},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (r *MongoProductRepository) PullImage(ctx context.Context, id primitive.ObjectID, publicID string) (*models.Product, error) {
	update := bson.M{
		"$pull": bson.M{"images": bson.M{"publicId": publicID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (r *MongoProductRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var product models.Product
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&product); err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

// BuildProductQuery turns catalog filters into a MongoDB query.
func BuildProductQuery(f models.ProductFilter) ProductQuery {
	filter := bson.M{}

	if f.Collection != "" && !strings.EqualFold(f.Collection, "all") {
		filter["collections"] = f.Collection
	}
	if f.Category != "" && !strings.EqualFold(f.Category, "all") {
		filter["category"] = f.Category
	}
	inFilters := map[string][]string{
		"material": f.Materials,
		"brand":    f.Brands,
		"sizes":    f.Sizes,
		"colors":   f.Colors,
		"gender":   f.Genders,
	}
	for field, values := range inFilters {
		if len(values) > 0 {
			filter[field] = bson.M{"$in": values}
		}
	}

	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price"] = price
	}

	if keywords := strings.Fields(f.Search); len(keywords) > 0 {
		and := make(bson.A, 0, len(keywords))
		for _, kw := range keywords {
			rx := primitive.Regex{Pattern: regexp.QuoteMeta(kw), Options: "i"}
			and = append(and, bson.M{"$or": bson.A{
				bson.M{"name": rx},
				bson.M{"description": rx},
				bson.M{"gender": rx},
			}})
		}
		filter["$and"] = and
	}

	var sort bson.D
	switch f.SortBy {
	case models.SortPriceAsc:
		sort = bson.D{{Key: "price", Value: 1}}
	case models.SortPriceDesc:
		sort = bson.D{{Key: "price", Value: -1}}
	case models.SortPopularity:
		sort = bson.D{{Key: "rating", Value: -1}}
	}

	q := ProductQuery{Filter: filter, Sort: sort, Limit: f.Limit}
	if f.Page > 1 && f.Limit > 0 {
		q.Skip = (f.Page - 1) * f.Limit
	}
	return q
}
