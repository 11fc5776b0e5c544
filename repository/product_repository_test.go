package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/shivamdarekar/TrendsWave/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestBuildProductQuery_Filters(t *testing.T) {
	q := BuildProductQuery(models.ProductFilter{
		Collection: "Summer",
		Category:   "Top Wear",
		Brands:     []string{"Urban", "Modern"},
		Sizes:      []string{"M"},
		MinPrice:   floatPtr(10),
		MaxPrice:   floatPtr(50),
	})

	assert.Equal(t, "Summer", q.Filter["collections"])
	assert.Equal(t, "Top Wear", q.Filter["category"])
	assert.Equal(t, bson.M{"$in": []string{"Urban", "Modern"}}, q.Filter["brand"])
	assert.Equal(t, bson.M{"$in": []string{"M"}}, q.Filter["sizes"])
	assert.Equal(t, bson.M{"$gte": 10.0, "$lte": 50.0}, q.Filter["price"])
	assert.NotContains(t, q.Filter, "colors")
	assert.Nil(t, q.Sort)
}

func TestBuildProductQuery_AllIsNoFilter(t *testing.T) {
	q := BuildProductQuery(models.ProductFilter{Collection: "all", Category: "ALL"})
	assert.Empty(t, q.Filter)
}

func TestBuildProductQuery_SearchMatchesEveryKeyword(t *testing.T) {
	q := BuildProductQuery(models.ProductFilter{Search: "  slim  (fit) "})

	and, ok := q.Filter["$and"].(bson.A)
	require.True(t, ok)
	require.Len(t, and, 2)

	first := and[0].(bson.M)["$or"].(bson.A)
	require.Len(t, first, 3)
	rx := first[0].(bson.M)["name"].(primitive.Regex)
	assert.Equal(t, "slim", rx.Pattern)
	assert.Equal(t, "i", rx.Options)

	second := and[1].(bson.M)["$or"].(bson.A)
	rx = second[1].(bson.M)["description"].(primitive.Regex)
	assert.Equal(t, `\(fit\)`, rx.Pattern)
}

func TestBuildProductQuery_SortAndPaging(t *testing.T) {
	tests := []struct {
		sortBy string
		want   bson.D
	}{
		{models.SortPriceAsc, bson.D{{Key: "price", Value: 1}}},
		{models.SortPriceDesc, bson.D{{Key: "price", Value: -1}}},
		{models.SortPopularity, bson.D{{Key: "rating", Value: -1}}},
		{"unknown", nil},
	}
	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			q := BuildProductQuery(models.ProductFilter{SortBy: tt.sortBy})
			assert.Equal(t, tt.want, q.Sort)
		})
	}

	q := BuildProductQuery(models.ProductFilter{Limit: 20, Page: 3})
	assert.Equal(t, int64(20), q.Limit)
	assert.Equal(t, int64(40), q.Skip)

	q = BuildProductQuery(models.ProductFilter{Page: 3})
	assert.Zero(t, q.Skip)
}

func TestMongoProductRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find decodes documents", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		id1, id2 := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "trendswave.products", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: id1}, {Key: "name", Value: "Tee"}, {Key: "price", Value: 19.99}},
			bson.D{{Key: "_id", Value: id2}, {Key: "name", Value: "Jeans"}, {Key: "price", Value: 49.5}},
		))

		products, err := repo.Find(context.Background(), BuildProductQuery(models.ProductFilter{Limit: 2}))
		require.NoError(mt, err)
		require.Len(mt, products, 2)
		assert.Equal(mt, id1, products[0].ID)
		assert.Equal(mt, "Jeans", products[1].Name)
	})

	mt.Run("find returns empty slice", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "trendswave.products", mtest.FirstBatch))

		products, err := repo.Find(context.Background(), ProductQuery{})
		require.NoError(mt, err)
		assert.NotNil(mt, products)
		assert.Empty(mt, products)
	})

	mt.Run("find by id not found", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "trendswave.products", mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("duplicate sku", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "E11000 duplicate key error",
		}))

		err := repo.Create(context.Background(), &models.Product{Name: "Tee", SKU: "SKU-1"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("push image returns updated product", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "_id", Value: id},
				{Key: "name", Value: "Tee"},
				{Key: "images", Value: bson.A{bson.D{{Key: "url", Value: "https://cdn/x.jpg"}, {Key: "publicId", Value: "products/x.jpg"}}}},
			}},
		})

		product, err := repo.PushImage(context.Background(), id, models.ProductImage{URL: "https://cdn/x.jpg", PublicID: "products/x.jpg"})
		require.NoError(mt, err)
		require.Len(mt, product.Images, 1)
		assert.Equal(mt, "products/x.jpg", product.Images[0].PublicID)
	})
}
