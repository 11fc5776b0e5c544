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

type MongoTempUploadRepository struct {
	collection *mongo.Collection
}

func NewTempUploadRepository(db *mongo.Database) *MongoTempUploadRepository {
	return &MongoTempUploadRepository{collection: db.Collection(database.TempUploadsCollection)}
}

func (r *MongoTempUploadRepository) Create(ctx context.Context, upload *models.TempUpload) error {
	if upload.ID.IsZero() {
		upload.ID = primitive.NewObjectID()
	}
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, upload)
	return translate(err)
}

func (r *MongoTempUploadRepository) MarkUsed(ctx context.Context, publicIDs []string) (int64, error) {
	if len(publicIDs) == 0 {
		return 0, nil
	}
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"publicId": bson.M{"$in": publicIDs}},
		bson.M{"$set": bson.M{"isUsed": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// FindStale lists unused uploads created before the cutoff.
func (r *MongoTempUploadRepository) FindStale(ctx context.Context, before time.Time) ([]models.TempUpload, error) {
	filter := bson.M{"isUsed": false, "createdAt": bson.M{"$lt": before}}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	uploads := []models.TempUpload{}
	if err := cursor.All(ctx, &uploads); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (r *MongoTempUploadRepository) Delete(ctx context.Context, publicID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"publicId": publicID})
	return err
}
