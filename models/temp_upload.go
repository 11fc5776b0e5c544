package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TempUploadTTL is how long an image may stay unreferenced before cleanup.
const TempUploadTTL = 24 * time.Hour

// TempUpload records an uploaded image until a product starts using it.
type TempUpload struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	URL       string             `json:"url" bson:"url"`
	PublicID  string             `json:"publicId" bson:"publicId"`
	User      primitive.ObjectID `json:"user" bson:"user"`
	IsUsed    bool               `json:"isUsed" bson:"isUsed"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
	PublicID string `json:"publicId"`
}

type DeleteImageRequest struct {
	PublicID string `json:"publicId"`
}

// CleanupReport summarises one cleanup run.
type CleanupReport struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}
