package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Subscriber struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email"`
	SubscribedAt time.Time          `json:"subscribedAt" bson:"subscribedAt"`
}

type SubscribeRequest struct {
	Email string `json:"email"`
}
