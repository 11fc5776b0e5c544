package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/models"
)

type SubscriberService interface {
	Subscribe(ctx context.Context, email string) (*models.Subscriber, error)
}

type SubscriberController struct {
	subscribers SubscriberService
}

func NewSubscriberController(subscribers SubscriberService) *SubscriberController {
	return &SubscriberController{subscribers: subscribers}
}

func (sc *SubscriberController) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	_ = c.ShouldBindJSON(&req)

	if _, err := sc.subscribers.Subscribe(c.Request.Context(), req.Email); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Successfully subscribed to the newsletter!"})
}
