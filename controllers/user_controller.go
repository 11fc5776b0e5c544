package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/models"
)

type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, req models.AdminCreateUserRequest) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, req models.AdminUpdateUserRequest) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

var errUserNotFound = apperrors.NotFound("User not found")

// UserController serves the admin user management endpoints.
type UserController struct {
	users UserService
}

func NewUserController(users UserService) *UserController {
	return &UserController{users: users}
}

func userIDParam(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, errUserNotFound
	}
	return id, nil
}

func (uc *UserController) List(c *gin.Context) {
	users, err := uc.users.List(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (uc *UserController) Create(c *gin.Context) {
	var req models.AdminCreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	user, err := uc.users.Create(c.Request.Context(), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": user})
}

func (uc *UserController) Update(c *gin.Context) {
	id, err := userIDParam(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	var req models.AdminUpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}

	user, err := uc.users.Update(c.Request.Context(), id, req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "user": user})
}

func (uc *UserController) Delete(c *gin.Context) {
	id, err := userIDParam(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	if err := uc.users.Delete(c.Request.Context(), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
