package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/models"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, req models.AdminCreateUserRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id primitive.ObjectID, req models.AdminUpdateUserRequest) (*models.User, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

type MockSubscriberService struct {
	mock.Mock
}

func (m *MockSubscriberService) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscriber), args.Error(1)
}

func newUserRouter(users *MockUserService) *gin.Engine {
	uc := NewUserController(users)
	router := gin.New()
	group := router.Group("/api/admin/users", asUser(newAdmin()))
	group.GET("", uc.List)
	group.POST("", uc.Create)
	group.PUT("/:id", uc.Update)
	group.DELETE("/:id", uc.Delete)
	return router
}

func TestAdminUserController(t *testing.T) {
	id := primitive.NewObjectID()
	users := new(MockUserService)
	users.On("List", mock.Anything).Return([]models.User{{Email: "a@b.co", Password: "hash", RefreshTokenID: "jti"}}, nil).Once()
	users.On("Create", mock.Anything, models.AdminCreateUserRequest{Name: "Bo", Email: "bo@b.co", Password: "secret!1"}).
		Return(&models.User{ID: id, Email: "bo@b.co", Role: models.RoleCustomer}, nil).Once()
	users.On("Delete", mock.Anything, id).Return(apperrors.NotFound("User not found")).Once()
	router := newUserRouter(users)

	w := serve(router, jsonRequest(t, http.MethodGet, "/api/admin/users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hash")
	assert.NotContains(t, w.Body.String(), "jti")

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/admin/users",
		map[string]string{"name": "Bo", "email": "bo@b.co", "password": "secret!1"}))
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "User created successfully", body["message"])
	assert.Contains(t, body, "user")

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/admin/users",
		map[string]string{"name": "Bo", "email": "bo@b.co", "password": "secret!1", "role": "owner"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, jsonRequest(t, http.MethodPut, "/api/admin/users/not-an-id", map[string]string{"name": "X"}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, jsonRequest(t, http.MethodDelete, "/api/admin/users/"+id.Hex(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	users.AssertExpectations(t)
}

func TestSubscribeController(t *testing.T) {
	subs := new(MockSubscriberService)
	subs.On("Subscribe", mock.Anything, "new@shop.test").Return(&models.Subscriber{Email: "new@shop.test"}, nil).Once()
	subs.On("Subscribe", mock.Anything, "").Return(nil, apperrors.BadRequest("Email is required")).Once()

	router := gin.New()
	router.POST("/api/subscribe", NewSubscriberController(subs).Subscribe)

	w := serve(router, jsonRequest(t, http.MethodPost, "/api/subscribe", map[string]string{"email": "new@shop.test"}))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["message"])

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/subscribe", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email is required", decodeBody(t, w)["message"])
	subs.AssertExpectations(t)
}
