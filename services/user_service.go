package services

import (
	"context"
	stderrors "errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/repository"
)

// UserService backs the admin user management endpoints.
type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch users", err)
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, req models.AdminCreateUserRequest) (*models.User, error) {
	email := NormalizeEmail(req.Email)
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.BadRequest("User already exists")
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("Failed to create user", err)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleCustomer
	}
	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: hashed,
		Role:     role,
		Provider: models.ProviderLocal,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.BadRequest("User already exists")
		}
		return nil, apperrors.Internal("Failed to create user", err)
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id primitive.ObjectID, req models.AdminUpdateUserRequest) (*models.User, error) {
	set := bson.M{}
	if req.Name != nil {
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		set["email"] = NormalizeEmail(*req.Email)
	}
	if req.Role != nil {
		set["role"] = *req.Role
	}

	var (
		user *models.User
		err  error
	)
	if len(set) == 0 {
		user, err = s.userRepo.FindByID(ctx, id)
	} else {
		user, err = s.userRepo.Update(ctx, id, set)
	}
	switch {
	case err == nil:
		return user, nil
	case stderrors.Is(err, repository.ErrNotFound):
		return nil, errUserNotFound
	case stderrors.Is(err, repository.ErrDuplicate):
		return nil, apperrors.BadRequest("Email is already in use")
	default:
		return nil, apperrors.Internal("Failed to update user", err)
	}
}

func (s *UserService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errUserNotFound
		}
		return apperrors.Internal("Failed to delete user", err)
	}
	return nil
}
