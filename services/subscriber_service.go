package services

import (
	"context"
	stderrors "errors"
	"regexp"
	"time"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/repository"
)

var emailPattern = regexp.MustCompile(`.+@.+\..+`)

var (
	errEmailRequired     = apperrors.BadRequest("Email is required")
	errEmailInvalid      = apperrors.BadRequest("Please enter a valid email address")
	errAlreadySubscribed = apperrors.BadRequest("Email is already subscribed")
)

type SubscriberService struct {
	repo repository.SubscriberRepository
}

func NewSubscriberService(repo repository.SubscriberRepository) *SubscriberService {
	return &SubscriberService{repo: repo}
}

// ValidEmail applies the same loose shape check used for user emails.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func (s *SubscriberService) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, errEmailRequired
	}
	if !ValidEmail(email) {
		return nil, errEmailInvalid
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, errAlreadySubscribed
	} else if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("Failed to subscribe", err)
	}

	subscriber := &models.Subscriber{Email: email, SubscribedAt: time.Now().UTC()}
	if err := s.repo.Create(ctx, subscriber); err != nil {
		// A concurrent subscribe with the same email lost the unique index race.
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errAlreadySubscribed
		}
		return nil, apperrors.Internal("Failed to subscribe", err)
	}
	return subscriber, nil
}
