package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivamdarekar/TrendsWave/repository"
)

func TestSubscriberService_Subscribe(t *testing.T) {
	repo := &memSubscriberRepo{}
	svc := NewSubscriberService(repo)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, "  News@Letter.IO ")
	require.NoError(t, err)
	assert.Equal(t, "news@letter.io", sub.Email)
	assert.False(t, sub.SubscribedAt.IsZero())

	_, err = svc.Subscribe(ctx, "news@letter.io")
	assert.ErrorIs(t, err, errAlreadySubscribed)

	_, err = svc.Subscribe(ctx, "   ")
	assert.ErrorIs(t, err, errEmailRequired)

	_, err = svc.Subscribe(ctx, "not-an-email")
	assert.ErrorIs(t, err, errEmailInvalid)
}

func TestSubscriberService_DuplicateKeyRace(t *testing.T) {
	svc := NewSubscriberService(&memSubscriberRepo{createErr: repository.ErrDuplicate})

	_, err := svc.Subscribe(context.Background(), "late@comer.com")
	assert.ErrorIs(t, err, errAlreadySubscribed)
}
