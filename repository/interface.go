package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shivamdarekar/TrendsWave/models"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// SetRefreshToken stores tokenID unconditionally (login, oauth).
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, tokenID string) error
	// RotateRefreshToken swaps oldID for newID only if oldID is still current.
	RotateRefreshToken(ctx context.Context, id primitive.ObjectID, oldID, newID string) (bool, error)
	ClearRefreshToken(ctx context.Context, id primitive.ObjectID) error
}

type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Find(ctx context.Context, query ProductQuery) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	PushImage(ctx context.Context, id primitive.ObjectID, image models.ProductImage) (*models.Product, error)
	PullImage(ctx context.Context, id primitive.ObjectID, publicID string) (*models.Product, error)
}

type CartRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	FindByGuest(ctx context.Context, guestID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	// IncrementItem adds qty to the line (productID, size, color) if present and
	// reports whether such a line existed.
	IncrementItem(ctx context.Context, cartID, productID primitive.ObjectID, size, color string, qty int) (bool, error)
	// PushItem appends a new line. ErrDuplicate means the line already exists.
	PushItem(ctx context.Context, cartID primitive.ObjectID, item models.CartItem) error
	SetItemQuantity(ctx context.Context, cartID, productID primitive.ObjectID, size, color string, qty int) (bool, error)
	PullItem(ctx context.Context, cartID, productID primitive.ObjectID, size, color string) (bool, error)
	// RecalculateTotal recomputes totalPrice server-side from the stored lines
	// and returns the updated cart.
	RecalculateTotal(ctx context.Context, cartID primitive.ObjectID) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	AssignToUser(ctx context.Context, cartID, userID primitive.ObjectID) (*models.Cart, error)
	Delete(ctx context.Context, cartID primitive.ObjectID) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type CheckoutRepository interface {
	Create(ctx context.Context, checkout *models.Checkout) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Checkout, error)
	// MarkPaid flips isPaid from false to true. It reports false when the
	// checkout was already paid.
	MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time, details models.PaymentDetails) (bool, error)
	// MarkFinalized flips isFinalized for a paid checkout owned by userID. It
	// reports false when no such unfinalized checkout exists.
	MarkFinalized(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (bool, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.Order, int64, error)
	FindAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, deliveredAt *time.Time) (*models.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type SubscriberRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	Create(ctx context.Context, subscriber *models.Subscriber) error
}

// TempUploadRepository is implemented for MongoDB and DynamoDB. Records are
// addressed by the storage public id.
type TempUploadRepository interface {
	Create(ctx context.Context, upload *models.TempUpload) error
	MarkUsed(ctx context.Context, publicIDs []string) (int64, error)
	FindStale(ctx context.Context, before time.Time) ([]models.TempUpload, error)
	Delete(ctx context.Context, publicID string) error
}
