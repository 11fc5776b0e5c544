package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/common/logger"
	"github.com/shivamdarekar/TrendsWave/database"
	"github.com/shivamdarekar/TrendsWave/models"
	awspkg "github.com/shivamdarekar/TrendsWave/pkg/aws"
	"github.com/shivamdarekar/TrendsWave/repository"
)

var (
	errCartNotFound       = apperrors.NotFound("Cart not found")
	errCartItemNotFound   = apperrors.NotFound("Product not found in cart")
	errGuestCartEmpty     = apperrors.BadRequest("Guest cart is empty")
	errGuestCartNotFound  = apperrors.NotFound("Guest cart not found")
	errCartIdentityNeeded = apperrors.BadRequest("User ID or guest ID is required")
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	tx          database.Transactor
	metrics     awspkg.MetricsRecorder
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, tx database.Transactor, metrics awspkg.MetricsRecorder) *CartService {
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, tx: tx, metrics: metrics}
}

// NewGuestID is used when an anonymous shopper has no id yet.
func NewGuestID() string {
	return fmt.Sprintf("guest_%d", time.Now().UnixMilli())
}

func (s *CartService) find(ctx context.Context, id models.CartIdentity) (*models.Cart, error) {
	if id.UserID != nil {
		return s.cartRepo.FindByUser(ctx, *id.UserID)
	}
	if id.GuestID != "" {
		return s.cartRepo.FindByGuest(ctx, id.GuestID)
	}
	return nil, repository.ErrNotFound
}

func (s *CartService) newCart(id models.CartIdentity, items []models.CartItem) *models.Cart {
	cart := &models.Cart{Products: items}
	if id.UserID != nil {
		uid := *id.UserID
		cart.User = &uid
	} else {
		cart.GuestID = id.GuestID
		if cart.GuestID == "" {
			cart.GuestID = NewGuestID()
		}
	}
	if cart.Products == nil {
		cart.Products = []models.CartItem{}
	}
	cart.Recalculate()
	return cart
}

// Add puts a product line in the cart, creating the cart when needed. The
// bool reports whether a new cart was created.
func (s *CartService) Add(ctx context.Context, id models.CartIdentity, req models.AddToCartRequest) (*models.Cart, bool, error) {
	productID, err := ParseProductID(req.ProductID)
	if err != nil {
		return nil, false, err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, false, errProductNotFound
		}
		return nil, false, apperrors.Internal("Failed to add to cart", err)
	}

	item := models.CartItem{
		ProductID:     product.ID,
		Name:          product.Name,
		Image:         product.PrimaryImage(),
		Price:         product.Price,
		DiscountPrice: product.DiscountPrice,
		Size:          req.Size,
		Color:         req.Color,
		Quantity:      req.Quantity,
		Owner:         product.Owner,
	}

	cart, err := s.find(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		cart = s.newCart(id, []models.CartItem{item})
		err = s.cartRepo.Create(ctx, cart)
		if err == nil {
			return cart, true, nil
		}
		if !stderrors.Is(err, repository.ErrDuplicate) {
			return nil, false, apperrors.Internal("Failed to add to cart", err)
		}
		// A concurrent request created the cart first.
		cart, err = s.find(ctx, id)
	}
	if err != nil {
		return nil, false, apperrors.Internal("Failed to add to cart", err)
	}

	if err := s.addLine(ctx, cart.ID, item); err != nil {
		return nil, false, err
	}
	updated, err := s.cartRepo.RecalculateTotal(ctx, cart.ID)
	if err != nil {
		return nil, false, apperrors.Internal("Failed to add to cart", err)
	}
	return updated, false, nil
}

// addLine increments an existing line atomically or appends a new one.
func (s *CartService) addLine(ctx context.Context, cartID primitive.ObjectID, item models.CartItem) error {
	for attempt := 0; attempt < 2; attempt++ {
		matched, err := s.cartRepo.IncrementItem(ctx, cartID, item.ProductID, item.Size, item.Color, item.Quantity)
		if err != nil {
			return apperrors.Internal("Failed to add to cart", err)
		}
		if matched {
			return nil
		}
		err = s.cartRepo.PushItem(ctx, cartID, item)
		if err == nil {
			return nil
		}
		if stderrors.Is(err, repository.ErrNotFound) {
			return errCartNotFound
		}
		if !stderrors.Is(err, repository.ErrDuplicate) {
			return apperrors.Internal("Failed to add to cart", err)
		}
	}
	return apperrors.Internal("Failed to add to cart", fmt.Errorf("cart line kept changing"))
}

// Update sets a line's quantity; a quantity of zero or less removes the line.
func (s *CartService) Update(ctx context.Context, id models.CartIdentity, req models.UpdateCartRequest) (*models.Cart, error) {
	if req.Quantity <= 0 {
		return s.Remove(ctx, id, models.RemoveFromCartRequest{
			ProductID: req.ProductID, Size: req.Size, Color: req.Color,
		})
	}
	cart, productID, err := s.lineTarget(ctx, id, req.ProductID)
	if err != nil {
		return nil, err
	}
	matched, err := s.cartRepo.SetItemQuantity(ctx, cart.ID, productID, req.Size, req.Color, req.Quantity)
	if err != nil {
		return nil, apperrors.Internal("Failed to update cart", err)
	}
	if !matched {
		return nil, errCartItemNotFound
	}
	return s.recalculate(ctx, cart.ID)
}

func (s *CartService) Remove(ctx context.Context, id models.CartIdentity, req models.RemoveFromCartRequest) (*models.Cart, error) {
	cart, productID, err := s.lineTarget(ctx, id, req.ProductID)
	if err != nil {
		return nil, err
	}
	matched, err := s.cartRepo.PullItem(ctx, cart.ID, productID, req.Size, req.Color)
	if err != nil {
		return nil, apperrors.Internal("Failed to update cart", err)
	}
	if !matched {
		return nil, errCartItemNotFound
	}
	return s.recalculate(ctx, cart.ID)
}

func (s *CartService) lineTarget(ctx context.Context, id models.CartIdentity, rawProductID string) (*models.Cart, primitive.ObjectID, error) {
	if id.IsZero() {
		return nil, primitive.NilObjectID, errCartIdentityNeeded
	}
	cart, err := s.find(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, primitive.NilObjectID, errCartNotFound
		}
		return nil, primitive.NilObjectID, apperrors.Internal("Failed to update cart", err)
	}
	productID, err := primitive.ObjectIDFromHex(rawProductID)
	if err != nil {
		return nil, primitive.NilObjectID, errCartItemNotFound
	}
	return cart, productID, nil
}

func (s *CartService) recalculate(ctx context.Context, cartID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.cartRepo.RecalculateTotal(ctx, cartID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errCartNotFound
		}
		return nil, apperrors.Internal("Failed to update cart", err)
	}
	return cart, nil
}

// Get returns the cart, creating an empty one for new shoppers.
func (s *CartService) Get(ctx context.Context, id models.CartIdentity) (*models.Cart, error) {
	cart, err := s.find(ctx, id)
	if err == nil {
		return cart, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("Failed to fetch cart", err)
	}

	cart = s.newCart(id, nil)
	if err := s.cartRepo.Create(ctx, cart); err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			if existing, ferr := s.find(ctx, id); ferr == nil {
				return existing, nil
			}
		}
		return nil, apperrors.Internal("Failed to fetch cart", err)
	}
	return cart, nil
}

// Merge folds the guest cart into the user's cart after login. The reads and
// writes run in one transaction so a guest cart is merged at most once.
func (s *CartService) Merge(ctx context.Context, userID primitive.ObjectID, guestID string) (*models.Cart, error) {
	var result *models.Cart

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		result = nil

		guestCart, err := s.cartRepo.FindByGuest(ctx, guestID)
		if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
			return err
		}
		userCart, err := s.cartRepo.FindByUser(ctx, userID)
		if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
			return err
		}

		switch {
		case guestCart != nil && len(guestCart.Products) == 0:
			return errGuestCartEmpty

		case guestCart != nil && userCart != nil:
			userCart.MergeItems(guestCart.Products)
			if err := s.cartRepo.Save(ctx, userCart); err != nil {
				return err
			}
			if err := s.cartRepo.Delete(ctx, guestCart.ID); err != nil {
				return err
			}
			result = userCart

		case guestCart != nil:
			assigned, err := s.cartRepo.AssignToUser(ctx, guestCart.ID, userID)
			if err != nil {
				return err
			}
			result = assigned

		case userCart != nil:
			result = userCart

		default:
			return errGuestCartNotFound
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.Error
		if stderrors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.Internal("Failed to merge carts", err)
	}

	countMetric(s.metrics, awspkg.MetricCartsMerged, nil)
	logger.Info(ctx, "Guest cart merged", zap.String("user_id", userID.Hex()), zap.String("guest_id", guestID))
	return result, nil
}
