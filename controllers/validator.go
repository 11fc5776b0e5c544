package controllers

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/shivamdarekar/TrendsWave/common/errors"
	"github.com/shivamdarekar/TrendsWave/models"
	"github.com/shivamdarekar/TrendsWave/services"
)

const (
	MaxProductPageSize = 100
	passwordSpecials   = `!@#$%^&*(),.?":{}|<>`
)

// RegisterValidators adds the custom tags used in request DTOs to gin's
// binding engine. Call once at startup before serving.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return stderrors.New("unexpected validator engine")
	}
	return registerCustom(v)
}

func registerCustom(v *validator.Validate) error {
	return v.RegisterValidation("specialchar", func(fl validator.FieldLevel) bool {
		return strings.ContainsAny(fl.Field().String(), passwordSpecials)
	})
}

// productQuery is the raw catalog query string.
type productQuery struct {
	Collection string `form:"collection"`
	Category   string `form:"category"`
	Material   string `form:"material"`
	Brand      string `form:"brand"`
	Size       string `form:"size"`
	Color      string `form:"color"`
	Gender     string `form:"gender"`
	MinPrice   string `form:"minPrice" validate:"omitempty,numeric"`
	MaxPrice   string `form:"maxPrice" validate:"omitempty,numeric"`
	Search     string `form:"search" validate:"max=200"`
	SortBy     string `form:"sortBy" validate:"omitempty,oneof=priceAsc priceDesc popularity"`
	Limit      string `form:"limit" validate:"omitempty,number"`
	Page       string `form:"page" validate:"omitempty,number"`
}

// RequestValidator handles query-string validation that gin's body binding
// does not cover.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	_ = registerCustom(v)
	return &RequestValidator{validate: v}
}

// ParseProductFilter turns the catalog query string into a filter. Comma
// separated values become $in lists.
func (rv *RequestValidator) ParseProductFilter(c *gin.Context) (models.ProductFilter, error) {
	var q productQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return models.ProductFilter{}, apperrors.BadRequest("Invalid query parameters")
	}
	if err := rv.validate.Struct(&q); err != nil {
		return models.ProductFilter{}, apperrors.BadRequest(validationMessage(err))
	}

	filter := models.ProductFilter{
		Collection: strings.TrimSpace(q.Collection),
		Category:   strings.TrimSpace(q.Category),
		Materials:  splitList(q.Material),
		Brands:     splitList(q.Brand),
		Sizes:      splitList(q.Size),
		Colors:     splitList(q.Color),
		Genders:    splitList(q.Gender),
		Search:     strings.TrimSpace(q.Search),
		SortBy:     q.SortBy,
	}

	var err error
	if filter.MinPrice, err = parseOptionalFloat(q.MinPrice); err != nil {
		return models.ProductFilter{}, apperrors.BadRequest("Invalid minPrice value")
	}
	if filter.MaxPrice, err = parseOptionalFloat(q.MaxPrice); err != nil {
		return models.ProductFilter{}, apperrors.BadRequest("Invalid maxPrice value")
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return models.ProductFilter{}, apperrors.BadRequest("minPrice must be less than or equal to maxPrice")
	}

	if q.Limit != "" {
		limit, _ := strconv.ParseInt(q.Limit, 10, 64)
		if limit > MaxProductPageSize {
			limit = MaxProductPageSize
		}
		if limit > 0 {
			filter.Limit = limit
		}
	}
	if q.Page != "" {
		page, _ := strconv.ParseInt(q.Page, 10, 64)
		if page > 1 {
			filter.Page = page
		}
	}
	return filter, nil
}

// ParsePagination reads page and limit for order listings. Bad or missing
// values fall back to the defaults and limit is capped.
func (rv *RequestValidator) ParsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return services.NormalizePage(page, limit)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseOptionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// bindJSON binds the body and turns binding failures into a 400 whose message
// names the first offending field.
func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperrors.BadRequest(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	field := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please enter a valid email address"
	case "specialchar":
		return field + " must contain at least one special character"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// fieldLabel turns a struct field name into the label used in messages.
func fieldLabel(name string) string {
	switch name {
	case "":
		return "Field"
	case "ProductID":
		return "Product id"
	case "GuestID":
		return "Guest id"
	case "SKU":
		return "SKU"
	}
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
