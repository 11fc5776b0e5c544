package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shivamdarekar/TrendsWave/controllers"
	"github.com/shivamdarekar/TrendsWave/middleware"
)

// Controllers bundles every handler set the API serves.
type Controllers struct {
	Auth        *controllers.AuthController
	Users       *controllers.UserController
	Products    *controllers.ProductController
	Cart        *controllers.CartController
	Checkout    *controllers.CheckoutController
	Payment     *controllers.PaymentController
	Orders      *controllers.OrderController
	Subscribers *controllers.SubscriberController
	Uploads     *controllers.UploadController
}

// Limits are the per-IP limiters for the whole API and the auth endpoints.
type Limits struct {
	API  *middleware.RateLimiter
	Auth *middleware.RateLimiter
}

// RegisterAPIRoutes mounts everything under /api.
func RegisterAPIRoutes(r *gin.Engine, auth middleware.Authenticator, limits Limits, ctrl Controllers) {
	protect := middleware.Protect(auth)
	admin := middleware.AdminOnly()
	authLimit := middleware.RateLimit(limits.Auth, middleware.AuthRateLimitMessage)

	// Gateway deliveries come from a few shared IPs and are signed, so they
	// stay outside the per-IP API limiter.
	r.POST("/api/payment/webhook", ctrl.Payment.Webhook)

	api := r.Group("/api", middleware.RateLimit(limits.API, middleware.APIRateLimitMessage))

	users := api.Group("/users")
	{
		users.POST("/register", authLimit, ctrl.Auth.Register)
		users.POST("/login", authLimit, ctrl.Auth.Login)
		users.GET("/profile", protect, ctrl.Auth.Profile)
	}

	authRoutes := api.Group("/auth", authLimit)
	{
		authRoutes.GET("/me", protect, ctrl.Auth.Me)
		authRoutes.POST("/refresh", ctrl.Auth.Refresh)
		authRoutes.POST("/logout", protect, ctrl.Auth.Logout)
		authRoutes.GET("/google", ctrl.Auth.GoogleLogin)
		authRoutes.GET("/google/callback", ctrl.Auth.GoogleCallback)
	}

	products := api.Group("/products")
	{
		products.GET("", ctrl.Products.GetProducts)
		products.GET("/best-seller", ctrl.Products.BestSeller)
		products.GET("/new-arrivals", ctrl.Products.NewArrivals)
		products.GET("/similar/:id", ctrl.Products.Similar)
		products.GET("/:id", ctrl.Products.GetProduct)
		products.POST("", protect, admin, ctrl.Products.CreateProduct)
		products.PUT("/:id", protect, admin, ctrl.Products.UpdateProduct)
		products.DELETE("/:id", protect, admin, ctrl.Products.DeleteProduct)
	}

	cart := api.Group("/cart")
	{
		optional := middleware.OptionalAuth(auth)
		cart.POST("", optional, ctrl.Cart.AddItem)
		cart.PUT("", optional, ctrl.Cart.UpdateItem)
		cart.DELETE("", optional, ctrl.Cart.RemoveItem)
		cart.GET("", optional, ctrl.Cart.GetCart)
		cart.POST("/merge", protect, ctrl.Cart.MergeCart)
	}

	checkout := api.Group("/checkout", protect)
	{
		checkout.POST("", ctrl.Checkout.CreateCheckout)
		checkout.PUT("/:id/pay", ctrl.Checkout.PayCheckout)
		checkout.POST("/:id/finalize", ctrl.Checkout.FinalizeCheckout)
	}

	payment := api.Group("/payment")
	{
		payment.POST("/order", protect, ctrl.Payment.CreateOrder)
		payment.POST("/verify", protect, ctrl.Payment.Verify)
	}

	orders := api.Group("/orders", protect)
	{
		orders.GET("/my-orders", ctrl.Orders.MyOrders)
		orders.GET("/:id", ctrl.Orders.GetOrder)
	}

	api.POST("/subscribe", ctrl.Subscribers.Subscribe)

	upload := api.Group("/upload", protect, admin)
	{
		upload.POST("", ctrl.Uploads.Upload)
		upload.POST("/:productId", ctrl.Uploads.UploadToProduct)
		upload.DELETE("/:productId", ctrl.Uploads.DeleteProductImage)
	}

	adminRoutes := api.Group("/admin", protect, admin)
	{
		adminRoutes.GET("/users", ctrl.Users.List)
		adminRoutes.POST("/users", ctrl.Users.Create)
		adminRoutes.PUT("/users/:id", ctrl.Users.Update)
		adminRoutes.DELETE("/users/:id", ctrl.Users.Delete)

		adminRoutes.GET("/products", ctrl.Products.AdminList)

		adminRoutes.GET("/orders", ctrl.Orders.AllOrders)
		adminRoutes.PUT("/orders/:id", ctrl.Orders.UpdateStatus)
		adminRoutes.DELETE("/orders/:id", ctrl.Orders.DeleteOrder)
	}
}
