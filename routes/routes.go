package routes

import (
	"github.com/jeremysolarz/invoices-with-card-element/controllers"
	"github.com/jeremysolarz/invoices-with-card-element/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterCheckoutRoutes sets up the checkout page routes.
func RegisterCheckoutRoutes(r *gin.Engine, cc *controllers.CheckoutController, limiter *middleware.RateLimiter) {
	r.GET("/health", cc.Health)
	r.GET("/", cc.NewForm)

	forms := r.Group("/forms/:id")
	forms.GET("", cc.ShowForm)
	forms.GET("/messages", cc.Messages)
	forms.POST("/submit", middleware.RateLimit(limiter), cc.SubmitForm)
}
