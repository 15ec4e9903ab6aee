package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tuitron-api/internal/handler"
)

type handlers struct {
	accounts     *handler.AccountHandler
	tuitions     *handler.TuitionHandler
	tutors       *handler.TutorHandler
	applications *handler.ApplicationHandler
	payments     *handler.PaymentHandler
}

func registerRoutes(api *gin.RouterGroup, auth gin.HandlerFunc, h handlers) {
	api.GET("/tuitions", h.tuitions.List)
	api.GET("/latest-tuitions", h.tuitions.Latest)
	api.GET("/tuitions/:id", h.tuitions.Get)
	api.GET("/tutors", h.tutors.List)
	api.GET("/latest-tutors", h.tutors.Latest)
	api.GET("/tutors/:id", h.tutors.Get)
	api.PATCH("/payment-success", h.payments.Reconcile)

	secured := api.Group("", auth)

	users := secured.Group("/users")
	users.POST("", h.accounts.Register)
	users.GET("", h.accounts.List)
	users.GET("/me", h.accounts.Me)
	users.PATCH("/me", h.accounts.UpdateMe)
	users.GET("/:email/role", h.accounts.Role)
	users.PATCH("/:id/role", h.accounts.ChangeRole)
	users.DELETE("/:id", h.accounts.Delete)

	secured.POST("/tuitions", h.tuitions.Create)
	secured.PUT("/tuitions/:id", h.tuitions.Update)
	secured.PATCH("/tuitions/:id/status", h.tuitions.SetStatus)
	secured.DELETE("/tuitions/:id", h.tuitions.Delete)
	secured.GET("/tuitions/:id/applications", h.applications.ForTuition)

	secured.POST("/tutors", h.tutors.Register)
	secured.PATCH("/tutors/:id", h.tutors.Update)
	secured.PATCH("/tutors/:id/status", h.tutors.SetStatus)
	secured.DELETE("/tutors/:id", h.tutors.Delete)

	secured.POST("/applications", h.applications.Apply)
	secured.GET("/applications", h.applications.List)
	secured.GET("/applications/my", h.applications.Mine)
	secured.PATCH("/applications/:id", h.applications.SetStatus)

	secured.POST("/create-checkout-session", h.payments.Checkout)
	secured.GET("/payments", h.payments.List)
	secured.GET("/payments/export", h.payments.Export)
	secured.GET("/payments/:id/receipt", h.payments.Receipt)
}
