package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/campus-canteen/internal/middleware"
	"github.com/mmeshcher/campus-canteen/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса столовой.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.GzipMiddleware)
	if h.apiLimiter != nil {
		r.Use(h.apiLimiter)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)

		r.Get("/menu", h.GetMenu)
		r.Get("/vendors", h.ListVendors)
		r.Get("/vendor/{id}/upi", h.GetVendorUPI)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders", h.GetOrders)

			r.Post("/payment/create-order", h.CreatePaymentOrder)
			r.Post("/payment/verify", h.VerifyPayment)

			r.Get("/notifications", h.GetNotifications)
			r.Patch("/notifications/mark-all-read", h.MarkAllNotificationsRead)
			r.Get("/notifications/unread-count", h.UnreadCount)
			r.Patch("/notifications/{id}/read", h.MarkNotificationRead)

			r.Get("/wallet", h.GetWallet)
			r.Post("/wallet/add", h.TopUpWallet)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(model.RoleVendor))

				r.Get("/menu/vendor", h.GetVendorMenu)
				r.Post("/menu", h.AddMenuItem)
				r.Patch("/menu/{id}", h.UpdateMenuItem)
				r.Patch("/menu/{id}/availability", h.SetAvailability)
				r.Delete("/menu/{id}", h.DeleteMenuItem)

				r.Get("/orders/vendor", h.GetVendorOrders)
				r.Patch("/orders/{id}/status", h.SetOrderStatus)

				r.Get("/vendor/wallet", h.GetVendorWallet)
				r.Patch("/vendor/status", h.SetVendorOnline)
				r.Patch("/vendor/upi", h.SetVendorUPI)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "")
	})

	return r
}
