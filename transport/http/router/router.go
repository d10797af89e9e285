package router

import (
	"github.com/go-chi/chi/v5"

	"nivaas/internal/handlers/booking"
	"nivaas/internal/handlers/payment"
	"nivaas/internal/handlers/whatsapp"
)

type DomainHandlers struct {
	Booking  booking.Handler
	Payment  payment.Handler
	WhatsApp whatsapp.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Payment.Router(routerGroup)
		r.DomainHandlers.WhatsApp.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}
