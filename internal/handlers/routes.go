package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/routing"
)

// Tables registers every page on its route table
func Tables(auth *AuthHandler, events *EventsHandler, customer *CustomerHandler, caterer *CatererHandler) routing.Tables {
	return routing.Tables{
		Shared: func(r chi.Router) {
			r.Get(routing.PathLanding, auth.Landing)
			r.Get(routing.PathLogin, auth.ShowLogin)
			r.Post(routing.PathLogin, auth.Login)
			r.Get(routing.PathRegister, auth.ShowRegister)
			r.Post(routing.PathRegister, auth.Register)
			r.Post(routing.PathDialog, auth.Choose)
			r.Post(routing.PathLogout, auth.Logout)
			r.Post(routing.PathRefresh, auth.Refresh)
			r.Get(routing.PathEvents, events.ServeHTTP)
		},
		Customer: func(r chi.Router) {
			r.Get(routing.PathCustomerHome, customer.Home)

			r.Route(routing.PathCatererDetail, func(r chi.Router) {
				r.Get("/", customer.CatererDetail)
				r.Post("/cart", customer.AddToCart)
				r.Put("/cart/{itemID}", customer.SetCartQuantity)
				r.Delete("/cart/{itemID}", customer.RemoveFromCart)
				r.Post("/checkout", customer.ProceedToCheckout)
			})

			r.Route(routing.PathCheckout, func(r chi.Router) {
				r.Get("/", customer.Checkout)
				r.Post("/", customer.PlaceOrder)
				r.Put("/items/{itemID}", customer.SetCheckoutQuantity)
				r.Delete("/items/{itemID}", customer.RemoveFromCheckout)
			})

			r.Get(routing.PathOrderHistory, customer.OrderHistory)
			r.Post(routing.PathOrderHistory+"/{orderID}/cancel", customer.CancelOrder)
		},
		Caterer: func(r chi.Router) {
			r.Get(routing.PathDashboard, caterer.Dashboard)

			r.Route(routing.PathProfile, func(r chi.Router) {
				r.Get("/", caterer.Profile)
				r.Put("/", caterer.SaveProfile)
				r.Post("/menu", caterer.AddMenuItem)
				r.Put("/menu/{itemID}", caterer.UpdateMenuItem)
				r.Delete("/menu/{itemID}", caterer.DeleteMenuItem)
			})

			r.Route(routing.PathCatererOrders, func(r chi.Router) {
				r.Get("/", caterer.Orders)
				r.Post("/{orderID}/status", caterer.UpdateOrderStatus)
			})
		},
	}
}

// Fallbacks returns the catch-all views
func Fallbacks(log *slog.Logger) routing.Fallbacks {
	return routing.Fallbacks{
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteView(w, http.StatusNotFound, Envelope{View: "not_found", Notice: failed("Page not found")}, log)
		}),
		Unauthenticated: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteView(w, http.StatusUnauthorized, Envelope{
				View:     "unauthenticated",
				Redirect: routing.PathLogin,
				Notice:   failed("Please log in to continue"),
			}, log)
		}),
		Pending: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			WriteView(w, http.StatusServiceUnavailable, Envelope{View: "loading", Notice: info("Checking your session")}, log)
		}),
	}
}
