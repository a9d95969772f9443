package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	SessionCookie string
}

func NewRouter(carts *CartHandler, orders *OrderHandler, opts RouterOptions) http.Handler {
	cookie := opts.SessionCookie
	if cookie == "" {
		cookie = "SESSION_ID"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", Health)

	r.Group(func(r chi.Router) {
		r.Use(CorrelationID)
		r.Use(Session(cookie))
		r.Use(UserEmail)

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Get("/status", carts.Status)
			r.Post("/add", carts.AddItem)
			r.Put("/update/{productId}", carts.UpdateQuantity)
			r.Delete("/remove/{productId}", carts.RemoveItem)
			r.Delete("/clear", carts.Clear)
			r.Get("/count", carts.Count)
			r.Post("/checkout", carts.Checkout)
		})

		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/validate-promo", orders.ValidatePromo)
			r.Get("/promos", orders.PromoCodes)
			r.Get("/promos/{code}", orders.PromoCode)
			r.Post("/checkout", orders.Checkout)
			r.Get("/history", orders.History)
			r.Get("/{orderId}", orders.GetByID)
		})
	})

	return r
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
