package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmaia/kakeibo/internal/http/account"
	"github.com/dmaia/kakeibo/internal/http/consistency"
	"github.com/dmaia/kakeibo/internal/http/event"
	"github.com/dmaia/kakeibo/internal/http/importcsv"
)

func New(
	accountsV1 *account.Handler,
	eventsV1 *event.Handler,
	consistencyV1 *consistency.Handler,
	importV1 *importcsv.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			accountsV1.Routes(r)
		})

		r.Route("/events", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			eventsV1.Routes(r)
		})

		r.Route("/consistency", consistencyV1.Routes)

		r.Route("/import", importV1.Routes)
	})

	return router
}
