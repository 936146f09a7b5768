package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/lexledger/internal/http/attachment"
	"github.com/MrJamesThe3rd/lexledger/internal/http/expense"
	"github.com/MrJamesThe3rd/lexledger/internal/http/importcsv"
	"github.com/MrJamesThe3rd/lexledger/internal/http/respond"
	"github.com/MrJamesThe3rd/lexledger/internal/http/tag"
	"github.com/MrJamesThe3rd/lexledger/internal/tenant"
)

// CallerResolver identifies the tenant and user behind a request.
type CallerResolver interface {
	ResolveRequest(r *http.Request) (tenant.Caller, error)
}

// Authenticate resolves the caller once per request and stores it on the
// context for the handlers to pass on explicitly.
func Authenticate(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := resolver.ResolveRequest(r)
			if err != nil {
				slog.Warn("rejected request", "path", r.URL.Path, "error", err)
				respond.Error(w, r, err)

				return
			}

			next.ServeHTTP(w, r.WithContext(tenant.NewContext(r.Context(), caller)))
		})
	}
}

type Options struct {
	AllowedOrigins []string
}

func New(
	resolver CallerResolver,
	opts Options,
	expensesV1 *expense.Handler,
	tagsV1 *tag.Handler,
	attachmentsV1 *attachment.Handler,
	importV1 *importcsv.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(resolver))

		r.Route("/expenses", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			expensesV1.Routes(r)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			tagsV1.Routes(r)
		})

		r.Route("/attachments", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			attachmentsV1.Routes(r)
		})

		r.Route("/import", importV1.Routes)
	})

	return router
}
