package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notegraph/internal/notes"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *notes.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/collections", h.ListCollections)
	r.Post("/collections", h.CreateCollection)
	r.Get("/collections/{id}/documents", h.ListDocuments)
	r.Post("/collections/{id}/documents", h.CreateDocument)
	r.Get("/collections/{id}/broken-links", h.BrokenLinks)

	r.Get("/documents/{id}", h.GetDocument)
	r.Put("/documents/{id}", h.UpdateDocument)
	r.Delete("/documents/{id}", h.DeleteDocument)
	r.Post("/documents/{id}/rename", h.RenameDocument)
	r.Get("/documents/{id}/backlinks", h.Backlinks)

	r.Post("/links", h.Connect)
	r.Delete("/links", h.Disconnect)

	r.Get("/graph", h.Graph)
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
