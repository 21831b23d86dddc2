package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mediabridge/internal/bridge"
	"github.com/starford/mediabridge/internal/gallery"
)

// NewRouter creates a chi router with the channel and gallery routes.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(d *bridge.Dispatcher, g *gallery.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	ch := NewChannelHandler(d)
	mh := NewMediaHandler(g)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/channel/{method}", ch.Invoke)

	r.Get("/media", mh.List)
	r.Get("/media/{id}", mh.Get)
	r.Get("/media/{id}/content", mh.Content)
	r.Delete("/media/{id}", mh.Delete)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
