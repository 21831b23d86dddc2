package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mediabridge/internal/apperr"
	"github.com/starford/mediabridge/internal/gallery"
)

// MediaHandler serves published media.
type MediaHandler struct {
	gallery *gallery.Service
}

// NewMediaHandler creates a handler reading from g.
func NewMediaHandler(g *gallery.Service) *MediaHandler {
	return &MediaHandler{gallery: g}
}

// List handles GET /api/media.
//
//	@Summary		List visible media, newest first
//	@Tags			media
//	@Produce		json
//	@Param			name	query		string	false	"Exact display name"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	MediaListResponse
//	@Security		BearerAuth
//	@Router			/media [get]
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, err := h.gallery.ListMedia(r.Context(), gallery.ListOptions{
		Name:   q.Get("name"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		slog.Error("list media failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, MediaListResponse{Media: items})
}

// Get handles GET /api/media/{id}.
//
//	@Summary		Describe one media item
//	@Tags			media
//	@Produce		json
//	@Param			id	path		string	true	"Media ID"
//	@Success		200	{object}	MediaItem
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/media/{id} [get]
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.gallery.GetMedia(r.Context(), id)
	if err != nil {
		h.fail(w, "get media", id, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Content handles GET /api/media/{id}/content. Range requests are supported.
//
//	@Summary		Download media bytes
//	@Tags			media
//	@Produce		octet-stream
//	@Param			id	path	string	true	"Media ID"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/media/{id}/content [get]
func (h *MediaHandler) Content(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rc, item, err := h.gallery.OpenContent(r.Context(), id)
	if err != nil {
		h.fail(w, "open media", id, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", item.MimeType)
	w.Header().Set("ETag", `"`+item.Checksum+`"`)
	http.ServeContent(w, r, path.Base(item.Path), item.CreatedAt, rc)
}

// Delete handles DELETE /api/media/{id}.
//
//	@Summary		Delete a media item and its file
//	@Tags			media
//	@Param			id	path	string	true	"Media ID"
//	@Success		204	"Media deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/media/{id} [delete]
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.gallery.DeleteMedia(r.Context(), id); err != nil {
		h.fail(w, "delete media", id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MediaHandler) fail(w http.ResponseWriter, op, id string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error(op+" failed", slog.String("id", id), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
