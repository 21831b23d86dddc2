package api

import "github.com/starford/mediabridge/internal/gallery"

// ChannelResponse is returned by a successful channel call.
type ChannelResponse struct {
	Result any `json:"result"`
}

// ChannelError is returned by a channel call that failed.
type ChannelError struct {
	Error   string `json:"error" example:"missing argument \"bytes\""`
	Code    string `json:"code" example:"INVALID_ARGUMENTS"`
	Details any    `json:"details,omitempty"`
}

// MediaItem is a visible catalog entry (aliased from the gallery layer).
type MediaItem = gallery.MediaItem

// MediaListResponse wraps media listings.
type MediaListResponse struct {
	Media []MediaItem `json:"media"`
}
