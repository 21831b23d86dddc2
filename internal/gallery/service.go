// Package gallery is the read side of the catalog: it lists, describes and
// serves media that has been published. Pending entries never show up here.
package gallery

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/starford/mediabridge/internal/catalog"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// MediaItem is the public representation of a visible catalog entry.
type MediaItem struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	MimeType    string    `json:"mime_type"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListOptions filters and paginates ListMedia.
type ListOptions struct {
	Name   string
	Limit  int
	Offset int
}

// Service reads published media through a catalog.Reader.
type Service struct {
	reader catalog.Reader
}

// NewService creates a gallery over reader.
func NewService(reader catalog.Reader) *Service {
	return &Service{reader: reader}
}

// ListMedia returns visible media, newest first.
func (s *Service) ListMedia(ctx context.Context, opts ListOptions) ([]MediaItem, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	offset := max(opts.Offset, 0)

	entries, err := s.reader.Query(ctx, catalog.Query{DisplayName: opts.Name, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("gallery: list: %w", err)
	}
	items := make([]MediaItem, len(entries))
	for i, e := range entries {
		items[i] = toItem(e)
	}
	return items, nil
}

// GetMedia returns one visible item. Unknown and pending handles yield
// apperr.ErrNotFound.
func (s *Service) GetMedia(ctx context.Context, id string) (*MediaItem, error) {
	e, err := s.reader.Get(ctx, catalog.Handle(id))
	if err != nil {
		return nil, err
	}
	item := toItem(*e)
	return &item, nil
}

// OpenContent opens the bytes of a visible item. The caller closes the reader.
func (s *Service) OpenContent(ctx context.Context, id string) (io.ReadSeekCloser, *MediaItem, error) {
	rc, e, err := s.reader.Open(ctx, catalog.Handle(id))
	if err != nil {
		return nil, nil, err
	}
	item := toItem(*e)
	return rc, &item, nil
}

// DeleteMedia removes a visible item and its file.
func (s *Service) DeleteMedia(ctx context.Context, id string) error {
	return s.reader.Delete(ctx, catalog.Handle(id))
}

func toItem(e catalog.Entry) MediaItem {
	return MediaItem{
		ID:          string(e.ID),
		DisplayName: e.DisplayName,
		MimeType:    e.MimeType,
		Path:        e.Path,
		Size:        e.Size,
		Checksum:    e.Checksum,
		CreatedAt:   e.CreatedAt,
	}
}
