package catalog

import (
	"context"
	"io"
	"time"
)

// Handle identifies a catalog entry. Handles are assigned by the catalog.
type Handle string

// Visibility is the pending state carried by Values.
type Visibility int

const (
	// Unchanged leaves the pending flag as it is (Update only).
	Unchanged Visibility = iota
	// Pending hides the entry from readers.
	Pending
	// Visible publishes the entry.
	Visible
)

// Values describes the columns a client supplies on insert or update.
// Empty strings mean "not supplied".
type Values struct {
	DisplayName  string
	MimeType     string
	RelativePath string
	Visibility   Visibility
}

// Entry is a catalog row.
type Entry struct {
	ID           Handle    `json:"id"`
	DisplayName  string    `json:"display_name"`
	MimeType     string    `json:"mime_type"`
	RelativePath string    `json:"relative_path"`
	Path         string    `json:"path"`
	Pending      bool      `json:"pending"`
	Size         int64     `json:"size"`
	Checksum     string    `json:"checksum"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Query filters reader listings. Zero values match everything.
type Query struct {
	DisplayName string
	Limit       int
	Offset      int
}

// EventCallback is called after an entry becomes visible ("inserted") or is
// removed ("deleted").
type EventCallback func(kind string, e Entry)

// Event kinds passed to EventCallback.
const (
	EventInserted = "inserted"
	EventDeleted  = "deleted"
)

// Resolver is the writer-side contract: reserve a pending entry, stream its
// bytes, then publish it.
type Resolver interface {
	Capability() Capability
	Insert(ctx context.Context, v Values) (Handle, error)
	OpenOutputStream(ctx context.Context, h Handle) (io.WriteCloser, error)
	Update(ctx context.Context, h Handle, v Values) (int, error)
}

// Reader is the reader-side contract. Pending entries are never returned.
type Reader interface {
	Query(ctx context.Context, q Query) ([]Entry, error)
	Get(ctx context.Context, h Handle) (*Entry, error)
	Open(ctx context.Context, h Handle) (io.ReadSeekCloser, *Entry, error)
	Delete(ctx context.Context, h Handle) error
}

// Verify *Catalog satisfies both contracts at compile time.
var (
	_ Resolver = (*Catalog)(nil)
	_ Reader   = (*Catalog)(nil)
)
