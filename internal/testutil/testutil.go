// Package testutil provides shared test helpers for setting up catalogs.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/mediabridge/internal/catalog"
)

// TestCatalog creates a catalog backed by a temporary SQLite file and media
// root, both cleaned up with the test.
func TestCatalog(t *testing.T, opts ...catalog.Option) *catalog.Catalog {
	t.Helper()
	dbFile, err := os.CreateTemp("", "mediabridge-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	c, err := catalog.Open(dbFile.Name(), t.TempDir(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
