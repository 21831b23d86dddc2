package gallery

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/starford/mediabridge/internal/apperr"
	"github.com/starford/mediabridge/internal/bridge"
	"github.com/starford/mediabridge/internal/catalog"
	"github.com/starford/mediabridge/internal/testutil"
)

func setup(t *testing.T) (*Service, *catalog.Catalog, *bridge.Bridge) {
	t.Helper()
	c := testutil.TestCatalog(t)
	return NewService(c), c, bridge.New(c, testutil.Logger())
}

func saveImage(t *testing.T, b *bridge.Bridge, name string, data []byte) {
	t.Helper()
	ok, err := b.SaveImage(context.Background(), bridge.SaveRequest{
		Bytes: data, DisplayName: name, RelativePath: "Pictures/Gallery", MimeType: "image/png",
	})
	if err != nil || !ok {
		t.Fatalf("SaveImage(%s) = %v, %v", name, ok, err)
	}
}

func TestListMedia(t *testing.T) {
	svc, _, b := setup(t)
	ctx := context.Background()

	items, err := svc.ListMedia(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("empty gallery = %#v, want empty non-nil slice", items)
	}

	saveImage(t, b, "a.png", []byte("aaa"))
	saveImage(t, b, "b.png", []byte("bb"))
	saveImage(t, b, "b.png", []byte("b"))

	items, err = svc.ListMedia(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}

	items, err = svc.ListMedia(ctx, ListOptions{Name: "b.png"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items named b.png = %d, want 2", len(items))
	}
	if items[0].Path == items[1].Path {
		t.Errorf("duplicate names share path %q", items[0].Path)
	}

	items, err = svc.ListMedia(ctx, ListOptions{Limit: 1, Offset: -5})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("limited items = %d, want 1", len(items))
	}
}

func TestGetAndOpenContent(t *testing.T) {
	svc, _, b := setup(t)
	ctx := context.Background()
	saveImage(t, b, "photo.png", []byte("pixels"))

	items, err := svc.ListMedia(ctx, ListOptions{})
	if err != nil || len(items) != 1 {
		t.Fatalf("ListMedia = %v, %v", items, err)
	}
	id := items[0].ID

	item, err := svc.GetMedia(ctx, id)
	if err != nil {
		t.Fatalf("GetMedia: %v", err)
	}
	if item.DisplayName != "photo.png" || item.Size != 6 || item.Path != "Pictures/Gallery/photo.png" {
		t.Errorf("item = %+v", item)
	}

	rc, item, err := svc.OpenContent(ctx, id)
	if err != nil {
		t.Fatalf("OpenContent: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pixels" || item.MimeType != "image/png" {
		t.Errorf("content = %q, item = %+v", data, item)
	}
}

func TestPendingIsNotFound(t *testing.T) {
	svc, c, _ := setup(t)
	ctx := context.Background()
	h, err := c.Insert(ctx, catalog.Values{
		DisplayName: "hidden.png", MimeType: "image/png", RelativePath: "Pictures", Visibility: catalog.Pending,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetMedia(ctx, string(h)); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetMedia(pending) = %v, want ErrNotFound", err)
	}
	if _, _, err := svc.OpenContent(ctx, string(h)); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("OpenContent(pending) = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteMedia(ctx, string(h)); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("DeleteMedia(pending) = %v, want ErrNotFound", err)
	}
	if items, _ := svc.ListMedia(ctx, ListOptions{}); len(items) != 0 {
		t.Errorf("pending entry listed: %+v", items)
	}
}

func TestDeleteMedia(t *testing.T) {
	svc, _, b := setup(t)
	ctx := context.Background()
	saveImage(t, b, "gone.png", []byte("x"))

	items, _ := svc.ListMedia(ctx, ListOptions{})
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	if err := svc.DeleteMedia(ctx, items[0].ID); err != nil {
		t.Fatalf("DeleteMedia: %v", err)
	}
	if _, err := svc.GetMedia(ctx, items[0].ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetMedia after delete = %v", err)
	}
}
