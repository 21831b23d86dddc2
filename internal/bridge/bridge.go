// Package bridge persists image payloads into the shared media catalog on
// behalf of callers on the other side of a method channel.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/mediabridge/internal/catalog"
)

// Method names understood by the bridge.
const (
	MethodSaveImage = "saveImage"
	MethodScanFile  = "scanFile"
)

// SaveRequest is the payload of a saveImage call.
type SaveRequest struct {
	Bytes        []byte `json:"bytes"`
	DisplayName  string `json:"displayName"`
	RelativePath string `json:"relativePath"`
	MimeType     string `json:"mimeType"`
}

// ScanRequest is the payload of a scanFile call. Its arguments are not interpreted.
type ScanRequest struct {
	Args map[string]any
}

// MediaPersistence is the operation set exposed over the channel.
type MediaPersistence interface {
	SaveImage(ctx context.Context, req SaveRequest) (bool, error)
	ScanFile(ctx context.Context, req ScanRequest) (bool, error)
}

// Bridge implements MediaPersistence on top of a catalog.Resolver.
type Bridge struct {
	resolver   catalog.Resolver
	capability catalog.Capability
	logger     *slog.Logger
}

var _ MediaPersistence = (*Bridge)(nil)

// New creates a Bridge. The resolver's storage capability is read once here.
func New(resolver catalog.Resolver, logger *slog.Logger) *Bridge {
	return &Bridge{
		resolver:   resolver,
		capability: resolver.Capability(),
		logger:     logger,
	}
}

// SaveImage creates a pending catalog entry, writes req.Bytes into it and
// publishes it.
//
// It returns false with a nil error when the catalog refuses to create the
// entry. Failures after the entry exists are returned as errors and leave the
// entry pending; nothing is rolled back.
//
// A save runs to completion once started: cancellation of ctx is ignored,
// its values are kept.
func (b *Bridge) SaveImage(ctx context.Context, req SaveRequest) (bool, error) {
	ctx = context.WithoutCancel(ctx)

	values := catalog.Values{
		DisplayName: req.DisplayName,
		MimeType:    req.MimeType,
		Visibility:  catalog.Pending,
	}
	if b.capability == catalog.ScopedStorage {
		values.RelativePath = req.RelativePath
	}

	handle, err := b.resolver.Insert(ctx, values)
	if err != nil {
		b.logger.Warn("bridge: catalog refused entry",
			slog.String("display_name", req.DisplayName),
			slog.String("mime_type", req.MimeType),
			slog.String("error", err.Error()))
		return false, nil
	}

	if err := writeAll(ctx, b.resolver, handle, req.Bytes); err != nil {
		return false, fmt.Errorf("bridge: write %s: %w", handle, err)
	}

	n, err := b.resolver.Update(ctx, handle, catalog.Values{Visibility: catalog.Visible})
	if err != nil {
		return false, fmt.Errorf("bridge: publish %s: %w", handle, err)
	}
	if n == 0 {
		return false, fmt.Errorf("bridge: publish %s: entry vanished before commit", handle)
	}

	b.logger.Debug("bridge: image saved",
		slog.String("display_name", req.DisplayName),
		slog.Int("size", len(req.Bytes)))
	return true, nil
}

// ScanFile always succeeds: entries become visible when SaveImage publishes
// them, so there is nothing to rescan.
func (b *Bridge) ScanFile(_ context.Context, _ ScanRequest) (bool, error) {
	return true, nil
}

// writeAll streams data into the entry. The stream is closed on every path;
// a close error is reported when the write itself succeeded.
func writeAll(ctx context.Context, r catalog.Resolver, h catalog.Handle, data []byte) (err error) {
	w, err := r.OpenOutputStream(ctx, h)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = w.Write(data)
	return err
}
