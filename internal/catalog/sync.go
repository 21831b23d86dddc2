package catalog

import (
	"context"
	"log/slog"
)

// Sync brings the catalog in line with the media root:
//   - visible entries whose file no longer exists are removed
//   - pending entries are reported but left in place; they are owned by
//     whichever writer reserved them
func Sync(ctx context.Context, c *Catalog, logger *slog.Logger) error {
	paths, err := c.visiblePaths(ctx)
	if err != nil {
		return err
	}

	for p := range paths {
		if c.blobs.exists(p) {
			continue
		}
		removed, err := c.forgetPath(ctx, p)
		if err != nil {
			logger.Warn("sync: remove failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if removed {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}

	pending, err := c.CountPending(ctx)
	if err != nil {
		return err
	}
	if pending > 0 {
		logger.Warn("sync: orphaned pending entries", slog.Int("count", pending))
	}
	return nil
}
