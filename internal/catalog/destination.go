package catalog

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mediabridge/internal/apperr"
)

// legacyDir is where entries land when the relative path hint is not honored.
const legacyDir = "Pictures"

// maxNameAttempts bounds the "name (n).ext" probing for a free file name.
const maxNameAttempts = 32

var (
	// primaryDirs are the top-level directories image entries may be placed in.
	primaryDirs = []string{"Pictures", "DCIM"}

	imageMimeRe = regexp.MustCompile(`^image/[a-z0-9][a-z0-9.+-]*$`)

	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/bmp":     ".bmp",
		"image/heic":    ".heic",
		"image/svg+xml": ".svg",
	}
)

func validateInsert(v Values) error {
	err := validation.ValidateStruct(&v,
		validation.Field(&v.DisplayName, validation.Required),
		validation.Field(&v.MimeType, validation.Required, validation.Match(imageMimeRe)),
	)
	if err != nil {
		return fmt.Errorf("catalog: invalid values: %v: %w", err, apperr.ErrRefused)
	}
	return nil
}

// destination returns the directory (relative to the media root) a new entry
// is placed in.
func (c *Catalog) destination(v Values) (string, error) {
	if c.capability == LegacyStorage || v.RelativePath == "" {
		return legacyDir, nil
	}

	hint := strings.TrimRight(v.RelativePath, "/")
	if hint == "" || path.IsAbs(hint) || strings.Contains(hint, `\`) {
		return "", refuseDestination(v.RelativePath)
	}
	segments := strings.Split(path.Clean(hint), "/")
	for _, s := range segments {
		if s == "" || s == ".." || strings.HasPrefix(s, ".") {
			return "", refuseDestination(v.RelativePath)
		}
	}

	allowed := false
	for _, p := range primaryDirs {
		if strings.EqualFold(segments[0], p) {
			segments[0] = p
			allowed = true
			break
		}
	}
	if !allowed {
		return "", refuseDestination(v.RelativePath)
	}

	dir := strings.Join(segments, "/")
	if _, err := c.blobs.safePath(dir); err != nil {
		return "", refuseDestination(v.RelativePath)
	}
	return dir, nil
}

func refuseDestination(hint string) error {
	return fmt.Errorf("catalog: invalid destination %q (allowed: %s): %w",
		hint, strings.Join(primaryDirs, ", "), apperr.ErrRefused)
}

// normalizeDisplayName rejects names that are not plain file names and
// appends an extension derived from the MIME type when the name has none.
func normalizeDisplayName(name, mimeType string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("catalog: invalid display name %q: %w", name, apperr.ErrRefused)
	}
	if path.Ext(name) == "" {
		if ext, ok := mimeToExt[mimeType]; ok {
			name += ext
		}
	}
	return name, nil
}

// candidateName returns name for n == 0 and "base (n).ext" otherwise.
func candidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := path.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}
