package mcpserver

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const maxImageSize = 16 << 20

// decodePayload accepts either a data:<mime>;base64,<data> URI or a bare
// base64 string and returns the bytes with the MIME type the URI declared,
// if any.
func decodePayload(s string) ([]byte, string, error) {
	if strings.HasPrefix(s, "data:") {
		return decodeDataURI(s)
	}
	data, err := decodeBase64(s)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}
	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, "", err
	}
	mime, _, _ := strings.Cut(strings.TrimSuffix(meta, ";base64"), ";")
	return data, mime, nil
}

func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("image too large: %d bytes (max %d)", len(data), maxImageSize)
	}
	return data, nil
}

// sniffImageType guesses an image MIME type from the leading bytes.
// It returns "" for anything that is not an image.
func sniffImageType(data []byte) string {
	detected, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return ""
}
