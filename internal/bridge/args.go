package bridge

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Argument keys of saveImage. Each key also accepts the legacy name used by
// older callers.
var (
	keyBytes        = []string{"bytes", "_data"}
	keyDisplayName  = []string{"displayName", "title"}
	keyRelativePath = []string{"relativePath", "relative_path"}
	keyMimeType     = []string{"mimeType", "mime_type"}
)

// BinaryKeys lists the argument names whose values are raw bytes. Transports
// that cannot carry binary natively (JSON) use it to decode those fields.
var BinaryKeys = keyBytes

func lookup(args map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := args[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func stringArg(args map[string]any, keys []string) (string, error) {
	v, ok := lookup(args, keys)
	if !ok {
		return "", fmt.Errorf("missing argument %q", keys[0])
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q: want string, got %T", keys[0], v)
	}
	return s, nil
}

func bytesArg(args map[string]any, keys []string) ([]byte, error) {
	v, ok := lookup(args, keys)
	if !ok {
		return nil, fmt.Errorf("missing argument %q", keys[0])
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("argument %q: want bytes, got %T", keys[0], v)
	}
}

// DecodeSaveRequest extracts a SaveRequest from a call's argument dictionary.
func DecodeSaveRequest(args map[string]any) (SaveRequest, error) {
	var req SaveRequest
	var err error
	if req.Bytes, err = bytesArg(args, keyBytes); err != nil {
		return req, err
	}
	if req.RelativePath, err = stringArg(args, keyRelativePath); err != nil {
		return req, err
	}
	if req.DisplayName, err = stringArg(args, keyDisplayName); err != nil {
		return req, err
	}
	if req.MimeType, err = stringArg(args, keyMimeType); err != nil {
		return req, err
	}
	return req, req.Validate()
}

// Validate checks the invariants a caller must uphold.
func (r SaveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Bytes, validation.NotNil),
	)
}
