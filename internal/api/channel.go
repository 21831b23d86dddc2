package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mediabridge/internal/bridge"
)

// maxCallBytes bounds a channel request body. Base64 inflates payloads by a third.
const maxCallBytes = 32 << 20

// ChannelHandler serves method calls over HTTP.
type ChannelHandler struct {
	dispatcher *bridge.Dispatcher
}

// NewChannelHandler creates a handler backed by d.
func NewChannelHandler(d *bridge.Dispatcher) *ChannelHandler {
	return &ChannelHandler{dispatcher: d}
}

// Invoke handles POST /api/channel/{method}.
//
// The body is a JSON object of call arguments; binary arguments are base64
// strings. An empty body is a call without arguments. Unknown methods are
// answered before the body is read, and scanFile ignores a body it cannot
// decode.
//
//	@Summary		Invoke a bridge method
//	@Tags			channel
//	@Accept			json
//	@Produce		json
//	@Param			method	path		string	true	"Method name"	Enums(saveImage, scanFile)
//	@Success		200		{object}	ChannelResponse
//	@Failure		400		{object}	ChannelError
//	@Failure		500		{object}	ChannelError
//	@Failure		501		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/channel/{method} [post]
func (h *ChannelHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")
	if !bridge.Implements(method) {
		writeJSON(w, http.StatusNotImplemented, errorBody("not implemented"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCallBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
		return
	}

	args, err := decodeArgs(body)
	if err != nil {
		if method == bridge.MethodSaveImage {
			writeJSON(w, http.StatusBadRequest, ChannelError{Error: err.Error(), Code: bridge.CodeInvalidArguments})
			return
		}
		args = nil
	}

	res := h.dispatcher.Dispatch(r.Context(), bridge.MethodCall{Method: method, Args: args})

	switch res.Status {
	case bridge.StatusSuccess:
		writeJSON(w, http.StatusOK, ChannelResponse{Result: res.Value})
	case bridge.StatusNotImplemented:
		writeJSON(w, http.StatusNotImplemented, errorBody("not implemented"))
	default:
		status := http.StatusInternalServerError
		if res.Err.Code == bridge.CodeInvalidArguments {
			status = http.StatusBadRequest
		} else {
			slog.Error("channel call failed",
				slog.String("method", method),
				slog.String("error", res.Err.Error()))
		}
		writeJSON(w, status, ChannelError{Error: res.Err.Message, Code: res.Err.Code, Details: res.Err.Details})
	}
}

// decodeArgs turns a JSON object into a call's argument dictionary.
// Values under bridge.BinaryKeys are base64-decoded into []byte.
func decodeArgs(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("body must be a JSON object: %w", err)
	}

	args := make(map[string]any, len(raw))
	for k, v := range raw {
		if slices.Contains(bridge.BinaryKeys, k) {
			b, err := decodeBinary(v)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", k, err)
			}
			if b == nil {
				args[k] = nil
			} else {
				args[k] = b
			}
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("argument %q: %w", k, err)
		}
		args[k] = val
	}
	return args, nil
}

// decodeBinary accepts a base64 string or null.
func decodeBinary(v json.RawMessage) ([]byte, error) {
	var s *string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, fmt.Errorf("want base64 string")
	}
	if s == nil {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}
