package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/starford/mediabridge/internal/bridge"
)

// Handler answers method calls. *bridge.Dispatcher implements it.
type Handler interface {
	Dispatch(ctx context.Context, call bridge.MethodCall) bridge.Result
}

// Server reads calls from one stream and writes replies to another.
type Server struct {
	name    string
	handler Handler
	logger  *slog.Logger
}

// NewServer creates a server answering calls addressed to the channel name.
func NewServer(name string, handler Handler, logger *slog.Logger) *Server {
	return &Server{name: name, handler: handler, logger: logger}
}

// Serve handles calls until r reaches EOF, a fatal frame error occurs or ctx
// is cancelled. Each call runs to completion before the next frame is read.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	frames := NewFrameReader(r)
	out := NewFrameWriter(w)

	s.logger.Info("channel: serving", slog.String("channel", s.name))

	for {
		if ctx.Err() != nil {
			return nil
		}

		payload, err := frames.ReadFrame()
		if errors.Is(err, io.EOF) {
			s.logger.Info("channel: peer closed stream")
			return nil
		}
		if err != nil {
			return fmt.Errorf("channel: %w", err)
		}

		var reply *Reply
		call, err := DecodeCall(payload)
		if err != nil {
			s.logger.Warn("channel: malformed call", slog.String("error", err.Error()))
			reply = &Reply{Status: StatusError, Error: &ErrorBody{Code: CodeMalformedCall, Message: err.Error()}}
		} else {
			reply = s.handle(ctx, call)
		}

		data, err := msgpack.Marshal(reply)
		if err != nil {
			return fmt.Errorf("channel: encode reply: %w", err)
		}
		if err := out.WriteFrame(data); err != nil {
			return err
		}
	}
}

func (s *Server) handle(ctx context.Context, call *Call) *Reply {
	if call.Channel != s.name {
		s.logger.Debug("channel: call for unknown channel",
			slog.String("channel", call.Channel),
			slog.String("method", call.Method))
		return &Reply{ID: call.ID, Status: StatusNotImplemented}
	}
	args, isMap := call.Args.(map[string]any)
	if !isMap && call.Args != nil && call.Method == bridge.MethodSaveImage {
		return ReplyFor(call.ID, bridge.Failure(bridge.CodeInvalidArguments,
			fmt.Sprintf("arguments must be a map, got %T", call.Args), nil))
	}
	res := s.handler.Dispatch(ctx, bridge.MethodCall{Method: call.Method, Args: args})
	return ReplyFor(call.ID, res)
}
