package bridge

import (
	"context"
	"log/slog"
)

// MethodCall is a named operation with an argument dictionary.
type MethodCall struct {
	Method string
	Args   map[string]any
}

// Implements reports whether method names an operation the bridge answers.
// Transports use it to route a call before decoding its arguments.
func Implements(method string) bool {
	return method == MethodSaveImage || method == MethodScanFile
}

// Dispatcher routes method calls to a MediaPersistence implementation.
// Transports hold one Dispatcher and call Dispatch once per request.
type Dispatcher struct {
	target MediaPersistence
	logger *slog.Logger
}

// NewDispatcher creates a dispatcher for target.
func NewDispatcher(target MediaPersistence, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{target: target, logger: logger}
}

// Dispatch runs call to completion and returns exactly one Result.
func (d *Dispatcher) Dispatch(ctx context.Context, call MethodCall) Result {
	switch call.Method {
	case MethodSaveImage:
		req, err := DecodeSaveRequest(call.Args)
		if err != nil {
			d.logger.Warn("dispatch: invalid arguments",
				slog.String("method", call.Method),
				slog.String("error", err.Error()))
			return Failure(CodeInvalidArguments, err.Error(), nil)
		}
		ok, err := d.target.SaveImage(ctx, req)
		if err != nil {
			d.logger.Error("dispatch: save failed", slog.String("error", err.Error()))
			return Failure(CodeWriteFailed, err.Error(), nil)
		}
		return Success(ok)

	case MethodScanFile:
		ok, err := d.target.ScanFile(ctx, ScanRequest{Args: call.Args})
		if err != nil {
			d.logger.Error("dispatch: scan failed", slog.String("error", err.Error()))
			return Failure(CodeScanFailed, err.Error(), nil)
		}
		return Success(ok)

	default:
		d.logger.Debug("dispatch: method not implemented", slog.String("method", call.Method))
		return NotImplemented()
	}
}
