package channel

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/starford/mediabridge/internal/bridge"
)

// Call is the wire form of a method call.
type Call struct {
	ID      uint64 `msgpack:"id"`
	Channel string `msgpack:"channel"`
	Method  string `msgpack:"method"`
	// Args is normally a map. Only saveImage rejects anything else.
	Args any `msgpack:"args"`
}

// ErrorBody is the wire form of a failed call.
type ErrorBody struct {
	Code    string `msgpack:"code"`
	Message string `msgpack:"message"`
	Details any    `msgpack:"details,omitempty"`
}

// Reply is the wire form of a call's result.
type Reply struct {
	ID     uint64     `msgpack:"id"`
	Status string     `msgpack:"status"`
	Value  any        `msgpack:"value"`
	Error  *ErrorBody `msgpack:"error,omitempty"`
}

// Status values carried by Reply.
const (
	StatusSuccess        = "success"
	StatusError          = "error"
	StatusNotImplemented = "not_implemented"
)

// CodeMalformedCall is used when a frame does not decode into a Call.
const CodeMalformedCall = "MALFORMED_CALL"

// DecodeCall decodes a payload as a Call.
func DecodeCall(payload []byte) (*Call, error) {
	var call Call
	if err := msgpack.Unmarshal(payload, &call); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode call", Err: err}
	}
	return &call, nil
}

// DecodeReply decodes a payload as a Reply.
func DecodeReply(payload []byte) (*Reply, error) {
	var reply Reply
	if err := msgpack.Unmarshal(payload, &reply); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode reply", Err: err}
	}
	return &reply, nil
}

// ReplyFor converts a dispatcher result to its wire form.
func ReplyFor(id uint64, res bridge.Result) *Reply {
	reply := &Reply{ID: id, Status: res.Status.String()}
	switch res.Status {
	case bridge.StatusSuccess:
		reply.Value = res.Value
	case bridge.StatusError:
		reply.Error = &ErrorBody{Code: res.Err.Code, Message: res.Err.Message, Details: res.Err.Details}
	}
	return reply
}
