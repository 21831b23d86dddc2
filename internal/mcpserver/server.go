// Package mcpserver exposes the media bridge as MCP (Model Context Protocol)
// tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mediabridge/internal/bridge"
	"github.com/starford/mediabridge/internal/gallery"
)

// Server wraps the MCP server with the bridge tools.
type Server struct {
	mcp        *server.MCPServer
	dispatcher *bridge.Dispatcher
	gallery    *gallery.Service
	logger     *slog.Logger
}

// New creates an MCP server with all tools registered.
func New(d *bridge.Dispatcher, g *gallery.Service, logger *slog.Logger) *Server {
	s := &Server{dispatcher: d, gallery: g, logger: logger}

	s.mcp = server.NewMCPServer(
		"mediabridge",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("save_image",
		mcp.WithDescription("Save an image into the shared media catalog. "+
			"Returns true when the image is visible to gallery readers and false when the catalog refused it."),
		mcp.WithString("data", mcp.Required(),
			mcp.Description("Image bytes as base64 or a data:image/...;base64,... URI")),
		mcp.WithString("display_name", mcp.Required(), mcp.Description("File name shown in galleries (e.g. receipt.png)")),
		mcp.WithString("relative_path", mcp.Description("Destination folder under Pictures or DCIM (e.g. Pictures/Shop)")),
		mcp.WithString("mime_type", mcp.Description("Image MIME type; taken from the data URI or sniffed when omitted")),
	), s.saveImage)

	s.mcp.AddTool(mcp.NewTool("scan_file",
		mcp.WithDescription("Ask the catalog to rescan a file. Always succeeds."),
		mcp.WithString("path", mcp.Description("Path of the file to rescan")),
	), s.scanFile)

	s.mcp.AddTool(mcp.NewTool("list_media",
		mcp.WithDescription("List images visible in the catalog, newest first."),
		mcp.WithString("name", mcp.Description("Optional exact display name filter")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of items (default 50)")),
	), s.listMedia)

	return s
}

// Serve runs the MCP protocol over r and w until ctx is cancelled or r closes.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(io.Discard, "", 0))
	s.logger.Info("mcp: serving on stdio")
	return stdio.Listen(ctx, r, w)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) saveImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("display_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, mime, err := decodePayload(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if m := req.GetString("mime_type", ""); m != "" {
		mime = m
	}
	if mime == "" {
		mime = sniffImageType(data)
	}
	if mime == "" {
		return mcp.NewToolResultError("mime_type is required: content is not a recognised image"), nil
	}

	return s.dispatch(ctx, bridge.MethodSaveImage, map[string]any{
		"bytes":        data,
		"displayName":  name,
		"relativePath": req.GetString("relative_path", ""),
		"mimeType":     mime,
	}), nil
}

func (s *Server) scanFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.dispatch(ctx, bridge.MethodScanFile, req.GetArguments()), nil
}

func (s *Server) listMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.gallery.ListMedia(ctx, gallery.ListOptions{
		Name:  req.GetString("name", ""),
		Limit: req.GetInt("limit", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items), nil
}

// jsonResult renders v as indented JSON tool output.
func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("encode result: " + err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

// dispatch runs a bridge call and renders its result as tool output.
func (s *Server) dispatch(ctx context.Context, method string, args map[string]any) *mcp.CallToolResult {
	res := s.dispatcher.Dispatch(ctx, bridge.MethodCall{Method: method, Args: args})
	switch res.Status {
	case bridge.StatusSuccess:
		if b, ok := res.Value.(bool); ok {
			return mcp.NewToolResultText(strconv.FormatBool(b))
		}
		return mcp.NewToolResultText(fmt.Sprint(res.Value))
	case bridge.StatusNotImplemented:
		return mcp.NewToolResultError("not implemented: " + method)
	default:
		return mcp.NewToolResultError(res.Err.Error())
	}
}
