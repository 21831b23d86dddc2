package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/mediabridge/internal/bridge"
	"github.com/starford/mediabridge/internal/catalog"
	"github.com/starford/mediabridge/internal/gallery"
	"github.com/starford/mediabridge/internal/testutil"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testServer(t *testing.T) (*Server, *catalog.Catalog) {
	t.Helper()
	c := testutil.TestCatalog(t)
	logger := testutil.Logger()
	d := bridge.NewDispatcher(bridge.New(c, logger), logger)
	return New(d, gallery.NewService(c), logger), c
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var (
		result *mcp.CallToolResult
		err    error
	)
	ctx := context.Background()
	switch name {
	case "save_image":
		result, err = srv.saveImage(ctx, req)
	case "scan_file":
		result, err = srv.scanFile(ctx, req)
	case "list_media":
		result, err = srv.listMedia(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func listed(t *testing.T, srv *Server) []gallery.MediaItem {
	t.Helper()
	r := callTool(t, srv, "list_media", map[string]any{})
	if r.IsError {
		t.Fatalf("list_media: %s", resultText(r))
	}
	var items []gallery.MediaItem
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return items
}

func TestSaveImage_Base64(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "save_image", map[string]any{
		"data":          base64.StdEncoding.EncodeToString([]byte("raw bytes")),
		"display_name":  "note.png",
		"relative_path": "Pictures/Notes",
		"mime_type":     "image/png",
	})
	if r.IsError || resultText(r) != "true" {
		t.Fatalf("save_image = %q (error=%v)", resultText(r), r.IsError)
	}
	items := listed(t, srv)
	if len(items) != 1 || items[0].Path != "Pictures/Notes/note.png" || items[0].Size != 9 {
		t.Errorf("items = %+v", items)
	}
}

func TestSaveImage_DataURI(t *testing.T) {
	srv, _ := testServer(t)
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg"))
	r := callTool(t, srv, "save_image", map[string]any{
		"data":         uri,
		"display_name": "photo",
	})
	if resultText(r) != "true" {
		t.Fatalf("save_image = %q", resultText(r))
	}
	items := listed(t, srv)
	if len(items) != 1 || items[0].MimeType != "image/jpeg" || !strings.HasSuffix(items[0].Path, ".jpg") {
		t.Errorf("items = %+v", items)
	}
}

func TestSaveImage_SniffedType(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "save_image", map[string]any{
		"data":         base64.StdEncoding.EncodeToString(pngHeader),
		"display_name": "sniffed.png",
	})
	if resultText(r) != "true" {
		t.Fatalf("save_image = %q", resultText(r))
	}
	if items := listed(t, srv); len(items) != 1 || items[0].MimeType != "image/png" {
		t.Errorf("items = %+v", items)
	}
}

func TestSaveImage_UnknownTypeIsError(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "save_image", map[string]any{
		"data":         base64.StdEncoding.EncodeToString([]byte("plain text")),
		"display_name": "x",
	})
	if !r.IsError {
		t.Errorf("expected error, got %q", resultText(r))
	}
}

func TestSaveImage_RefusedIsFalse(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "save_image", map[string]any{
		"data":          base64.StdEncoding.EncodeToString([]byte("x")),
		"display_name":  "a.png",
		"relative_path": "Download",
		"mime_type":     "image/png",
	})
	if r.IsError || resultText(r) != "false" {
		t.Errorf("save_image = %q (error=%v), want false", resultText(r), r.IsError)
	}
	if items := listed(t, srv); len(items) != 0 {
		t.Errorf("refused save listed: %+v", items)
	}
}

func TestSaveImage_MissingArguments(t *testing.T) {
	srv, _ := testServer(t)
	for _, args := range []map[string]any{
		{"display_name": "a.png"},
		{"data": "eA=="},
		{"data": "%%%", "display_name": "a.png", "mime_type": "image/png"},
	} {
		if r := callTool(t, srv, "save_image", args); !r.IsError {
			t.Errorf("args %v: expected error, got %q", args, resultText(r))
		}
	}
}

func TestScanFile(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "scan_file", map[string]any{"path": "/sdcard/Pictures/x.png"})
	if r.IsError || resultText(r) != "true" {
		t.Errorf("scan_file = %q", resultText(r))
	}
}

func TestJSONResult(t *testing.T) {
	r := jsonResult([]string{"a"})
	if r.IsError || !strings.Contains(resultText(r), `"a"`) {
		t.Errorf("jsonResult = %q", resultText(r))
	}

	r = jsonResult(map[string]any{"c": make(chan int)})
	if !r.IsError || !strings.HasPrefix(resultText(r), "encode result:") {
		t.Errorf("unencodable value: IsError = %v, text = %q", r.IsError, resultText(r))
	}
}

func TestToolsRegistered(t *testing.T) {
	srv, _ := testServer(t)
	tools := srv.MCPServer().ListTools()
	for _, name := range []string{"save_image", "scan_file", "list_media"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestDecodePayload(t *testing.T) {
	cases := []struct {
		in       string
		wantData string
		wantMime string
		wantErr  bool
	}{
		{in: "aGVsbG8=", wantData: "hello"},
		{in: "aGVsbG8", wantData: "hello"},
		{in: "data:image/webp;base64,aGk=", wantData: "hi", wantMime: "image/webp"},
		{in: "data:image/png,plain", wantErr: true},
		{in: "data:image/png;base64", wantErr: true},
		{in: "!!", wantErr: true},
	}
	for _, tc := range cases {
		data, mime, err := decodePayload(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("decodePayload(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || string(data) != tc.wantData || mime != tc.wantMime {
			t.Errorf("decodePayload(%q) = %q, %q, %v", tc.in, data, mime, err)
		}
	}
}
