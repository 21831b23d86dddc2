package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/mediabridge/internal/bridge"
	"github.com/starford/mediabridge/internal/catalog"
	"github.com/starford/mediabridge/internal/gallery"
	"github.com/starford/mediabridge/internal/testutil"
)

// testEnv builds a router over a temporary catalog. An empty token disables auth.
func testEnv(t *testing.T, token string, opts ...catalog.Option) (*catalog.Catalog, http.Handler) {
	t.Helper()
	c := testutil.TestCatalog(t, opts...)
	d := bridge.NewDispatcher(bridge.New(c, testutil.Logger()), testutil.Logger())
	return c, NewRouter(d, gallery.NewService(c), token != "", token, sseStub())
}

// sseStub writes headers and blocks until the request context ends.
func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func do(router http.Handler, method, target string, body []byte, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func saveBody(t *testing.T, data []byte, name, rel string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"bytes":        base64.StdEncoding.EncodeToString(data),
		"displayName":  name,
		"relativePath": rel,
		"mimeType":     "image/png",
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func listMedia(t *testing.T, router http.Handler, query string) []MediaItem {
	t.Helper()
	w := do(router, http.MethodGet, "/media"+query, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp MediaListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Media
}

func TestSaveImageThenDownload(t *testing.T) {
	_, router := testEnv(t, "")
	data := []byte("\x89PNG fake image")

	w := do(router, http.MethodPost, "/channel/saveImage", saveBody(t, data, "shot.png", "Pictures/Shop"))
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ChannelResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Result != true {
		t.Fatalf("result = %v, want true", resp.Result)
	}

	items := listMedia(t, router, "?name=shot.png")
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Path != "Pictures/Shop/shot.png" || items[0].Size != int64(len(data)) {
		t.Errorf("item = %+v", items[0])
	}

	w = do(router, http.MethodGet, "/media/"+items[0].ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = do(router, http.MethodGet, "/media/"+items[0].ID+"/content", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("content status = %d", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), data) {
		t.Errorf("content = %q, want %q", w.Body.Bytes(), data)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestContentRange(t *testing.T) {
	_, router := testEnv(t, "")
	do(router, http.MethodPost, "/channel/saveImage", saveBody(t, []byte("0123456789"), "r.png", "Pictures"))
	items := listMedia(t, router, "")
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}

	w := do(router, http.MethodGet, "/media/"+items[0].ID+"/content", nil, "Range", "bytes=2-4")
	if w.Code != http.StatusPartialContent {
		t.Fatalf("range status = %d", w.Code)
	}
	if got := w.Body.String(); got != "234" {
		t.Errorf("range body = %q, want 234", got)
	}
}

func TestSaveImageRefusedIsFalse(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(router, http.MethodPost, "/channel/saveImage", saveBody(t, []byte("x"), "a.png", "Music"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ChannelResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Result != false {
		t.Errorf("result = %v, want false", resp.Result)
	}
	if items := listMedia(t, router, ""); len(items) != 0 {
		t.Errorf("refused save left %d entries", len(items))
	}
}

func TestSaveImageLegacyStorage(t *testing.T) {
	_, router := testEnv(t, "", catalog.WithCapability(catalog.LegacyStorage))
	w := do(router, http.MethodPost, "/channel/saveImage", saveBody(t, []byte("x"), "old.png", "Music/Ignored"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	items := listMedia(t, router, "")
	if len(items) != 1 || items[0].Path != "Pictures/old.png" {
		t.Errorf("items = %+v", items)
	}
}

func TestChannelInvalidArguments(t *testing.T) {
	_, router := testEnv(t, "")
	cases := []struct {
		name string
		body string
	}{
		{"not an object", `[1,2]`},
		{"bad base64", `{"bytes":"***","displayName":"a.png","relativePath":"Pictures","mimeType":"image/png"}`},
		{"bytes not string", `{"bytes":12,"displayName":"a.png","relativePath":"Pictures","mimeType":"image/png"}`},
		{"null bytes", `{"bytes":null,"displayName":"a.png","relativePath":"Pictures","mimeType":"image/png"}`},
		{"missing name", `{"bytes":"eA==","relativePath":"Pictures","mimeType":"image/png"}`},
		{"empty body", ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(router, http.MethodPost, "/channel/saveImage", []byte(tc.body))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
			}
			var resp ChannelError
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Code != bridge.CodeInvalidArguments {
				t.Errorf("code = %q", resp.Code)
			}
		})
	}
}

func TestChannelLegacyBinaryKey(t *testing.T) {
	_, router := testEnv(t, "")
	body := `{"_data":"cG5n","title":"legacy.png","relative_path":"DCIM/Camera","mime_type":"image/png"}`
	w := do(router, http.MethodPost, "/channel/saveImage", []byte(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	items := listMedia(t, router, "?name=legacy.png")
	if len(items) != 1 || items[0].Path != "DCIM/Camera/legacy.png" || items[0].Size != 3 {
		t.Errorf("items = %+v", items)
	}
}

func TestScanFile(t *testing.T) {
	_, router := testEnv(t, "")
	for _, body := range []string{``, `{}`, `{"path":"/sdcard/x.png"}`, `["a"]`, `{"bytes": 12}`, `not json`} {
		w := do(router, http.MethodPost, "/channel/scanFile", []byte(body))
		if w.Code != http.StatusOK {
			t.Fatalf("scanFile(%q) status = %d", body, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"result":true`) {
			t.Errorf("scanFile(%q) body = %s", body, w.Body.String())
		}
	}
}

func TestUnknownMethod(t *testing.T) {
	_, router := testEnv(t, "")
	for _, body := range []string{``, `{}`, `["a"]`, `{"bytes": 12}`, `not json`} {
		for _, method := range []string{"rotateImage", "deleteAll"} {
			w := do(router, http.MethodPost, "/channel/"+method, []byte(body))
			if w.Code != http.StatusNotImplemented {
				t.Errorf("%s(%q) status = %d, want 501, body = %s", method, body, w.Code, w.Body.String())
			}
		}
	}
}

func TestMedia_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	for _, target := range []string{"/media/nope", "/media/nope/content"} {
		if w := do(router, http.MethodGet, target, nil); w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, w.Code)
		}
	}
	if w := do(router, http.MethodDelete, "/media/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("DELETE = %d, want 404", w.Code)
	}
}

func TestMedia_PendingHidden(t *testing.T) {
	c, router := testEnv(t, "")
	h, err := c.Insert(context.Background(), catalog.Values{
		DisplayName: "wip.png", MimeType: "image/png", RelativePath: "Pictures", Visibility: catalog.Pending,
	})
	if err != nil {
		t.Fatal(err)
	}
	if w := do(router, http.MethodGet, "/media/"+string(h), nil); w.Code != http.StatusNotFound {
		t.Errorf("pending entry status = %d, want 404", w.Code)
	}
	if items := listMedia(t, router, ""); len(items) != 0 {
		t.Errorf("pending entry listed: %+v", items)
	}
}

func TestDeleteMedia(t *testing.T) {
	_, router := testEnv(t, "")
	do(router, http.MethodPost, "/channel/saveImage", saveBody(t, []byte("x"), "d.png", "Pictures"))
	items := listMedia(t, router, "")
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	if w := do(router, http.MethodDelete, "/media/"+items[0].ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if items := listMedia(t, router, ""); len(items) != 0 {
		t.Errorf("items after delete = %d", len(items))
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(router, http.MethodGet, "/media", nil, "Authorization", "Bearer secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(router, http.MethodPost, "/channel/scanFile", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	w := do(router, http.MethodGet, "/media", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnv(t, "secret")
	if w := do(router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnv(t, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
