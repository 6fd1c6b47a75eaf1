package worker

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net"
	nethttp "net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stonefell/slate/filesystem"
	"github.com/stonefell/slate/gen"
	"github.com/stonefell/slate/manifest"
	"github.com/stonefell/slate/static"
)

// startSite runs the full pipeline: write a www tree, generate the gz
// tree and manifest with the offline tools, load it, and serve it with
// a two-worker pool.
func startSite(t *testing.T, files map[string]string) (addr string, fsys filesystem.Filesystem) {
	t.Helper()
	dir := t.TempDir()
	fsys = filesystem.NewLocalFilesystem()
	root := filepath.Join(dir, "www")
	gzRoot := filepath.Join(dir, "wwwgz")
	gzManifestPath := filepath.Join(dir, "wwwgz.json")
	mimePath := filepath.Join(dir, "mimetypes.json")

	for name, content := range files {
		if err := fsys.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	if err := gen.PopulateGzip(fsys, root, gzRoot, gzManifestPath); err != nil {
		t.Fatal(err)
	}
	if err := fsys.WriteFile(mimePath, []byte(`{".css": "text/css", ".html": "text/html"}`)); err != nil {
		t.Fatal(err)
	}

	m, err := manifest.Load(fsys, mimePath, gzManifestPath, root, gzRoot)
	if err != nil {
		t.Fatal(err)
	}

	handler := static.NewHandler(m, fsys, testLogger())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := NewPool("", 2, handler.HandleFunc(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	pool.GracePeriod = 2 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Serve(ctx, listener) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("pool did not shut down")
		}
	})

	return listener.Addr().String(), fsys
}

func doRequest(t *testing.T, addr, raw string) *nethttp.Response {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Write([]byte(raw)); err != nil {
		t.Fatal(err)
	}

	method, _, _ := strings.Cut(raw, " ")
	req := &nethttp.Request{Method: method}
	resp, err := nethttp.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

var siteFiles = map[string]string{
	"nav.css":    strings.Repeat(".nav { display: flex; }\n", 40),
	"index.html": "<html><body>home</body></html>",
}

func TestEndToEndOriginal(t *testing.T) {
	addr, _ := startSite(t, siteFiles)

	resp := doRequest(t, addr, "GET /nav.css HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "text/css" {
		t.Errorf("expected text/css, got %q", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Content-Encoding") != "" {
		t.Errorf("unexpected Content-Encoding %q", resp.Header.Get("Content-Encoding"))
	}

	content, _ := io.ReadAll(resp.Body)
	if string(content) != siteFiles["nav.css"] {
		t.Error("body does not match the uncompressed source bytes")
	}
	if resp.Header.Get("Content-Length") != strconv.Itoa(len(siteFiles["nav.css"])) {
		t.Errorf("Content-Length %q does not match body", resp.Header.Get("Content-Length"))
	}
}

func TestEndToEndGzip(t *testing.T) {
	addr, _ := startSite(t, siteFiles)

	resp := doRequest(t, addr, "GET /nav.css HTTP/1.1\r\nHost: localhost\r\nAccept-Encoding: gzip\r\nConnection: close\r\n\r\n")
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", resp.Header.Get("Content-Encoding"))
	}
	if resp.Header.Get("Content-Type") != "text/css" {
		t.Errorf("content type must not change with encoding, got %q", resp.Header.Get("Content-Type"))
	}

	compressed, _ := io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Length") != strconv.Itoa(len(compressed)) {
		t.Errorf("Content-Length %q does not match compressed body length %d",
			resp.Header.Get("Content-Length"), len(compressed))
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatal(err)
	}
	decompressed, err := io.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if string(decompressed) != siteFiles["nav.css"] {
		t.Error("gzip body does not decompress to the source bytes")
	}
}

func TestEndToEndNotFound(t *testing.T) {
	addr, _ := startSite(t, siteFiles)

	resp := doRequest(t, addr, "GET /does-not-exist HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestEndToEndMethodNotAllowed(t *testing.T) {
	addr, _ := startSite(t, siteFiles)

	resp := doRequest(t, addr, "POST /nav.css HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	defer resp.Body.Close()

	if resp.StatusCode != 405 {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != "GET, HEAD" {
		t.Errorf("expected Allow: GET, HEAD, got %q", resp.Header.Get("Allow"))
	}
}

func TestEndToEndHead(t *testing.T) {
	addr, _ := startSite(t, siteFiles)

	resp := doRequest(t, addr, "HEAD /nav.css HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Length") != strconv.Itoa(len(siteFiles["nav.css"])) {
		t.Errorf("HEAD Content-Length mismatch: %q", resp.Header.Get("Content-Length"))
	}
	content, _ := io.ReadAll(resp.Body)
	if len(content) != 0 {
		t.Errorf("HEAD must return no body, got %d bytes", len(content))
	}
}

func TestEndToEndTrailingSlash(t *testing.T) {
	addr, _ := startSite(t, siteFiles)

	resp := doRequest(t, addr, "GET / HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("expected / to serve index.html, got %d", resp.StatusCode)
	}
	content, _ := io.ReadAll(resp.Body)
	if string(content) != siteFiles["index.html"] {
		t.Error("unexpected index body")
	}
}

func TestEndToEndConditionalGet(t *testing.T) {
	addr, _ := startSite(t, siteFiles)

	first := doRequest(t, addr, "GET /nav.css HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	io.Copy(io.Discard, first.Body)
	first.Body.Close()

	etag := first.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}

	second := doRequest(t, addr,
		"GET /nav.css HTTP/1.1\r\nHost: localhost\r\nIf-None-Match: "+etag+"\r\nConnection: close\r\n\r\n")
	defer second.Body.Close()

	if second.StatusCode != 304 {
		t.Errorf("expected 304, got %d", second.StatusCode)
	}
	if second.Header.Get("ETag") != etag {
		t.Errorf("304 must echo the ETag, got %q", second.Header.Get("ETag"))
	}
}

func TestEndToEndTraversal(t *testing.T) {
	addr, _ := startSite(t, siteFiles)

	resp := doRequest(t, addr, "GET /../wwwgz.json HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("traversal must be a 404, got %d", resp.StatusCode)
	}
}
