package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestParseFeed(t *testing.T) {
	for _, f := range All {
		got, err := ParseFeed(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFeed(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFeed("orders"); err == nil {
		t.Error("expected error for unknown feed")
	}
	if !Tasks.Primary() || Consultants.Primary() {
		t.Error("only the tasks feed is primary")
	}
}

func TestHTTPSource_URL(t *testing.T) {
	s := NewHTTPSource(DefaultConfig(), nil)

	tasksURL, err := s.URL(Tasks)
	if err != nil {
		t.Fatalf("URL(Tasks) failed: %v", err)
	}
	u, _ := url.Parse(tasksURL)
	if u.Query().Get("output") != "csv" || u.Query().Has("gid") {
		t.Errorf("tasks URL should select the base resource as csv, got %s", tasksURL)
	}

	skuURL, err := s.URL(SkuMap)
	if err != nil {
		t.Fatalf("URL(SkuMap) failed: %v", err)
	}
	u, _ = url.Parse(skuURL)
	q := u.Query()
	if q.Get("gid") != "52566647" || q.Get("single") != "true" || q.Get("output") != "csv" {
		t.Errorf("unexpected sku map URL %s", skuURL)
	}
	if !strings.HasPrefix(skuURL, DefaultBaseURL+"?") {
		t.Errorf("URL should hang off the base resource, got %s", skuURL)
	}
}

func TestHTTPSource_Open(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		switch r.URL.Query().Get("gid") {
		case "":
			io.WriteString(w, "h\nrow\n")
		case "404":
			http.NotFound(w, r)
		default:
			io.WriteString(w, "other")
		}
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL + "/pub"
	cfg.Gids = map[Feed]string{NonBuyers: "404", SkuMap: "7"}
	cfg.UserAgent = "palmtask-test"
	s := NewHTTPSource(cfg, nil)
	ctx := context.Background()

	body, err := s.Open(ctx, Tasks)
	if err != nil {
		t.Fatalf("Open(Tasks) failed: %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "h\nrow\n" {
		t.Errorf("body = %q", data)
	}
	if gotUA != "palmtask-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}

	_, err = s.Open(ctx, NonBuyers)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Feed != NonBuyers || se.Code != http.StatusNotFound {
		t.Errorf("unexpected status error: %+v", se)
	}
}

func TestHTTPSource_OpenTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = base
	_, err := NewHTTPSource(cfg, nil).Open(context.Background(), Tasks)
	if err == nil {
		t.Fatal("expected transport error")
	}
	var se *StatusError
	if errors.As(err, &se) {
		t.Errorf("transport failure should not be a StatusError: %v", err)
	}
}

func TestHTTPSource_Available(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ReachabilityTimeout = time.Second
	s := NewHTTPSource(cfg, nil)

	if err := s.Available(context.Background()); err != nil {
		t.Errorf("Available() with server up: %v", err)
	}
	srv.Close()
	if err := s.Available(context.Background()); err == nil {
		t.Error("Available() with server down should fail")
	}

	cfg.BaseURL = "not a url"
	if err := NewHTTPSource(cfg, nil).Available(context.Background()); err == nil {
		t.Error("Available() without host should fail")
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tasks.csv"), []byte("a,b\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewDirSource(dir)
	ctx := context.Background()

	if err := s.Available(ctx); err != nil {
		t.Fatalf("Available() failed: %v", err)
	}
	body, err := s.Open(ctx, Tasks)
	if err != nil {
		t.Fatalf("Open(Tasks) failed: %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "a,b\n" {
		t.Errorf("body = %q", data)
	}

	_, err = s.Open(ctx, Consultants)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("missing export should be a 404 StatusError, got %v", err)
	}

	if err := NewDirSource(filepath.Join(dir, "missing")).Available(ctx); err == nil {
		t.Error("Available() on a missing directory should fail")
	}
}

func TestHTTPAssets_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte{0xff, 0xd8, 0xff})
		case "/sniffed":
			w.Header()["Content-Type"] = nil
			w.Write(pngHeader)
		case "/empty":
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	defer srv.Close()

	a := NewHTTPAssets(srv.Client(), "")
	ctx := context.Background()

	got, err := a.Fetch(ctx, srv.URL+"/typed.jpg")
	if err != nil {
		t.Fatalf("Fetch(typed) failed: %v", err)
	}
	if got != "data:image/jpeg;base64,/9j/" {
		t.Errorf("Fetch(typed) = %q", got)
	}

	got, err = a.Fetch(ctx, srv.URL+"/sniffed")
	if err != nil {
		t.Fatalf("Fetch(sniffed) failed: %v", err)
	}
	if !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("Fetch(sniffed) = %q", got)
	}

	if _, err := a.Fetch(ctx, srv.URL+"/missing"); err == nil {
		t.Error("expected error for non-2xx asset")
	}
	if _, err := a.Fetch(ctx, srv.URL+"/empty"); err == nil {
		t.Error("expected error for empty asset")
	}
}

func TestDataURL(t *testing.T) {
	tests := []struct {
		contentType string
		data        []byte
		want        string
	}{
		{"image/png", []byte("x"), "data:image/png;base64,eA=="},
		{"image/svg+xml; charset=utf-8", []byte("x"), "data:image/svg+xml;base64,eA=="},
		{"", []byte("hello"), "data:text/plain;base64,aGVsbG8="},
	}
	for _, tt := range tests {
		if got := DataURL(tt.contentType, tt.data); got != tt.want {
			t.Errorf("DataURL(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
