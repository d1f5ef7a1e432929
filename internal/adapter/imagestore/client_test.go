package imagestore_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/neomorfeo/roomlist/internal/adapter/imagestore"
	"github.com/neomorfeo/roomlist/internal/domain"
)

func TestUpload_ReturnsURL(t *testing.T) {
	var (
		gotPath, gotAuth, gotName string
		gotData                   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotData, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.test/owner-1/room.jpg"})
	}))
	defer srv.Close()

	c := imagestore.New(srv.URL+"/", "tok")
	ref, err := c.Upload(context.Background(), "owner-1", domain.ImageUpload{
		Filename:    "room.jpg",
		ContentType: "image/jpeg",
		Data:        []byte{0xff, 0xd8, 0xff},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if ref != "https://cdn.example.test/owner-1/room.jpg" {
		t.Errorf("ref = %q", ref)
	}
	if gotPath != "/owners/owner-1/images" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotName != "room.jpg" || len(gotData) != 3 {
		t.Errorf("file = %q (%d bytes)", gotName, len(gotData))
	}
}

func TestUpload_RejectsNonImages(t *testing.T) {
	c := imagestore.New("http://127.0.0.1:1", "")

	_, err := c.Upload(context.Background(), "owner-1", domain.ImageUpload{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("hi"),
	})
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpload_StoreErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	_, err := imagestore.New(srv.URL, "").Upload(context.Background(), "owner-1", domain.ImageUpload{
		Filename:    "room.png",
		ContentType: "image/png",
		Data:        []byte{1},
	})
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestUpload_DroppedConnectionIsNotResentEmpty(t *testing.T) {
	var (
		mu    sync.Mutex
		sizes []int
	)
	seen := func() []int {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(sizes)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := -1
		if file, _, err := r.FormFile("file"); err == nil {
			data, _ := io.ReadAll(file)
			file.Close()
			n = len(data)
		}
		mu.Lock()
		sizes = append(sizes, n)
		first := len(sizes) == 1
		mu.Unlock()
		if first {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.test/owner-1/room.jpg"})
	}))
	defer srv.Close()

	c := imagestore.New(srv.URL, "")
	img := domain.ImageUpload{Filename: "room.jpg", ContentType: "image/jpeg", Data: []byte("hello")}

	_, err := c.Upload(context.Background(), "owner-1", img)
	var upErr *domain.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if got := seen(); len(got) != 1 {
		t.Fatalf("store saw %d requests, want 1: %v", len(got), got)
	}

	if _, err := c.Upload(context.Background(), "owner-1", img); err != nil {
		t.Fatalf("second Upload failed: %v", err)
	}
	for i, n := range seen() {
		if n != len(img.Data) {
			t.Errorf("request %d carried %d bytes, want %d", i, n, len(img.Data))
		}
	}
}
