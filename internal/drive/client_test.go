package drive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wipash/northgrove-timelapse/internal/services"
)

func TestListPartitionsPaginates(t *testing.T) {
	call := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token123" {
			t.Errorf("authorization = %q", got)
		}
		q := r.URL.Query().Get("q")
		if !strings.Contains(q, "'root1' in parents") || !strings.Contains(q, "application/vnd.google-apps.folder") {
			t.Errorf("query = %q", q)
		}
		switch call {
		case 0:
			json.NewEncoder(w).Encode(map[string]any{
				"nextPageToken": "page2",
				"files":         []map[string]string{{"id": "f1", "name": "TLST04A00879_250714070000"}},
			})
		default:
			if r.URL.Query().Get("pageToken") != "page2" {
				t.Errorf("pageToken not forwarded")
			}
			json.NewEncoder(w).Encode(map[string]any{
				"files": []map[string]string{{"id": "f2", "name": "TLST04A00879_250715070000"}},
			})
		}
		call++
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, Token: "token123", Client: server.Client()})
	folders, err := client.ListPartitions(context.Background(), "root1")
	if err != nil {
		t.Fatalf("ListPartitions: %v", err)
	}
	if len(folders) != 2 || folders[0].ID != "f1" || folders[1].ID != "f2" {
		t.Fatalf("folders = %+v", folders)
	}
}

func TestListItemsFiltersPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"files": []map[string]string{
				{"id": "i1", "name": "TLS_0001.jpg"},
				{"id": "i2", "name": "THUMB_0001.jpg"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, ItemPrefix: "TLS_", Client: server.Client()})
	items, err := client.ListItems(context.Background(), "folder1")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].ID != "i1" {
		t.Fatalf("items = %+v", items)
	}
}

func TestListErrorsAreFetchErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, Client: server.Client()})
	if _, err := client.ListPartitions(context.Background(), "root"); !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestFetchItemWritesDest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "media" {
			t.Errorf("expected alt=media, got %q", r.URL.RawQuery)
		}
		io.WriteString(w, "jpegbytes")
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, Client: server.Client()})
	dest := filepath.Join(t.TempDir(), "TLS_0001.jpg")
	if err := client.FetchItem(context.Background(), ItemRef{ID: "i1", Name: "TLS_0001.jpg"}, dest); err != nil {
		t.Fatalf("FetchItem: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "jpegbytes" {
		t.Fatalf("content = %q", data)
	}
}

func TestFetchItemStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, Client: server.Client()})
	dest := filepath.Join(t.TempDir(), "out.jpg")
	err := client.FetchItem(context.Background(), ItemRef{ID: "gone", Name: "gone.jpg"}, dest)
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("failed fetch must not leave a destination file")
	}
}
