package state

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wipash/northgrove-timelapse/internal/remote"
	"github.com/wipash/northgrove-timelapse/internal/services"
)

type failingStore struct {
	remote.Store
	getErr error
	putErr error
}

func (f *failingStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f *failingStore) Put(ctx context.Context, key string, body io.Reader, length int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Store.Put(ctx, key, body, length, contentType)
}

func TestLoadMissingStartsFresh(t *testing.T) {
	store, _ := remote.NewDirStore(t.TempDir())
	s, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Processed("anything") {
		t.Fatal("fresh state should be empty")
	}
}

func TestRoundTrip(t *testing.T) {
	store, _ := remote.NewDirStore(t.TempDir())
	ctx := context.Background()

	s, err := Load(ctx, store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Mark("CAM_250715070000")
	s.Mark("CAM_250714070000")
	s.Mark("CAM_250714070000") // idempotent
	if err := s.Save(ctx, store); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(ctx, store)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	want := []string{"CAM_250714070000", "CAM_250715070000"}
	if diff := cmp.Diff(want, reloaded.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAcceptsLegacyRecord(t *testing.T) {
	store, _ := remote.NewDirStore(t.TempDir())
	ctx := context.Background()
	legacy := `{"last_processed_date": null, "processed_folders": ["CAM_250101070000"]}`
	if err := store.Put(ctx, Key, strings.NewReader(legacy), int64(len(legacy)), "application/json"); err != nil {
		t.Fatalf("seed legacy: %v", err)
	}
	s, err := Load(ctx, store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.Processed("CAM_250101070000") {
		t.Fatal("legacy folder names must be honored")
	}
}

func TestLoadFailureIsFatal(t *testing.T) {
	base, _ := remote.NewDirStore(t.TempDir())
	store := &failingStore{Store: base, getErr: errors.New("network down")}
	_, err := Load(context.Background(), store)
	if !errors.Is(err, services.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
	if !services.Fatal(err) {
		t.Fatal("state load failure must be fatal")
	}
}

func TestSaveFailureIsFatal(t *testing.T) {
	base, _ := remote.NewDirStore(t.TempDir())
	store := &failingStore{Store: base, putErr: errors.New("write refused")}
	s, _ := Load(context.Background(), base)
	s.Mark("CAM_250714070000")
	err := s.Save(context.Background(), store)
	if !errors.Is(err, services.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestNilStoreOffline(t *testing.T) {
	s, err := Load(context.Background(), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Mark("x")
	if err := s.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save with nil store should no-op: %v", err)
	}
}
