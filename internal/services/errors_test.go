package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(ErrEncode, "encoder", "daily build", "ffmpeg exited", base)
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive")
	}
	if !strings.Contains(err.Error(), "encoder: daily build: ffmpeg exited") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected default marker ErrFetch, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %v", err)
	}
}

func TestClassification(t *testing.T) {
	if !Fatal(Wrap(ErrState, "state", "save", "", errors.New("x"))) {
		t.Fatal("state errors must be fatal")
	}
	if Fatal(Wrap(ErrEncode, "encoder", "build", "", nil)) {
		t.Fatal("encode errors must not be fatal")
	}
	if !Retryable(Wrap(ErrFetch, "drive", "download", "", nil)) {
		t.Fatal("fetch errors must be retryable")
	}
	if !Retryable(Wrap(ErrTierUnavailable, "remote", "head", "", nil)) {
		t.Fatal("tier errors must be retryable")
	}
	if Retryable(Wrap(ErrParse, "partition", "parse", "", nil)) {
		t.Fatal("parse errors are permanent, not retryable")
	}
}
