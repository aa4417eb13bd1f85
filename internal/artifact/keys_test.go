package artifact

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFormatYYMMDD(t *testing.T) {
	cases := map[string]time.Time{
		"250714": time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC),
		"000101": time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		"091205": time.Date(2009, time.December, 5, 0, 0, 0, 0, time.UTC),
	}
	for want, input := range cases {
		if got := FormatYYMMDD(input); got != want {
			t.Errorf("FormatYYMMDD(%v) = %q, want %q", input, got, want)
		}
	}
}

func TestKeyDerivation(t *testing.T) {
	monday := time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)
	if got := DailyKey("TLST04A00879_250714070000"); got != "daily/TLST04A00879_250714070000" {
		t.Fatalf("DailyKey = %q", got)
	}
	if got := WeeklyKey(monday); got != "weekly/250714" {
		t.Fatalf("WeeklyKey = %q", got)
	}
	if !IsDaily(DailyKey("x")) || IsWeekly(DailyKey("x")) {
		t.Fatal("daily key misclassified")
	}
	if got := PartitionName("daily/abc"); got != "abc" {
		t.Fatalf("PartitionName = %q", got)
	}
	if got := PartitionName("weekly/250714"); got != "" {
		t.Fatalf("PartitionName on weekly = %q", got)
	}
}

func TestLayoutMapping(t *testing.T) {
	layout := Layout{VideosDir: "/videos", DailyDir: "/videos/daily"}
	if got := layout.LocalPath("daily/CAM_250714"); got != filepath.Join("/videos/daily", "CAM_250714.mp4") {
		t.Fatalf("daily local path = %q", got)
	}
	if got := layout.LocalPath("weekly/250714"); got != filepath.Join("/videos", "timelapse_week_250714.mp4") {
		t.Fatalf("weekly local path = %q", got)
	}
}

func TestRemoteObject(t *testing.T) {
	if got := RemoteObject("daily/CAM_250714"); got != "daily/CAM_250714.mp4" {
		t.Fatalf("daily remote object = %q", got)
	}
	if got := RemoteObject("weekly/250714"); got != "weekly/timelapse_week_250714.mp4" {
		t.Fatalf("weekly remote object = %q", got)
	}
	if got := RemoteObject(SiteMetadata); got != SiteMetadata {
		t.Fatalf("site key should pass through, got %q", got)
	}
}

func TestKeyStability(t *testing.T) {
	monday := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	first := WeeklyKey(monday)
	for i := 0; i < 5; i++ {
		if WeeklyKey(monday) != first {
			t.Fatal("weekly key not stable across calls")
		}
	}
}
