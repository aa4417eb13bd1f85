package sitemeta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wipash/northgrove-timelapse/internal/artifact"
	"github.com/wipash/northgrove-timelapse/internal/logging"
)

func TestBuildPopulatesRangesAndWeeks(t *testing.T) {
	now := time.Date(2025, time.July, 17, 10, 0, 0, 0, time.UTC)
	dailies := []artifact.Daily{
		{PartitionName: "X_250716070000", Date: time.Date(2025, time.July, 16, 0, 0, 0, 0, time.UTC)},
		{PartitionName: "X_250714070000", Date: time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)},
	}
	mondays := []time.Time{
		time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.July, 7, 0, 0, 0, 0, time.UTC),
	}
	current := time.Date(2025, time.July, 14, 0, 0, 0, 0, time.UTC)

	meta := Build(dailies, mondays, current, "latest.jpg", now)
	if meta.TotalDays != 2 {
		t.Fatalf("TotalDays = %d", meta.TotalDays)
	}
	if meta.DateRange.Start == nil || *meta.DateRange.Start != "2025-07-14" {
		t.Fatalf("DateRange.Start = %v", meta.DateRange.Start)
	}
	if meta.LatestDay == nil || *meta.LatestDay != "2025-07-16" {
		t.Fatalf("LatestDay = %v", meta.LatestDay)
	}
	if meta.LatestImage == nil || meta.LatestImage.Filename != "latest.jpg" {
		t.Fatalf("LatestImage = %+v", meta.LatestImage)
	}
	if meta.CurrentWeek == nil || meta.CurrentWeek.MondayDate != "250714" || meta.CurrentWeek.End != "2025-07-20" {
		t.Fatalf("CurrentWeek = %+v", meta.CurrentWeek)
	}
	if len(meta.WeeklyVideos) != 2 {
		t.Fatalf("WeeklyVideos = %d", len(meta.WeeklyVideos))
	}
	// Ascending by monday regardless of input order.
	if meta.WeeklyVideos[0].MondayDate != "250707" || meta.WeeklyVideos[1].MondayDate != "250714" {
		t.Fatalf("week order wrong: %+v", meta.WeeklyVideos)
	}
	if meta.WeeklyVideos[0].Filename != "timelapse_week_250707.mp4" {
		t.Fatalf("Filename = %s", meta.WeeklyVideos[0].Filename)
	}
}

func TestBuildEmptyEncodesNulls(t *testing.T) {
	meta := Build(nil, nil, time.Time{}, "", time.Date(2025, time.July, 17, 0, 0, 0, 0, time.UTC))
	raw, err := meta.Encode()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"latest_image", "latest_day", "current_week"} {
		if decoded[field] != nil {
			t.Fatalf("%s = %v, want null", field, decoded[field])
		}
	}
	if decoded["weekly_videos"] == nil || decoded["events"] == nil {
		t.Fatal("list fields must encode as empty arrays, not null")
	}
}

func TestLoadEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	content := `events:
  - title: First pour
    date: "2025-07-16"
    description: Slab foundation poured
  - title: Bad date
    date: "sometime in July"
  - title: Frame up
    date: "2025-07-21"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	events := LoadEvents(path, logging.NewNop())
	if len(events) != 2 {
		t.Fatalf("events = %d, want malformed entry skipped", len(events))
	}
	if events[0].MondayDate != "250714" {
		t.Fatalf("MondayDate = %s", events[0].MondayDate)
	}
	if events[0].Description != "Slab foundation poured" {
		t.Fatalf("Description = %q", events[0].Description)
	}
	if events[1].MondayDate != "250721" {
		t.Fatalf("MondayDate = %s", events[1].MondayDate)
	}
}

func TestLoadEventsMissingFile(t *testing.T) {
	if events := LoadEvents(filepath.Join(t.TempDir(), "absent.yaml"), logging.NewNop()); events != nil {
		t.Fatalf("expected nil for missing file, got %v", events)
	}
}
