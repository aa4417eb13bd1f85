// Package sitemeta builds the metadata document the web frontend reads to
// discover available videos, the newest still image and annotated events.
package sitemeta

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wipash/northgrove-timelapse/internal/artifact"
	"github.com/wipash/northgrove-timelapse/internal/logging"
	"github.com/wipash/northgrove-timelapse/internal/partition"
)

// Event is one annotated point of interest, anchored to the Monday of its
// week so the frontend can attach it to the matching weekly video.
type Event struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	MondayDate  string `json:"monday_date"`
	Description string `json:"description,omitempty"`
}

// LatestImage names the newest source still and the day it belongs to.
type LatestImage struct {
	Date     string `json:"date"`
	Filename string `json:"filename"`
}

// WeekRange describes one Monday-anchored week.
type WeekRange struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	MondayDate string `json:"monday_date"`
}

// WeeklyVideo is one published weekly timelapse.
type WeeklyVideo struct {
	Filename   string `json:"filename"`
	MondayDate string `json:"monday_date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	RemotePath string `json:"remote_path"`
}

// DateRange spans the oldest and newest known day.
type DateRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// Metadata is the document uploaded to the site metadata alias.
type Metadata struct {
	LastUpdated  string        `json:"last_updated"`
	TotalDays    int           `json:"total_days"`
	LatestImage  *LatestImage  `json:"latest_image"`
	LatestDay    *string       `json:"latest_day"`
	CurrentWeek  *WeekRange    `json:"current_week"`
	WeeklyVideos []WeeklyVideo `json:"weekly_videos"`
	DateRange    DateRange     `json:"date_range"`
	Events       []Event       `json:"events"`
}

const dayLayout = "2006-01-02"

// Build assembles the metadata document. dailies is the full known daily
// set, mondays the weeks with a published weekly video, currentMonday the
// week still in progress (zero when unknown) and latestImage the filename of
// the newest still (empty when none was published).
func Build(dailies []artifact.Daily, mondays []time.Time, currentMonday time.Time, latestImage string, now time.Time) Metadata {
	meta := Metadata{
		LastUpdated:  now.Format(time.RFC3339),
		TotalDays:    len(dailies),
		WeeklyVideos: []WeeklyVideo{},
		Events:       []Event{},
	}

	var dates []time.Time
	for _, d := range dailies {
		dates = append(dates, d.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if len(dates) > 0 {
		start := dates[0].Format(dayLayout)
		end := dates[len(dates)-1].Format(dayLayout)
		meta.DateRange = DateRange{Start: &start, End: &end}
		meta.LatestDay = &end
		if latestImage != "" {
			meta.LatestImage = &LatestImage{Date: end, Filename: latestImage}
		}
	}

	if !currentMonday.IsZero() {
		meta.CurrentWeek = &WeekRange{
			Start:      currentMonday.Format(dayLayout),
			End:        currentMonday.AddDate(0, 0, 6).Format(dayLayout),
			MondayDate: artifact.FormatYYMMDD(currentMonday),
		}
	}

	sorted := append([]time.Time(nil), mondays...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	for _, monday := range sorted {
		key := artifact.WeeklyKey(monday)
		object := artifact.RemoteObject(key)
		meta.WeeklyVideos = append(meta.WeeklyVideos, WeeklyVideo{
			Filename:   "timelapse_week_" + artifact.FormatYYMMDD(monday) + ".mp4",
			MondayDate: artifact.FormatYYMMDD(monday),
			Start:      monday.Format(dayLayout),
			End:        monday.AddDate(0, 0, 6).Format(dayLayout),
			RemotePath: object,
		})
	}
	return meta
}

// Encode renders the document as indented JSON for upload.
func (m Metadata) Encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

type eventsFile struct {
	Events []struct {
		Title       string `yaml:"title"`
		Date        string `yaml:"date"`
		Description string `yaml:"description"`
	} `yaml:"events"`
}

// LoadEvents reads the optional events annotation file. A missing file means
// no events; a malformed file or entry is logged and skipped so a bad
// annotation never blocks a publish.
func LoadEvents(path string, logger *slog.Logger) []Event {
	if logger == nil {
		logger = logging.NewNop()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("events file unreadable", logging.Error(err))
		}
		return nil
	}
	var file eventsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		logger.Warn("events file malformed", logging.Error(err))
		return nil
	}

	var events []Event
	for _, entry := range file.Events {
		date, err := time.Parse(dayLayout, entry.Date)
		if err != nil {
			if date, err = time.Parse(time.RFC3339, entry.Date); err != nil {
				logger.Warn("event has unparseable date",
					logging.String("title", entry.Title),
					logging.Error(err))
				continue
			}
		}
		events = append(events, Event{
			Title:       entry.Title,
			Date:        date.Format(dayLayout),
			MondayDate:  artifact.FormatYYMMDD(partition.WeekAnchor(date)),
			Description: entry.Description,
		})
	}
	return events
}
