// Package artifact defines the canonical key space for daily and weekly
// timelapse artifacts and the pure mapping from keys to local paths and
// remote object keys. Key derivation is byte-stable across runs: dates
// render as zero-padded YYMMDD with no locale dependence.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	dailyPrefix  = "daily/"
	weeklyPrefix = "weekly/"
)

// FormatYYMMDD renders a date as the six-digit token used throughout the
// key space and the source folder naming scheme.
func FormatYYMMDD(t time.Time) string {
	return fmt.Sprintf("%02d%02d%02d", t.Year()%100, int(t.Month()), t.Day())
}

// DailyKey returns the canonical key for one partition's daily video.
func DailyKey(partitionName string) string {
	return dailyPrefix + partitionName
}

// WeeklyKey returns the canonical key for the week anchored at monday.
func WeeklyKey(monday time.Time) string {
	return weeklyPrefix + FormatYYMMDD(monday)
}

// IsDaily reports whether key names a daily artifact.
func IsDaily(key string) bool { return strings.HasPrefix(key, dailyPrefix) }

// IsWeekly reports whether key names a weekly artifact.
func IsWeekly(key string) bool { return strings.HasPrefix(key, weeklyPrefix) }

// PartitionName returns the partition name embedded in a daily key, or ""
// when the key is not daily.
func PartitionName(key string) string {
	if !IsDaily(key) {
		return ""
	}
	return strings.TrimPrefix(key, dailyPrefix)
}

// Layout maps canonical keys onto the local filesystem tier.
type Layout struct {
	VideosDir string
	DailyDir  string
}

// LocalPath returns the local tier location for a canonical key.
func (l Layout) LocalPath(key string) string {
	switch {
	case IsDaily(key):
		return filepath.Join(l.DailyDir, PartitionName(key)+".mp4")
	case IsWeekly(key):
		token := strings.TrimPrefix(key, weeklyPrefix)
		return filepath.Join(l.VideosDir, "timelapse_week_"+token+".mp4")
	default:
		return filepath.Join(l.VideosDir, filepath.FromSlash(key))
	}
}

// RemoteObject returns the remote tier object key for a canonical key.
func RemoteObject(key string) string {
	switch {
	case IsDaily(key):
		return key + ".mp4"
	case IsWeekly(key):
		token := strings.TrimPrefix(key, weeklyPrefix)
		return weeklyPrefix + "timelapse_week_" + token + ".mp4"
	default:
		return key
	}
}

// Site publication keys for the web frontend. These are aliases updated in
// place on every run, not part of the canonical artifact key space.
const (
	SiteCurrentWeek = "site/week.mp4"
	SiteCurrentDay  = "site/day.mp4"
	SiteFull        = "site/full.mp4"
	SiteLatestImage = "site/latest.jpg"
	SiteMetadata    = "site/metadata.json"
)
