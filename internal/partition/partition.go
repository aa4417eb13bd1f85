// Package partition maps raw source folder names to calendar dates and
// derives Monday-anchored week membership.
package partition

import (
	"sort"
	"strings"
	"time"

	"github.com/wipash/northgrove-timelapse/internal/services"
)

// Partition is one raw time bucket of input items: a single day's image
// folder in the source drive.
type Partition struct {
	ID   string
	Name string
	Date time.Time
}

// ParseDate extracts the YYMMDD token from a structured folder name such as
// TLST04A00879_250714070000 and decodes it into a UTC calendar date. The
// token is the first six characters after the first underscore; YY maps to
// 2000+YY. Malformed or out-of-range tokens return a parse error; callers
// exclude the partition and continue.
func ParseDate(name string) (time.Time, error) {
	_, rest, found := strings.Cut(name, "_")
	if !found || len(rest) < 6 {
		return time.Time{}, services.Wrap(services.ErrParse, "partition", "parse date",
			"name has no date token: "+name, nil)
	}
	token := rest[:6]
	var digits [6]int
	for i := 0; i < 6; i++ {
		c := token[i]
		if c < '0' || c > '9' {
			return time.Time{}, services.Wrap(services.ErrParse, "partition", "parse date",
				"date token is not numeric: "+token, nil)
		}
		digits[i] = int(c - '0')
	}
	year := 2000 + digits[0]*10 + digits[1]
	month := digits[2]*10 + digits[3]
	day := digits[4]*10 + digits[5]

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components; a round trip detects them.
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, services.Wrap(services.ErrParse, "partition", "parse date",
			"date token out of range: "+token, nil)
	}
	return date, nil
}

// WeekAnchor returns the Monday of the ISO week containing d, at midnight in
// d's location. Monday is day zero; Sunday is six days after its anchor.
func WeekAnchor(d time.Time) time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}

// SortByDate orders partitions ascending by date, breaking ties by name so
// ordering is deterministic across runs.
func SortByDate(parts []Partition) {
	sort.Slice(parts, func(i, j int) bool {
		if !parts[i].Date.Equal(parts[j].Date) {
			return parts[i].Date.Before(parts[j].Date)
		}
		return parts[i].Name < parts[j].Name
	})
}
