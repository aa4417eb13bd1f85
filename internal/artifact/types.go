package artifact

import "time"

// Daily is the built representation of one source partition for the
// duration of a run.
type Daily struct {
	PartitionName string
	SourceID      string
	Date          time.Time
	ExistsLocal   bool
	ExistsRemote  bool
	// Current is true iff this is the most recent partition by date; the
	// current partition is always rebuilt because its raw inputs may still
	// be arriving.
	Current bool
}

// Key returns the canonical daily key for this artifact.
func (d Daily) Key() string { return DailyKey(d.PartitionName) }

// WeekBucket groups the dailies whose dates share a Monday anchor. Members
// are ordered ascending by date; that ordering is a playback-correctness
// requirement for the concatenated weekly video.
type WeekBucket struct {
	Monday time.Time
	Days   []Daily
}

// Key returns the canonical weekly key for this bucket.
func (w WeekBucket) Key() string { return WeeklyKey(w.Monday) }

// Weekly is the built representation of one week bucket.
type Weekly struct {
	Monday       time.Time
	ExistsLocal  bool
	ExistsRemote bool
	// CurrentWeek is true iff Monday is the maximum anchor across all
	// buckets this run.
	CurrentWeek bool
}

// Key returns the canonical weekly key for this artifact.
func (w Weekly) Key() string { return WeeklyKey(w.Monday) }
