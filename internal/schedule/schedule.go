// Package schedule selects which daily partitions a run will consider and
// tracks each one through its build lifecycle.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/wipash/northgrove-timelapse/internal/artifact"
	"github.com/wipash/northgrove-timelapse/internal/logging"
	"github.com/wipash/northgrove-timelapse/internal/partition"
	"github.com/wipash/northgrove-timelapse/internal/state"
	"github.com/wipash/northgrove-timelapse/internal/tiercache"
)

// Status is the lifecycle position of one daily artifact within a run.
type Status int

const (
	StatusUnresolved Status = iota
	StatusSkip
	StatusRebuild
	StatusBuilt
	StatusUploaded
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusSkip:
		return "skip"
	case StatusRebuild:
		return "rebuild"
	case StatusBuilt:
		return "built"
	case StatusUploaded:
		return "uploaded"
	default:
		return "unknown"
	}
}

// Task carries one daily artifact through a run. A failed task returns to
// StatusUnresolved so the next run retries it; Err holds the failure for the
// run report.
type Task struct {
	Partition partition.Partition
	Daily     artifact.Daily
	Status    Status
	Err       error
}

// Select returns the partitions a run will consider, ordered by date. A
// partition is in scope when its date falls within the last recencyBoundDays
// days, or when it belongs to the same Monday-anchored week as the newest
// partition; the widening keeps the current weekly video complete even when
// its early days fall outside the recency bound. The week anchor follows the
// newest partition rather than the wall clock so a stalled source still gets
// its last week treated as current. recencyBoundDays <= 0 selects everything.
func Select(parts []partition.Partition, now time.Time, recencyBoundDays int) []partition.Partition {
	partition.SortByDate(parts)
	if recencyBoundDays <= 0 || len(parts) == 0 {
		return parts
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := today.AddDate(0, 0, -recencyBoundDays)
	currentMonday := partition.WeekAnchor(parts[len(parts)-1].Date)

	selected := make([]partition.Partition, 0, len(parts))
	for _, p := range parts {
		if p.Date.After(cutoff) || partition.WeekAnchor(p.Date).Equal(currentMonday) {
			selected = append(selected, p)
		}
	}
	return selected
}

// Plan resolves each selected partition against the tier cache and the
// processing state and assigns it a status. The newest partition always
// rebuilds regardless of cache freshness since its source images may still
// be arriving; currency follows the maximum partition date, not the wall
// clock, so the newest day still rebuilds when the source has stalled. The
// override lives here, not in the resolver, so cache resolution stays a
// pure read.
func Plan(ctx context.Context, parts []partition.Partition, resolver *tiercache.Resolver, st *state.State, logger *slog.Logger) []*Task {
	var latest time.Time
	for _, p := range parts {
		if p.Date.After(latest) {
			latest = p.Date
		}
	}

	tasks := make([]*Task, 0, len(parts))
	for _, p := range parts {
		daily := artifact.Daily{
			PartitionName: p.Name,
			SourceID:      p.ID,
			Date:          p.Date,
			Current:       p.Date.Equal(latest),
		}
		task := &Task{Partition: p, Daily: daily}

		if daily.Current {
			task.Status = StatusRebuild
			tasks = append(tasks, task)
			continue
		}

		switch resolver.Resolve(ctx, daily.Key()) {
		case tiercache.LocalFresh:
			task.Daily.ExistsLocal = true
		case tiercache.RemoteFresh:
			task.Daily.ExistsRemote = true
		}

		fresh := task.Daily.ExistsLocal || task.Daily.ExistsRemote
		if fresh && st.Processed(p.Name) {
			task.Status = StatusSkip
		} else {
			task.Status = StatusRebuild
			if fresh {
				logger.Info("rebuilding unprocessed partition with fresh artifact",
					logging.String(logging.FieldPartition, p.Name))
			}
		}
		tasks = append(tasks, task)
	}
	return tasks
}
