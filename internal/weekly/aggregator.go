// Package weekly groups daily artifacts into Monday-anchored week buckets
// and decides which weekly videos need (re)building.
package weekly

import (
	"context"
	"sort"
	"time"

	"github.com/wipash/northgrove-timelapse/internal/artifact"
	"github.com/wipash/northgrove-timelapse/internal/partition"
	"github.com/wipash/northgrove-timelapse/internal/tiercache"
)

// Buckets recomputes week membership from the current daily set. Exactly one
// bucket exists per distinct Monday; buckets are ordered ascending by Monday
// and members ascending by date then name.
func Buckets(days []artifact.Daily) []artifact.WeekBucket {
	byMonday := make(map[time.Time][]artifact.Daily)
	for _, d := range days {
		monday := partition.WeekAnchor(d.Date)
		byMonday[monday] = append(byMonday[monday], d)
	}
	buckets := make([]artifact.WeekBucket, 0, len(byMonday))
	for monday, members := range byMonday {
		sort.Slice(members, func(i, j int) bool {
			if !members[i].Date.Equal(members[j].Date) {
				return members[i].Date.Before(members[j].Date)
			}
			return members[i].PartitionName < members[j].PartitionName
		})
		buckets = append(buckets, artifact.WeekBucket{Monday: monday, Days: members})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Monday.Before(buckets[j].Monday)
	})
	return buckets
}

// Plan is the build decision for one week bucket.
type Plan struct {
	Bucket      artifact.WeekBucket
	CurrentWeek bool
	// Rebuild requests concatenating the bucket's members this run.
	Rebuild bool
	// Materialize requests a lazy remote pull of an already-durable weekly
	// video (full historical materialization).
	Materialize bool
}

// Decide produces per-bucket plans. The current week (maximum Monday) is
// always rebuilt from its members since its inputs may still be arriving; a
// past week rebuilds only when its weekly artifact resolves missing in both
// tiers. allWeeks requests local materialization of durable past weeks.
func Decide(ctx context.Context, buckets []artifact.WeekBucket, resolver *tiercache.Resolver, allWeeks bool) []Plan {
	if len(buckets) == 0 {
		return nil
	}
	currentMonday := buckets[len(buckets)-1].Monday

	plans := make([]Plan, 0, len(buckets))
	for _, bucket := range buckets {
		plan := Plan{Bucket: bucket, CurrentWeek: bucket.Monday.Equal(currentMonday)}
		if plan.CurrentWeek {
			plan.Rebuild = true
		} else {
			switch resolver.Resolve(ctx, bucket.Key()) {
			case tiercache.Missing:
				plan.Rebuild = true
			case tiercache.RemoteFresh:
				plan.Materialize = allWeeks
			case tiercache.LocalFresh:
				// Usable local copy; nothing to do.
			}
		}
		plans = append(plans, plan)
	}
	return plans
}
