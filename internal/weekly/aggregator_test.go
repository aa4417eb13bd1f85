package weekly

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wipash/northgrove-timelapse/internal/artifact"
	"github.com/wipash/northgrove-timelapse/internal/logging"
	"github.com/wipash/northgrove-timelapse/internal/remote"
	"github.com/wipash/northgrove-timelapse/internal/tiercache"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daily(name string, date time.Time) artifact.Daily {
	return artifact.Daily{PartitionName: name, Date: date}
}

func TestBucketsMonToSunShareMonday(t *testing.T) {
	// X_250714 (Mon) through X_250720 (Sun) share one bucket; X_250721
	// starts the next.
	var days []artifact.Daily
	for offset := 0; offset < 7; offset++ {
		d := day(2025, time.July, 14+offset)
		days = append(days, daily("X_"+artifact.FormatYYMMDD(d)+"070000", d))
	}
	days = append(days, daily("X_250721070000", day(2025, time.July, 21)))

	buckets := Buckets(days)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if !buckets[0].Monday.Equal(day(2025, time.July, 14)) {
		t.Fatalf("first bucket monday = %v", buckets[0].Monday)
	}
	if len(buckets[0].Days) != 7 {
		t.Fatalf("first bucket has %d members", len(buckets[0].Days))
	}
	if !buckets[1].Monday.Equal(day(2025, time.July, 21)) {
		t.Fatalf("second bucket monday = %v", buckets[1].Monday)
	}
}

func TestBucketsOrderMembersByDateRegardlessOfDiscovery(t *testing.T) {
	days := []artifact.Daily{
		daily("X_250716070000", day(2025, time.July, 16)),
		daily("X_250714070000", day(2025, time.July, 14)),
		daily("X_250715070000", day(2025, time.July, 15)),
	}
	// Shuffle a few times; the bucket ordering must always come out ascending.
	for trial := 0; trial < 10; trial++ {
		rand.Shuffle(len(days), func(i, j int) { days[i], days[j] = days[j], days[i] })
		buckets := Buckets(days)
		if len(buckets) != 1 {
			t.Fatalf("expected 1 bucket, got %d", len(buckets))
		}
		for i := 1; i < len(buckets[0].Days); i++ {
			if buckets[0].Days[i].Date.Before(buckets[0].Days[i-1].Date) {
				t.Fatalf("trial %d: members out of order: %+v", trial, buckets[0].Days)
			}
		}
	}
}

func newResolver(t *testing.T) (*tiercache.Resolver, artifact.Layout, remote.Store) {
	t.Helper()
	base := t.TempDir()
	layout := artifact.Layout{VideosDir: base, DailyDir: filepath.Join(base, "daily")}
	store, err := remote.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	return tiercache.NewResolver(layout, store, logging.NewNop()), layout, store
}

func TestDecideCurrentWeekAlwaysRebuilds(t *testing.T) {
	resolver, layout, store := newResolver(t)
	ctx := context.Background()

	current := artifact.WeekBucket{Monday: day(2025, time.July, 21)}
	past := artifact.WeekBucket{Monday: day(2025, time.July, 14)}

	// The current week exists in both tiers yet must still rebuild.
	_ = store.Put(ctx, artifact.RemoteObject(current.Key()), strings.NewReader("x"), 1, "")
	path := layout.LocalPath(current.Key())
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte("x"), 0o644)
	_ = store.Put(ctx, artifact.RemoteObject(past.Key()), strings.NewReader("x"), 1, "")

	plans := Decide(ctx, []artifact.WeekBucket{past, current}, resolver, false)
	if len(plans) != 2 {
		t.Fatalf("plans = %d", len(plans))
	}
	if plans[0].Rebuild || plans[0].CurrentWeek {
		t.Fatalf("durable past week should skip: %+v", plans[0])
	}
	if !plans[1].Rebuild || !plans[1].CurrentWeek {
		t.Fatalf("current week must rebuild: %+v", plans[1])
	}
}

func TestDecidePastWeekMissingRebuilds(t *testing.T) {
	resolver, _, _ := newResolver(t)
	past := artifact.WeekBucket{Monday: day(2025, time.July, 7)}
	current := artifact.WeekBucket{Monday: day(2025, time.July, 14)}

	plans := Decide(context.Background(), []artifact.WeekBucket{past, current}, resolver, false)
	if !plans[0].Rebuild {
		t.Fatal("missing past week must rebuild")
	}
}

func TestDecideAllWeeksMaterializes(t *testing.T) {
	resolver, _, store := newResolver(t)
	ctx := context.Background()
	past := artifact.WeekBucket{Monday: day(2025, time.July, 7)}
	current := artifact.WeekBucket{Monday: day(2025, time.July, 14)}
	_ = store.Put(ctx, artifact.RemoteObject(past.Key()), strings.NewReader("x"), 1, "")

	plans := Decide(ctx, []artifact.WeekBucket{past, current}, resolver, true)
	if plans[0].Rebuild {
		t.Fatal("durable past week must not rebuild")
	}
	if !plans[0].Materialize {
		t.Fatal("allWeeks should request materialization of durable past week")
	}

	plans = Decide(ctx, []artifact.WeekBucket{past, current}, resolver, false)
	if plans[0].Materialize {
		t.Fatal("materialization must be opt-in")
	}
}

func TestDecideEmpty(t *testing.T) {
	resolver, _, _ := newResolver(t)
	if plans := Decide(context.Background(), nil, resolver, false); plans != nil {
		t.Fatalf("expected nil plans, got %v", plans)
	}
}
