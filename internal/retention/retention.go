// Package retention promotes built artifacts into the remote tier and
// evicts aged local daily videos once their weekly rollup is durable.
package retention

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wipash/northgrove-timelapse/internal/artifact"
	"github.com/wipash/northgrove-timelapse/internal/config"
	"github.com/wipash/northgrove-timelapse/internal/logging"
	"github.com/wipash/northgrove-timelapse/internal/partition"
	"github.com/wipash/northgrove-timelapse/internal/remote"
	"github.com/wipash/northgrove-timelapse/internal/services"
)

// Manager uploads local artifacts to the remote tier and applies the local
// eviction policy. A nil store puts the manager in offline mode: promotion
// becomes a no-op and nothing is ever evicted, since eviction requires a
// confirmed remote weekly copy.
type Manager struct {
	layout artifact.Layout
	store  remote.Store
	cfg    config.Retention
	logger *slog.Logger

	// test hook
	statfs func(dir string) (free, total uint64, err error)
}

func NewManager(layout artifact.Layout, store remote.Store, cfg config.Retention, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		layout: layout,
		store:  store,
		cfg:    cfg,
		logger: logger,
		statfs: statfsFree,
	}
}

// Promote uploads the local file for key to its canonical remote object.
// Overwrites are intentional: re-promoting a rebuilt artifact replaces the
// stale remote copy, and repeating a promote after a partial failure is safe.
func (m *Manager) Promote(ctx context.Context, key string) error {
	return m.PromoteFile(ctx, m.layout.LocalPath(key), artifact.RemoteObject(key))
}

// PromoteFile uploads an arbitrary local file to an arbitrary remote object.
// Used for the site aliases, which live outside the canonical key space.
func (m *Manager) PromoteFile(ctx context.Context, path, object string) error {
	if m.store == nil {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrTierUnavailable, "retention", "promote",
			"open local file for "+object, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return services.Wrap(services.ErrTierUnavailable, "retention", "promote",
			"stat local file for "+object, err)
	}
	if err := m.store.Put(ctx, object, f, info.Size(), contentTypeFor(path)); err != nil {
		return services.Wrap(services.ErrTierUnavailable, "retention", "promote",
			"upload "+object, err)
	}
	m.logger.Info("promoted artifact",
		logging.String(logging.FieldKey, object),
		logging.Int64("bytes", info.Size()))
	return nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Evict removes local daily videos that are older than the retention window
// and whose week's rollup is confirmed in the remote tier. Both conditions
// are hard requirements; a remote existence check that fails keeps the file.
// When the volume holding the daily videos drops below the free-space floor,
// eviction additionally prunes the oldest durable dailies inside the window,
// never touching the current week. Returns the keys of evicted artifacts.
func (m *Manager) Evict(ctx context.Context, days []artifact.Daily, now time.Time) []string {
	if !m.cfg.Enabled || m.store == nil || len(days) == 0 {
		return nil
	}
	cutoff := now.AddDate(0, 0, -m.cfg.Days)
	durable := make(map[time.Time]bool)

	candidates := append([]artifact.Daily(nil), days...)
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Date.Before(candidates[j].Date)
	})
	// The protected week follows the newest daily, not the wall clock, so a
	// stalled source keeps its last week intact.
	currentMonday := partition.WeekAnchor(candidates[len(candidates)-1].Date)

	var evicted []string
	remaining := candidates[:0]
	for _, d := range candidates {
		if d.Current || !d.Date.Before(cutoff) {
			remaining = append(remaining, d)
			continue
		}
		if m.evictOne(ctx, d, durable) {
			evicted = append(evicted, d.Key())
		} else {
			remaining = append(remaining, d)
		}
	}

	// Low-space pruning reaches inside the retention window, oldest first,
	// but the durability requirement and the current week stay off limits.
	for _, d := range remaining {
		below, err := m.belowFloor()
		if err != nil {
			m.logger.Warn("free space check failed", logging.Error(err))
			break
		}
		if !below {
			break
		}
		if d.Current || partition.WeekAnchor(d.Date).Equal(currentMonday) {
			continue
		}
		m.logger.Warn("free space below floor, pruning inside retention window",
			logging.String(logging.FieldKey, d.Key()))
		if m.evictOne(ctx, d, durable) {
			evicted = append(evicted, d.Key())
		}
	}
	return evicted
}

// evictOne removes d's local file if its weekly rollup is durable remotely.
func (m *Manager) evictOne(ctx context.Context, d artifact.Daily, durable map[time.Time]bool) bool {
	path := m.layout.LocalPath(d.Key())
	if _, err := os.Stat(path); err != nil {
		return false
	}
	monday := partition.WeekAnchor(d.Date)
	ok, checked := durable[monday]
	if !checked {
		exists, err := m.store.Exists(ctx, artifact.RemoteObject(artifact.WeeklyKey(monday)))
		if err != nil {
			m.logger.Warn("weekly durability check failed, keeping local daily",
				logging.String(logging.FieldKey, d.Key()),
				logging.Error(err))
			return false
		}
		ok = exists
		durable[monday] = ok
	}
	if !ok {
		return false
	}
	if err := os.Remove(path); err != nil {
		m.logger.Warn("evict failed",
			logging.String(logging.FieldKey, d.Key()),
			logging.Error(err))
		return false
	}
	m.logger.Info("evicted local daily",
		logging.String(logging.FieldKey, d.Key()))
	return true
}

func (m *Manager) belowFloor() (bool, error) {
	if m.cfg.FreeSpaceFloor <= 0 {
		return false, nil
	}
	free, total, err := m.statfs(m.layout.DailyDir)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	return float64(free)/float64(total) < m.cfg.FreeSpaceFloor, nil
}

func statfsFree(dir string) (free, total uint64, err error) {
	var fs unix.Statfs_t
	if err := unix.Statfs(dir, &fs); err != nil {
		return 0, 0, err
	}
	bsize := uint64(fs.Bsize)
	return fs.Bavail * bsize, fs.Blocks * bsize, nil
}
