// Package tiercache resolves artifact keys across the local and remote
// storage tiers and materializes remote artifacts on demand.
package tiercache

import (
	"context"
	"log/slog"
	"os"

	"github.com/wipash/northgrove-timelapse/internal/artifact"
	"github.com/wipash/northgrove-timelapse/internal/fileutil"
	"github.com/wipash/northgrove-timelapse/internal/logging"
	"github.com/wipash/northgrove-timelapse/internal/remote"
	"github.com/wipash/northgrove-timelapse/internal/services"
)

// Resolution reports where a usable copy of an artifact lives.
type Resolution int

const (
	// Missing means neither tier has the artifact; it must be built.
	Missing Resolution = iota
	// LocalFresh means a usable local copy exists; no remote round trip needed.
	LocalFresh
	// RemoteFresh means only the remote tier has the artifact; callers may
	// materialize it lazily or rely on existence alone.
	RemoteFresh
)

func (r Resolution) String() string {
	switch r {
	case LocalFresh:
		return "local"
	case RemoteFresh:
		return "remote"
	default:
		return "missing"
	}
}

// Resolver performs existence checks against both tiers. It never mutates
// either tier during resolution; a transient remote failure degrades to a
// conservative miss for that tier rather than aborting.
type Resolver struct {
	layout artifact.Layout
	store  remote.Store
	logger *slog.Logger
}

// NewResolver builds a resolver. store may be nil when the remote tier is
// disabled; the remote tier then always reports missing.
func NewResolver(layout artifact.Layout, store remote.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		layout: layout,
		store:  store,
		logger: logging.NewComponentLogger(logger, "tiercache"),
	}
}

// Resolve checks the local tier first, then the remote tier. The forced
// rebuild of current partitions is the scheduler's responsibility, not the
// resolver's: Resolve reports observed tier state only.
func (r *Resolver) Resolve(ctx context.Context, key string) Resolution {
	if r.localExists(key) {
		return LocalFresh
	}
	if r.store == nil {
		return Missing
	}
	ok, err := r.store.Exists(ctx, artifact.RemoteObject(key))
	if err != nil {
		wrapped := services.Wrap(services.ErrTierUnavailable, "tiercache", "remote existence check", key, err)
		r.logger.WarnContext(ctx, "remote tier check failed; treating as missing",
			logging.String(logging.FieldKey, key),
			logging.Error(wrapped),
		)
		return Missing
	}
	if ok {
		return RemoteFresh
	}
	return Missing
}

// Materialize ensures a local copy of key exists, pulling from the remote
// tier when needed, and returns the local path. The pull publishes through a
// temp file so readers never observe a partial artifact.
func (r *Resolver) Materialize(ctx context.Context, key string) (string, error) {
	localPath := r.layout.LocalPath(key)
	if r.localExists(key) {
		return localPath, nil
	}
	if r.store == nil {
		return "", services.Wrap(services.ErrTierUnavailable, "tiercache", "materialize",
			key+": no local copy and remote tier disabled", nil)
	}
	body, err := r.store.Get(ctx, artifact.RemoteObject(key))
	if err != nil {
		return "", services.Wrap(services.ErrTierUnavailable, "tiercache", "materialize", key, err)
	}
	defer body.Close()
	if err := fileutil.WriteAtomic(localPath, body); err != nil {
		return "", services.Wrap(services.ErrTierUnavailable, "tiercache", "materialize", key, err)
	}
	r.logger.InfoContext(ctx, "materialized artifact from remote tier",
		logging.String(logging.FieldKey, key),
	)
	return localPath, nil
}

func (r *Resolver) localExists(key string) bool {
	info, err := os.Stat(r.layout.LocalPath(key))
	return err == nil && !info.IsDir() && info.Size() > 0
}
