// Package engine orchestrates a full reconciliation run: discover source
// partitions, build missing daily videos, roll them into weekly videos,
// publish the site aliases and apply the retention policy.
package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wipash/northgrove-timelapse/internal/artifact"
	"github.com/wipash/northgrove-timelapse/internal/catalog"
	"github.com/wipash/northgrove-timelapse/internal/config"
	"github.com/wipash/northgrove-timelapse/internal/drive"
	"github.com/wipash/northgrove-timelapse/internal/encoder"
	"github.com/wipash/northgrove-timelapse/internal/fileutil"
	"github.com/wipash/northgrove-timelapse/internal/logging"
	"github.com/wipash/northgrove-timelapse/internal/notifications"
	"github.com/wipash/northgrove-timelapse/internal/partition"
	"github.com/wipash/northgrove-timelapse/internal/remote"
	"github.com/wipash/northgrove-timelapse/internal/retention"
	"github.com/wipash/northgrove-timelapse/internal/schedule"
	"github.com/wipash/northgrove-timelapse/internal/services"
	"github.com/wipash/northgrove-timelapse/internal/sitemeta"
	"github.com/wipash/northgrove-timelapse/internal/state"
	"github.com/wipash/northgrove-timelapse/internal/tiercache"
	"github.com/wipash/northgrove-timelapse/internal/weekly"
)

// dailyWorkers bounds concurrent daily builds. Encoding is CPU bound so a
// wide pool only thrashes; image fetches have their own pool per build.
const dailyWorkers = 2

// Options selects the scope of one run.
type Options struct {
	// RecencyBoundDays limits daily processing to the last N days; the
	// current week is always included. Zero processes everything.
	RecencyBoundDays int
	// AllWeeks materializes durable historical weekly videos locally and
	// re-promotes every weekly video, not just the current week.
	AllWeeks bool
	// BuildFull concatenates all daily videos into the full timelapse.
	BuildFull bool
	// UploadEnabled gates every remote interaction. Disabled runs operate
	// purely on the local tier.
	UploadEnabled bool
}

// KeyError pairs a failed artifact key with its error.
type KeyError struct {
	Key string
	Err error
}

// RunReport summarizes what one run did.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Built      []string
	Skipped    []string
	Evicted    []string
	Errors     []KeyError
}

// Engine wires the collaborators for reconciliation runs.
type Engine struct {
	cfg      *config.Config
	source   drive.Source
	store    remote.Store
	enc      encoder.Encoder
	notifier notifications.Service
	catalog  *catalog.Store
	logger   *slog.Logger

	now func() time.Time
}

// New builds an engine. store may be nil when no remote tier is configured;
// catalog may be nil to skip run journaling.
func New(cfg *config.Config, source drive.Source, store remote.Store, enc encoder.Encoder, notifier notifications.Service, cat *catalog.Store, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		source:   source,
		store:    store,
		enc:      enc,
		notifier: notifier,
		catalog:  cat,
		logger:   logger,
		now:      time.Now,
	}
}

// run carries the per-run collaborators; they depend on whether this run is
// allowed to touch the remote tier.
type run struct {
	*Engine
	opts     Options
	store    remote.Store
	layout   artifact.Layout
	resolver *tiercache.Resolver
	retain   *retention.Manager
	st       *state.State
	log      *slog.Logger
	report   *RunReport
}

// Run executes one reconciliation pass. The returned report is always
// populated; the error is non-nil only for fatal conditions (state
// load/persist, source listing, cancellation).
func (e *Engine) Run(ctx context.Context, opts Options) (*RunReport, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)

	r := &run{
		Engine: e,
		opts:   opts,
		layout: artifact.Layout{VideosDir: e.cfg.Paths.VideosDir, DailyDir: e.cfg.Paths.DailyDir},
		log: logging.NewComponentLogger(e.logger, "engine").With(
			logging.String(logging.FieldRunID, runID)),
		report: &RunReport{RunID: runID, StartedAt: e.now()},
	}
	if opts.UploadEnabled {
		r.store = e.store
	}
	r.resolver = tiercache.NewResolver(r.layout, r.store, e.logger)
	r.retain = retention.NewManager(r.layout, r.store, e.cfg.Retention, e.logger)

	err := r.execute(ctx)
	r.report.FinishedAt = e.now()
	r.journal(ctx, err)
	r.notify(ctx, err)
	return r.report, err
}

func (r *run) execute(ctx context.Context) error {
	for _, dir := range []string{r.layout.VideosDir, r.layout.DailyDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrConfiguration, "engine", "prepare directories",
				"create "+dir, err)
		}
	}

	st, err := state.Load(ctx, r.store)
	if err != nil {
		return err
	}
	r.st = st

	folders, err := r.source.ListPartitions(ctx, r.cfg.Source.FolderID)
	if err != nil {
		return err
	}
	parts := r.parsePartitions(folders)
	r.log.Info("discovered partitions", logging.Int("total", len(parts)))

	now := r.now()
	selected := schedule.Select(parts, now, r.opts.RecencyBoundDays)
	tasks := schedule.Plan(ctx, selected, r.resolver, st, r.log)

	if err := schedule.Run(ctx, dailyWorkers, tasks, r.buildDaily); err != nil {
		return err
	}
	var fatal error
	for _, task := range tasks {
		switch {
		case task.Err != nil:
			r.report.Errors = append(r.report.Errors, KeyError{Key: task.Daily.Key(), Err: task.Err})
			if fatal == nil && services.Fatal(task.Err) {
				fatal = task.Err
			}
		case task.Status == schedule.StatusSkip:
			r.report.Skipped = append(r.report.Skipped, task.Daily.Key())
		case task.Status == schedule.StatusBuilt || task.Status == schedule.StatusUploaded:
			r.report.Built = append(r.report.Built, task.Daily.Key())
		}
	}
	if fatal != nil {
		return fatal
	}

	locals, err := r.localDailies()
	if err != nil {
		return err
	}
	rollup := mergeDailies(locals, tasks)
	if len(rollup) == 0 {
		r.log.Info("no daily videos available, nothing to roll up")
		return nil
	}

	currentMonday, currentWeekPath := r.reconcileWeeks(ctx, rollup)
	// Rebuilt weeks may have materialized dailies; rescan so publication
	// and eviction see them.
	locals, err = r.localDailies()
	if err != nil {
		return err
	}
	if r.opts.BuildFull {
		r.buildFull(ctx, locals)
	}
	r.publishAliases(ctx, locals, currentWeekPath)
	latestImage := r.publishLatestImage(ctx, parts)
	r.publishMetadata(ctx, locals, currentMonday, latestImage, now)

	r.report.Evicted = r.retain.Evict(ctx, locals, now)
	return nil
}

// parsePartitions filters folders by the configured prefix and excludes any
// whose name does not decode into a date. Exclusion is logged, not fatal: a
// stray folder in the source root must not block the run.
func (r *run) parsePartitions(folders []drive.Folder) []partition.Partition {
	parts := make([]partition.Partition, 0, len(folders))
	for _, folder := range folders {
		if prefix := r.cfg.Source.FolderPrefix; prefix != "" && !strings.HasPrefix(folder.Name, prefix) {
			continue
		}
		date, err := partition.ParseDate(folder.Name)
		if err != nil {
			r.log.Warn("excluding unparseable partition",
				logging.String(logging.FieldPartition, folder.Name),
				logging.Error(err))
			continue
		}
		parts = append(parts, partition.Partition{ID: folder.ID, Name: folder.Name, Date: date})
	}
	partition.SortByDate(parts)
	return parts
}

// buildDaily fetches a partition's images and encodes its daily video, then
// promotes it and advances the processing state. The state write is last so
// a key is only ever marked processed once its artifact is durable.
func (r *run) buildDaily(ctx context.Context, task *schedule.Task) error {
	items, err := r.source.ListItems(ctx, task.Partition.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		r.log.Warn("partition has no images",
			logging.String(logging.FieldPartition, task.Partition.Name))
		task.Status = schedule.StatusSkip
		return nil
	}
	drive.SortFrames(items)

	tmpDir, err := os.MkdirTemp("", "timelapse-frames-*")
	if err != nil {
		return services.Wrap(services.ErrEncode, "engine", "build daily",
			"create frame staging directory", err)
	}
	defer os.RemoveAll(tmpDir)

	group, fetchCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(1, r.cfg.Download.Workers))
	images := make([]string, len(items))
	for i, item := range items {
		i, item := i, item
		images[i] = filepath.Join(tmpDir, item.Name)
		group.Go(func() error {
			return r.source.FetchItem(fetchCtx, item, images[i])
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	out := r.layout.LocalPath(task.Daily.Key())
	if err := r.enc.EncodeSequence(ctx, images, out); err != nil {
		return err
	}
	task.Status = schedule.StatusBuilt
	task.Daily.ExistsLocal = true
	r.log.Info("built daily video",
		logging.String(logging.FieldKey, task.Daily.Key()),
		logging.Int("frames", len(items)))

	if r.store != nil {
		if err := r.retain.Promote(ctx, task.Daily.Key()); err != nil {
			return err
		}
		task.Status = schedule.StatusUploaded
		task.Daily.ExistsRemote = true
	}

	r.st.Mark(task.Partition.Name)
	return r.st.Save(ctx, r.store)
}

// localDailies scans the local daily tier. Currency follows the newest
// local date, not the wall clock.
func (r *run) localDailies() ([]artifact.Daily, error) {
	entries, err := os.ReadDir(r.layout.DailyDir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "engine", "scan daily videos",
			"read "+r.layout.DailyDir, err)
	}

	var locals []artifact.Daily
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".mp4" {
			continue
		}
		name := entry.Name()[:len(entry.Name())-len(".mp4")]
		date, err := partition.ParseDate(name)
		if err != nil {
			continue
		}
		locals = append(locals, artifact.Daily{
			PartitionName: name,
			Date:          date,
			ExistsLocal:   true,
		})
	}
	sortDailies(locals)
	markCurrent(locals)
	return locals, nil
}

// mergeDailies widens week membership beyond the local tier: remote-fresh
// dailies from the task set join the rollup so a stateless invocation still
// sees a full current week. Local entries win on key collisions.
func mergeDailies(locals []artifact.Daily, tasks []*schedule.Task) []artifact.Daily {
	seen := make(map[string]bool, len(locals))
	merged := append([]artifact.Daily(nil), locals...)
	for _, d := range locals {
		seen[d.Key()] = true
	}
	for _, task := range tasks {
		if seen[task.Daily.Key()] || !task.Daily.ExistsRemote {
			continue
		}
		seen[task.Daily.Key()] = true
		merged = append(merged, task.Daily)
	}
	sortDailies(merged)
	markCurrent(merged)
	return merged
}

func sortDailies(days []artifact.Daily) {
	sort.Slice(days, func(i, j int) bool {
		if !days[i].Date.Equal(days[j].Date) {
			return days[i].Date.Before(days[j].Date)
		}
		return days[i].PartitionName < days[j].PartitionName
	})
}

// markCurrent flags every daily sharing the maximum date. Expects days
// sorted ascending.
func markCurrent(days []artifact.Daily) {
	if len(days) == 0 {
		return
	}
	latest := days[len(days)-1].Date
	for i := range days {
		days[i].Current = days[i].Date.Equal(latest)
	}
}

// reconcileWeeks builds, materializes and promotes weekly videos per plan.
// Returns the current week's Monday and local path for alias publication.
func (r *run) reconcileWeeks(ctx context.Context, locals []artifact.Daily) (time.Time, string) {
	buckets := weekly.Buckets(locals)
	plans := weekly.Decide(ctx, buckets, r.resolver, r.opts.AllWeeks)

	var currentMonday time.Time
	var currentWeekPath string
	for _, plan := range plans {
		key := plan.Bucket.Key()
		path := r.layout.LocalPath(key)
		switch {
		case plan.Rebuild:
			if err := r.buildWeekly(ctx, plan); err != nil {
				r.report.Errors = append(r.report.Errors, KeyError{Key: key, Err: err})
				continue
			}
			r.report.Built = append(r.report.Built, key)
			if r.store != nil {
				if err := r.retain.Promote(ctx, key); err != nil {
					r.report.Errors = append(r.report.Errors, KeyError{Key: key, Err: err})
					continue
				}
			}
		case plan.Materialize:
			if _, err := r.resolver.Materialize(ctx, key); err != nil {
				r.report.Errors = append(r.report.Errors, KeyError{Key: key, Err: err})
				continue
			}
		default:
			r.report.Skipped = append(r.report.Skipped, key)
		}
		if plan.CurrentWeek {
			currentMonday = plan.Bucket.Monday
			currentWeekPath = path
		}
	}
	return currentMonday, currentWeekPath
}

// buildWeekly concatenates a bucket's members. Remote-only members are
// materialized first so the rollup never runs against a partial set.
func (r *run) buildWeekly(ctx context.Context, plan weekly.Plan) error {
	parts := make([]string, 0, len(plan.Bucket.Days))
	for _, member := range plan.Bucket.Days {
		path, err := r.resolver.Materialize(ctx, member.Key())
		if err != nil {
			return err
		}
		parts = append(parts, path)
	}
	out := r.layout.LocalPath(plan.Bucket.Key())
	if err := r.enc.Concatenate(ctx, parts, out, false); err != nil {
		return err
	}
	r.log.Info("built weekly video",
		logging.String(logging.FieldKey, plan.Bucket.Key()),
		logging.Int("days", len(parts)))
	return nil
}

// buildFull concatenates every local daily into the full timelapse with the
// higher-compression profile. Slow, so it is opt-in per run.
func (r *run) buildFull(ctx context.Context, locals []artifact.Daily) {
	if len(locals) == 0 {
		return
	}
	parts := make([]string, 0, len(locals))
	for _, d := range locals {
		parts = append(parts, r.layout.LocalPath(d.Key()))
	}
	out := filepath.Join(r.layout.VideosDir, "timelapse_full.mp4")
	if err := r.enc.Concatenate(ctx, parts, out, true); err != nil {
		r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteFull, Err: err})
		return
	}
	r.report.Built = append(r.report.Built, artifact.SiteFull)
	if err := r.retain.PromoteFile(ctx, out, artifact.SiteFull); err != nil {
		r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteFull, Err: err})
	}
}

// publishAliases refreshes the fixed-name site objects: the current week
// video and the newest day video.
func (r *run) publishAliases(ctx context.Context, locals []artifact.Daily, currentWeekPath string) {
	if r.store == nil {
		return
	}
	if currentWeekPath != "" {
		if _, err := os.Stat(currentWeekPath); err == nil {
			if err := r.retain.PromoteFile(ctx, currentWeekPath, artifact.SiteCurrentWeek); err != nil {
				r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteCurrentWeek, Err: err})
			}
		}
	}
	if len(locals) == 0 {
		return
	}
	newest := locals[len(locals)-1]
	dayPath := r.layout.LocalPath(newest.Key())
	if err := r.retain.PromoteFile(ctx, dayPath, artifact.SiteCurrentDay); err != nil {
		r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteCurrentDay, Err: err})
	}
}

// publishLatestImage walks partitions newest first until one yields an
// image, saves that image next to the videos and refreshes its site alias.
// Returns the source filename, or "" when nothing was published.
func (r *run) publishLatestImage(ctx context.Context, parts []partition.Partition) string {
	for i := len(parts) - 1; i >= 0; i-- {
		items, err := r.source.ListItems(ctx, parts[i].ID)
		if err != nil {
			r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteLatestImage, Err: err})
			return ""
		}
		if len(items) == 0 {
			continue
		}
		drive.SortFrames(items)
		last := items[len(items)-1]
		dest := filepath.Join(r.layout.VideosDir, "latest.jpg")
		if err := r.source.FetchItem(ctx, last, dest); err != nil {
			r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteLatestImage, Err: err})
			return ""
		}
		if r.store != nil {
			if err := r.retain.PromoteFile(ctx, dest, artifact.SiteLatestImage); err != nil {
				r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteLatestImage, Err: err})
			}
		}
		return last.Name
	}
	return ""
}

// publishMetadata writes the frontend metadata document locally and
// refreshes its site alias.
func (r *run) publishMetadata(ctx context.Context, locals []artifact.Daily, currentMonday time.Time, latestImage string, now time.Time) {
	var published []time.Time
	for _, bucket := range weekly.Buckets(locals) {
		if r.resolver.Resolve(ctx, bucket.Key()) != tiercache.Missing {
			published = append(published, bucket.Monday)
		}
	}

	meta := sitemeta.Build(locals, published, currentMonday, latestImage, now)
	meta.Events = sitemeta.LoadEvents(filepath.Join(r.layout.VideosDir, "events.yaml"), r.log)
	if meta.Events == nil {
		meta.Events = []sitemeta.Event{}
	}

	raw, err := meta.Encode()
	if err != nil {
		r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteMetadata, Err: err})
		return
	}
	path := filepath.Join(r.layout.VideosDir, "metadata.json")
	if err := fileutil.WriteAtomic(path, bytes.NewReader(raw)); err != nil {
		r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteMetadata, Err: err})
		return
	}
	if r.store != nil {
		if err := r.retain.PromoteFile(ctx, path, artifact.SiteMetadata); err != nil {
			r.report.Errors = append(r.report.Errors, KeyError{Key: artifact.SiteMetadata, Err: err})
		}
	}
}

// journal records the run in the local catalog. Journaling failures are
// logged only; the run outcome stands regardless.
func (r *run) journal(ctx context.Context, runErr error) {
	if r.catalog == nil {
		return
	}
	entry := catalog.Run{
		ID:         r.report.RunID,
		StartedAt:  r.report.StartedAt,
		FinishedAt: r.report.FinishedAt,
	}
	if runErr != nil {
		entry.Err = runErr.Error()
	}
	for _, key := range r.report.Built {
		entry.Artifacts = append(entry.Artifacts, catalog.Artifact{Key: key, Outcome: catalog.OutcomeBuilt})
	}
	for _, key := range r.report.Skipped {
		entry.Artifacts = append(entry.Artifacts, catalog.Artifact{Key: key, Outcome: catalog.OutcomeSkipped})
	}
	for _, key := range r.report.Evicted {
		entry.Artifacts = append(entry.Artifacts, catalog.Artifact{Key: key, Outcome: catalog.OutcomeEvicted})
	}
	for _, ke := range r.report.Errors {
		entry.Artifacts = append(entry.Artifacts, catalog.Artifact{
			Key: ke.Key, Outcome: catalog.OutcomeFailed, Detail: ke.Err.Error(),
		})
	}
	if err := r.catalog.RecordRun(ctx, entry); err != nil {
		r.log.Warn("run journaling failed", logging.Error(err))
	}
}

func (r *run) notify(ctx context.Context, runErr error) {
	var err error
	switch {
	case runErr != nil:
		err = r.notifier.NotifyRunFailed(ctx, runErr, len(r.report.Errors))
	case len(r.report.Errors) > 0:
		err = r.notifier.NotifyRunFailed(ctx, errors.Join(keyErrors(r.report.Errors)...), len(r.report.Errors))
	default:
		duration := r.report.FinishedAt.Sub(r.report.StartedAt)
		err = r.notifier.NotifyRunCompleted(ctx,
			len(r.report.Built), len(r.report.Skipped), len(r.report.Evicted), duration)
	}
	if err != nil {
		r.log.Warn("notification delivery failed", logging.Error(err))
	}
}

func keyErrors(kes []KeyError) []error {
	errs := make([]error, 0, len(kes))
	for _, ke := range kes {
		errs = append(errs, ke.Err)
	}
	return errs
}
