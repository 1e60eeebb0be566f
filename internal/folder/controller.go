// Package folder implements the Folder Controller state machine: one
// instance owns a single media folder's Metadata Cache, File Table &
// Tracker, Change Queue, Bookmarks, and error list, and drives its
// Fresh -> Loading -> Ready <-> Busy lifecycle. Mutating passes collect
// per-item errors instead of aborting and run with a bounded amount of
// parallelism.
package folder

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"
	"golang.org/x/sync/errgroup"

	"github.com/hnipps/seriesvault/internal/bookmarks"
	"github.com/hnipps/seriesvault/internal/classify"
	"github.com/hnipps/seriesvault/internal/filetable"
	"github.com/hnipps/seriesvault/internal/fsops"
	"github.com/hnipps/seriesvault/internal/metadatacache"
	"github.com/hnipps/seriesvault/internal/report"
	"github.com/hnipps/seriesvault/internal/tvdb"
	"github.com/hnipps/seriesvault/pkg/models"
)

// Logger is the subset of svlog.Logger the controller needs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Controller owns one media folder's state. Reads (status queries,
// snapshots) never block on busyMu; every mutating operation acquires
// it for its duration.
type Controller struct {
	root            string
	concurrentLimit int

	client  *tvdb.Client
	logger  Logger
	checker *fsops.Checker

	table *filetable.Table
	queue *filetable.ChangeQueue

	cacheMu sync.RWMutex
	cache   *metadatacache.Cache

	bookmarkTable *bookmarks.Table

	rulesMu sync.RWMutex
	rules   models.FilterRules

	errorsMu sync.RWMutex
	errors   []models.ErrorEntry

	busyMu sync.Mutex

	initialLoadMu   sync.Mutex
	initialLoadDone bool

	fileCountMu          sync.Mutex
	fileCountInitialized bool
	fileCount            int

	selectedMu         sync.Mutex
	selectedDescriptor *models.EpisodeKey
}

// New returns a Controller for the folder at root, in the Fresh state.
func New(root string, rules models.FilterRules, client *tvdb.Client, logger Logger, concurrentLimit int) *Controller {
	if concurrentLimit <= 0 {
		concurrentLimit = 1
	}
	return &Controller{
		root:            root,
		concurrentLimit: concurrentLimit,
		client:          client,
		logger:          logger,
		checker:         fsops.NewChecker(),
		table:           filetable.New(),
		queue:           filetable.NewChangeQueue(),
		bookmarkTable:   bookmarks.NewTable(),
		rules:           rules,
	}
}

// Root returns the folder's absolute path.
func (c *Controller) Root() string { return c.root }

// Table exposes the File Table & Tracker for read-level access (GUI
// rendering, status queries, tests). Table's own locks make this safe to
// call while a mutating operation is in progress.
func (c *Controller) Table() *filetable.Table { return c.table }

// Queue exposes the Change Queue for enqueuing edits from read-level
// access, per the sibling-mutability-under-readers design.
func (c *Controller) Queue() *filetable.ChangeQueue { return c.queue }

// Flush folds the change queue into the table. This is the "Ready ->
// Ready (sync)" transition: it does not take the busy mutex, since it
// never suspends.
func (c *Controller) Flush() int {
	return c.queue.Flush(c.table)
}

// IsBusy reports whether a mutating operation currently holds the busy
// mutex, without blocking — a non-suspending hint a caller can poll
// instead of waiting on the lock.
func (c *Controller) IsBusy() bool {
	if c.busyMu.TryLock() {
		c.busyMu.Unlock()
		return false
	}
	return true
}

// InitialLoadDone reports whether PerformInitialLoad has already run to
// completion, letting a fleet-level fan-out decide between an initial load
// and a plain rescan for this folder.
func (c *Controller) InitialLoadDone() bool {
	c.initialLoadMu.Lock()
	defer c.initialLoadMu.Unlock()
	return c.initialLoadDone
}

// Status derives the folder's summary classification. It is Unknown until
// the first successful intent scan (initial load or UpdateFileIntents).
func (c *Controller) Status() models.FolderStatus {
	c.fileCountMu.Lock()
	scanned := c.fileCountInitialized
	c.fileCountMu.Unlock()
	return c.table.Status(scanned)
}

// Errors returns a copy of the folder's error list.
func (c *Controller) Errors() []models.ErrorEntry {
	c.errorsMu.RLock()
	defer c.errorsMu.RUnlock()
	out := make([]models.ErrorEntry, len(c.errors))
	copy(out, c.errors)
	return out
}

// ClearError removes the error list entry with the given id, if present.
// This is the effect of a GUI user clicking an entry to dismiss it.
func (c *Controller) ClearError(id string) {
	c.errorsMu.Lock()
	defer c.errorsMu.Unlock()
	for i, e := range c.errors {
		if e.ID == id {
			c.errors = append(c.errors[:i], c.errors[i+1:]...)
			return
		}
	}
}

func (c *Controller) appendError(kind models.ErrorKind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Warn("%s: %s", c.root, msg)
	c.errorsMu.Lock()
	c.errors = append(c.errors, models.NewErrorEntry(kind, msg))
	c.errorsMu.Unlock()
}

// SelectedDescriptor returns the episode key currently selected in this
// folder's UI, if any.
func (c *Controller) SelectedDescriptor() *models.EpisodeKey {
	c.selectedMu.Lock()
	defer c.selectedMu.Unlock()
	if c.selectedDescriptor == nil {
		return nil
	}
	d := *c.selectedDescriptor
	return &d
}

// SetSelectedDescriptor records the episode key currently selected.
func (c *Controller) SetSelectedDescriptor(key *models.EpisodeKey) {
	c.selectedMu.Lock()
	defer c.selectedMu.Unlock()
	c.selectedDescriptor = key
}

// Cache returns the currently loaded Metadata Cache, or nil if none has
// been loaded yet.
func (c *Controller) Cache() *metadatacache.Cache {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return c.cache
}

// SetRules replaces the active Filter Rules for subsequent rescans.
func (c *Controller) SetRules(rules models.FilterRules) {
	c.rulesMu.Lock()
	c.rules = rules
	c.rulesMu.Unlock()
}

func (c *Controller) currentRules() models.FilterRules {
	c.rulesMu.RLock()
	defer c.rulesMu.RUnlock()
	return c.rules
}

// PerformInitialLoad runs the Fresh -> Loading transition. It runs at
// most once, guarded by initialLoadDone: concurrently, it loads the
// metadata cache from disk and then rescans intents (whether or not a
// cache was found), and loads bookmarks from disk. Failures are
// fail-soft: appended to the error list, never fatal to the caller.
func (c *Controller) PerformInitialLoad(ctx context.Context) error {
	c.initialLoadMu.Lock()
	if c.initialLoadDone {
		c.initialLoadMu.Unlock()
		return nil
	}
	c.initialLoadMu.Unlock()

	c.busyMu.Lock()
	defer c.busyMu.Unlock()
	if c.InitialLoadDone() {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cache, err := metadatacache.LoadFromDisk(c.root)
		if err != nil {
			c.appendError(models.ErrorKindIO, "load cache from disk: %v", err)
		} else {
			c.cacheMu.Lock()
			c.cache = cache
			c.cacheMu.Unlock()
		}

		// The rescan proceeds regardless of whether a cache was found: a
		// fresh folder with no series.json yet still wants its files
		// classified (Delete/Whitelist/Ignore don't need a cache; only
		// Rename does).
		if err := c.rescan(gctx); err != nil {
			c.appendError(models.ErrorKindIO, "rescan after initial cache load: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		path := filepath.Join(c.root, "bookmarks.json")
		if err := c.bookmarkTable.Load(path); err != nil {
			c.appendError(models.ErrorKindIO, "load bookmarks: %v", err)
		}
		return nil
	})
	_ = g.Wait()

	c.initialLoadMu.Lock()
	c.initialLoadDone = true
	c.initialLoadMu.Unlock()
	return nil
}

// LoadCacheFromFile reloads the metadata cache from series.json /
// episodes.json on disk, replacing the in-memory cache atomically.
func (c *Controller) LoadCacheFromFile(ctx context.Context) error {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()

	cache, err := metadatacache.LoadFromDisk(c.root)
	if err != nil {
		c.appendError(models.ErrorKindIO, "load cache from file: %v", err)
		return err
	}
	c.cacheMu.Lock()
	c.cache = cache
	c.cacheMu.Unlock()
	return nil
}

// LoadCacheFromAPI fetches series and episodes for seriesID from the
// catalog and replaces the in-memory cache.
func (c *Controller) LoadCacheFromAPI(ctx context.Context, seriesID uint32) error {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()
	return c.loadCacheFromAPILocked(ctx, seriesID)
}

func (c *Controller) loadCacheFromAPILocked(ctx context.Context, seriesID uint32) error {
	series, err := c.client.GetSeries(ctx, seriesID)
	if err != nil {
		c.appendError(models.ErrorKindRemoteHTTP, "get series %d: %v", seriesID, err)
		return err
	}
	episodes, err := c.client.GetEpisodes(ctx, seriesID)
	if err != nil {
		c.appendError(models.ErrorKindRemoteHTTP, "get episodes for series %d: %v", seriesID, err)
		return err
	}

	c.cacheMu.Lock()
	c.cache = metadatacache.New(series, episodes)
	c.cacheMu.Unlock()
	return nil
}

// RefreshCacheFromAPI re-fetches the currently loaded series from the
// API using its own series id. It requires an already-loaded cache;
// without one this is CachePreconditionUnmet.
func (c *Controller) RefreshCacheFromAPI(ctx context.Context) error {
	c.cacheMu.RLock()
	cache := c.cache
	c.cacheMu.RUnlock()
	if cache == nil {
		err := fmt.Errorf("no cache loaded")
		c.appendError(models.ErrorKindCachePreconditionUnmet, "refresh cache from api: %v", err)
		return err
	}

	c.busyMu.Lock()
	defer c.busyMu.Unlock()
	return c.loadCacheFromAPILocked(ctx, cache.Series().ID)
}

// SaveCacheToFile persists the current cache to series.json /
// episodes.json. Each file's write result is reported independently;
// partial success is allowed.
func (c *Controller) SaveCacheToFile(ctx context.Context) error {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()

	c.cacheMu.RLock()
	cache := c.cache
	c.cacheMu.RUnlock()
	if cache == nil {
		err := fmt.Errorf("no cache loaded")
		c.appendError(models.ErrorKindCachePreconditionUnmet, "save cache to file: %v", err)
		return err
	}

	if err := metadatacache.SaveToDisk(c.root, cache); err != nil {
		c.appendError(models.ErrorKindIO, "save cache to file: %v", err)
		return err
	}
	return nil
}

// UpdateFileIntents rescans the folder: walks the folder for files,
// classifies each against the current rules and cache, and rebuilds the
// File Table & Tracker wholesale. After a successful rescan,
// |records| = |existing_sources| and the two agree on every src
// (invariant 7).
func (c *Controller) UpdateFileIntents(ctx context.Context) error {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()
	return c.rescan(ctx)
}

func (c *Controller) rescan(ctx context.Context) error {
	paths, err := c.listFiles()
	if err != nil {
		c.appendError(models.ErrorKindIO, "rescan: %v", err)
		return err
	}

	c.cacheMu.RLock()
	cache := c.cache
	c.cacheMu.RUnlock()
	rules := c.currentRules()

	records := make([]models.FileRecord, len(paths))
	for i, rel := range paths {
		intent := classify.Classify(rel, rules, cache)
		records[i] = models.FileRecord{
			Src:           rel,
			SrcDescriptor: intent.Descriptor,
			Action:        intent.Action,
			Dest:          intent.Dest,
		}
	}

	c.table.RebuildFrom(records)

	c.fileCountMu.Lock()
	c.fileCount = len(records)
	c.fileCountInitialized = true
	c.fileCountMu.Unlock()
	return nil
}

// listFiles walks the folder and returns every regular file's
// forward-slash path relative to root. bookmarks.json, series.json, and
// episodes.json — the folder's own on-disk artifacts — are excluded,
// since they are not media files.
func (c *Controller) listFiles() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if isArtifact(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", c.root, err)
	}
	return paths, nil
}

func isArtifact(rel string) bool {
	switch rel {
	case "series.json", "episodes.json", "bookmarks.json":
		return true
	default:
		return false
	}
}

// ExecuteChanges performs every enabled, non-conflicting scheduled
// mutation: Delete records are removed, Rename records are moved to
// their destination. Conflicting Rename records are silently skipped.
// All schedules run in parallel (bounded by concurrentLimit); errors are
// collected but never abort other schedules. Empty top-level
// subdirectories are removed afterward.
func (c *Controller) ExecuteChanges(ctx context.Context, dryRun bool) (*report.ExecuteSummary, error) {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()

	snapshots := c.table.Snapshots()

	summary := &report.ExecuteSummary{
		GeneratedAt: strftime.Format("%Y-%m-%dT%H:%M:%SZ", time.Now().UTC()),
		FolderPath:  c.root,
		RunType:     runType(dryRun),
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrentLimit)

	var mu sync.Mutex

	for _, snap := range snapshots {
		snap := snap
		if !snap.Record.IsEnabled {
			continue
		}

		switch snap.Record.Action {
		case models.ActionDelete:
			g.Go(func() error {
				path := filepath.Join(c.root, filepath.FromSlash(snap.Record.Src))
				if !c.checker.FileExists(path) {
					c.appendError(models.ErrorKindIO, "delete %s: file no longer exists", snap.Record.Src)
					return nil
				}
				if dryRun {
					mu.Lock()
					summary.Deleted++
					mu.Unlock()
					return nil
				}
				if err := fsops.Remove(path); err != nil {
					c.appendError(models.ErrorKindIO, "delete %s: %v", snap.Record.Src, err)
					mu.Lock()
					summary.Errors = append(summary.Errors, err.Error())
					mu.Unlock()
					return nil
				}
				mu.Lock()
				summary.Deleted++
				mu.Unlock()
				return nil
			})

		case models.ActionRename:
			if snap.IsConflict {
				mu.Lock()
				summary.ConflictsLeft++
				mu.Unlock()
				continue
			}
			g.Go(func() error {
				srcPath := filepath.Join(c.root, filepath.FromSlash(snap.Record.Src))
				destPath := filepath.Join(c.root, filepath.FromSlash(snap.Record.Dest))

				if !c.checker.FileExists(srcPath) {
					c.appendError(models.ErrorKindIO, "rename %s: file no longer exists", snap.Record.Src)
					return nil
				}

				var size int64
				if info, err := os.Stat(srcPath); err == nil {
					size = info.Size()
				}

				if dryRun {
					mu.Lock()
					summary.Renamed++
					summary.BytesMoved += size
					mu.Unlock()
					return nil
				}

				if err := fsops.Move(srcPath, destPath); err != nil {
					c.appendError(models.ErrorKindIO, "rename %s -> %s: %v", snap.Record.Src, snap.Record.Dest, err)
					mu.Lock()
					summary.Errors = append(summary.Errors, err.Error())
					mu.Unlock()
					return nil
				}
				mu.Lock()
				summary.Renamed++
				summary.BytesMoved += size
				mu.Unlock()
				return nil
			})
		}
	}

	_ = g.Wait()

	if !dryRun {
		if err := fsops.RemoveEmptyDirs(c.root); err != nil {
			c.appendError(models.ErrorKindIO, "remove empty dirs: %v", err)
		}
	}

	return summary, nil
}

func runType(dryRun bool) string {
	if dryRun {
		return "dry-run"
	}
	return "real-run"
}
