// Package app implements the fleet manager that owns the catalog login
// session, the list of per-folder Folder Controllers, and the last
// series-search results, and fans work out across folders. It is a
// long-lived, re-enterable manager: the same Controller services ad hoc
// one-shot runs and a recurring scheduler alike.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/hnipps/seriesvault/internal/config"
	"github.com/hnipps/seriesvault/internal/folder"
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

// Controller is the fleet manager: it owns zero or more Folder Controllers
// and the catalog session shared across them.
type Controller struct {
	configPath      string
	client          *tvdb.Client
	logger          Logger
	concurrentLimit int
	reportGen       *report.Generator

	rulesMu sync.RWMutex
	rules   models.FilterRules

	sessionMu sync.RWMutex
	session   *models.Session

	foldersMu      sync.RWMutex
	folders        []*folder.Controller
	selectedFolder int

	seriesMu      sync.RWMutex
	searchResults []models.Series
	selectedSeries int

	errorsMu sync.RWMutex
	errors   []models.ErrorEntry

	busyMu sync.Mutex

	cronMu sync.Mutex
	cron   *cron.Cron
}

// New returns a Controller with no folders loaded and no session.
func New(configPath string, rules models.FilterRules, client *tvdb.Client, logger Logger, concurrentLimit int) *Controller {
	if concurrentLimit <= 0 {
		concurrentLimit = 1
	}
	return &Controller{
		configPath:      configPath,
		client:          client,
		logger:          logger,
		concurrentLimit: concurrentLimit,
		reportGen:       report.NewGenerator(logger),
		rules:           rules,
		selectedFolder:  -1,
		selectedSeries:  -1,
	}
}

func (c *Controller) appendError(kind models.ErrorKind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Warn("%s", msg)
	c.errorsMu.Lock()
	c.errors = append(c.errors, models.NewErrorEntry(kind, msg))
	c.errorsMu.Unlock()
}

// Errors returns a copy of the fleet-level error list.
func (c *Controller) Errors() []models.ErrorEntry {
	c.errorsMu.RLock()
	defer c.errorsMu.RUnlock()
	out := make([]models.ErrorEntry, len(c.errors))
	copy(out, c.errors)
	return out
}

// ClearError removes the fleet-level error list entry with the given id.
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

// IsBusy reports, without blocking, whether a fleet-level mutating
// operation is in progress.
func (c *Controller) IsBusy() bool {
	if c.busyMu.TryLock() {
		c.busyMu.Unlock()
		return false
	}
	return true
}

// SetRules replaces the active Filter Rules, propagating them to every
// currently loaded folder.
func (c *Controller) SetRules(rules models.FilterRules) {
	c.rulesMu.Lock()
	c.rules = rules
	c.rulesMu.Unlock()

	c.foldersMu.RLock()
	defer c.foldersMu.RUnlock()
	for _, f := range c.folders {
		f.SetRules(rules)
	}
}

func (c *Controller) currentRules() models.FilterRules {
	c.rulesMu.RLock()
	defer c.rulesMu.RUnlock()
	return c.rules
}

// Session returns the current login session, or nil if never logged in.
func (c *Controller) Session() *models.Session {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Login reads credentials.json, exchanges them for a bearer token, stores
// the resulting session, and persists the token back to credentials.json.
func (c *Controller) Login(ctx context.Context) error {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()

	doc, ok, err := config.LoadCredentials(c.configPath)
	if err != nil {
		c.appendError(models.ErrorKindConfigParse, "load credentials: %v", err)
		return err
	}
	if !ok {
		err := fmt.Errorf("credentials.json not found under %s", c.configPath)
		c.appendError(models.ErrorKindConfigParse, "login: %v", err)
		return err
	}

	session, err := c.client.Login(ctx, doc.Credentials)
	if err != nil {
		c.appendError(models.ErrorKindRemoteHTTP, "login: %v", err)
		return err
	}

	c.sessionMu.Lock()
	c.session = &session
	c.sessionMu.Unlock()

	doc.Token = session.Token
	if err := config.SaveCredentials(c.configPath, doc); err != nil {
		c.appendError(models.ErrorKindIO, "save credentials: %v", err)
		return err
	}
	return nil
}

// LoadFolders enumerates root's immediate subdirectories, sorted by name,
// and replaces the folder list with one fresh Folder Controller per
// subdirectory, resetting the current selection.
func (c *Controller) LoadFolders(root string) error {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()

	entries, err := os.ReadDir(root)
	if err != nil {
		c.appendError(models.ErrorKindIO, "load folders: %v", err)
		return err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	rules := c.currentRules()
	folders := make([]*folder.Controller, len(names))
	for i, name := range names {
		folders[i] = folder.New(filepath.Join(root, name), rules, c.client, c.logger, c.concurrentLimit)
	}

	c.foldersMu.Lock()
	c.folders = folders
	c.selectedFolder = -1
	c.foldersMu.Unlock()

	c.logger.Info("loaded %d folders from %s", len(folders), root)
	return nil
}

// Folders returns the current folder list.
func (c *Controller) Folders() []*folder.Controller {
	c.foldersMu.RLock()
	defer c.foldersMu.RUnlock()
	out := make([]*folder.Controller, len(c.folders))
	copy(out, c.folders)
	return out
}

// SelectedFolder returns the currently selected folder, or nil if no
// selection is active.
func (c *Controller) SelectedFolder() *folder.Controller {
	c.foldersMu.RLock()
	defer c.foldersMu.RUnlock()
	if c.selectedFolder < 0 || c.selectedFolder >= len(c.folders) {
		return nil
	}
	return c.folders[c.selectedFolder]
}

// SelectFolder sets the current folder selection by index.
func (c *Controller) SelectFolder(index int) error {
	c.foldersMu.Lock()
	defer c.foldersMu.Unlock()
	if index < 0 || index >= len(c.folders) {
		return fmt.Errorf("folder index %d out of range [0,%d)", index, len(c.folders))
	}
	c.selectedFolder = index
	return nil
}

// UpdateSearchSeries queries the catalog for query and stores the results.
// It requires an authenticated session.
func (c *Controller) UpdateSearchSeries(ctx context.Context, query string) error {
	if c.Session() == nil {
		err := fmt.Errorf("update_search_series requires a login session")
		c.appendError(models.ErrorKindSessionRequired, "%v", err)
		return err
	}

	c.busyMu.Lock()
	defer c.busyMu.Unlock()

	results, err := c.client.SearchSeries(ctx, query)
	if err != nil {
		c.appendError(models.ErrorKindRemoteHTTP, "search series %q: %v", query, err)
		return err
	}

	c.seriesMu.Lock()
	c.searchResults = results
	c.selectedSeries = -1
	c.seriesMu.Unlock()

	c.logger.Info("found %d series matching %q", len(results), query)
	return nil
}

// SearchResults returns the last series-search results.
func (c *Controller) SearchResults() []models.Series {
	c.seriesMu.RLock()
	defer c.seriesMu.RUnlock()
	out := make([]models.Series, len(c.searchResults))
	copy(out, c.searchResults)
	return out
}

// SearchResultSummary renders series's catalog first-aired date as a
// relative, human-readable phrase ("3 years ago") with go-humanize, the
// library the execute-summary report uses for byte counts.
func SearchResultSummary(series models.Series) string {
	if series.FirstAired == "" {
		return fmt.Sprintf("%s (first aired unknown)", series.Name)
	}
	aired, err := time.Parse("2006-01-02", series.FirstAired)
	if err != nil {
		return fmt.Sprintf("%s (first aired %s)", series.Name, series.FirstAired)
	}
	return fmt.Sprintf("%s (first aired %s)", series.Name, humanize.Time(aired))
}

// SetSeriesToCurrentFolder loads seriesID's metadata into the selected
// folder's cache from the API, rescans its intents, and persists the
// cache to disk. The three steps run in sequence; a failure at any step
// stops the pipeline and returns that step's error.
func (c *Controller) SetSeriesToCurrentFolder(ctx context.Context, seriesID uint32) error {
	target := c.SelectedFolder()
	if target == nil {
		err := fmt.Errorf("set_series_to_current_folder: no folder selected")
		c.appendError(models.ErrorKindCachePreconditionUnmet, "%v", err)
		return err
	}

	if err := target.LoadCacheFromAPI(ctx, seriesID); err != nil {
		return err
	}
	if err := target.UpdateFileIntents(ctx); err != nil {
		return err
	}
	return target.SaveCacheToFile(ctx)
}

// UpdateFileIntentsForAllFolders fans out over every loaded folder,
// running its initial load if it has not yet run, or a plain rescan
// otherwise, and awaits all of them. Individual folder failures are
// fail-soft: they land in that folder's own error list and never abort
// the others.
func (c *Controller) UpdateFileIntentsForAllFolders(ctx context.Context) error {
	c.busyMu.Lock()
	defer c.busyMu.Unlock()

	folders := c.Folders()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrentLimit)

	for _, f := range folders {
		f := f
		g.Go(func() error {
			if !f.InitialLoadDone() {
				return f.PerformInitialLoad(gctx)
			}
			return f.UpdateFileIntents(gctx)
		})
	}
	_ = g.Wait()

	c.logger.Info("updated file intents for %d folders", len(folders))
	return nil
}

// ExecuteChangesForSelectedFolder runs the selected folder's scheduled
// changes, logs a humanized one-line summary, and writes an execute
// report to reports/.
func (c *Controller) ExecuteChangesForSelectedFolder(ctx context.Context, dryRun bool) (*report.ExecuteSummary, error) {
	target := c.SelectedFolder()
	if target == nil {
		err := fmt.Errorf("execute_changes: no folder selected")
		c.appendError(models.ErrorKindCachePreconditionUnmet, "%v", err)
		return nil, err
	}

	summary, err := target.ExecuteChanges(ctx, dryRun)
	if err != nil {
		return nil, err
	}

	c.logger.Info("%s: renamed=%d deleted=%d conflicts=%d moved=%s",
		target.Root(), summary.Renamed, summary.Deleted, summary.ConflictsLeft,
		humanize.Bytes(uint64(summary.BytesMoved)))

	if err := c.reportGen.GenerateReport(summary, true); err != nil {
		c.appendError(models.ErrorKindIO, "generate execute report: %v", err)
	}

	return summary, nil
}

// ExecuteChangesForAllFolders runs every loaded folder's scheduled changes
// concurrently (bounded by concurrentLimit) and returns one ExecuteSummary
// per folder, in folder order. A folder whose execute pass errors
// contributes a nil entry at its index; the others still run to
// completion.
func (c *Controller) ExecuteChangesForAllFolders(ctx context.Context, dryRun bool) []*report.ExecuteSummary {
	folders := c.Folders()
	summaries := make([]*report.ExecuteSummary, len(folders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrentLimit)

	for i, f := range folders {
		i, f := i, f
		g.Go(func() error {
			summary, err := f.ExecuteChanges(gctx, dryRun)
			if err != nil {
				c.logger.Warn("execute changes failed for %s: %v", f.Root(), err)
				return nil
			}
			summaries[i] = summary

			c.logger.Info("%s: renamed=%d deleted=%d conflicts=%d moved=%s",
				f.Root(), summary.Renamed, summary.Deleted, summary.ConflictsLeft,
				humanize.Bytes(uint64(summary.BytesMoved)))
			if err := c.reportGen.GenerateReport(summary, false); err != nil {
				c.appendError(models.ErrorKindIO, "generate execute report for %s: %v", f.Root(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return summaries
}

// RunCycle performs one full fleet pass: rescan every folder, then execute
// every folder's resulting scheduled changes. This is what the CLI runs
// once per invocation, and what the scheduler re-runs on cronSchedule.
func (c *Controller) RunCycle(ctx context.Context, dryRun bool) error {
	if err := c.UpdateFileIntentsForAllFolders(ctx); err != nil {
		return err
	}
	c.ExecuteChangesForAllFolders(ctx, dryRun)
	return nil
}

// StartScheduler arms a background job that runs RunCycle on cronSchedule
// (standard five-field cron syntax, or the "@every" shorthand). An empty
// schedule is a no-op: the scheduler stays disabled.
func (c *Controller) StartScheduler(ctx context.Context, cronSchedule string, dryRun bool) error {
	if cronSchedule == "" {
		return nil
	}

	c.cronMu.Lock()
	defer c.cronMu.Unlock()
	if c.cron != nil {
		return fmt.Errorf("scheduler already running")
	}

	job := cron.New()
	_, err := job.AddFunc(cronSchedule, func() {
		if err := c.RunCycle(ctx, dryRun); err != nil {
			c.logger.Warn("scheduled run_cycle failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cronSchedule, err)
	}

	job.Start()
	c.cron = job
	c.logger.Info("scheduler armed: %s", cronSchedule)
	return nil
}

// StopScheduler stops the background scheduler, if running.
func (c *Controller) StopScheduler() {
	c.cronMu.Lock()
	defer c.cronMu.Unlock()
	if c.cron == nil {
		return
	}
	stopCtx := c.cron.Stop()
	<-stopCtx.Done()
	c.cron = nil
}
