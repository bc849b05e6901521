package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"feedvault/internal/hasher"
	"feedvault/internal/metrics"

	"go.uber.org/zap"
)

// Archive is the registry of feeds and their summary counters.
// It owns every FeedStore it hands out and the deferred-commit timer.
//
// Archive is not safe for concurrent use: all calls, including the commit fired
// by the scheduler, must happen on the owning goroutine.
type Archive struct {
	drv         driver
	logger      *zap.Logger
	metrics     *metrics.Metrics
	sched       Scheduler
	commitDelay time.Duration

	open       bool
	autoCommit bool
	modified   bool

	entries       map[string]*IndexEntry
	dirtyEntries  map[string]struct{}
	feedList      string
	feedListDirty bool
	feeds         map[string]*FeedStore
}

type Option func(*Archive)

func WithLogger(l *zap.Logger) Option {
	return func(a *Archive) { a.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Archive) { a.metrics = m }
}

func WithScheduler(s Scheduler) Option {
	return func(a *Archive) { a.sched = s }
}

// WithDispatcher runs deferred commits through post, typically an event loop's Post.
func WithDispatcher(post func(func())) Option {
	return func(a *Archive) { a.sched = TimerScheduler{Post: post} }
}

func WithCommitDelay(d time.Duration) Option {
	return func(a *Archive) {
		if d > 0 {
			a.commitDelay = d
		}
	}
}

// NewMemory returns an ephemeral archive. It is used when no archive backend is configured and in tests.
func NewMemory(opts ...Option) *Archive {
	return newArchive(newMemoryDriver(), opts...)
}

// NewBadger returns an archive persisted in a Badger database.
func NewBadger(cfg BadgerConfig, opts ...Option) *Archive {
	a := newArchive(nil, opts...)
	a.drv = newBadgerDriver(cfg, a.logger)
	return a
}

func newArchive(drv driver, opts ...Option) *Archive {
	a := &Archive{
		drv:          drv,
		logger:       zap.NewNop(),
		sched:        TimerScheduler{},
		commitDelay:  DefaultCommitDelay,
		entries:      make(map[string]*IndexEntry),
		dirtyEntries: make(map[string]struct{}),
		feeds:        make(map[string]*FeedStore),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open initializes the backing index and article store.
func (a *Archive) Open(autoCommit bool) error {
	if a.open {
		return nil
	}
	if err := a.drv.open(); err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	if err := a.loadIndex(); err != nil {
		a.drv.close()
		return err
	}
	a.autoCommit = autoCommit
	a.open = true
	a.logger.Info("Archive opened", zap.Int("feeds", len(a.entries)), zap.Bool("auto_commit", autoCommit))
	return nil
}

func (a *Archive) loadIndex() error {
	entries, feedList, err := a.drv.loadIndex()
	if err != nil {
		return fmt.Errorf("failed to load archive index: %w", err)
	}
	a.entries = make(map[string]*IndexEntry, len(entries))
	for url, e := range entries {
		e := e
		a.entries[url] = &e
	}
	a.dirtyEntries = make(map[string]struct{})
	a.feedList = feedList
	a.feedListDirty = false
	return nil
}

func (a *Archive) AutoCommit() bool { return a.autoCommit }

// ArchiveFor returns the feed table for url, registering the feed on first use.
func (a *Archive) ArchiveFor(url string) FeedArchive {
	return a.feedStore(url)
}

func (a *Archive) feedStore(url string) *FeedStore {
	if fs, ok := a.feeds[url]; ok {
		return fs
	}
	if _, ok := a.entries[url]; !ok {
		a.entries[url] = &IndexEntry{URL: url}
		a.dirtyEntries[url] = struct{}{}
		a.markDirty()
	}

	key := hasher.StorageKey(url)
	rows, err := a.drv.loadFeed(key)
	if err != nil {
		a.logger.Error("Failed to load feed archive", zap.String("url", url), zap.Error(err))
		rows = nil
	}
	fs := newFeedStore(url, key, a, rows)
	a.feeds[url] = fs
	return fs
}

// Lookup returns the table of an already registered feed.
func (a *Archive) Lookup(url string) (FeedReader, bool) {
	if _, ok := a.entries[url]; !ok {
		return nil, false
	}
	return a.feedStore(url), true
}

func (a *Archive) Feeds() []string {
	urls := make([]string, 0, len(a.entries))
	for url := range a.entries {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

func (a *Archive) UnreadFor(url string) int {
	if e, ok := a.entries[url]; ok {
		return e.Unread
	}
	return 0
}

func (a *Archive) SetUnreadFor(url string, n int) {
	a.updateEntry(url, func(e *IndexEntry) { e.Unread = n })
}

func (a *Archive) TotalCountFor(url string) int {
	if e, ok := a.entries[url]; ok {
		return e.TotalCount
	}
	return 0
}

func (a *Archive) SetTotalCountFor(url string, n int) {
	a.updateEntry(url, func(e *IndexEntry) { e.TotalCount = n })
}

// LastFetchFor returns the zero time for unknown feeds and feeds never fetched.
func (a *Archive) LastFetchFor(url string) time.Time {
	if e, ok := a.entries[url]; ok {
		return e.LastFetch
	}
	return time.Time{}
}

func (a *Archive) SetLastFetchFor(url string, t time.Time) {
	a.updateEntry(url, func(e *IndexEntry) { e.LastFetch = toEpochSecond(t) })
}

func (a *Archive) updateEntry(url string, fn func(e *IndexEntry)) {
	e, ok := a.entries[url]
	if !ok {
		return
	}
	fn(e)
	a.dirtyEntries[url] = struct{}{}
	a.markDirty()
}

// StoreFeedList keeps blob verbatim as the crash-recovery copy of the feed list.
func (a *Archive) StoreFeedList(blob string) {
	a.feedList = blob
	a.feedListDirty = true
	a.markDirty()
}

func (a *Archive) RestoreFeedList() string {
	return a.feedList
}

// Commit flushes pending writes of every owned feed and of the index.
func (a *Archive) Commit() error {
	err := a.commit()
	a.metrics.Committed(err)
	return err
}

func (a *Archive) commit() error {
	if !a.open {
		return ErrNotOpen
	}
	if err := a.commitFeeds(); err != nil {
		return err
	}
	return a.commitIndex()
}

// commitFeeds writes every feed's rows. The index stays pending when any feed
// fails, so persisted counters never describe rows the driver did not take.
func (a *Archive) commitFeeds() error {
	var errs []error
	for _, fs := range a.feeds {
		if err := fs.Commit(); err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", fs.url, err))
		}
	}
	return errors.Join(errs...)
}

func (a *Archive) commitIndex() error {
	if len(a.dirtyEntries) == 0 && !a.feedListDirty {
		return nil
	}
	upserts := make([]IndexEntry, 0, len(a.dirtyEntries))
	for url := range a.dirtyEntries {
		if e, ok := a.entries[url]; ok {
			upserts = append(upserts, *e)
		}
	}
	var feedList *string
	if a.feedListDirty {
		fl := a.feedList
		feedList = &fl
	}
	if err := a.drv.commitIndex(upserts, feedList); err != nil {
		return fmt.Errorf("failed to commit archive index: %w", err)
	}
	a.dirtyEntries = make(map[string]struct{})
	a.feedListDirty = false
	return nil
}

// Rollback discards every pending write. Feeds registered since the last commit are forgotten.
func (a *Archive) Rollback() error {
	if !a.open {
		return ErrNotOpen
	}
	a.metrics.RolledBack()

	var errs []error
	for url, fs := range a.feeds {
		if err := fs.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", url, err))
		}
	}
	if err := a.loadIndex(); err != nil {
		errs = append(errs, err)
	}
	for url := range a.feeds {
		if _, ok := a.entries[url]; !ok {
			delete(a.feeds, url)
		}
	}
	return errors.Join(errs...)
}

// Close commits when opened with autoCommit and releases every owned feed.
func (a *Archive) Close() error {
	if !a.open {
		return nil
	}
	var errs []error
	if a.autoCommit {
		if err := a.commitFeeds(); err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, a.commitIndex())
		}
	} else if a.feedListDirty {
		fl := a.feedList
		errs = append(errs, a.drv.commitIndex(nil, &fl))
	}
	errs = append(errs, a.drv.close())

	a.feeds = make(map[string]*FeedStore)
	a.open = false
	a.logger.Info("Archive closed")
	return errors.Join(errs...)
}

// markDirty arms the deferred commit once per quiescence window.
func (a *Archive) markDirty() {
	if a.modified {
		return
	}
	a.modified = true
	a.sched.AfterFunc(a.commitDelay, a.slotCommit)
}

func (a *Archive) slotCommit() {
	if a.modified && a.open {
		if err := a.Commit(); err != nil {
			a.logger.Error("Deferred commit failed", zap.Error(err))
		} else {
			a.logger.Debug("Deferred commit complete")
		}
	}
	a.modified = false
}

func toEpochSecond(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.Unix(t.Unix(), 0)
}
