package store

import (
	"errors"
	"testing"
	"time"

	"feedvault/internal/metrics"
	"feedvault/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler records armed timers; tests fire them by hand.
type fakeScheduler struct {
	delays  []time.Duration
	pending []func()
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) {
	s.delays = append(s.delays, d)
	s.pending = append(s.pending, f)
}

func (s *fakeScheduler) fire() {
	pending := s.pending
	s.pending = nil
	for _, f := range pending {
		f()
	}
}

func newTestArchive(t *testing.T, autoCommit bool) (*Archive, *fakeScheduler) {
	t.Helper()
	sched := &fakeScheduler{}
	a := NewMemory(WithScheduler(sched))
	require.NoError(t, a.Open(autoCommit))
	return a, sched
}

func TestArchive_ArchiveForRegistersFeed(t *testing.T) {
	a, sched := newTestArchive(t, true)

	assert.Empty(t, a.Feeds())
	_, ok := a.Lookup("http://a.example/rss")
	assert.False(t, ok, "Lookup must not create feeds")

	fa := a.ArchiveFor("http://a.example/rss")
	require.NotNil(t, fa)
	assert.Equal(t, "http://a.example/rss", fa.URL())
	assert.Equal(t, []string{"http://a.example/rss"}, a.Feeds())

	// Second call returns the same table
	assert.Same(t, fa, a.ArchiveFor("http://a.example/rss"))
	assert.Len(t, sched.pending, 1)
	assert.Equal(t, DefaultCommitDelay, sched.delays[0])
}

func TestArchive_FeedsSorted(t *testing.T) {
	a, _ := newTestArchive(t, true)
	a.ArchiveFor("http://c")
	a.ArchiveFor("http://a")
	a.ArchiveFor("http://b")

	assert.Equal(t, []string{"http://a", "http://b", "http://c"}, a.Feeds())
}

func TestArchive_CountersDefaultToZero(t *testing.T) {
	a, _ := newTestArchive(t, true)

	assert.Equal(t, 0, a.UnreadFor("http://missing"))
	assert.Equal(t, 0, a.TotalCountFor("http://missing"))
	assert.True(t, a.LastFetchFor("http://missing").IsZero())

	// Setters on unknown feeds are ignored
	a.SetUnreadFor("http://missing", 4)
	assert.Equal(t, 0, a.UnreadFor("http://missing"))
	assert.Empty(t, a.Feeds())
}

func TestArchive_LastFetchSecondPrecision(t *testing.T) {
	a, _ := newTestArchive(t, true)
	a.ArchiveFor("http://a")

	ts := time.Date(2024, 3, 1, 12, 0, 0, 987654321, time.UTC)
	a.SetLastFetchFor("http://a", ts)

	assert.True(t, a.LastFetchFor("http://a").Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestArchive_DeferredCommitCoalesces(t *testing.T) {
	a, sched := newTestArchive(t, true)

	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g1")
	fa.SetTitle("g1", "one")
	fa.AddEntry("g2")
	a.SetUnreadFor("http://a", 2)

	// Many mutations inside one window arm a single timer
	require.Len(t, sched.pending, 1)
	sched.fire()
	assert.False(t, a.modified)

	// The commit is visible after a rollback
	require.NoError(t, a.Rollback())
	fa = a.ArchiveFor("http://a")
	assert.Equal(t, "one", fa.Title("g1"))
	assert.Equal(t, 2, fa.TotalCount())
	assert.Equal(t, 2, a.UnreadFor("http://a"))

	// A new mutation arms a new window
	fa.SetTitle("g2", "two")
	assert.Len(t, sched.pending, 1)
}

func TestArchive_RollbackDiscardsPending(t *testing.T) {
	a, _ := newTestArchive(t, false)

	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g1")
	fa.SetTitle("g1", "committed")
	require.NoError(t, a.Commit())

	fa.SetTitle("g1", "pending")
	fa.AddEntry("g2")
	a.ArchiveFor("http://b")
	require.NoError(t, a.Rollback())

	fa = a.ArchiveFor("http://a")
	assert.Equal(t, "committed", fa.Title("g1"))
	assert.False(t, fa.Contains("g2"))
	assert.Equal(t, 1, fa.TotalCount())
	assert.Equal(t, []string{"http://a"}, a.Feeds(), "uncommitted feed registration is rolled back")
}

func TestArchive_FeedListBlob(t *testing.T) {
	a, _ := newTestArchive(t, false)
	assert.Empty(t, a.RestoreFeedList())

	blob := "<opml version=\"1.0\"><body><outline xmlUrl=\"http://a\"/></body></opml>"
	a.StoreFeedList(blob)
	assert.Equal(t, blob, a.RestoreFeedList())

	// Close writes the blob even without autoCommit
	require.NoError(t, a.Close())
	require.NoError(t, a.Open(false))
	assert.Equal(t, blob, a.RestoreFeedList())
}

func TestArchive_CloseCommitsUnderAutoCommit(t *testing.T) {
	a, _ := newTestArchive(t, true)
	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g1")
	fa.SetDescription("g1", "body")
	require.NoError(t, a.Close())

	require.NoError(t, a.Open(true))
	assert.Equal(t, []string{"http://a"}, a.Feeds())
	assert.Equal(t, "body", a.ArchiveFor("http://a").Description("g1"))
}

func TestArchive_CloseWithoutAutoCommitDropsPending(t *testing.T) {
	a, _ := newTestArchive(t, false)
	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g1")
	require.NoError(t, a.Close())

	require.NoError(t, a.Open(false))
	assert.Empty(t, a.Feeds())
}

var errFeedWrite = errors.New("feed write refused")

// flakyDriver refuses article writes while fail is set.
type flakyDriver struct {
	*memoryDriver
	fail bool
}

func (d *flakyDriver) commitFeed(key string, upserts []*model.Record, deletes []string) error {
	if d.fail {
		return errFeedWrite
	}
	return d.memoryDriver.commitFeed(key, upserts, deletes)
}

func TestArchive_IndexWaitsForFeedRows(t *testing.T) {
	drv := &flakyDriver{memoryDriver: newMemoryDriver()}
	a := newArchive(drv, WithScheduler(&fakeScheduler{}))
	require.NoError(t, a.Open(false))

	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g1")
	require.NoError(t, a.Commit())
	assert.Equal(t, 1, drv.index["http://a"].TotalCount)

	drv.fail = true
	fa.AddEntry("g2")
	assert.ErrorIs(t, a.Commit(), errFeedWrite)
	assert.Equal(t, 1, drv.index["http://a"].TotalCount, "counters must not run ahead of the rows")
	assert.NotContains(t, drv.feeds["http://a"], "g2")

	drv.fail = false
	require.NoError(t, a.Commit())
	assert.Equal(t, 2, drv.index["http://a"].TotalCount)
	assert.Contains(t, drv.feeds["http://a"], "g2")
}

func TestArchive_CommitRequiresOpen(t *testing.T) {
	a := NewMemory(WithScheduler(&fakeScheduler{}))
	assert.ErrorIs(t, a.Commit(), ErrNotOpen)
	assert.ErrorIs(t, a.Rollback(), ErrNotOpen)
	assert.NoError(t, a.Close())
}

func TestArchive_SlotCommitAfterCloseIsNoop(t *testing.T) {
	a, sched := newTestArchive(t, true)
	a.ArchiveFor("http://a").AddEntry("g1")
	require.NoError(t, a.Close())

	assert.NotPanics(t, sched.fire)
	assert.False(t, a.modified)
}

func TestArchive_CommitMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sched := &fakeScheduler{}
	a := NewMemory(WithScheduler(sched), WithMetrics(m))
	require.NoError(t, a.Open(true))

	a.ArchiveFor("http://a").AddEntry("g1")
	sched.fire()
	require.NoError(t, a.Rollback())

	count, err := testutil.GatherAndCount(reg, "feedvault_commits_total", "feedvault_rollbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTimerScheduler_Posts(t *testing.T) {
	posted := make(chan func(), 1)
	s := TimerScheduler{Post: func(f func()) { posted <- f }}

	fired := false
	s.AfterFunc(time.Millisecond, func() { fired = true })

	select {
	case f := <-posted:
		f()
	case <-time.After(time.Second):
		t.Fatal("timer never posted")
	}
	assert.True(t, fired)
}
