package ingest

import (
	"fmt"
	"testing"
	"time"

	"feedvault/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datedItems(n int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			GUID:      fmt.Sprintf("g%d", i),
			Title:     fmt.Sprintf("item %d", i),
			Published: ptr(fixedNow.Add(-time.Duration(i) * 24 * time.Hour)),
		}
	}
	return items
}

func live(fa interface {
	Articles() []string
	Status(string) model.StatusBits
}) []string {
	var out []string
	for _, g := range fa.Articles() {
		if !fa.Status(g).IsDeleted() {
			out = append(out, g)
		}
	}
	return out
}

func TestRetention_LimitArticleNumber(t *testing.T) {
	in, a := newTestIngestor(t, WithPolicies(Policies{
		Default: Retention{Mode: LimitArticleNumber, MaxArticleNumber: 2},
	}))

	rep := in.IngestFeed(feedURL, datedItems(4))
	assert.Equal(t, 2, rep.Evicted)
	fa := a.ArchiveFor(feedURL)
	assert.Equal(t, []string{"g0", "g1"}, live(fa), "newest articles survive")
	assert.Equal(t, 4, a.TotalCountFor(feedURL), "eviction soft-deletes")
	assert.Equal(t, 2, a.UnreadFor(feedURL))
}

func TestRetention_DoNotExpireImportant(t *testing.T) {
	in, a := newTestIngestor(t, WithPolicies(Policies{
		Default: Retention{Mode: LimitArticleNumber, MaxArticleNumber: 1, DoNotExpireImportant: true},
	}))
	in.Ingest(feedURL, datedItems(4)[3])
	require.NoError(t, in.SetKeep(feedURL, "g3", true))

	in.IngestFeed(feedURL, datedItems(3))
	fa := a.ArchiveFor(feedURL)
	assert.Equal(t, []string{"g0", "g3"}, live(fa))
}

func TestRetention_LimitArticleAgePerFeed(t *testing.T) {
	in, a := newTestIngestor(t, WithPolicies(Policies{
		Default: Retention{Mode: KeepAllArticles},
		Feeds: map[string]FeedPolicy{
			feedURL: {ArchiveMode: LimitArticleAge, MaxArticleAgeDays: 2},
		},
	}))

	in.IngestFeed(feedURL, datedItems(5))
	in.IngestFeed("http://other", datedItems(5))

	assert.Equal(t, []string{"g0", "g1", "g2"}, live(a.ArchiveFor(feedURL)))
	assert.Len(t, live(a.ArchiveFor("http://other")), 5)
}

func TestRetention_DisableArchiving(t *testing.T) {
	in, a := newTestIngestor(t, WithPolicies(Policies{
		Default: Retention{Mode: DisableArchiving},
	}))

	in.IngestFeed(feedURL, datedItems(3))
	fa := a.ArchiveFor(feedURL)
	assert.Len(t, live(fa), 3)

	in.IngestFeed(feedURL, datedItems(3)[:1])
	assert.Equal(t, []string{"g0"}, live(fa))

	assert.Equal(t, 1, in.ExpireAll())
	assert.Empty(t, live(fa))
}

func TestRetention_KeepAllByDefault(t *testing.T) {
	in, a := newTestIngestor(t)
	in.IngestFeed(feedURL, datedItems(10))

	assert.Equal(t, 0, in.ExpireAll())
	assert.Len(t, live(a.ArchiveFor(feedURL)), 10)
	assert.Equal(t, 0, in.Expire("http://unknown"))
}

func TestRetention_ExpireAllUsesClock(t *testing.T) {
	now := fixedNow
	in, a := newTestIngestor(t,
		WithClock(func() time.Time { return now }),
		WithPolicies(Policies{Default: Retention{Mode: LimitArticleAge, MaxArticleAgeDays: 30}}),
	)
	in.IngestFeed(feedURL, datedItems(2))
	assert.Len(t, live(a.ArchiveFor(feedURL)), 2)

	now = fixedNow.Add(30*24*time.Hour - 12*time.Hour)
	assert.Equal(t, 1, in.ExpireAll())
}

func TestArchiveMode_Valid(t *testing.T) {
	assert.True(t, LimitArticleAge.Valid())
	assert.False(t, ArchiveMode("forever").Valid())
}
