package store

import (
	"testing"
	"time"

	"feedvault/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedStore_MissingGUIDDefaults(t *testing.T) {
	a, _ := newTestArchive(t, true)
	fa := a.ArchiveFor("http://a")

	assert.False(t, fa.Contains("nope"))
	assert.Equal(t, "", fa.Title("nope"))
	assert.Equal(t, uint32(0), fa.Hash("nope"))
	assert.True(t, fa.PubDate("nope").IsZero())
	assert.Equal(t, model.StatusBits(0), fa.Status("nope"))
	assert.Equal(t, 0, fa.Comments("nope"))
	assert.Nil(t, fa.Tags("nope"))

	enc, ok := fa.Enclosure("nope")
	assert.False(t, ok)
	assert.Equal(t, -1, enc.Length)

	_, ok = fa.Record("nope")
	assert.False(t, ok)

	// Setters on a missing guid change nothing
	fa.SetTitle("nope", "x")
	fa.SetStatus("nope", model.BitRead)
	fa.AddTag("nope", "t")
	assert.False(t, fa.Contains("nope"))
	assert.Empty(t, fa.Articles())
}

func TestFeedStore_AddEntry(t *testing.T) {
	a, _ := newTestArchive(t, true)
	fa := a.ArchiveFor("http://a")

	fa.AddEntry("g1")
	fa.SetTitle("g1", "kept")
	fa.AddEntry("g1")

	assert.Equal(t, "kept", fa.Title("g1"), "re-adding must not reset the row")
	assert.Equal(t, 1, fa.TotalCount())
	assert.Equal(t, []string{"g1"}, fa.Articles())
}

func TestFeedStore_ArticlesSorted(t *testing.T) {
	a, _ := newTestArchive(t, true)
	fa := a.ArchiveFor("http://a")
	for _, g := range []string{"c", "a", "b"} {
		fa.AddEntry(g)
	}
	assert.Equal(t, []string{"a", "b", "c"}, fa.Articles())
}

func TestFeedStore_SettersRoundTrip(t *testing.T) {
	a, _ := newTestArchive(t, true)
	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g")

	pub := time.Date(2023, 7, 4, 10, 30, 15, 500, time.UTC)
	fa.SetHash("g", 42)
	fa.SetTitle("g", "Title")
	fa.SetDescription("g", "Desc")
	fa.SetContent("g", "<p>body</p>")
	fa.SetLink("g", "http://a/1")
	fa.SetPubDate("g", pub)
	fa.SetAuthorName("g", "Ann")
	fa.SetAuthorURI("g", "http://ann")
	fa.SetAuthorEMail("g", "ann@example.com")
	fa.SetStatus("g", model.BitNew)
	fa.SetGUIDIsHash("g", true)
	fa.SetGUIDIsPermaLink("g", true)
	fa.SetComments("g", 3)
	fa.SetCommentsLink("g", "http://a/1#c")
	fa.SetEnclosure("g", model.Enclosure{URL: "http://a/1.mp3", Type: "audio/mpeg", Length: 1024})
	fa.SetCategories("g", []string{"go", "rss"})
	fa.AddTag("g", "x")
	fa.AddTag("g", "x")
	fa.AddTag("g", "y")

	assert.Equal(t, uint32(42), fa.Hash("g"))
	assert.Equal(t, "Title", fa.Title("g"))
	assert.Equal(t, "Desc", fa.Description("g"))
	assert.Equal(t, "<p>body</p>", fa.Content("g"))
	assert.Equal(t, "http://a/1", fa.Link("g"))
	assert.Equal(t, pub.Unix(), fa.PubDate("g").Unix())
	assert.Equal(t, 0, fa.PubDate("g").Nanosecond())
	assert.Equal(t, "Ann", fa.AuthorName("g"))
	assert.Equal(t, "http://ann", fa.AuthorURI("g"))
	assert.Equal(t, "ann@example.com", fa.AuthorEMail("g"))
	assert.Equal(t, model.StatusNew, fa.Status("g").Status())
	assert.True(t, fa.GUIDIsHash("g"))
	assert.True(t, fa.GUIDIsPermaLink("g"))
	assert.Equal(t, 3, fa.Comments("g"))
	assert.Equal(t, "http://a/1#c", fa.CommentsLink("g"))
	assert.Equal(t, []string{"go", "rss"}, fa.Categories("g"))
	assert.Equal(t, []string{"x", "y"}, fa.Tags("g"))

	enc, ok := fa.Enclosure("g")
	require.True(t, ok)
	assert.Equal(t, "audio/mpeg", enc.Type)
	assert.Equal(t, 1024, enc.Length)

	fa.RemoveEnclosure("g")
	_, ok = fa.Enclosure("g")
	assert.False(t, ok)

	fa.RemoveTag("g", "x")
	assert.Equal(t, []string{"y"}, fa.Tags("g"))

	sum := fa.Article("g")
	assert.Equal(t, "g", sum.GUID)
	assert.Equal(t, uint32(42), sum.Hash)
	assert.Equal(t, model.StatusNew, sum.Status.Status())
}

func TestFeedStore_SetDeletedClearsText(t *testing.T) {
	a, _ := newTestArchive(t, true)
	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g")
	fa.SetTitle("g", "t")
	fa.SetDescription("g", "d")
	fa.SetContent("g", "c")
	fa.SetLink("g", "l")
	fa.SetAuthorName("g", "n")
	fa.SetHash("g", 7)

	fa.SetDeleted("g")

	assert.True(t, fa.Contains("g"), "tombstone keeps the row")
	assert.Empty(t, fa.Title("g"))
	assert.Empty(t, fa.Description("g"))
	assert.Empty(t, fa.Content("g"))
	assert.Empty(t, fa.Link("g"))
	assert.Empty(t, fa.AuthorName("g"))
	assert.Equal(t, uint32(7), fa.Hash("g"))
	assert.Equal(t, 1, fa.TotalCount())
}

func TestFeedStore_DeleteArticle(t *testing.T) {
	a, _ := newTestArchive(t, false)
	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g1")
	fa.AddEntry("g2")
	require.NoError(t, a.Commit())

	fa.DeleteArticle("g1")
	fa.DeleteArticle("g1")
	assert.False(t, fa.Contains("g1"))
	assert.Equal(t, 1, fa.TotalCount())

	require.NoError(t, a.Commit())
	require.NoError(t, a.Rollback())
	fa = a.ArchiveFor("http://a")
	assert.Equal(t, []string{"g2"}, fa.Articles())
}

func TestFeedStore_RecordIsACopy(t *testing.T) {
	a, _ := newTestArchive(t, true)
	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g")
	fa.SetCategories("g", []string{"a"})

	rec, ok := fa.Record("g")
	require.True(t, ok)
	rec.Categories[0] = "mutated"
	assert.Equal(t, []string{"a"}, fa.Categories("g"))
}

func TestFeedStore_RollbackSingleFeed(t *testing.T) {
	a, _ := newTestArchive(t, false)
	fa := a.ArchiveFor("http://a")
	fa.AddEntry("g")
	fa.SetTitle("g", "v1")
	require.NoError(t, fa.Commit())

	fa.SetTitle("g", "v2")
	require.NoError(t, fa.Rollback())
	assert.Equal(t, "v1", fa.Title("g"))
}
