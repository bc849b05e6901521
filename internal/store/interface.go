package store

import (
	"errors"
	"time"

	"feedvault/internal/model"
)

var (
	ErrNotOpen = errors.New("archive is not open")
	ErrClosed  = errors.New("archive backend is closed")
)

// FeedReader is the read-only view of one feed's article table.
// Lookups on a missing guid return zero values.
type FeedReader interface {
	URL() string
	Contains(guid string) bool
	Articles() []string
	Article(guid string) model.Summary
	Record(guid string) (model.Record, bool)

	Hash(guid string) uint32
	Title(guid string) string
	Description(guid string) string
	Content(guid string) string
	Link(guid string) string
	PubDate(guid string) time.Time
	AuthorName(guid string) string
	AuthorURI(guid string) string
	AuthorEMail(guid string) string
	Status(guid string) model.StatusBits
	GUIDIsHash(guid string) bool
	GUIDIsPermaLink(guid string) bool
	Comments(guid string) int
	CommentsLink(guid string) string
	Enclosure(guid string) (model.Enclosure, bool)
	Categories(guid string) []string
	Tags(guid string) []string

	Unread() int
	TotalCount() int
	LastFetch() time.Time
}

// FeedWriter holds the mutating operations of a feed's article table.
// Every setter is a no-op when guid is missing.
type FeedWriter interface {
	AddEntry(guid string)
	DeleteArticle(guid string)
	SetDeleted(guid string)

	SetHash(guid string, hash uint32)
	SetTitle(guid, title string)
	SetDescription(guid, description string)
	SetContent(guid, content string)
	SetLink(guid, link string)
	SetPubDate(guid string, pubDate time.Time)
	SetAuthorName(guid, name string)
	SetAuthorURI(guid, uri string)
	SetAuthorEMail(guid, email string)
	SetStatus(guid string, status model.StatusBits)
	SetGUIDIsHash(guid string, isHash bool)
	SetGUIDIsPermaLink(guid string, isPermaLink bool)
	SetComments(guid string, comments int)
	SetCommentsLink(guid, link string)
	SetEnclosure(guid string, enc model.Enclosure)
	RemoveEnclosure(guid string)
	SetCategories(guid string, categories []string)
	AddTag(guid, tag string)
	RemoveTag(guid, tag string)

	SetUnread(n int)
	SetTotalCount(n int)
	SetLastFetch(t time.Time)
}

// FeedArchive is the keyed article table for one feed.
type FeedArchive interface {
	FeedReader
	FeedWriter

	Commit() error
	Rollback() error
	Close() error
}

// Reader is the read-only view of the archive index. Lookup never creates a feed.
type Reader interface {
	Feeds() []string
	Lookup(url string) (FeedReader, bool)
	UnreadFor(url string) int
	TotalCountFor(url string) int
	LastFetchFor(url string) time.Time
}

// Backend is the registry of feeds and the owner of the commit lifecycle.
type Backend interface {
	Reader

	Open(autoCommit bool) error
	ArchiveFor(url string) FeedArchive

	SetUnreadFor(url string, n int)
	SetTotalCountFor(url string, n int)
	SetLastFetchFor(url string, t time.Time)

	StoreFeedList(blob string)
	RestoreFeedList() string

	Commit() error
	Rollback() error
	Close() error
}

// IndexEntry holds the summary counters of one feed.
type IndexEntry struct {
	URL        string
	Unread     int
	TotalCount int
	LastFetch  time.Time
}
