package store

import (
	"sort"
	"time"

	"feedvault/internal/model"
)

// FeedStore is the article table of one feed, hash-indexed on guid.
// Mutations are staged in memory and written on Commit.
type FeedStore struct {
	url    string
	key    string
	parent *Archive

	rows     map[string]*model.Record
	dirty    map[string]struct{}
	removed  map[string]struct{}
	modified bool
}

var _ FeedArchive = (*FeedStore)(nil)

func newFeedStore(url, key string, parent *Archive, rows map[string]*model.Record) *FeedStore {
	if rows == nil {
		rows = make(map[string]*model.Record)
	}
	return &FeedStore{
		url:     url,
		key:     key,
		parent:  parent,
		rows:    rows,
		dirty:   make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
}

func (f *FeedStore) URL() string { return f.url }

func (f *FeedStore) markDirty() {
	f.modified = true
	f.parent.markDirty()
}

func (f *FeedStore) get(guid string) *model.Record {
	return f.rows[guid]
}

func (f *FeedStore) update(guid string, fn func(r *model.Record)) {
	r, ok := f.rows[guid]
	if !ok {
		return
	}
	fn(r)
	f.dirty[guid] = struct{}{}
	f.markDirty()
}

func (f *FeedStore) Contains(guid string) bool {
	_, ok := f.rows[guid]
	return ok
}

// Articles returns every guid in the table in ascending order.
func (f *FeedStore) Articles() []string {
	guids := make([]string, 0, len(f.rows))
	for guid := range f.rows {
		guids = append(guids, guid)
	}
	sort.Strings(guids)
	return guids
}

// AddEntry inserts an empty record unless guid is already present.
func (f *FeedStore) AddEntry(guid string) {
	if f.Contains(guid) {
		return
	}
	f.rows[guid] = &model.Record{GUID: guid}
	f.dirty[guid] = struct{}{}
	delete(f.removed, guid)
	f.markDirty()
	f.SetTotalCount(f.TotalCount() + 1)
}

// DeleteArticle removes the row entirely.
func (f *FeedStore) DeleteArticle(guid string) {
	if !f.Contains(guid) {
		return
	}
	f.SetTotalCount(f.TotalCount() - 1)
	delete(f.rows, guid)
	delete(f.dirty, guid)
	f.removed[guid] = struct{}{}
	f.markDirty()
}

// SetDeleted clears the textual fields but keeps the row, so iterations over Articles stay valid.
func (f *FeedStore) SetDeleted(guid string) {
	f.update(guid, func(r *model.Record) {
		r.Title = ""
		r.Description = ""
		r.Content = ""
		r.Link = ""
		r.AuthorName = ""
		r.AuthorURI = ""
		r.AuthorEMail = ""
		r.CommentsLink = ""
	})
}

func (f *FeedStore) Article(guid string) model.Summary {
	r := f.get(guid)
	if r == nil {
		return model.Summary{GUID: guid}
	}
	return model.Summary{GUID: guid, Hash: r.Hash, Title: r.Title, Status: r.Status, PubDate: r.PubDate}
}

func (f *FeedStore) Record(guid string) (model.Record, bool) {
	r := f.get(guid)
	if r == nil {
		return model.Record{}, false
	}
	return *r.Clone(), true
}

func (f *FeedStore) Hash(guid string) uint32 {
	if r := f.get(guid); r != nil {
		return r.Hash
	}
	return 0
}

func (f *FeedStore) SetHash(guid string, hash uint32) {
	f.update(guid, func(r *model.Record) { r.Hash = hash })
}

func (f *FeedStore) Title(guid string) string {
	if r := f.get(guid); r != nil {
		return r.Title
	}
	return ""
}

func (f *FeedStore) SetTitle(guid, title string) {
	f.update(guid, func(r *model.Record) { r.Title = title })
}

func (f *FeedStore) Description(guid string) string {
	if r := f.get(guid); r != nil {
		return r.Description
	}
	return ""
}

func (f *FeedStore) SetDescription(guid, description string) {
	f.update(guid, func(r *model.Record) { r.Description = description })
}

func (f *FeedStore) Content(guid string) string {
	if r := f.get(guid); r != nil {
		return r.Content
	}
	return ""
}

func (f *FeedStore) SetContent(guid, content string) {
	f.update(guid, func(r *model.Record) { r.Content = content })
}

func (f *FeedStore) Link(guid string) string {
	if r := f.get(guid); r != nil {
		return r.Link
	}
	return ""
}

func (f *FeedStore) SetLink(guid, link string) {
	f.update(guid, func(r *model.Record) { r.Link = link })
}

// PubDate returns the zero time for a missing guid. Dates are kept at second precision.
func (f *FeedStore) PubDate(guid string) time.Time {
	if r := f.get(guid); r != nil {
		return r.PubDate
	}
	return time.Time{}
}

func (f *FeedStore) SetPubDate(guid string, pubDate time.Time) {
	f.update(guid, func(r *model.Record) { r.PubDate = toEpochSecond(pubDate) })
}

func (f *FeedStore) AuthorName(guid string) string {
	if r := f.get(guid); r != nil {
		return r.AuthorName
	}
	return ""
}

func (f *FeedStore) SetAuthorName(guid, name string) {
	f.update(guid, func(r *model.Record) { r.AuthorName = name })
}

func (f *FeedStore) AuthorURI(guid string) string {
	if r := f.get(guid); r != nil {
		return r.AuthorURI
	}
	return ""
}

func (f *FeedStore) SetAuthorURI(guid, uri string) {
	f.update(guid, func(r *model.Record) { r.AuthorURI = uri })
}

func (f *FeedStore) AuthorEMail(guid string) string {
	if r := f.get(guid); r != nil {
		return r.AuthorEMail
	}
	return ""
}

func (f *FeedStore) SetAuthorEMail(guid, email string) {
	f.update(guid, func(r *model.Record) { r.AuthorEMail = email })
}

func (f *FeedStore) Status(guid string) model.StatusBits {
	if r := f.get(guid); r != nil {
		return r.Status
	}
	return 0
}

// SetStatus writes the raw bitmask. State transitions live in the ingest package.
func (f *FeedStore) SetStatus(guid string, status model.StatusBits) {
	f.update(guid, func(r *model.Record) { r.Status = status })
}

func (f *FeedStore) GUIDIsHash(guid string) bool {
	if r := f.get(guid); r != nil {
		return r.GUIDIsHash
	}
	return false
}

func (f *FeedStore) SetGUIDIsHash(guid string, isHash bool) {
	f.update(guid, func(r *model.Record) { r.GUIDIsHash = isHash })
}

func (f *FeedStore) GUIDIsPermaLink(guid string) bool {
	if r := f.get(guid); r != nil {
		return r.GUIDIsPermaLink
	}
	return false
}

func (f *FeedStore) SetGUIDIsPermaLink(guid string, isPermaLink bool) {
	f.update(guid, func(r *model.Record) { r.GUIDIsPermaLink = isPermaLink })
}

func (f *FeedStore) Comments(guid string) int {
	if r := f.get(guid); r != nil {
		return r.Comments
	}
	return 0
}

func (f *FeedStore) SetComments(guid string, comments int) {
	f.update(guid, func(r *model.Record) { r.Comments = comments })
}

func (f *FeedStore) CommentsLink(guid string) string {
	if r := f.get(guid); r != nil {
		return r.CommentsLink
	}
	return ""
}

func (f *FeedStore) SetCommentsLink(guid, link string) {
	f.update(guid, func(r *model.Record) { r.CommentsLink = link })
}

// Enclosure reports false with Length -1 when the article has none.
func (f *FeedStore) Enclosure(guid string) (model.Enclosure, bool) {
	r := f.get(guid)
	if r == nil || r.Enclosure == nil {
		return model.Enclosure{Length: -1}, false
	}
	return *r.Enclosure, true
}

func (f *FeedStore) SetEnclosure(guid string, enc model.Enclosure) {
	f.update(guid, func(r *model.Record) { r.Enclosure = &enc })
}

func (f *FeedStore) RemoveEnclosure(guid string) {
	f.update(guid, func(r *model.Record) { r.Enclosure = nil })
}

func (f *FeedStore) Categories(guid string) []string {
	if r := f.get(guid); r != nil {
		return append([]string(nil), r.Categories...)
	}
	return nil
}

func (f *FeedStore) SetCategories(guid string, categories []string) {
	f.update(guid, func(r *model.Record) { r.Categories = append([]string(nil), categories...) })
}

func (f *FeedStore) Tags(guid string) []string {
	if r := f.get(guid); r != nil {
		return append([]string(nil), r.Tags...)
	}
	return nil
}

func (f *FeedStore) AddTag(guid, tag string) {
	r := f.get(guid)
	if r == nil {
		return
	}
	for _, t := range r.Tags {
		if t == tag {
			return
		}
	}
	f.update(guid, func(r *model.Record) { r.Tags = append(r.Tags, tag) })
}

func (f *FeedStore) RemoveTag(guid, tag string) {
	f.update(guid, func(r *model.Record) {
		kept := r.Tags[:0]
		for _, t := range r.Tags {
			if t != tag {
				kept = append(kept, t)
			}
		}
		r.Tags = kept
	})
}

func (f *FeedStore) Unread() int          { return f.parent.UnreadFor(f.url) }
func (f *FeedStore) SetUnread(n int)      { f.parent.SetUnreadFor(f.url, n) }
func (f *FeedStore) TotalCount() int      { return f.parent.TotalCountFor(f.url) }
func (f *FeedStore) SetTotalCount(n int)  { f.parent.SetTotalCountFor(f.url, n) }
func (f *FeedStore) LastFetch() time.Time { return f.parent.LastFetchFor(f.url) }

func (f *FeedStore) SetLastFetch(t time.Time) { f.parent.SetLastFetchFor(f.url, t) }

// Commit writes the staged rows of this feed.
func (f *FeedStore) Commit() error {
	if !f.modified {
		return nil
	}
	upserts := make([]*model.Record, 0, len(f.dirty))
	for guid := range f.dirty {
		if r, ok := f.rows[guid]; ok {
			upserts = append(upserts, r.Clone())
		}
	}
	deletes := make([]string, 0, len(f.removed))
	for guid := range f.removed {
		deletes = append(deletes, guid)
	}
	if err := f.parent.drv.commitFeed(f.key, upserts, deletes); err != nil {
		return err
	}
	f.dirty = make(map[string]struct{})
	f.removed = make(map[string]struct{})
	f.modified = false
	return nil
}

// Rollback reloads the last committed rows.
func (f *FeedStore) Rollback() error {
	rows, err := f.parent.drv.loadFeed(f.key)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = make(map[string]*model.Record)
	}
	f.rows = rows
	f.dirty = make(map[string]struct{})
	f.removed = make(map[string]struct{})
	f.modified = false
	return nil
}

// Close commits only when the owning archive was opened with autoCommit.
func (f *FeedStore) Close() error {
	if f.parent.autoCommit {
		return f.Commit()
	}
	return nil
}
