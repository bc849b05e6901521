package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"feedvault/internal/model"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	indexPrefix   = "idx/"
	articlePrefix = "art/"
	feedListKey   = "meta/feedlist"

	// content longer than this is stored gzip-compressed
	compressThreshold = 1024
)

// BadgerConfig locates the Badger database. InMemory ignores Path.
type BadgerConfig struct {
	Path     string
	InMemory bool
}

type badgerDriver struct {
	cfg    BadgerConfig
	logger *zap.Logger
	db     *badger.DB
}

func newBadgerDriver(cfg BadgerConfig, logger *zap.Logger) *badgerDriver {
	return &badgerDriver{cfg: cfg, logger: logger}
}

func (d *badgerDriver) open() error {
	if d.db != nil {
		return nil
	}
	opts := badger.DefaultOptions(d.cfg.Path)
	if d.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{d.logger.Sugar()}
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger: %w", err)
	}
	d.db = db
	return nil
}

func (d *badgerDriver) close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

type indexRow struct {
	Unread     int   `json:"unread"`
	TotalCount int   `json:"totalCount"`
	LastFetch  int64 `json:"lastFetch"`
}

func (d *badgerDriver) loadIndex() (map[string]IndexEntry, string, error) {
	if d.db == nil {
		return nil, "", ErrClosed
	}
	entries := make(map[string]IndexEntry)
	var feedList string

	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(indexPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			url := string(item.Key()[len(indexPrefix):])
			err := item.Value(func(val []byte) error {
				var r indexRow
				if err := json.Unmarshal(val, &r); err != nil {
					return err
				}
				entries[url] = IndexEntry{
					URL:        url,
					Unread:     r.Unread,
					TotalCount: r.TotalCount,
					LastFetch:  fromEpoch(r.LastFetch),
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("index entry %s: %w", url, err)
			}
		}

		item, err := txn.Get([]byte(feedListKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		feedList = string(val)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return entries, feedList, nil
}

func (d *badgerDriver) commitIndex(upserts []IndexEntry, feedList *string) error {
	if d.db == nil {
		return ErrClosed
	}
	wb := d.db.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range upserts {
		data, err := json.Marshal(indexRow{Unread: e.Unread, TotalCount: e.TotalCount, LastFetch: toEpoch(e.LastFetch)})
		if err != nil {
			return err
		}
		if err := wb.Set([]byte(indexPrefix+e.URL), data); err != nil {
			return err
		}
	}
	if feedList != nil {
		if err := wb.Set([]byte(feedListKey), []byte(*feedList)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func feedPrefix(key string) []byte {
	return []byte(articlePrefix + key + "\x00")
}

func articleKey(key, guid string) []byte {
	return append(feedPrefix(key), guid...)
}

func (d *badgerDriver) loadFeed(key string) (map[string]*model.Record, error) {
	if d.db == nil {
		return nil, ErrClosed
	}
	rows := make(map[string]*model.Record)
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = feedPrefix(key)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				r, err := decodeRecord(val)
				if err != nil {
					return err
				}
				rows[r.GUID] = r
				return nil
			})
			if err != nil {
				d.logger.Warn("Skipping unreadable article row", zap.ByteString("key", item.KeyCopy(nil)), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (d *badgerDriver) commitFeed(key string, upserts []*model.Record, deletes []string) error {
	if d.db == nil {
		return ErrClosed
	}
	wb := d.db.NewWriteBatch()
	defer wb.Cancel()

	for _, guid := range deletes {
		if err := wb.Delete(articleKey(key, guid)); err != nil {
			return err
		}
	}
	for _, r := range upserts {
		data, err := encodeRecord(r)
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.GUID, err)
		}
		if err := wb.Set(articleKey(key, r.GUID), data); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// RunGC reclaims value log space until ctx is done.
func (a *Archive) RunGC(ctx context.Context, interval time.Duration) {
	d, ok := a.drv.(*badgerDriver)
	if !ok {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			db := d.db
			if db == nil {
				continue
			}
			for {
				// one call rewrites at most one file
				if err := db.RunValueLogGC(0.7); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						a.logger.Debug("Value log GC stopped", zap.Error(err))
					}
					break
				}
			}
		}
	}
}

// articleRow is the persisted layout of one article.
type articleRow struct {
	GUID            string   `json:"guid"`
	Title           string   `json:"title"`
	Hash            uint32   `json:"hash"`
	GUIDIsHash      bool     `json:"guidIsHash"`
	GUIDIsPermaLink bool     `json:"guidIsPermaLink"`
	Description     string   `json:"description"`
	Link            string   `json:"link"`
	Comments        int      `json:"comments"`
	CommentsLink    string   `json:"commentsLink"`
	Status          int      `json:"status"`
	PubDate         int64    `json:"pubDate"`
	Tags            []string `json:"tags"`
	HasEnclosure    bool     `json:"hasEnclosure"`
	EnclosureURL    string   `json:"enclosureUrl"`
	EnclosureType   string   `json:"enclosureType"`
	EnclosureLength int      `json:"enclosureLength"`
	Categories      []string `json:"categories"`
	AuthorName      string   `json:"authorName"`
	AuthorURI       string   `json:"authorUri"`
	AuthorEMail     string   `json:"authorEMail"`
	Content         string   `json:"content,omitempty"`
	ContentGzip     []byte   `json:"contentGzip,omitempty"`
}

func encodeRecord(r *model.Record) ([]byte, error) {
	row := articleRow{
		GUID:            r.GUID,
		Title:           r.Title,
		Hash:            r.Hash,
		GUIDIsHash:      r.GUIDIsHash,
		GUIDIsPermaLink: r.GUIDIsPermaLink,
		Description:     r.Description,
		Link:            r.Link,
		Comments:        r.Comments,
		CommentsLink:    r.CommentsLink,
		Status:          int(r.Status),
		PubDate:         toEpoch(r.PubDate),
		Tags:            r.Tags,
		Categories:      r.Categories,
		AuthorName:      r.AuthorName,
		AuthorURI:       r.AuthorURI,
		AuthorEMail:     r.AuthorEMail,
		EnclosureLength: -1,
	}
	if r.Enclosure != nil {
		row.HasEnclosure = true
		row.EnclosureURL = r.Enclosure.URL
		row.EnclosureType = r.Enclosure.Type
		row.EnclosureLength = r.Enclosure.Length
	}
	if len(r.Content) > compressThreshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := io.WriteString(zw, r.Content); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		row.ContentGzip = buf.Bytes()
	} else {
		row.Content = r.Content
	}
	return json.Marshal(row)
}

func decodeRecord(data []byte) (*model.Record, error) {
	var row articleRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	r := &model.Record{
		GUID:            row.GUID,
		Title:           row.Title,
		Hash:            row.Hash,
		GUIDIsHash:      row.GUIDIsHash,
		GUIDIsPermaLink: row.GUIDIsPermaLink,
		Description:     row.Description,
		Link:            row.Link,
		Comments:        row.Comments,
		CommentsLink:    row.CommentsLink,
		Status:          model.StatusBits(row.Status),
		PubDate:         fromEpoch(row.PubDate),
		Tags:            row.Tags,
		Categories:      row.Categories,
		AuthorName:      row.AuthorName,
		AuthorURI:       row.AuthorURI,
		AuthorEMail:     row.AuthorEMail,
		Content:         row.Content,
	}
	if row.HasEnclosure {
		r.Enclosure = &model.Enclosure{URL: row.EnclosureURL, Type: row.EnclosureType, Length: row.EnclosureLength}
	}
	if len(row.ContentGzip) > 0 {
		zr, err := gzip.NewReader(bytes.NewReader(row.ContentGzip))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		content, err := io.ReadAll(zr)
		if err != nil {
			return nil, err
		}
		r.Content = string(content)
	}
	return r, nil
}

func toEpoch(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromEpoch(secs int64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }
