package store

import (
	"sync"

	"feedvault/internal/model"
)

// driver persists committed index and article state.
// The Archive stages every mutation in memory and hands the driver only committed changes.
type driver interface {
	open() error
	loadIndex() (map[string]IndexEntry, string, error)
	loadFeed(key string) (map[string]*model.Record, error)
	commitIndex(upserts []IndexEntry, feedList *string) error
	commitFeed(key string, upserts []*model.Record, deletes []string) error
	close() error
}

// memoryDriver keeps committed state in process memory. Nothing survives a restart.
type memoryDriver struct {
	mu       sync.Mutex
	opened   bool
	index    map[string]IndexEntry
	feedList string
	feeds    map[string]map[string]*model.Record
}

func newMemoryDriver() *memoryDriver {
	return &memoryDriver{
		index: make(map[string]IndexEntry),
		feeds: make(map[string]map[string]*model.Record),
	}
}

func (d *memoryDriver) open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = true
	return nil
}

func (d *memoryDriver) loadIndex() (map[string]IndexEntry, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return nil, "", ErrClosed
	}
	out := make(map[string]IndexEntry, len(d.index))
	for k, v := range d.index {
		out[k] = v
	}
	return out, d.feedList, nil
}

func (d *memoryDriver) loadFeed(key string) (map[string]*model.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return nil, ErrClosed
	}
	out := make(map[string]*model.Record, len(d.feeds[key]))
	for guid, r := range d.feeds[key] {
		out[guid] = r.Clone()
	}
	return out, nil
}

func (d *memoryDriver) commitIndex(upserts []IndexEntry, feedList *string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return ErrClosed
	}
	for _, e := range upserts {
		d.index[e.URL] = e
	}
	if feedList != nil {
		d.feedList = *feedList
	}
	return nil
}

func (d *memoryDriver) commitFeed(key string, upserts []*model.Record, deletes []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return ErrClosed
	}
	rows, ok := d.feeds[key]
	if !ok {
		rows = make(map[string]*model.Record)
		d.feeds[key] = rows
	}
	for _, guid := range deletes {
		delete(rows, guid)
	}
	for _, r := range upserts {
		rows[r.GUID] = r.Clone()
	}
	return nil
}

// close keeps the committed maps so a reopened memory archive sees them.
func (d *memoryDriver) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	return nil
}
