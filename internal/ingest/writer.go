package ingest

import (
	"errors"

	"feedvault/internal/model"
	"feedvault/internal/store"
)

var ErrUnknownArticle = errors.New("article not found")

// Writer is the capability to change the state of stored articles.
// Only ingestion and command handlers hold one; everything else reads through store.Reader.
type Writer interface {
	SetStatus(url, guid string, status model.Status) error
	SetDeleted(url, guid string) error
	SetKeep(url, guid string, keep bool) error
	Purge(url, guid string) error
}

var _ Writer = (*Ingestor)(nil)

func (in *Ingestor) archiveWith(url, guid string) (store.FeedArchive, error) {
	fr, ok := in.backend.Lookup(url)
	if !ok || !fr.Contains(guid) {
		return nil, ErrUnknownArticle
	}
	return in.backend.ArchiveFor(url), nil
}

func (in *Ingestor) SetStatus(url, guid string, status model.Status) error {
	fa, err := in.archiveWith(url, guid)
	if err != nil {
		return err
	}
	in.setStatus(fa, guid, status)
	return nil
}

// SetDeleted soft-deletes the article. It is idempotent.
func (in *Ingestor) SetDeleted(url, guid string) error {
	fa, err := in.archiveWith(url, guid)
	if err != nil {
		return err
	}
	in.setDeleted(fa, guid)
	return nil
}

func (in *Ingestor) SetKeep(url, guid string, keep bool) error {
	fa, err := in.archiveWith(url, guid)
	if err != nil {
		return err
	}
	in.setKeep(fa, guid, keep)
	return nil
}

// Purge removes the article row entirely.
func (in *Ingestor) Purge(url, guid string) error {
	fa, err := in.archiveWith(url, guid)
	if err != nil {
		return err
	}
	in.purge(fa, guid)
	return nil
}

// setStatus moves the article into status and keeps the unread counter in step.
// Tombstones stay Read.
func (in *Ingestor) setStatus(fa store.FeedArchive, guid string, status model.Status) {
	bits := fa.Status(guid)
	if !fa.Contains(guid) || bits.IsDeleted() {
		return
	}
	next := bits.WithStatus(status)
	if next == bits {
		return
	}
	fa.SetStatus(guid, next)

	wasRead := bits.Status() == model.StatusRead
	isRead := status == model.StatusRead
	switch {
	case wasRead && !isRead:
		addUnread(fa, 1)
	case !wasRead && isRead:
		addUnread(fa, -1)
	}
}

func (in *Ingestor) setDeleted(fa store.FeedArchive, guid string) {
	if !fa.Contains(guid) || fa.Status(guid).IsDeleted() {
		return
	}
	in.setStatus(fa, guid, model.StatusRead)
	fa.SetStatus(guid, fa.Status(guid)|model.BitRead|model.BitDeleted)
	fa.SetDeleted(guid)
}

func (in *Ingestor) setKeep(fa store.FeedArchive, guid string, keep bool) {
	bits := fa.Status(guid)
	if next := bits.WithKeep(keep); next != bits {
		fa.SetStatus(guid, next)
	}
}

func (in *Ingestor) purge(fa store.FeedArchive, guid string) {
	if !fa.Contains(guid) {
		return
	}
	bits := fa.Status(guid)
	if !bits.IsDeleted() && bits.Status() != model.StatusRead {
		addUnread(fa, -1)
	}
	fa.DeleteArticle(guid)
}

func addUnread(fa store.FeedArchive, delta int) {
	n := fa.Unread() + delta
	if n < 0 {
		n = 0
	}
	fa.SetUnread(n)
}
