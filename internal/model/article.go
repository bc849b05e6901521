package model

import (
	"strings"
	"time"
)

// StatusBits is the persisted status bitmask of an article.
type StatusBits int

const (
	BitDeleted StatusBits = 0x01
	BitTrash   StatusBits = 0x02
	BitNew     StatusBits = 0x04
	BitRead    StatusBits = 0x08
	BitKeep    StatusBits = 0x10
)

// Status is the primary read state derived from StatusBits.
type Status int

const (
	StatusUnread Status = iota
	StatusRead
	StatusNew
)

func (s Status) String() string {
	switch s {
	case StatusRead:
		return "read"
	case StatusNew:
		return "new"
	default:
		return "unread"
	}
}

// ParseStatus accepts the lowercase names returned by String.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unread":
		return StatusUnread, true
	case "read":
		return StatusRead, true
	case "new":
		return StatusNew, true
	}
	return StatusUnread, false
}

// Status reports the primary state. Read wins over New.
func (b StatusBits) Status() Status {
	if b&BitRead != 0 {
		return StatusRead
	}
	if b&BitNew != 0 {
		return StatusNew
	}
	return StatusUnread
}

func (b StatusBits) IsDeleted() bool { return b&BitDeleted != 0 }
func (b StatusBits) Keep() bool      { return b&BitKeep != 0 }

// WithStatus returns b moved into status s, leaving the Deleted, Trash and Keep flags alone.
func (b StatusBits) WithStatus(s Status) StatusBits {
	switch s {
	case StatusRead:
		return (b | BitRead) &^ BitNew
	case StatusNew:
		return (b | BitNew) &^ BitRead
	default:
		return b &^ (BitRead | BitNew)
	}
}

// WithKeep sets or clears the Keep flag.
func (b StatusBits) WithKeep(keep bool) StatusBits {
	if keep {
		return b | BitKeep
	}
	return b &^ BitKeep
}

// Enclosure is a media attachment of an article.
type Enclosure struct {
	URL    string `json:"url" yaml:"url"`
	Type   string `json:"type" yaml:"type"`
	Length int    `json:"length" yaml:"length"`
}

// Record is the full stored form of one article within a feed archive.
type Record struct {
	GUID            string     `json:"guid"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Content         string     `json:"content"`
	Link            string     `json:"link"`
	PubDate         time.Time  `json:"pub_date"`
	AuthorName      string     `json:"author_name"`
	AuthorURI       string     `json:"author_uri"`
	AuthorEMail     string     `json:"author_email"`
	Status          StatusBits `json:"status"`
	Hash            uint32     `json:"hash"`
	GUIDIsHash      bool       `json:"guid_is_hash"`
	GUIDIsPermaLink bool       `json:"guid_is_permalink"`
	Comments        int        `json:"comments"`
	CommentsLink    string     `json:"comments_link"`
	Enclosure       *Enclosure `json:"enclosure,omitempty"`
	Categories      []string   `json:"categories"`
	Tags            []string   `json:"tags"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Enclosure != nil {
		e := *r.Enclosure
		c.Enclosure = &e
	}
	c.Categories = append([]string(nil), r.Categories...)
	c.Tags = append([]string(nil), r.Tags...)
	return &c
}

// Summary is the bulk read used for list-building scans.
type Summary struct {
	GUID    string     `json:"guid"`
	Hash    uint32     `json:"hash"`
	Title   string     `json:"title"`
	Status  StatusBits `json:"status"`
	PubDate time.Time  `json:"pub_date"`
}

// Less is the natural article order: newest pubDate first, ties by ascending guid.
func Less(a, b Summary) bool {
	if !a.PubDate.Equal(b.PubDate) {
		return a.PubDate.After(b.PubDate)
	}
	return a.GUID < b.GUID
}
