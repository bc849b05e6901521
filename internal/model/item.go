package model

import "time"

// GUIDHashPrefix marks guids computed locally from item content.
const GUIDHashPrefix = "hash:"

// Item is an already-parsed syndication entry handed to the archive.
type Item struct {
	GUID         string      `json:"guid"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Content      string      `json:"content"`
	Link         string      `json:"link"`
	Published    *time.Time  `json:"published,omitempty"`
	AuthorName   string      `json:"author_name"`
	AuthorURI    string      `json:"author_uri"`
	AuthorEMail  string      `json:"author_email"`
	Comments     int         `json:"comments"`
	CommentsLink string      `json:"comments_link"`
	Enclosures   []Enclosure `json:"enclosures,omitempty"`
	Categories   []string    `json:"categories,omitempty"`
}
