package web

import (
	"net/url"
	"sort"
	"time"

	"feedvault/internal/matcher"
	"feedvault/internal/model"
	"feedvault/internal/store"
)

// FeedView is a feed entry tailored for API responses.
type FeedView struct {
	URL       string     `json:"url"`
	Domain    string     `json:"domain"`
	Unread    int        `json:"unread"`
	Total     int        `json:"total"`
	LastFetch *time.Time `json:"lastFetch,omitempty"`
}

func NewFeedView(feedURL string, unread, total int, lastFetch time.Time) FeedView {
	v := FeedView{
		URL:    feedURL,
		Domain: domainOf(feedURL),
		Unread: unread,
		Total:  total,
	}
	if !lastFetch.IsZero() {
		t := lastFetch.UTC()
		v.LastFetch = &t
	}
	return v
}

// ArticleView is one row of an article list.
type ArticleView struct {
	GUID    string    `json:"guid"`
	Title   string    `json:"title"`
	Link    string    `json:"link"`
	Domain  string    `json:"domain"`
	Author  string    `json:"author,omitempty"`
	Status  string    `json:"status"`
	Keep    bool      `json:"keep"`
	Tags    []string  `json:"tags,omitempty"`
	PubDate time.Time `json:"pubDate"`
	summary model.Summary
}

func NewArticleView(r *model.Record) ArticleView {
	return ArticleView{
		GUID:    r.GUID,
		Title:   r.Title,
		Link:    r.Link,
		Domain:  domainOf(r.Link),
		Author:  r.AuthorName,
		Status:  r.Status.Status().String(),
		Keep:    r.Status.Keep(),
		Tags:    r.Tags,
		PubDate: r.PubDate.UTC(),
		summary: model.Summary{GUID: r.GUID, PubDate: r.PubDate},
	}
}

// ListArticles returns the live articles of fr matching every group, in natural
// order. The result is never nil. Call it on the goroutine that owns the archive.
func ListArticles(fr store.FeedReader, groups []matcher.ArticleMatcher) []ArticleView {
	articles := []ArticleView{}
	for _, guid := range fr.Articles() {
		rec, ok := fr.Record(guid)
		if !ok || rec.Status.IsDeleted() {
			continue
		}
		if matcher.MatchAll(groups, matcher.FromRecord(&rec)) {
			articles = append(articles, NewArticleView(&rec))
		}
	}
	sort.Slice(articles, func(i, j int) bool {
		return model.Less(articles[i].summary, articles[j].summary)
	})
	return articles
}

// RecordView is the full article.
type RecordView struct {
	ArticleView
	Description  string           `json:"description"`
	Content      string           `json:"content"`
	Hash         uint32           `json:"hash"`
	Deleted      bool             `json:"deleted"`
	Comments     int              `json:"comments"`
	CommentsLink string           `json:"commentsLink,omitempty"`
	Enclosure    *model.Enclosure `json:"enclosure,omitempty"`
	Categories   []string         `json:"categories,omitempty"`
}

func NewRecordView(r *model.Record) RecordView {
	return RecordView{
		ArticleView:  NewArticleView(r),
		Description:  r.Description,
		Content:      r.Content,
		Hash:         r.Hash,
		Deleted:      r.Status.IsDeleted(),
		Comments:     r.Comments,
		CommentsLink: r.CommentsLink,
		Enclosure:    r.Enclosure,
		Categories:   r.Categories,
	}
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
