package feedparse

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"feedvault/internal/model"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// Parser converts RSS, Atom and JSON feed documents into archive items.
type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{parser: gofeed.NewParser()}
}

// Parse reads a feed document. Items keep document order.
func (p *Parser) Parse(r io.Reader) ([]model.Item, error) {
	feed, err := p.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return convert(feed), nil
}

func convert(feed *gofeed.Feed) []model.Item {
	items := make([]model.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		item := model.Item{
			GUID:        it.GUID,
			Title:       it.Title,
			Description: it.Description,
			Content:     it.Content,
			Link:        it.Link,
			Categories:  it.Categories,
		}

		if it.PublishedParsed != nil {
			item.Published = it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			item.Published = it.UpdatedParsed
		}

		author := it.Author
		if author == nil && len(it.Authors) > 0 {
			author = it.Authors[0]
		}
		if author != nil {
			item.AuthorName = author.Name
			item.AuthorEMail = author.Email
		}

		for _, enc := range it.Enclosures {
			if enc == nil || enc.URL == "" {
				continue
			}
			length, err := strconv.Atoi(strings.TrimSpace(enc.Length))
			if err != nil {
				length = -1
			}
			item.Enclosures = append(item.Enclosures, model.Enclosure{URL: enc.URL, Type: enc.Type, Length: length})
		}

		item.Comments = commentCount(it.Extensions)
		item.CommentsLink = extensionValue(it.Extensions, "wfw", "commentRss")

		items = append(items, item)
	}
	return items
}

func commentCount(exts ext.Extensions) int {
	n, err := strconv.Atoi(strings.TrimSpace(extensionValue(exts, "slash", "comments")))
	if err != nil {
		return -1
	}
	return n
}

func extensionValue(exts ext.Extensions, prefix, name string) string {
	if vals := exts[prefix][name]; len(vals) > 0 {
		return vals[0].Value
	}
	return ""
}
