package ingest

import (
	"strconv"
	"strings"
	"time"

	"feedvault/internal/hasher"
	"feedvault/internal/metrics"
	"feedvault/internal/model"
	"feedvault/internal/store"

	"go.uber.org/zap"
)

// Result classifies what ingesting one item did to the archive.
type Result string

const (
	Added     Result = metrics.ResultAdded
	Updated   Result = metrics.ResultUpdated
	Unchanged Result = metrics.ResultUnchanged
	Skipped   Result = metrics.ResultSkipped
)

// Report summarizes one IngestFeed call.
type Report struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Purged    int `json:"purged"`
	Evicted   int `json:"evicted"`
}

// Ingestor turns parsed items into archive mutations and owns every status transition.
// Like the archive it writes to, it must only be used from the archive's goroutine.
type Ingestor struct {
	backend  store.Backend
	logger   *zap.Logger
	metrics  *metrics.Metrics
	policies Policies
	rules    []Rule
	now      func() time.Time
}

type Option func(*Ingestor)

func WithLogger(l *zap.Logger) Option {
	return func(in *Ingestor) { in.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Ingestor) { in.metrics = m }
}

func WithPolicies(p Policies) Option {
	return func(in *Ingestor) { in.policies = p }
}

func WithRules(rules []Rule) Option {
	return func(in *Ingestor) { in.rules = rules }
}

func WithClock(now func() time.Time) Option {
	return func(in *Ingestor) { in.now = now }
}

func New(backend store.Backend, opts ...Option) *Ingestor {
	in := &Ingestor{
		backend: backend,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Ingest stores a single item in the archive of url and returns its guid.
func (in *Ingestor) Ingest(url string, item model.Item) (string, Result) {
	fa := in.backend.ArchiveFor(url)
	ep := in.policies.resolve(url)
	p := prepare(item)
	res := in.ingest(fa, p, in.now(), ep.markRead)
	in.metrics.Ingested(string(res))
	return p.guid, res
}

// IngestFeed stores one fetched batch of items for url: the new window of the previous
// fetch closes, tombstones that left the source are purged, filter rules run on the
// added articles and the retention policy is applied.
func (in *Ingestor) IngestFeed(url string, items []model.Item) Report {
	var rep Report
	fa := in.backend.ArchiveFor(url)
	ep := in.policies.resolve(url)
	now := in.now()

	for _, guid := range fa.Articles() {
		if fa.Status(guid).Status() == model.StatusNew {
			in.setStatus(fa, guid, model.StatusUnread)
		}
	}

	present := make(map[string]struct{}, len(items))
	var added []string
	nudge := 0
	for _, item := range items {
		p := prepare(item)
		present[p.guid] = struct{}{}

		fallback := now
		if !fa.Contains(p.guid) {
			fallback = now.Add(time.Duration(nudge) * time.Second)
			nudge--
		}
		res := in.ingest(fa, p, fallback, ep.markRead)
		in.metrics.Ingested(string(res))

		switch res {
		case Added:
			rep.Added++
			added = append(added, p.guid)
		case Updated:
			rep.Updated++
		case Unchanged:
			rep.Unchanged++
		case Skipped:
			rep.Skipped++
		}
	}

	for _, guid := range fa.Articles() {
		if _, ok := present[guid]; ok {
			continue
		}
		if fa.Status(guid).IsDeleted() {
			in.purge(fa, guid)
			rep.Purged++
		}
	}
	in.metrics.Purged(rep.Purged)

	in.applyRules(fa, added)
	rep.Evicted = in.enforce(fa, ep, present)
	fa.SetLastFetch(now)

	in.logger.Info("Feed ingested",
		zap.String("url", url),
		zap.Int("items", len(items)),
		zap.Int("added", rep.Added),
		zap.Int("updated", rep.Updated),
		zap.Int("purged", rep.Purged),
		zap.Int("evicted", rep.Evicted),
	)
	return rep
}

type prepared struct {
	model.Item
	guid       string
	guidIsHash bool
	hash       uint32
}

func prepare(item model.Item) prepared {
	p := prepared{Item: item, guid: item.GUID}
	if p.Title == "" {
		p.Title = BuildTitle(p.Description)
	}
	if p.guid == "" {
		p.guid = model.GUIDHashPrefix + strconv.FormatUint(uint64(hasher.Fields(p.Link, p.Title, p.Description)), 10)
	}
	p.guidIsHash = strings.HasPrefix(p.guid, model.GUIDHashPrefix)
	p.hash = hasher.Fields(p.Title, p.Description, p.Content, p.Link, p.AuthorName)
	return p
}

func (in *Ingestor) ingest(fa store.FeedArchive, p prepared, fallback time.Time, markRead bool) Result {
	guid := p.guid

	if !fa.Contains(guid) {
		fa.AddEntry(guid)
		if markRead {
			fa.SetStatus(guid, model.BitRead)
		} else {
			fa.SetStatus(guid, model.BitNew)
			addUnread(fa, 1)
		}
		writeContent(fa, p)
		fa.SetGUIDIsHash(guid, p.guidIsHash)
		fa.SetGUIDIsPermaLink(guid, false)
		fa.SetComments(guid, p.Comments)

		pubDate := fallback
		if p.Published != nil && !p.Published.IsZero() {
			pubDate = *p.Published
		}
		fa.SetPubDate(guid, pubDate)
		return Added
	}

	if fa.Status(guid).IsDeleted() {
		return Skipped
	}
	// comments do not take part in the hash
	if fa.Comments(guid) != p.Comments {
		fa.SetComments(guid, p.Comments)
	}
	if fa.Hash(guid) == p.hash {
		return Unchanged
	}
	writeContent(fa, p)
	return Updated
}

// writeContent stores the hashed fields together with the hash itself.
func writeContent(fa store.FeedArchive, p prepared) {
	guid := p.guid
	fa.SetHash(guid, p.hash)
	fa.SetTitle(guid, p.Title)
	fa.SetDescription(guid, p.Description)
	fa.SetContent(guid, p.Content)
	fa.SetLink(guid, p.Link)
	fa.SetAuthorName(guid, p.AuthorName)
	fa.SetAuthorURI(guid, p.AuthorURI)
	fa.SetAuthorEMail(guid, p.AuthorEMail)
	fa.SetCommentsLink(guid, p.CommentsLink)
	fa.SetCategories(guid, p.Categories)

	// only the first enclosure is kept
	if len(p.Enclosures) > 0 {
		fa.SetEnclosure(guid, p.Enclosures[0])
	} else {
		fa.RemoveEnclosure(guid)
	}
}
