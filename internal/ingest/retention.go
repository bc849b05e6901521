package ingest

import (
	"sort"
	"time"

	"feedvault/internal/model"
	"feedvault/internal/store"

	"go.uber.org/zap"
)

// ArchiveMode names a feed retention policy.
type ArchiveMode string

const (
	GlobalDefault      ArchiveMode = "globalDefault"
	KeepAllArticles    ArchiveMode = "keepAllArticles"
	DisableArchiving   ArchiveMode = "disableArchiving"
	LimitArticleNumber ArchiveMode = "limitArticleNumber"
	LimitArticleAge    ArchiveMode = "limitArticleAge"
)

func (m ArchiveMode) Valid() bool {
	switch m {
	case GlobalDefault, KeepAllArticles, DisableArchiving, LimitArticleNumber, LimitArticleAge:
		return true
	}
	return false
}

// Retention is the application-wide archive policy.
type Retention struct {
	Mode                 ArchiveMode `mapstructure:"mode" yaml:"mode"`
	MaxArticleAgeDays    int         `mapstructure:"max_article_age_days" yaml:"max_article_age_days"`
	MaxArticleNumber     int         `mapstructure:"max_article_number" yaml:"max_article_number"`
	DoNotExpireImportant bool        `mapstructure:"do_not_expire_important" yaml:"do_not_expire_important"`
}

// FeedPolicy overrides the global policy for one feed.
type FeedPolicy struct {
	ArchiveMode           ArchiveMode `mapstructure:"archive_mode" yaml:"archive_mode"`
	MaxArticleAgeDays     int         `mapstructure:"max_article_age_days" yaml:"max_article_age_days"`
	MaxArticleNumber      int         `mapstructure:"max_article_number" yaml:"max_article_number"`
	MarkImmediatelyAsRead bool        `mapstructure:"mark_immediately_as_read" yaml:"mark_immediately_as_read"`
}

// Policies bundles the global policy with per-feed overrides keyed by feed URL.
type Policies struct {
	Default Retention
	Feeds   map[string]FeedPolicy
}

type effectivePolicy struct {
	mode      ArchiveMode
	maxAge    time.Duration
	maxNumber int
	keepSafe  bool
	markRead  bool
}

func (p Policies) resolve(url string) effectivePolicy {
	fp := p.Feeds[url]
	ep := effectivePolicy{
		mode:      fp.ArchiveMode,
		maxAge:    time.Duration(fp.MaxArticleAgeDays) * 24 * time.Hour,
		maxNumber: fp.MaxArticleNumber,
		keepSafe:  p.Default.DoNotExpireImportant,
		markRead:  fp.MarkImmediatelyAsRead,
	}
	if ep.mode == "" || ep.mode == GlobalDefault {
		ep.mode = p.Default.Mode
		ep.maxAge = time.Duration(p.Default.MaxArticleAgeDays) * 24 * time.Hour
		ep.maxNumber = p.Default.MaxArticleNumber
	}
	if ep.mode == "" || ep.mode == GlobalDefault {
		ep.mode = KeepAllArticles
	}
	return ep
}

// enforce soft-deletes the articles of fa the policy no longer retains.
// present holds the guids of the batch being ingested and is nil outside a fetch.
func (in *Ingestor) enforce(fa store.FeedArchive, ep effectivePolicy, present map[string]struct{}) int {
	evictable := func(bits model.StatusBits) bool {
		return !bits.IsDeleted() && !(ep.keepSafe && bits.Keep())
	}

	var victims []string
	switch ep.mode {
	case LimitArticleAge:
		if ep.maxAge <= 0 {
			return 0
		}
		cutoff := in.now().Add(-ep.maxAge)
		for _, guid := range fa.Articles() {
			a := fa.Article(guid)
			if evictable(a.Status) && a.PubDate.Before(cutoff) {
				victims = append(victims, guid)
			}
		}
	case LimitArticleNumber:
		if ep.maxNumber < 0 {
			return 0
		}
		summaries := make([]model.Summary, 0, len(fa.Articles()))
		for _, guid := range fa.Articles() {
			summaries = append(summaries, fa.Article(guid))
		}
		sort.Slice(summaries, func(i, j int) bool { return model.Less(summaries[i], summaries[j]) })
		kept := 0
		for _, a := range summaries {
			if !evictable(a.Status) {
				continue
			}
			if kept < ep.maxNumber {
				kept++
				continue
			}
			victims = append(victims, a.GUID)
		}
	case DisableArchiving:
		for _, guid := range fa.Articles() {
			if _, ok := present[guid]; ok {
				continue
			}
			if evictable(fa.Status(guid)) {
				victims = append(victims, guid)
			}
		}
	default:
		return 0
	}

	for _, guid := range victims {
		in.setDeleted(fa, guid)
	}
	in.metrics.Evicted(len(victims))
	return len(victims)
}

// Expire applies the retention policy of url outside of a fetch.
func (in *Ingestor) Expire(url string) int {
	if _, ok := in.backend.Lookup(url); !ok {
		return 0
	}
	return in.enforce(in.backend.ArchiveFor(url), in.policies.resolve(url), nil)
}

// ExpireAll applies every feed's retention policy and returns the number of evicted articles.
func (in *Ingestor) ExpireAll() int {
	total := 0
	for _, url := range in.backend.Feeds() {
		total += in.Expire(url)
	}
	if total > 0 {
		in.logger.Info("Expired articles", zap.Int("count", total))
	}
	return total
}
