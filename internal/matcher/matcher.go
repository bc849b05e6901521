package matcher

import (
	"errors"
	"fmt"
	"strings"

	"feedvault/internal/model"
)

var ErrUnknownStatusFilter = errors.New("unknown status filter")

// Association combines the criteria of an ArticleMatcher.
type Association int

const (
	None Association = iota
	LogicalAnd
	LogicalOr
)

func (a Association) String() string {
	switch a {
	case LogicalAnd:
		return "LogicalAnd"
	case LogicalOr:
		return "LogicalOr"
	}
	return "None"
}

// ParseAssociation never fails: unknown names read as None.
func ParseAssociation(s string) Association {
	switch s {
	case "LogicalAnd":
		return LogicalAnd
	case "LogicalOr":
		return LogicalOr
	}
	return None
}

// ArticleMatcher is an ordered list of criteria joined by one association.
// An empty list matches everything, as does the None association.
type ArticleMatcher struct {
	Criteria    []Criterion
	Association Association
}

func New(assoc Association, criteria ...Criterion) ArticleMatcher {
	return ArticleMatcher{Criteria: criteria, Association: assoc}
}

func (m ArticleMatcher) Matches(a Article) bool {
	switch m.Association {
	case LogicalOr:
		if len(m.Criteria) == 0 {
			return true
		}
		for _, c := range m.Criteria {
			if c.SatisfiedBy(a) {
				return true
			}
		}
		return false
	case LogicalAnd:
		for _, c := range m.Criteria {
			if !c.SatisfiedBy(a) {
				return false
			}
		}
		return true
	}
	return true
}

func (m ArticleMatcher) Equal(o ArticleMatcher) bool {
	if m.Association != o.Association || len(m.Criteria) != len(o.Criteria) {
		return false
	}
	for i := range m.Criteria {
		if !m.Criteria[i].Equal(o.Criteria[i]) {
			return false
		}
	}
	return true
}

// MatchAll reports whether a satisfies every group.
func MatchAll(groups []ArticleMatcher, a Article) bool {
	for _, g := range groups {
		if !g.Matches(a) {
			return false
		}
	}
	return true
}

// Search builds the matcher groups for a free-text query and a status filter
// (all, new, unread, important). Empty text and "all" add no group.
func Search(text, status string) ([]ArticleMatcher, error) {
	var groups []ArticleMatcher

	if text = strings.TrimSpace(text); text != "" {
		groups = append(groups, New(LogicalOr,
			NewCriterion(Title, Contains, text),
			NewCriterion(Description, Contains, text),
			NewCriterion(Author, Contains, text),
		))
	}

	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "all":
	case "new":
		groups = append(groups, New(LogicalOr,
			NewCriterion(Status, Equals, int(model.StatusNew)),
		))
	case "unread":
		groups = append(groups, New(LogicalOr,
			NewCriterion(Status, Equals, int(model.StatusNew)),
			NewCriterion(Status, Equals, int(model.StatusUnread)),
		))
	case "important":
		groups = append(groups, New(LogicalOr,
			NewCriterion(KeepFlag, Equals, true),
		))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatusFilter, status)
	}
	return groups, nil
}

type recordArticle struct {
	r *model.Record
}

// FromRecord adapts a stored record to the Article view.
func FromRecord(r *model.Record) Article {
	return recordArticle{r: r}
}

func (v recordArticle) Title() string        { return v.r.Title }
func (v recordArticle) Description() string  { return v.r.Description }
func (v recordArticle) Link() string         { return v.r.Link }
func (v recordArticle) Status() model.Status { return v.r.Status.Status() }
func (v recordArticle) Keep() bool           { return v.r.Status.Keep() }
func (v recordArticle) AuthorName() string   { return v.r.AuthorName }
