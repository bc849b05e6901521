package ingest

import (
	"fmt"
	"strings"

	"feedvault/internal/matcher"
	"feedvault/internal/model"
	"feedvault/internal/store"
)

type ActionKind int

const (
	ActionDelete ActionKind = iota + 1
	ActionMarkRead
	ActionKeep
	ActionTag
)

// Action is what a rule does to a matching article. Tag is set for ActionTag.
type Action struct {
	Kind ActionKind
	Tag  string
}

// ParseAction accepts delete, markRead, keep and tag:<name>.
func ParseAction(s string) (Action, error) {
	switch s {
	case "delete":
		return Action{Kind: ActionDelete}, nil
	case "markRead":
		return Action{Kind: ActionMarkRead}, nil
	case "keep":
		return Action{Kind: ActionKeep}, nil
	}
	if tag, ok := strings.CutPrefix(s, "tag:"); ok && tag != "" {
		return Action{Kind: ActionTag, Tag: tag}, nil
	}
	return Action{}, fmt.Errorf("unknown filter action %q", s)
}

// Rule applies Action to every newly ingested article Matcher accepts.
type Rule struct {
	Name    string
	Matcher matcher.ArticleMatcher
	Action  Action
}

// RulesFromFilters converts saved filters into rules.
func RulesFromFilters(filters []matcher.Filter) ([]Rule, error) {
	rules := make([]Rule, 0, len(filters))
	for _, f := range filters {
		action, err := ParseAction(f.Action)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", f.Name, err)
		}
		rules = append(rules, Rule{Name: f.Name, Matcher: f.Matcher, Action: action})
	}
	return rules, nil
}

func (in *Ingestor) applyRules(fa store.FeedArchive, guids []string) {
	if len(in.rules) == 0 {
		return
	}
	for _, guid := range guids {
		for _, rule := range in.rules {
			rec, ok := fa.Record(guid)
			if !ok || rec.Status.IsDeleted() {
				break
			}
			if !rule.Matcher.Matches(matcher.FromRecord(&rec)) {
				continue
			}
			switch rule.Action.Kind {
			case ActionDelete:
				in.setDeleted(fa, guid)
			case ActionMarkRead:
				in.setStatus(fa, guid, model.StatusRead)
			case ActionKeep:
				in.setKeep(fa, guid, true)
			case ActionTag:
				fa.AddTag(guid, rule.Action.Tag)
			}
		}
	}
}
