package matcher

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type criterionYAML struct {
	Subject   string `yaml:"subject"`
	Predicate string `yaml:"predicate"`
	Negated   bool   `yaml:"negated,omitempty"`
	Object    any    `yaml:"object"`
}

func (c Criterion) MarshalYAML() (interface{}, error) {
	name := c.predicate.Base().String()
	if _, err := ParsePredicate(name); err != nil {
		return nil, err
	}
	return criterionYAML{
		Subject:   c.subject.String(),
		Predicate: name,
		Negated:   c.predicate.Negated(),
		Object:    c.object,
	}, nil
}

func (c *Criterion) UnmarshalYAML(value *yaml.Node) error {
	var raw criterionYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	subject, err := ParseSubject(raw.Subject)
	if err != nil {
		return err
	}
	predicate, err := ParsePredicate(raw.Predicate)
	if err != nil {
		return err
	}
	if raw.Negated {
		predicate |= Negation
	}
	switch raw.Object.(type) {
	case nil, string, int, bool:
	default:
		return fmt.Errorf("criterion %s: unsupported operand %T", raw.Subject, raw.Object)
	}
	*c = NewCriterion(subject, predicate, raw.Object)
	return nil
}

type matcherYAML struct {
	Association string      `yaml:"association"`
	Criteria    []Criterion `yaml:"criteria"`
}

func (m ArticleMatcher) MarshalYAML() (interface{}, error) {
	return matcherYAML{Association: m.Association.String(), Criteria: m.Criteria}, nil
}

func (m *ArticleMatcher) UnmarshalYAML(value *yaml.Node) error {
	var raw matcherYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	m.Association = ParseAssociation(raw.Association)
	m.Criteria = raw.Criteria
	return nil
}

// Filter is a saved matcher paired with the action applied to matching articles.
type Filter struct {
	Name    string         `yaml:"name"`
	Matcher ArticleMatcher `yaml:"matcher"`
	Action  string         `yaml:"action"`
}

type filterFile struct {
	Filters []Filter `yaml:"filters"`
}

func LoadFilters(r io.Reader) ([]Filter, error) {
	var f filterFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode filters: %w", err)
	}
	return f.Filters, nil
}

func SaveFilters(w io.Writer, filters []Filter) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(filterFile{Filters: filters}); err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}
	return enc.Close()
}
