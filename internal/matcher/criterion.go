package matcher

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"feedvault/internal/model"
)

var (
	ErrUnknownSubject   = errors.New("unknown criterion subject")
	ErrUnknownPredicate = errors.New("unknown criterion predicate")
)

// Article is the read-only view a Criterion inspects.
type Article interface {
	Title() string
	Description() string
	Link() string
	Status() model.Status
	Keep() bool
	AuthorName() string
}

type Subject int

const (
	Title Subject = iota
	Description
	Link
	Status
	KeepFlag
	Author
)

var subjectNames = map[Subject]string{
	Title:       "Title",
	Description: "Description",
	Link:        "Link",
	Status:      "Status",
	KeepFlag:    "KeepFlag",
	Author:      "Author",
}

func (s Subject) String() string {
	if name, ok := subjectNames[s]; ok {
		return name
	}
	return "Subject(" + strconv.Itoa(int(s)) + ")"
}

func ParseSubject(s string) (Subject, error) {
	for subj, name := range subjectNames {
		if name == s {
			return subj, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSubject, s)
}

// Predicate is a comparison, optionally combined with the Negation flag.
type Predicate int

const (
	Contains Predicate = 0x01
	Equals   Predicate = 0x02
	Matches  Predicate = 0x04
	Negation Predicate = 0x80
)

func (p Predicate) Base() Predicate { return p &^ Negation }
func (p Predicate) Negated() bool   { return p&Negation != 0 }

func (p Predicate) String() string {
	var name string
	switch p.Base() {
	case Contains:
		name = "Contains"
	case Equals:
		name = "Equals"
	case Matches:
		name = "Matches"
	default:
		name = "Predicate(" + strconv.Itoa(int(p.Base())) + ")"
	}
	if p.Negated() {
		return "Not" + name
	}
	return name
}

func ParsePredicate(s string) (Predicate, error) {
	switch s {
	case "Contains":
		return Contains, nil
	case "Equals":
		return Equals, nil
	case "Matches":
		return Matches, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPredicate, s)
}

// Criterion tests one article field against an operand.
// The operand is a string, int or bool depending on the subject.
type Criterion struct {
	subject   Subject
	predicate Predicate
	object    any
	re        *regexp.Regexp
}

// NewCriterion keeps string, int and bool operands as they are. Any other
// operand is stored as its string form.
func NewCriterion(subject Subject, predicate Predicate, object any) Criterion {
	switch object.(type) {
	case nil, string, int, bool:
	default:
		object = toString(object)
	}
	c := Criterion{subject: subject, predicate: predicate, object: object}
	if predicate.Base() == Matches {
		// an invalid pattern never matches
		c.re, _ = regexp.Compile(toString(object))
	}
	return c
}

func (c Criterion) Subject() Subject     { return c.subject }
func (c Criterion) Predicate() Predicate { return c.predicate }
func (c Criterion) Object() any          { return c.object }

func (c Criterion) Equal(o Criterion) bool {
	return c.subject == o.subject && c.predicate == o.predicate && c.object == o.object
}

// SatisfiedBy evaluates the criterion against a. A nil article satisfies nothing.
func (c Criterion) SatisfiedBy(a Article) bool {
	if a == nil {
		return false
	}
	var value any
	switch c.subject {
	case Title:
		value = a.Title()
	case Description:
		value = a.Description()
	case Link:
		value = a.Link()
	case Status:
		value = int(a.Status())
	case KeepFlag:
		value = a.Keep()
	case Author:
		value = a.AuthorName()
	}

	var ok bool
	switch c.predicate.Base() {
	case Contains:
		ok = strings.Contains(strings.ToLower(toString(value)), strings.ToLower(toString(c.object)))
	case Equals:
		if n, isInt := value.(int); isInt {
			ok = n == toInt(c.object)
		} else {
			ok = toString(value) == toString(c.object)
		}
	case Matches:
		ok = c.re != nil && c.re.MatchString(toString(value))
	}
	if c.predicate.Negated() {
		ok = !ok
	}
	return ok
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	}
	return 0
}
