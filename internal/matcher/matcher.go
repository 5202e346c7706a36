// Package matcher recommends catalog patterns for a free-text context.
//
// Matching is keyword overlap, nothing more: the context is case-folded and
// split into keywords, and each pattern scores one point per distinct keyword
// found in its folded name or description.
package matcher

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/roach88/arbiter/internal/ir"
)

// MinKeywordLen is the shortest keyword, in runes, that takes part in matching.
const MinKeywordLen = 3

var stopwords = map[string]struct{}{
	"the":  {},
	"and":  {},
	"for":  {},
	"with": {},
	"into": {},
	"from": {},
	"this": {},
	"that": {},
}

// Source is the read side of a pattern catalog.
type Source interface {
	All() []ir.PatternRecord
	Get(name string) (ir.PatternRecord, error)
}

// Match is a recommended pattern and its keyword score.
type Match struct {
	Record ir.PatternRecord
	Score  int
}

// Matcher ranks catalog records against a context.
type Matcher struct {
	source        Source
	minConfidence float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMinConfidence drops records whose confidence is below c.
func WithMinConfidence(c float64) Option {
	return func(m *Matcher) {
		m.minConfidence = c
	}
}

// New creates a matcher over source.
func New(source Source, opts ...Option) *Matcher {
	m := &Matcher{source: source}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Keywords extracts the distinct matching keywords of text in first-seen order.
func Keywords(text string) []string {
	folded := cases.Fold().String(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		if utf8.RuneCountInString(f) < MinKeywordLen {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Recommend returns the records hit by at least one keyword of context,
// ordered by score desc, confidence desc, name asc. Returns an empty slice
// when nothing matches.
func (m *Matcher) Recommend(context string) []Match {
	keywords := Keywords(context)
	matches := []Match{}
	if len(keywords) == 0 {
		return matches
	}

	caser := cases.Fold()
	for _, rec := range m.source.All() {
		if rec.Confidence < m.minConfidence {
			continue
		}
		name := caser.String(rec.Name)
		desc := caser.String(rec.Description)

		score := 0
		for _, kw := range keywords {
			if strings.Contains(name, kw) || strings.Contains(desc, kw) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, Match{Record: rec, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Record.Confidence != b.Record.Confidence {
			return a.Record.Confidence > b.Record.Confidence
		}
		return a.Record.Name < b.Record.Name
	})
	return matches
}

// BestStrategy returns the ordered phases of the named pattern.
// Fails with NOT_FOUND for an unknown name.
func (m *Matcher) BestStrategy(name string) ([]ir.Phase, error) {
	rec, err := m.source.Get(name)
	if err != nil {
		return nil, err
	}
	return rec.Phases, nil
}
