package extract

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is a value proposed by one strategy
type Candidate struct {
	Value  string
	Source string // name of the strategy that produced it, for diagnostics
}

// Len returns the candidate length in characters
func (c Candidate) Len() int {
	return utf8.RuneCountInString(c.Value)
}

// Strategy proposes a value from a document. ok is false when the strategy found
// nothing at all; a found-but-poor value is returned with ok true and left to the
// chain's quality check.
type Strategy struct {
	Name string
	Run  func(doc *goquery.Document) (Candidate, bool)
}

// Chain tries strategies in priority order and keeps the first candidate that
// passes Accept
type Chain struct {
	Strategies []Strategy
	Accept     func(Candidate) bool
}

// Resolve returns the first acceptable candidate. The second result is false when
// no strategy produced an acceptable value.
func (c Chain) Resolve(doc *goquery.Document) (Candidate, bool) {
	for _, s := range c.Strategies {
		cand, ok := s.Run(doc)
		if !ok {
			continue
		}
		cand.Source = s.Name
		if c.Accept == nil || c.Accept(cand) {
			return cand, true
		}
	}
	return Candidate{}, false
}

// nonEmpty accepts any candidate with visible text
func nonEmpty(c Candidate) bool {
	return c.Value != ""
}

// minLength accepts candidates strictly longer than n characters
func minLength(n int) func(Candidate) bool {
	return func(c Candidate) bool {
		return c.Len() > n
	}
}
