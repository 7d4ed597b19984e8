package extract

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Matcher identifies elements playing a structural role (product card,
// product link, price block). Implementations decide how the role is
// recognised; the extractor only asks for matches inside a selection.
type Matcher interface {
	// FindIn returns the descendants of sel that play the role,
	// in document order.
	FindIn(sel *goquery.Selection) *goquery.Selection

	// String describes the matcher for diagnostics.
	String() string
}

// ClassPattern matches elements by tag and by a regular expression run
// against the whole class attribute. The expression should capture a
// fragment that encodes the element's role (e.g. "StyledOrderInfoWrapper")
// and leave the generated hash prefixes and suffixes unconstrained, so the
// match survives class-name churn between site deploys.
//
// ClassPattern implements goquery.Matcher.
type ClassPattern struct {
	tagName string
	tag     cascadia.Sel
	pattern *regexp.Regexp
}

// NewClassPattern compiles a tag selector (e.g. "div", "a") and a class
// expression into a ClassPattern.
func NewClassPattern(tag, pattern string) (*ClassPattern, error) {
	sel, err := cascadia.Parse(tag)
	if err != nil {
		return nil, fmt.Errorf("extract: invalid tag selector %q: %w", tag, err)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("extract: invalid class pattern %q: %w", pattern, err)
	}
	return &ClassPattern{tagName: tag, tag: sel, pattern: re}, nil
}

// MustClassPattern is like NewClassPattern but panics on error.
// Intended for package-level defaults.
func MustClassPattern(tag, pattern string) *ClassPattern {
	m, err := NewClassPattern(tag, pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// FindIn implements Matcher.
func (m *ClassPattern) FindIn(sel *goquery.Selection) *goquery.Selection {
	return sel.FindMatcher(m)
}

// Match reports whether n has the tag and a matching class attribute.
func (m *ClassPattern) Match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || !m.tag.Match(n) {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "class" {
			return m.pattern.MatchString(a.Val)
		}
	}
	return false
}

// MatchAll returns n and all of its descendants that match, in document order.
func (m *ClassPattern) MatchAll(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if m.Match(node) {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Filter returns the nodes that match.
func (m *ClassPattern) Filter(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if m.Match(n) {
			out = append(out, n)
		}
	}
	return out
}

func (m *ClassPattern) String() string {
	return fmt.Sprintf("%s[class=~/%s/]", m.tagName, m.pattern.String())
}
