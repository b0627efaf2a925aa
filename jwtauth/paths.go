package jwtauth

import (
	"fmt"
	"strings"
)

// PathRules is an ordered list of public path patterns.
//
// Pattern forms:
//
//	/api/v1/auth/login   exact match
//	/api/v1/auth/**      the prefix itself and everything below it
//	/api/v1/posts/*      exactly one segment in place of the star
//
// The first matching pattern wins; a path matching nothing requires authentication.
type PathRules struct {
	patterns []pathPattern
}

type pathPattern struct {
	raw      string
	segments []string
	prefix   bool // pattern ended in /**
}

// NewPathRules compiles patterns in the given order
func NewPathRules(patterns ...string) (*PathRules, error) {
	rules := &PathRules{patterns: make([]pathPattern, 0, len(patterns))}
	for _, raw := range patterns {
		p, err := compilePattern(raw)
		if err != nil {
			return nil, err
		}
		rules.patterns = append(rules.patterns, p)
	}
	return rules, nil
}

func compilePattern(raw string) (pathPattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return pathPattern{}, fmt.Errorf("path pattern %q must start with /", raw)
	}

	p := pathPattern{raw: raw}
	body := raw
	if rest, ok := strings.CutSuffix(raw, "/**"); ok {
		p.prefix = true
		body = rest
	}

	p.segments = splitSegments(body)
	for _, seg := range p.segments {
		if seg == "**" {
			return pathPattern{}, fmt.Errorf("path pattern %q: ** is only allowed as the final segment", raw)
		}
	}
	return p, nil
}

// Match returns the first pattern matching path.
// Non-canonical paths ("..", "." or empty inner segments) never match, so they
// always require authentication.
func (r *PathRules) Match(path string) (string, bool) {
	if r == nil {
		return "", false
	}
	segments := splitSegments(path)
	if !canonical(segments) {
		return "", false
	}
	for _, p := range r.patterns {
		if p.matches(segments) {
			return p.raw, true
		}
	}
	return "", false
}

// IsPublic reports whether path matches any public pattern
func (r *PathRules) IsPublic(path string) bool {
	_, ok := r.Match(path)
	return ok
}

// Patterns returns the configured patterns in evaluation order
func (r *PathRules) Patterns() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.patterns))
	for i, p := range r.patterns {
		out[i] = p.raw
	}
	return out
}

func (p pathPattern) matches(path []string) bool {
	if p.prefix {
		if len(path) < len(p.segments) {
			return false
		}
	} else if len(path) != len(p.segments) {
		return false
	}

	for i, seg := range p.segments {
		if seg == "*" {
			if path[i] == "" {
				return false
			}
			continue
		}
		if seg != path[i] {
			return false
		}
	}
	return true
}

func canonical(segments []string) bool {
	for i, seg := range segments {
		switch seg {
		case ".", "..":
			return false
		case "":
			if i != len(segments)-1 {
				return false
			}
		}
	}
	return true
}

// splitSegments splits "/a/b/" into ["a", "b", ""]; a trailing slash is significant.
func splitSegments(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
