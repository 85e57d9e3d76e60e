// Package fnmatch implements shell style exclude patterns for relative paths.
//
// The pattern language follows Python's fnmatch module
// (https://github.com/python/cpython/blob/main/Lib/fnmatch.py),
// Copyright (c) 2001-2024 Python Software Foundation, licensed under the
// Python Software Foundation License Version 2. This Go port is MIT licensed.
//
// Patterns:
//
//	*       matches everything, including path separators
//	?       matches any single character
//	[seq]   matches any character in seq
//	[!seq]  matches any character not in seq
//
// Because * crosses separators, "build/*" excludes a whole subtree and
// "*.tmp" excludes temporary files at any depth.
package fnmatch

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// cache holds compiled expressions keyed by their translated source
var cache sync.Map

// Matcher tests relative paths against a fixed set of patterns.
type Matcher struct {
	patterns []string
	exprs    []*regexp.Regexp
}

// Compile builds a Matcher. With foldCase set, matching ignores letter case.
func Compile(patterns []string, foldCase bool) (*Matcher, error) {
	m := &Matcher{patterns: patterns}
	for _, p := range patterns {
		re, err := compile(p, foldCase)
		if err != nil {
			return nil, err
		}
		m.exprs = append(m.exprs, re)
	}
	return m, nil
}

// Match reports whether name matches any of the patterns.
// A nil Matcher matches nothing.
func (m *Matcher) Match(name string) bool {
	if m == nil {
		return false
	}
	for _, re := range m.exprs {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.patterns
}

// Match tests whether name matches the shell pattern, case-sensitively.
func Match(pattern, name string) (bool, error) {
	re, err := compile(pattern, false)
	if err != nil {
		return false, err
	}
	return re.MatchString(name), nil
}

func compile(pattern string, foldCase bool) (*regexp.Regexp, error) {
	expr := Translate(pattern)
	if foldCase {
		expr = "(?i)" + expr
	}
	if cached, ok := cache.Load(expr); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	cache.Store(expr, re)
	return re, nil
}

// Translate converts a shell pattern to an anchored regular expression.
func Translate(pattern string) string {
	var b strings.Builder
	b.WriteString("(?s:^")

	for i := 0; i < len(pattern); {
		c := pattern[i]
		i++

		switch c {
		case '*':
			for i < len(pattern) && pattern[i] == '*' {
				i++
			}
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			class, next, ok := bracket(pattern, i)
			if !ok {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(class)
			i = next
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteString("$)")
	return b.String()
}

// bracket translates the character class starting just after '[' at start.
// It returns the expression, the index after the closing ']', and false
// when the bracket is never closed and must be taken literally.
func bracket(pattern string, start int) (string, int, bool) {
	j := start
	if j < len(pattern) && pattern[j] == '!' {
		j++
	}
	if j < len(pattern) && pattern[j] == ']' {
		j++
	}
	for j < len(pattern) && pattern[j] != ']' {
		j++
	}
	if j >= len(pattern) {
		return "", start, false
	}

	body := pattern[start:j]
	var b strings.Builder
	b.WriteByte('[')
	if body[0] == '!' {
		b.WriteByte('^')
		body = body[1:]
	}
	for k := 0; k < len(body); k++ {
		if body[k] == '\\' || body[k] == ']' {
			b.WriteByte('\\')
		}
		b.WriteByte(body[k])
	}
	b.WriteByte(']')
	return b.String(), j + 1, true
}
