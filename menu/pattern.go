package menu

import (
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"

	"cafe/common"
)

var ErrBadPattern = errors.New("bad menu pattern")

const matchTimeout = 100 * time.Millisecond

// Pattern matches a slash separated path relative to the base directory.
type Pattern interface {
	Match(path string) bool
	String() string
}

type globPattern string

func (g globPattern) Match(path string) bool {
	ok, err := doublestar.Match(string(g), path)
	return err == nil && ok
}

func (g globPattern) String() string {
	return string(g)
}

type regexpPattern struct {
	source string
	re     *regexp2.Regexp
}

// Match treats a regexp that times out as not matching.
func (r *regexpPattern) Match(path string) bool {
	ok, err := r.re.MatchString(path)
	return err == nil && ok
}

func (r *regexpPattern) String() string {
	return r.source
}

// Compile parses a glob, or a regexp written as regexp:/source/flags with
// flags from "imsu" (ECMAScript semantics).
func Compile(pattern string) (Pattern, error) {
	if !strings.HasPrefix(pattern, common.RegexpPrefix) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Wrapf(ErrBadPattern, "invalid glob %q", pattern)
		}
		return globPattern(pattern), nil
	}

	body := strings.TrimPrefix(pattern, common.RegexpPrefix)
	last := strings.LastIndex(body, "/")
	if !strings.HasPrefix(body, "/") || last < 1 {
		return nil, errors.Wrapf(ErrBadPattern, "expected regexp:/source/flags, got %q", pattern)
	}

	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for _, flag := range body[last+1:] {
		switch flag {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'u', 'g', 'y':
		default:
			return nil, errors.Wrapf(ErrBadPattern, "unknown regexp flag %q in %q", flag, pattern)
		}
	}

	// ECMAScript mode only combines with IgnoreCase and Multiline.
	if opts&regexp2.Singleline != 0 {
		opts &^= regexp2.ECMAScript
	}

	re, err := regexp2.Compile(body[1:last], opts)
	if err != nil {
		return nil, errors.Wrapf(ErrBadPattern, "%q: %v", pattern, err)
	}
	re.MatchTimeout = matchTimeout
	return &regexpPattern{source: pattern, re: re}, nil
}

// CompileAll compiles patterns keeping their order.
func CompileAll(patterns []string) ([]Pattern, error) {
	compiled := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		c, err := Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, c)
	}
	return compiled, nil
}

// lastMatch reports whether the last pattern in the list matches path. Every
// pattern is evaluated and each result overwrites the previous one, so a
// later miss after an earlier hit yields false.
func lastMatch(patterns []Pattern, path string) bool {
	matched := false
	for _, p := range patterns {
		matched = p.Match(path)
	}
	return matched
}
