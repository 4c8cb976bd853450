package menu

import (
	"os"
	"path/filepath"
	"strings"

	"cafe/common"
)

// Policy decides which paths under a base directory may be served.
type Policy struct {
	basePath string
	include  []Pattern
	exclude  []Pattern
	hot      *HotDecisions
}

// NewPolicy compiles the menu patterns of a canonicalized config.
func NewPolicy(conf *common.CafeConfig) (*Policy, error) {
	include, err := CompileAll(conf.Menu.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := CompileAll(conf.Menu.Exclude)
	if err != nil {
		return nil, err
	}

	return &Policy{
		basePath: conf.BasePath,
		include:  include,
		exclude:  exclude,
		hot:      NewHotDecisions(conf.CacheSize),
	}, nil
}

// IsServable reports whether relativePath is included, not excluded and does
// not resolve outside the base directory. It never touches the filesystem.
func (p *Policy) IsServable(relativePath string) bool {
	if servable, ok := p.hot.Get(relativePath); ok {
		return servable
	}

	servable := p.isServable(relativePath)
	p.hot.Add(relativePath, servable)
	return servable
}

func (p *Policy) isServable(relativePath string) bool {
	normalized := strings.TrimPrefix(filepath.ToSlash(relativePath), "/")

	included := lastMatch(p.include, normalized)
	excluded := lastMatch(p.exclude, normalized)

	return included && !excluded && p.Contains(relativePath)
}

// Contains reports whether relativePath joined to the base stays inside it.
func (p *Policy) Contains(relativePath string) bool {
	resolved := filepath.Join(p.basePath, relativePath)
	if resolved == p.basePath {
		return true
	}
	return strings.HasPrefix(resolved, strings.TrimSuffix(p.basePath, string(os.PathSeparator))+string(os.PathSeparator))
}

// Resolve returns the absolute path for relativePath under the base.
func (p *Policy) Resolve(relativePath string) string {
	return filepath.Join(p.basePath, relativePath)
}
