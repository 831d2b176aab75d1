// Package policy decides whether the pipeline may act on a given URL.
//
// The blocklist is a set of glob patterns matched against the full URL and
// its host, so configurations can block whole origins ("*.bank.example")
// or specific paths ("https://example.com/admin/*").
package policy

import (
	"fmt"
	"net/url"

	"github.com/gobwas/glob"

	"github.com/fatalapps/pageactor/pkg/actor/tabs"
)

// SitePolicy is a compiled URL blocklist.
type SitePolicy struct {
	patterns []glob.Glob
	sources  []string
}

// New compiles the given glob patterns. An invalid pattern fails the whole
// policy rather than being silently skipped.
func New(patterns []string) (*SitePolicy, error) {
	p := &SitePolicy{}
	for _, raw := range patterns {
		g, err := glob.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid blocklist pattern %q: %w", raw, err)
		}
		p.patterns = append(p.patterns, g)
		p.sources = append(p.sources, raw)
	}
	return p, nil
}

// MayActOnURL reports whether acting on the URL is allowed. Unparseable
// URLs are blocked.
func (p *SitePolicy) MayActOnURL(raw string) bool {
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for _, g := range p.patterns {
		if g.Match(raw) || g.Match(u.Host) {
			return false
		}
	}
	return true
}

// MayActOnTab reports whether acting on the tab's current URL is allowed.
func (p *SitePolicy) MayActOnTab(t *tabs.Tab) bool {
	return p.MayActOnURL(t.URL())
}

// Patterns returns the source patterns the policy was built from.
func (p *SitePolicy) Patterns() []string {
	out := make([]string, len(p.sources))
	copy(out, p.sources)
	return out
}
