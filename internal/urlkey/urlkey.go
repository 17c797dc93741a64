// Package urlkey maps raw product URLs onto deterministic sets of equivalent
// candidate strings. Two spellings of the same product page (tracking segment,
// fragment, trailing slash, protocol/www variants, short links) must share at
// least one candidate so lookups and upserts converge on one stored document.
package urlkey

import (
	"net/url"
	"regexp"
	"strings"
)

// asinPattern matches the Amazon product-identifier path segment in either of
// its two URL shapes.
var asinPattern = regexp.MustCompile(`(?i)/(?:dp|gp/product)/([a-z0-9]{10})(?:[/?]|$)`)

// merchantHostMarkers is the fixed list of domain substrings/suffixes that
// enable merchant-specific canonicalization.
var merchantHostMarkers = []string{
	"amazon.",
	"www.amazon.",
	"amzn.in",
	"amzn.to",
}

// Candidates returns the ordered, de-duplicated set of URL strings treated as
// identifying the same product as raw. The trimmed input is always the first
// candidate; malformed input yields just the trimmed input. Pure, no I/O.
func Candidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	set := newOrderedSet()
	set.add(trimmed)

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return set.values()
	}

	noFrag := *u
	noFrag.Fragment = ""
	noFrag.RawFragment = ""
	set.add(noFrag.String())
	set.add(stripTrailingSlash(noFrag.String()))

	noQuery := noFrag
	noQuery.RawQuery = ""
	set.add(noQuery.String())
	set.add(stripTrailingSlash(noQuery.String()))

	host := strings.ToLower(u.Hostname())
	if IsMerchantHost(host) {
		if asin := ExtractASIN(u.Path); asin != "" {
			bare := strings.TrimPrefix(host, "www.")
			for _, scheme := range []string{"https", "http"} {
				set.add(scheme + "://www." + bare + "/dp/" + asin)
				set.add(scheme + "://" + bare + "/dp/" + asin)
			}
		}

		if idx := strings.Index(u.Path, "/ref="); idx >= 0 {
			deref := noQuery
			deref.Path = u.Path[:idx]
			deref.RawPath = ""
			set.add(stripTrailingSlash(deref.String()))
		}
	}

	return set.values()
}

// ExtractASIN returns the uppercase 10-character Amazon product identifier
// embedded in path, or "" when none is present.
func ExtractASIN(path string) string {
	m := asinPattern.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1])
}

// IsMerchantHost reports whether host belongs to a merchant with dedicated
// path canonicalization rules.
func IsMerchantHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	for _, marker := range merchantHostMarkers {
		if strings.HasSuffix(marker, ".") {
			if strings.Contains(host, marker) {
				return true
			}
			continue
		}
		if host == marker || strings.HasSuffix(host, "."+marker) {
			return true
		}
	}
	return false
}

// IsShortlinkHost reports whether host is the allowlisted link-shortener
// domain or one of its subdomains.
func IsShortlinkHost(host, allow string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	allow = strings.ToLower(strings.TrimSpace(allow))
	if allow == "" || host == "" {
		return false
	}
	return host == allow || strings.HasSuffix(host, "."+allow)
}

func stripTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") && !strings.HasSuffix(s, "//") {
		return s[:len(s)-1]
	}
	return s
}

type orderedSet struct {
	seen map[string]struct{}
	list []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.list = append(s.list, v)
}

func (s *orderedSet) values() []string {
	return s.list
}
