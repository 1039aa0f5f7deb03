package extractor

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Discover looks through the configured listing pages for event standings
// links whose path contains every discovery token. Listing pages that fail
// are skipped.
func (e *Extractor) Discover(ctx context.Context) []string {
	base, err := url.Parse(e.opts.BaseURL)
	if err != nil || e.opts.BaseURL == "" {
		e.logger.Warn().Str("base_url", e.opts.BaseURL).Msg("discovery skipped, invalid base url")
		return nil
	}

	var found []string
	seen := make(map[string]bool)
	for _, page := range e.opts.DiscoverPages {
		if ctx.Err() != nil {
			break
		}
		pageURL := resolve(base, page)
		body, err := e.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			e.logger.Warn().Err(err).Str("url", pageURL).Msg("discovery page fetch failed")
			continue
		}
		for _, link := range e.standingsLinks(base, body) {
			if !seen[link] {
				seen[link] = true
				found = append(found, link)
			}
		}
	}

	e.logger.Info().Int("count", len(found)).Msg("standings urls discovered")
	return found
}

func (e *Extractor) standingsLinks(base *url.URL, body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "/event/") || !containsAll(strings.ToLower(href), e.opts.DiscoverTokens) {
			return
		}
		link := resolve(base, href)
		if !strings.Contains(link, "/event/standings/") {
			link = strings.Replace(link, "/event/", "/event/standings/", 1)
		}
		links = append(links, link)
	})
	return links
}

func containsAll(s string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(s, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
