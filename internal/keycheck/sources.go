package keycheck

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\]\[]+`)

// SourceURLs returns the absolute http(s) URLs referenced by a fact's source
// field. The field may be a bare URL, prose citing URLs, or an HTML snippet
// with anchors. Citations without a URL ("42 CFR 422.101") yield nothing.
func SourceURLs(source string) []string {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil
	}

	var candidates []string
	if strings.Contains(source, "<a ") || strings.Contains(source, "<A ") {
		candidates = append(candidates, anchorHrefs(source)...)
	}
	candidates = append(candidates, urlPattern.FindAllString(source, -1)...)

	seen := make(map[string]bool)
	var urls []string
	for _, c := range candidates {
		u := normalizeURL(c)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

func anchorHrefs(fragment string) []string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					hrefs = append(hrefs, strings.TrimSpace(attr.Val))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs
}

// normalizeURL drops fragments, trailing sentence punctuation and anything
// that is not an absolute http(s) URL
func normalizeURL(raw string) string {
	raw = strings.TrimRight(raw, ".,;:!?)")
	if strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, "javascript:") || strings.HasPrefix(raw, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	parsed.Fragment = ""
	return parsed.String()
}
