package parsers

import "net/url"

// ResolveURL joins a possibly-relative href against a page's base URL.
// Exported for vendor adapters that absolutize links outside an agenda
// document (calendar rows, legislation detail pages).
func ResolveURL(baseURL, href string) string {
	return resolveURL(baseURL, href)
}

// resolveURL joins a possibly-relative href against the page's base URL.
// On any parse failure it returns href unchanged rather than failing the
// whole parse over one bad link.
func resolveURL(baseURL, href string) string {
	if baseURL == "" {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
