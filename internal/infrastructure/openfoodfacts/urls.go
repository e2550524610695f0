package openfoodfacts

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultBaseURL is the public site scraped when no base URL is configured
const DefaultBaseURL = "https://world.openfoodfacts.org"

// defaultLocale prefixes taxonomy slugs when the category carries none
const defaultLocale = "en"

var (
	// productPathPattern matches a product link and captures its barcode
	productPathPattern = regexp.MustCompile(`/product/(\d{8,14})\b`)
	// barcodePattern validates a bare barcode
	barcodePattern = regexp.MustCompile(`^\d{8,14}$`)
	// searchSeparators become '+' in free-text search terms
	searchSeparators = regexp.MustCompile(`[\s\-]+`)
)

// IsBarcode reports whether s is an 8 to 14 digit identifier
func IsBarcode(s string) bool {
	return barcodePattern.MatchString(s)
}

// CategoryRef is a category name with an optional locale tag ("en:chocolates")
type CategoryRef struct {
	Raw    string
	Locale string
	Slug   string
}

// ParseCategory splits a locale tag off a category name
func ParseCategory(raw string) CategoryRef {
	raw = strings.TrimSpace(raw)
	cat := CategoryRef{Raw: raw, Slug: raw}
	if locale, slug, ok := strings.Cut(raw, ":"); ok {
		cat.Locale = strings.TrimSpace(locale)
		cat.Slug = strings.TrimSpace(slug)
	}
	return cat
}

// taxonomyLocale is the locale used for the prefixed listing form
func (c CategoryRef) taxonomyLocale() string {
	if c.Locale != "" {
		return c.Locale
	}
	return defaultLocale
}

// searchTerms converts the slug to '+'-joined, query-escaped words
func (c CategoryRef) searchTerms() string {
	words := searchSeparators.Split(strings.TrimSpace(c.Slug), -1)
	escaped := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			escaped = append(escaped, url.QueryEscape(w))
		}
	}
	return strings.Join(escaped, "+")
}

// candidateURLs lists the listing pages to try for one category page, in
// order: bare-slug listing, locale-prefixed listing, free-text search.
func candidateURLs(baseURL string, category CategoryRef, page int) []string {
	slug := url.PathEscape(category.Slug)
	bare := fmt.Sprintf("%s/category/%s", baseURL, slug)
	prefixed := fmt.Sprintf("%s/category/%s:%s", baseURL, category.taxonomyLocale(), slug)

	var candidates []string

	// bare slug
	if page == 1 {
		candidates = append(candidates, bare)
	} else {
		candidates = append(candidates,
			fmt.Sprintf("%s?page=%d", bare, page),
			fmt.Sprintf("%s/%d", bare, page),
		)
	}

	// locale-prefixed slug
	if page == 1 {
		candidates = append(candidates, prefixed)
	} else {
		candidates = append(candidates,
			fmt.Sprintf("%s?page=%d", prefixed, page),
			fmt.Sprintf("%s/%d", prefixed, page),
		)
	}

	// free-text search
	search := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s", baseURL, category.searchTerms())
	if page > 1 {
		search += fmt.Sprintf("&page=%d", page)
	}
	candidates = append(candidates, search+"&search_simple=1&action=process")

	return candidates
}

// productURL is the page for a single barcode
func productURL(baseURL, barcode string) string {
	return fmt.Sprintf("%s/product/%s", baseURL, barcode)
}

// normalizeBaseURL trims the trailing slash, defaulting to the public site
func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return DefaultBaseURL
	}
	return baseURL
}
