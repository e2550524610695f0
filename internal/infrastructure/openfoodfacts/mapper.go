package openfoodfacts

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/foodfacts/scraper/internal/domain"
	"golang.org/x/text/unicode/norm"
)

// Selector chains per field, most specific first
var (
	nameSelectors = []string{
		"#field_product_name_value",
		"h1[itemprop='name']",
		"h1#product_name",
		"h1",
	}
	brandSelectors = []string{
		"#field_brands_value",
		"a[href*='/brand/']",
		"[itemprop='brand']",
	}
	categorySelectors = []string{
		"#field_categories_value a",
		"a[href*='/category/']",
		"a[property='food:category']",
	}
	labelSelectors = []string{
		"#field_labels_value a",
		"a[href*='/label/']",
		"div.labels a",
	}

	nutriscoreImageSelector = "img[class*='nutri'], img[src*='nutriscore'], img[alt*='Nutri-Score']"
)

// Grade patterns, tried in order against the badge's alt, title and src.
// The first reads "Nutri-Score C" style text, the second file names like
// "nutriscore-c.svg".
var gradePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[Nn]utri[- ]?[Ss]core[^A-E]*([A-E])`),
	regexp.MustCompile(`(?i)nutri(?:score)?[-_/]?([a-e])`),
}

// ParseProduct extracts a product record from a product page. Fields that
// cannot be found are left empty.
func ParseProduct(doc *goquery.Document, barcode, sourceURL string) *domain.ProductRecord {
	return &domain.ProductRecord{
		Barcode:    barcode,
		Name:       firstText(doc, nameSelectors),
		Brand:      firstText(doc, brandSelectors),
		Category:   listText(doc, categorySelectors).String(),
		Nutriscore: nutriscore(doc),
		Labels:     listText(doc, labelSelectors).String(),
		SourceURL:  sourceURL,
	}
}

// firstText returns the text of the first element matching the first
// selector that yields non-empty text
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := cleanText(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// listText returns the deduplicated texts of all elements matching the
// first selector that yields any text
func listText(doc *goquery.Document, selectors []string) *domain.TokenSet {
	for _, sel := range selectors {
		set := domain.NewTokenSet()
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			set.Add(cleanText(s.Text()))
		})
		if set.Len() > 0 {
			return set
		}
	}
	return domain.NewTokenSet()
}

// nutriscore reads the grade letter off the nutrition-grade badge
func nutriscore(doc *goquery.Document) string {
	img := doc.Find(nutriscoreImageSelector).First()
	if img.Length() == 0 {
		return ""
	}

	alt, _ := img.Attr("alt")
	title, _ := img.Attr("title")
	src, _ := img.Attr("src")
	return GradeFromText(strings.Join([]string{alt, title, src}, " "))
}

// GradeFromText extracts an uppercase A-E grade from badge text, or ""
func GradeFromText(text string) string {
	for _, pattern := range gradePatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

// cleanText collapses whitespace and normalizes to NFC
func cleanText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
