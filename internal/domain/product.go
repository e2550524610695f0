package domain

import "strings"

// Field names of a product record, as stored and exported
const (
	FieldBarcode    = "barcode"
	FieldName       = "name"
	FieldBrand      = "brand"
	FieldCategory   = "category"
	FieldNutriscore = "nutriscore"
	FieldLabels     = "labels"
	FieldSourceURL  = "source_url"
)

// Fields lists every known record field in export order
var Fields = []string{
	FieldBarcode,
	FieldName,
	FieldBrand,
	FieldCategory,
	FieldNutriscore,
	FieldLabels,
	FieldSourceURL,
}

// TokenSeparator joins category and label tokens into their stored string form
const TokenSeparator = ", "

// ProductRecord represents one product scraped from a product page.
// Category and Labels hold ordered token sets joined with TokenSeparator.
// An empty string always means "unknown".
type ProductRecord struct {
	Barcode    string `json:"barcode" bson:"barcode"`
	Name       string `json:"name" bson:"name"`
	Brand      string `json:"brand" bson:"brand"`
	Category   string `json:"category" bson:"category"`
	Nutriscore string `json:"nutriscore" bson:"nutriscore"`
	Labels     string `json:"labels" bson:"labels"`
	SourceURL  string `json:"source_url" bson:"source_url"`
}

// Field returns the value of a field by its stored name
func (p *ProductRecord) Field(name string) string {
	switch name {
	case FieldBarcode:
		return p.Barcode
	case FieldName:
		return p.Name
	case FieldBrand:
		return p.Brand
	case FieldCategory:
		return p.Category
	case FieldNutriscore:
		return p.Nutriscore
	case FieldLabels:
		return p.Labels
	case FieldSourceURL:
		return p.SourceURL
	}
	return ""
}

// SetField sets a field by its stored name. Unknown names are ignored.
func (p *ProductRecord) SetField(name, value string) {
	switch name {
	case FieldBarcode:
		p.Barcode = value
	case FieldName:
		p.Name = value
	case FieldBrand:
		p.Brand = value
	case FieldCategory:
		p.Category = value
	case FieldNutriscore:
		p.Nutriscore = value
	case FieldLabels:
		p.Labels = value
	case FieldSourceURL:
		p.SourceURL = value
	}
}

// Values returns the field values in Fields order
func (p *ProductRecord) Values() []string {
	values := make([]string, len(Fields))
	for i, f := range Fields {
		values[i] = p.Field(f)
	}
	return values
}

// CategoryTokens splits the stored category string into its tokens
func (p *ProductRecord) CategoryTokens() []string {
	return SplitTokens(p.Category)
}

// IsKnownField reports whether name is one of Fields
func IsKnownField(name string) bool {
	for _, f := range Fields {
		if f == name {
			return true
		}
	}
	return false
}

// TokenSet is an insertion-ordered set of non-empty strings
type TokenSet struct {
	seen  map[string]struct{}
	items []string
}

// NewTokenSet creates an empty token set
func NewTokenSet() *TokenSet {
	return &TokenSet{seen: make(map[string]struct{})}
}

// Add inserts a token and reports whether it was new.
// Tokens are trimmed; empty tokens are never added.
func (s *TokenSet) Add(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	if _, ok := s.seen[token]; ok {
		return false
	}
	s.seen[token] = struct{}{}
	s.items = append(s.items, token)
	return true
}

// Items returns the tokens in first-seen order
func (s *TokenSet) Items() []string {
	return s.items
}

// Len returns the number of tokens
func (s *TokenSet) Len() int {
	return len(s.items)
}

// String joins the tokens with TokenSeparator
func (s *TokenSet) String() string {
	return strings.Join(s.items, TokenSeparator)
}

// SplitTokens parses a joined token string, dropping blanks and duplicates
func SplitTokens(joined string) []string {
	set := NewTokenSet()
	for _, part := range strings.Split(joined, ",") {
		set.Add(part)
	}
	return set.Items()
}
