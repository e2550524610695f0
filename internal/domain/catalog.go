package domain

import (
	"sort"
	"strings"
)

// UnknownGrade labels products without a nutrition grade in stats
const UnknownGrade = "UNKNOWN"

// ProductQuery filters and paginates the stored catalog
type ProductQuery struct {
	Q        string `form:"q"`
	Nutri    string `form:"nutri"`
	Brand    string `form:"brand"`
	Category string `form:"category"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
	Sort     string `form:"sort"`
}

// ProductPage is one page of a catalog listing
type ProductPage struct {
	Data  []ProductRecord `json:"data"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// GradeCount is the number of products with a given nutrition grade
type GradeCount struct {
	Nutriscore string `json:"nutriscore"`
	Count      int    `json:"count"`
}

// TokenCount is the number of products carrying a given category token
type TokenCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CountGrades counts records per nutrition grade, sorted by grade.
// Records without a grade are counted under the empty string, which sorts first.
func CountGrades(records []ProductRecord) []GradeCount {
	counts := make(map[string]int)
	for _, r := range records {
		counts[strings.ToUpper(strings.TrimSpace(r.Nutriscore))]++
	}

	result := make([]GradeCount, 0, len(counts))
	for grade, n := range counts {
		result = append(result, GradeCount{Nutriscore: grade, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Nutriscore < result[j].Nutriscore
	})
	return result
}

// TopCategories counts individual category tokens across records and
// returns the n most frequent, ties broken alphabetically. n <= 0 returns all.
func TopCategories(records []ProductRecord, n int) []TokenCount {
	counts := make(map[string]int)
	for i := range records {
		for _, token := range records[i].CategoryTokens() {
			counts[token]++
		}
	}

	result := make([]TokenCount, 0, len(counts))
	for token, c := range counts {
		result = append(result, TokenCount{Category: token, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})

	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}
