package domain

import "strings"

type Category string

const (
	CategoryTechnology    Category = "Technology"
	CategoryBusiness      Category = "Business"
	CategoryEntertainment Category = "Entertainment"
	CategorySports        Category = "Sports"
	CategoryEducation     Category = "Education"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryTechnology,
	CategoryBusiness,
	CategoryEntertainment,
	CategorySports,
	CategoryEducation,
}

// CategoryAll is the filter value meaning "no category filter".
const CategoryAll = "All"

// ParseCategory matches case-insensitively and returns the canonical spelling.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}
