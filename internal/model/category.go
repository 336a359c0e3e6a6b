package model

import "strings"

// Expense categories understood by the structured extraction prompt.
// Manually entered expenses may carry any free-form category.
const (
	CategoryFood          = "food"
	CategoryTransport     = "transport"
	CategoryHousing       = "housing"
	CategoryEntertainment = "entertainment"
	CategoryUtilities     = "utilities"
	CategoryOther         = "other"
)

// Categories lists the extraction vocabulary in prompt order.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryHousing,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryOther,
}

// NormalizeCategory maps a remote-supplied category onto the vocabulary.
// Anything unrecognized becomes "other".
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, known := range Categories {
		if c == known {
			return known
		}
	}
	return CategoryOther
}
