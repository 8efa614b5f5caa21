package llm

import "strings"

// stockRule maps one keyword to a curated stock photo. Rules are
// evaluated in order; the first keyword found in the prompt wins.
type stockRule struct {
	Keyword string
	URL     string
}

// stockRules is the emergency catalogue used when every generative
// image tier has failed. No default entry: a prompt matching nothing
// yields no image.
var stockRules = []stockRule{
	{Keyword: "bakery", URL: "https://images.unsplash.com/photo-1509440159596-0249088772ff?w=1024"},
	{Keyword: "coffee", URL: "https://images.unsplash.com/photo-1495474472287-4d71bcdd2085?w=1024"},
	{Keyword: "restaurant", URL: "https://images.unsplash.com/photo-1517248135467-4c7edcad34c4?w=1024"},
	{Keyword: "opening", URL: "https://images.unsplash.com/photo-1531058020387-3be344556be6?w=1024"},
	{Keyword: "sale", URL: "https://images.unsplash.com/photo-1607083206968-13611e3d76db?w=1024"},
	{Keyword: "fitness", URL: "https://images.unsplash.com/photo-1534438327276-14e5300c3a48?w=1024"},
	{Keyword: "salon", URL: "https://images.unsplash.com/photo-1560066984-138dadb4c035?w=1024"},
	{Keyword: "boutique", URL: "https://images.unsplash.com/photo-1441986300917-64674bd600d8?w=1024"},
}

// MatchStockPhoto scans the prompt for a known business keyword and
// returns the matching curated photo. It performs no network call.
func MatchStockPhoto(prompt string) (string, bool) {
	lowered := strings.ToLower(prompt)
	for _, rule := range stockRules {
		if strings.Contains(lowered, rule.Keyword) {
			return rule.URL, true
		}
	}
	return "", false
}
