package domain

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	fallbackColor = "#6B7280"
	fallbackIcon  = "folder"
)

// CategoryOrder is the fixed display order of known categories.
var CategoryOrder = []string{
	"government",
	"banks",
	"popular_turkish",
	"turkish_extensions",
	"universities",
	"social_media",
	"email_providers",
	"tech_companies",
}

type categoryMeta struct {
	Label string
	Color string
	Icon  string
}

var categories = map[string]categoryMeta{
	"government":         {Label: "Government Institutions", Color: "#1e90ff", Icon: "building"},
	"banks":              {Label: "Financial Institutions", Color: "#87ceeb", Icon: "landmark"},
	"popular_turkish":    {Label: "Featured Turkish Sites", Color: "#00bfff", Icon: "star"},
	"turkish_extensions": {Label: "Turkish-Extension Platforms", Color: "#4682b4", Icon: "globe"},
	"universities":       {Label: "Higher Education", Color: "#5f9ea0", Icon: "graduation-cap"},
	"social_media":       {Label: "Social Media", Color: "#ff6b6b", Icon: "users"},
	"email_providers":    {Label: "Email Providers", Color: "#4ecdc4", Icon: "mail"},
	"tech_companies":     {Label: "Technology Companies", Color: "#45b7d1", Icon: "cpu"},
}

var titleCaser = cases.Title(language.English)

// CategoryCount is one row of a GROUP BY category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// CategoryStat is a chart-ready category entry.
type CategoryStat struct {
	Category   string  `json:"category"`
	Label      string  `json:"label"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
	Icon       string  `json:"icon"`
}

// CategoryLabel returns the display label of a category key.
func CategoryLabel(key string) string {
	if m, ok := categories[key]; ok {
		return m.Label
	}
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// FormatCategoryStats orders known categories first, then the others in
// input order. A zero total yields zero percentages.
func FormatCategoryStats(counts []CategoryCount, total int64) []CategoryStat {
	byKey := make(map[string]int64, len(counts))
	for _, c := range counts {
		byKey[c.Category] = c.Count
	}

	known := make(map[string]struct{}, len(CategoryOrder))
	out := make([]CategoryStat, 0, len(counts))
	for _, key := range CategoryOrder {
		known[key] = struct{}{}
		if n, ok := byKey[key]; ok {
			out = append(out, newCategoryStat(key, n, total))
		}
	}
	for _, c := range counts {
		if _, ok := known[c.Category]; ok {
			continue
		}
		out = append(out, newCategoryStat(c.Category, c.Count, total))
	}
	return out
}

func newCategoryStat(key string, count, total int64) CategoryStat {
	st := CategoryStat{
		Category:   key,
		Label:      CategoryLabel(key),
		Count:      count,
		Percentage: Percentage(count, total),
		Color:      fallbackColor,
		Icon:       fallbackIcon,
	}
	if m, ok := categories[key]; ok {
		st.Color = m.Color
		st.Icon = m.Icon
	}
	return st
}

// Percentage returns count/total*100 rounded to one decimal.
func Percentage(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
