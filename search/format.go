package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/pairfinder/core"
)

const missing = "N/A"

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return missing
	}
	return s
}

// FormatTime renders a creation time, or N/A for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return missing
	}
	return t.UTC().Format(time.RFC3339)
}

// FormatPair renders a pair as a readable block of text.
func FormatPair(p *core.TranslationPair) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translation Pair #%d:\n", p.Id)
	fmt.Fprintf(&b, "GL Number: %s\n", orMissing(p.GLNumber))
	fmt.Fprintf(&b, "Row Number: %s\n", orMissing(p.RowNumber))
	fmt.Fprintf(&b, "Version: %s\n", orMissing(p.Version))
	fmt.Fprintf(&b, "Effective Date: %s\n\n", orMissing(p.EffectiveDate))
	fmt.Fprintf(&b, "English Text: %s\n", orMissing(p.EnglishText))
	fmt.Fprintf(&b, "Chinese Text: %s\n\n", orMissing(p.ChineseText))
	fmt.Fprintf(&b, "Created At: %s\n", FormatTime(p.CreatedAt))
	return b.String()
}

// FormatResults renders a numbered summary of a search result.
func FormatResults(query string, r *core.SearchResult) string {
	if r == nil || len(r.Pairs) == 0 {
		return fmt.Sprintf("No search results found for: '%s'", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search Results for: '%s'\n", query)
	fmt.Fprintf(&b, "Query Language: %s\n", r.QueryLanguage)
	fmt.Fprintf(&b, "Target Language: %s\n", r.TargetLanguage)
	fmt.Fprintf(&b, "Total Found: %d\n\n", r.TotalFound)
	for i, sp := range r.Pairs {
		p := sp.Pair
		fmt.Fprintf(&b, "%d. Translation Pair #%d (score %.4f)\n", i+1, p.Id, sp.Score)
		fmt.Fprintf(&b, "   English: %s\n", orMissing(p.EnglishText))
		fmt.Fprintf(&b, "   Chinese: %s\n", orMissing(p.ChineseText))
		fmt.Fprintf(&b, "   GL Number: %s\n\n", orMissing(p.GLNumber))
	}
	return b.String()
}
