package analytics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dtnitsch/web-audit/models"
)

// DefaultKeywordLimit is the size of a page's keyword table.
const DefaultKeywordLimit = 12

// stopWords are ignored in frequency analysis.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "you": {}, "your": {},
	"are": {}, "was": {}, "were": {}, "from": {}, "have": {}, "has": {}, "had": {},

	"but": {}, "not": {}, "our": {}, "their": {}, "they": {}, "them": {}, "his": {}, "her": {},
	"she": {}, "him": {}, "its": {}, "can": {}, "will": {}, "just": {}, "about": {},

	"into": {}, "over": {}, "under": {}, "more": {}, "less": {}, "than": {}, "then": {},
	"when": {}, "what": {}, "why": {}, "how": {}, "who": {}, "where": {}, "which": {},

	"a": {}, "an": {}, "to": {}, "of": {}, "in": {}, "on": {}, "at": {}, "by": {}, "or": {},
	"as": {}, "is": {}, "it": {}, "be": {}, "if": {}, "we": {}, "us": {}, "do": {},
	"does": {}, "did": {},
}

// nonWord matches everything except lowercase letters, digits, whitespace and hyphens.
var nonWord = regexp.MustCompile(`[^a-z0-9\s-]`)

// IsStopword checks if a word is a common stopword that should be filtered out.
func IsStopword(word string) bool {
	_, exists := stopWords[strings.ToLower(word)]
	return exists
}

// Tokens lowercases text, strips punctuation (hyphens survive) and drops
// stop words and tokens of two characters or fewer.
func Tokens(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, word := range fields {
		if len(word) <= 2 || IsStopword(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// WordFrequency counts tokens, remembering first-seen order.
func WordFrequency(text string) []models.KeywordCount {
	index := make(map[string]int)
	var counts []models.KeywordCount
	for _, word := range Tokens(text) {
		if i, ok := index[word]; ok {
			counts[i].Count++
			continue
		}
		index[word] = len(counts)
		counts = append(counts, models.KeywordCount{Term: word, Count: 1})
	}
	return counts
}

// TopKeywords returns at most limit keywords by descending count.
// Ties keep first-seen order.
func TopKeywords(text string, limit int) []models.KeywordCount {
	return TopN(WordFrequency(text), limit)
}

// TopN stable-sorts counts by descending count and truncates to n.
func TopN(counts []models.KeywordCount, n int) []models.KeywordCount {
	sorted := make([]models.KeywordCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if n < 0 {
		n = 0
	}
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
