package textmetrics

import (
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/orsinium-labs/stopwords"
)

// minKeywordRunes drops short tokens that are rarely meaningful on their own.
const minKeywordRunes = 3

// Keyword is one ranked term from note content.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

var (
	englishStopwords     *stopwords.Stopwords
	englishStopwordsOnce sync.Once
)

func stopwordSet() *stopwords.Stopwords {
	englishStopwordsOnce.Do(func() {
		englishStopwords = stopwords.MustGet("en")
	})
	return englishStopwords
}

// Keywords returns up to limit non-stopword terms ranked by frequency, ties broken alphabetically.
func Keywords(content string, limit int) []Keyword {
	if limit <= 0 {
		return nil
	}
	counts := map[string]int{}
	checker := stopwordSet()
	for _, raw := range strings.FieldsFunc(strings.ToLower(content), isWordSeparator) {
		word := strings.TrimFunc(raw, func(r rune) bool { return r == '\'' || r == '-' })
		if utf8.RuneCountInString(word) < minKeywordRunes {
			continue
		}
		if checker.Contains(word) {
			continue
		}
		counts[word]++
	}

	out := make([]Keyword, 0, len(counts))
	for word, count := range counts {
		out = append(out, Keyword{Word: word, Count: count})
	}
	slices.SortFunc(out, func(a, b Keyword) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Word, b.Word)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
}
