// Package textmetrics computes word, sentence, and readability statistics for note content.
package textmetrics

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	readingWordsPerMinute  = 200
	speakingWordsPerMinute = 130
)

// Metrics holds the statistics derived from one content string.
type Metrics struct {
	Words            int           `json:"words"`
	Chars            int           `json:"chars"`
	CharsNoSpaces    int           `json:"chars_no_spaces"`
	Sentences        int           `json:"sentences"`
	Paragraphs       int           `json:"paragraphs"`
	ReadingTime      time.Duration `json:"reading_time_ns"`
	SpeakingTime     time.Duration `json:"speaking_time_ns"`
	UniqueWords      int           `json:"unique_words"`
	AvgWordLength    float64       `json:"avg_word_length"`
	Readability      int           `json:"readability"`
	ReadabilityLabel string        `json:"readability_label"`
}

var (
	sentenceSplit  = regexp.MustCompile(`[.!?]+`)
	paragraphSplit = regexp.MustCompile(`\n+`)
	silentSuffix   = regexp.MustCompile(`(?:[^laeiouy]es|ed|[^laeiouy]e)$`)
	leadingY       = regexp.MustCompile(`^y`)
	vowelGroup     = regexp.MustCompile(`[aeiouy]{1,2}`)
)

// Analyze computes Metrics for content. Whitespace-only content yields zero values.
func Analyze(content string) Metrics {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return Metrics{ReadabilityLabel: "N/A"}
	}

	words := strings.Fields(trimmed)
	wordCount := len(words)
	charsNoSpaces := utf8.RuneCountInString(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, content))

	sentences := countNonBlank(sentenceSplit.Split(content, -1))
	if sentences == 0 {
		sentences = 1
	}
	syllables := 0
	for _, word := range words {
		syllables += countSyllables(word)
	}

	score := 206.835 - 1.015*(float64(wordCount)/float64(sentences)) - 84.6*(float64(syllables)/float64(wordCount))
	readability := int(math.Max(0, math.Min(100, math.Round(score))))

	return Metrics{
		Words:            wordCount,
		Chars:            utf8.RuneCountInString(content),
		CharsNoSpaces:    charsNoSpaces,
		Sentences:        sentences,
		Paragraphs:       countNonBlank(paragraphSplit.Split(content, -1)),
		ReadingTime:      minutesToDuration(float64(wordCount) / readingWordsPerMinute),
		SpeakingTime:     minutesToDuration(float64(wordCount) / speakingWordsPerMinute),
		UniqueWords:      uniqueWords(words),
		AvgWordLength:    math.Round(float64(charsNoSpaces)/float64(wordCount)*10) / 10,
		Readability:      readability,
		ReadabilityLabel: readabilityLabel(readability),
	}
}

// WordCount returns Analyze(content).Words without computing the rest.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// FormatDuration renders reading/speaking times as "N sec", "N min", or "Nm Ss".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d sec", int(math.Round(d.Seconds())))
	}
	total := int(math.Round(d.Seconds()))
	minutes, seconds := total/60, total%60
	if seconds == 0 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

func readabilityLabel(score int) string {
	switch {
	case score >= 90:
		return "Very Easy (5th grade)"
	case score >= 80:
		return "Easy (6th grade)"
	case score >= 70:
		return "Fairly Easy (7th grade)"
	case score >= 60:
		return "Standard (8th-9th grade)"
	case score >= 50:
		return "Fairly Difficult (10th-12th)"
	case score >= 30:
		return "Difficult (College)"
	default:
		return "Very Difficult (Grad)"
	}
}

func countSyllables(word string) int {
	word = strings.ToLower(word)
	if utf8.RuneCountInString(word) <= 3 {
		return 1
	}
	word = silentSuffix.ReplaceAllString(word, "")
	word = leadingY.ReplaceAllString(word, "")
	if n := len(vowelGroup.FindAllString(word, -1)); n > 0 {
		return n
	}
	return 1
}

// uniqueWords counts distinct normalized keys. Punctuation-only tokens share
// the empty key and count once.
func uniqueWords(words []string) int {
	seen := make(map[string]struct{}, len(words))
	for _, word := range words {
		seen[asciiWordKey(word)] = struct{}{}
	}
	return len(seen)
}

// asciiWordKey lowercases word and keeps only [a-z0-9].
func asciiWordKey(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func countNonBlank(parts []string) int {
	n := 0
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

func minutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}
