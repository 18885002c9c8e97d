package wordcounts

import (
	"strings"
	"unicode"
)

// Tokenizer handles text tokenization and normalization. It lower-cases,
// splits on anything that is not a letter, digit or hyphen, and drops
// stopwords and tokens shorter than MinLength.
type Tokenizer struct {
	stopwords map[string]struct{}
	minLength int
}

// NewTokenizer creates a new tokenizer with the given stopword list.
// minLength <= 0 keeps every token.
func NewTokenizer(stopwords []string, minLength int) *Tokenizer {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: stops, minLength: minLength}
}

// Tokenize splits text into normalized tokens, removing stopwords.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// Count implements Counter.
func (t *Tokenizer) Count(text string) WordCounts {
	return FromTokens(t.Tokenize(text))
}

// processToken applies cleaning, length and stopword filtering.
func (t *Tokenizer) processToken(token string) string {
	word := cleanToken(token)
	if word == "" || len([]rune(word)) < t.minLength {
		return ""
	}
	if t.isStopword(word) {
		return ""
	}
	return word
}

// cleanToken strips leading/trailing hyphens and collapses runs of hyphens
func cleanToken(token string) string {
	token = strings.Trim(token, "-")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}

func (t *Tokenizer) isStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	t.stopwords[strings.ToLower(word)] = struct{}{}
}

// RemoveStopword removes a word from the stopword list
func (t *Tokenizer) RemoveStopword(word string) {
	delete(t.stopwords, strings.ToLower(word))
}

// Clone returns a tokenizer with the same settings and its own stopword set.
func (t *Tokenizer) Clone() *Tokenizer {
	stops := make(map[string]struct{}, len(t.stopwords))
	for w := range t.stopwords {
		stops[w] = struct{}{}
	}
	return &Tokenizer{stopwords: stops, minLength: t.minLength}
}
