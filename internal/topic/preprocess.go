package topic

import (
	"regexp"
	"strings"
)

var (
	// Word runs (hyphens and apostrophes included, so "covid-19" and
	// "don't" stay whole) and punctuation runs come out as separate
	// tokens: "hello, world!" yields ["hello", ",", "world", "!"].
	tokenRegex   = regexp.MustCompile(`[\w'-]+|[^\w\s]+`)
	nonWordRegex = regexp.MustCompile(`\W+`)
	punctRegex   = regexp.MustCompile(`^[^\w\s]+$`)
)

// Preprocess normalizes an utterance into tokens fit for topic modeling:
// lowercase, word-level split, then stopwords, pure punctuation and tokens
// shorter than 3 characters are discarded and any remaining non-word
// characters stripped. An empty result means "no signal", never an error.
func Preprocess(text string) []string {
	raw := tokenRegex.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if isStopword(token) {
			continue
		}
		if punctRegex.MatchString(token) {
			continue
		}
		if len([]rune(token)) < 3 {
			continue
		}
		token = nonWordRegex.ReplaceAllString(token, "")
		if len([]rune(token)) < 3 {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
