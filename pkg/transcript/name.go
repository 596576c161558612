package transcript

import (
	"strings"
	"unicode"
)

// Analysis fields recognized as carrying the caller's name, in preference
// order.
var nameFields = []string{"first_name", "name", "full_name"}

// Self-identification phrases scanned for in user turns.
var namePhrases = []string{"my name is", "name is", "i'm", "i am", "called"}

// ExtractName resolves the caller's name, preferring a recognized identity
// field from the analysis block over a transcript scan. The first confident
// match wins; absence of both yields "".
func ExtractName(info map[string]string, turns []Turn) string {
	for _, field := range nameFields {
		if v := strings.TrimSpace(info[field]); v != "" {
			return capitalize(v)
		}
	}

	for _, turn := range turns {
		if turn.Role != RoleUser {
			continue
		}
		if name := nameFromUtterance(turn.Message); name != "" {
			return name
		}
	}

	return ""
}

// nameFromUtterance scans one utterance for a self-identification phrase and
// takes the word that follows it.
func nameFromUtterance(message string) string {
	lower := strings.ToLower(message)

	for _, phrase := range namePhrases {
		idx := strings.Index(lower, phrase)
		if idx < 0 {
			continue
		}

		rest := strings.TrimSpace(message[idx+len(phrase):])
		words := strings.Fields(rest)
		if len(words) == 0 {
			continue
		}

		name := strings.TrimFunc(words[0], func(r rune) bool {
			return unicode.IsPunct(r)
		})
		// Single letters are noise, not names.
		if len(name) > 1 {
			return capitalize(name)
		}
	}

	return ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
