package transcript

import "strings"

// MinMeaningfulLength is the shortest content considered meaningful by the
// quality filter.
const MinMeaningfulLength = 10

// fillerPatterns enumerate content that should never surface in a summary or
// greeting: raw conversational filler, meta-commentary from session notes,
// agent speech, and bare affirmations.
var fillerPatterns = []string{
	// Conversational fillers
	"you know", "um", "uh", "okay", "ok", "great", "yeah", "yep",
	"right", "sure", "well", "so", "like", "actually",
	// Meta-commentary and session notes
	"session quality", "surface-level", "moderate", "rich",
	"chapters discussed", "stories shared", "emotional moments",
	"session date", "participant details",
	// Agent speech patterns that leak into memories
	"can you tell me", "tell me about", "what do you",
	"how did you", "that's wonderful", "thank you for sharing",
	// Short affirmations
	"yes", "no", "maybe", "i see", "i understand",
	// Name-only content, useless for greeting context
	"user name is", "user's name is", "name is",
}

var questionStarters = []string{
	"can you", "could you", "would you", "do you",
	"what", "how", "why", "where", "when",
}

// IsFiller reports whether content is conversational filler that should be
// kept out of summaries, topics, and greetings.
func IsFiller(content string) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < MinMeaningfulLength {
		return true
	}

	if IsFillerPhrase(trimmed) {
		return true
	}

	lower := strings.ToLower(trimmed)

	// Short content dominated by multiple filler fragments is filler too.
	if len(trimmed) < 50 {
		hits := 0
		for _, pattern := range fillerPatterns {
			if strings.Contains(lower, pattern) {
				hits++
			}
		}
		if hits >= 2 {
			return true
		}
	}

	// Questions are almost always the agent's side of the conversation.
	if strings.Contains(trimmed, "?") {
		for _, starter := range questionStarters {
			if strings.HasPrefix(lower, starter) {
				return true
			}
		}
	}

	return false
}

// IsFillerPhrase matches content against the filler patterns without the
// length floor, for callers filtering short phrases such as topic lists.
func IsFillerPhrase(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	for _, pattern := range fillerPatterns {
		if lower == pattern || strings.HasPrefix(lower, pattern+" ") || strings.HasPrefix(lower, pattern+",") {
			return true
		}
	}
	return false
}

// IsMeaningful reports whether content passes the quality gate used by the
// greeting templates: long enough and not filler.
func IsMeaningful(content string) bool {
	return len(strings.TrimSpace(content)) > MinMeaningfulLength && !IsFiller(content)
}
