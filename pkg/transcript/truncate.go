package transcript

import "strings"

// Boundary positions below these floors would leave too little content to be
// worth displaying.
const (
	minSentenceBoundary = 20
	minPauseBoundary    = 30
)

// Truncate shortens text to at most max characters for display, seeking in
// order the last sentence boundary, the last comma, and finally a word
// boundary with an ellipsis marker. It never cuts mid-word. Text already
// within max is returned unchanged, with one deliberate exception: input
// shorter than MinMeaningfulLength returns "" rather than the input, so
// callers building greeting context never surface a fragment too short to
// speak. Likewise "" when no acceptable boundary exists.
func Truncate(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) < MinMeaningfulLength {
		return ""
	}
	if len(text) <= max {
		return text
	}

	window := text[:max]

	// Sentence boundary, punctuation included.
	boundary := -1
	for _, ending := range []string{". ", "! ", "? "} {
		if pos := strings.LastIndex(window, ending); pos > boundary {
			boundary = pos
		}
	}
	if boundary >= minSentenceBoundary {
		return strings.TrimSpace(window[:boundary+1])
	}

	// Comma or other natural pause.
	if pos := strings.LastIndex(window, ", "); pos >= minPauseBoundary {
		return strings.TrimSpace(window[:pos])
	}

	// Word boundary plus an ellipsis marker.
	if pos := strings.LastIndex(window, " "); pos >= minPauseBoundary {
		return strings.TrimSpace(window[:pos]) + "..."
	}

	return ""
}
