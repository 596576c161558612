package memstore

import (
	"regexp"
	"strconv"
	"strings"
)

// OwnerSummary is the structured form of the store's free-text digest.
// The digest format is owned by the store and has drifted before, so parsing
// is best-effort: anything unrecognized leaves the zero value in place.
type OwnerSummary struct {
	MemoryCount   int
	ActivityLevel string
	TopContent    string
	HasMemories   bool
}

// Digest shape, e.g.:
//
//	3 memories, 1 patterns | low | avg_sal=0.40 | top: semantic(1, sal=0.36): "founder of Arbez..."
var (
	memoryCountRe   = regexp.MustCompile(`^(\d+)\s+memories?`)
	activityLevelRe = regexp.MustCompile(`\|\s*(low|medium|high)\s*\|`)
	topContentRe    = regexp.MustCompile(`top:.*?:\s*"([^"]+)"`)
)

// ParseSummaryDigest extracts the memory count, activity level, and quoted
// top content from a digest string. Unparseable digests yield a zero
// OwnerSummary rather than an error.
func ParseSummaryDigest(digest string) OwnerSummary {
	var s OwnerSummary

	digest = strings.TrimSpace(digest)
	if digest == "" {
		return s
	}

	if m := memoryCountRe.FindStringSubmatch(digest); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			s.MemoryCount = n
			s.HasMemories = n > 0
		}
	}

	if m := activityLevelRe.FindStringSubmatch(digest); m != nil {
		s.ActivityLevel = m[1]
	}

	if m := topContentRe.FindStringSubmatch(digest); m != nil {
		content := strings.TrimSpace(m[1])
		// The store prefixes some digests with its own labeling.
		if rest, ok := cutPrefixFold(content, "participant details:"); ok {
			content = strings.TrimSpace(rest)
		}
		s.TopContent = content
	}

	return s
}

// cutPrefixFold is strings.CutPrefix with ASCII case folding.
func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
