package greeting

import (
	"fmt"
	"strings"

	"github.com/redialhq/redial/pkg/agents"
	"github.com/redialhq/redial/pkg/profile"
)

// transcriptTailLimit bounds how much transcript goes into the prompt. The
// end of the call carries the open loops worth greeting with.
const transcriptTailLimit = 2000

// PromptInput is everything the synthesis prompt is built from.
type PromptInput struct {
	Agent      *agents.Config
	Identity   *profile.CallerIdentity
	Previous   *profile.RelationshipState
	Transcript string
}

// BuildSystemPrompt describes the synthesis task to the model, in the
// voice role of the agent that held the call.
func BuildSystemPrompt(agent *agents.Config) string {
	role := "a helpful voice assistant"
	if agent != nil {
		if r := firstSentence(agent.SystemPrompt); r != "" {
			role = r
		} else if agent.Name != "" {
			role = fmt.Sprintf("a voice assistant named %s", agent.Name)
		}
	}

	return strings.Join([]string{
		fmt.Sprintf("You are %s.", strings.TrimSuffix(role, ".")),
		"You just finished a phone call and are preparing to greet this caller warmly on their next call.",
		"Respond with a JSON object containing exactly these fields:",
		`  "next_greeting": a natural spoken greeting for the next call, at most 30 words, referencing something specific from this conversation`,
		`  "key_topics": an array of 3 to 5 short topic phrases from this conversation`,
		`  "sentiment": one of "engaged", "satisfied", "neutral", "frustrated", "confused"`,
		`  "conversation_summary": one or two sentences capturing what mattered in this call`,
		"Use the caller's name in the greeting when it is known.",
		"Respond with JSON only, no prose around it.",
	}, "\n")
}

// BuildUserPrompt assembles the caller context and transcript tail.
func BuildUserPrompt(in PromptInput) string {
	var b strings.Builder

	if in.Identity != nil {
		if in.Identity.Name != "" {
			fmt.Fprintf(&b, "Caller name: %s\n", in.Identity.Name)
		}
		fmt.Fprintf(&b, "Total calls with this caller: %d\n", in.Identity.TotalInteractionCount)
	}

	if in.Previous != nil && in.Previous.ConversationSummary != "" {
		fmt.Fprintf(&b, "Summary of the previous call: %s\n", in.Previous.ConversationSummary)
	}

	b.WriteString("\nTranscript of the call that just ended:\n")
	b.WriteString(tail(in.Transcript, transcriptTailLimit))

	return b.String()
}

// firstSentence extracts the leading sentence of an agent's system prompt,
// which conventionally states the agent's persona.
func firstSentence(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}

	if idx := strings.IndexAny(prompt, ".!\n"); idx > 0 {
		prompt = prompt[:idx]
	}

	// "You are Margaret, a warm companion" reads as a role once the
	// second-person prefix is stripped.
	lower := strings.ToLower(prompt)
	for _, prefix := range []string{"you are ", "you're "} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(prompt[len(prefix):])
		}
	}

	return strings.TrimSpace(prompt)
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
