package api

import (
	"strings"

	"github.com/redialhq/redial/pkg/greeting"
	"github.com/redialhq/redial/pkg/memstore"
	"github.com/redialhq/redial/pkg/profile"
	"github.com/redialhq/redial/pkg/transcript"
)

// greetingDisplayLimit bounds fallback greeting context so the spoken
// opener stays short.
const greetingDisplayLimit = 100

// buildInitiateResponse assembles the initiation payload from whatever
// tiers exist. Every input may be nil; an unseen caller yields empty
// dynamic variables and no override.
func buildInitiateResponse(identity *profile.CallerIdentity, state *profile.RelationshipState, summary *memstore.OwnerSummary) InitiateResponse {
	response := InitiateResponse{
		DynamicVariables: map[string]string{},
	}

	name := ""
	if identity != nil {
		name = identity.Name
	}

	// A synthesized greeting wins outright.
	if state != nil && state.NextGreeting != "" {
		response.ConversationConfigOverride = &ConfigOverride{
			Agent: AgentOverride{FirstMessage: state.NextGreeting},
		}

		dv := response.DynamicVariables
		if name != "" {
			dv["user_name"] = name
		}
		if state.ConversationSummary != "" {
			dv["last_call_summary"] = state.ConversationSummary
		}
		if state.Sentiment != "" {
			dv["user_sentiment"] = state.Sentiment
		}
		if len(state.KeyTopics) > 0 {
			dv["key_topics"] = strings.Join(state.KeyTopics, ", ")
		}

		return response
	}

	// No synthesized greeting: fall back to a deterministic template over
	// what the memory layer remembers.
	content := ""
	if summary != nil && summary.TopContent != "" {
		content = transcript.Truncate(summary.TopContent, greetingDisplayLimit)
	}

	kind := greeting.ClassifyTemplate(name, content)
	if fallback := greeting.RenderFallback(kind, name, content); fallback != "" {
		response.ConversationConfigOverride = &ConfigOverride{
			Agent: AgentOverride{FirstMessage: fallback},
		}
	}

	if name != "" {
		response.DynamicVariables["user_name"] = name
	}

	return response
}

// buildSearchResponse converts memory matches into the tool payload,
// assembling a lightweight profile from what the matches reveal.
func buildSearchResponse(callerID string, matches []memstore.Match) SearchResponse {
	memories := make([]MemoryItem, 0, len(matches))

	name := ""
	var summaryParts []string

	for _, match := range matches {
		sector := match.Sector
		if sector == "" {
			sector = "semantic"
		}

		memories = append(memories, MemoryItem{
			Content:  match.Content,
			Sector:   sector,
			Salience: match.Salience,
		})

		if field, ok := match.Metadata["field"].(string); ok && field == "first_name" {
			if value, ok := match.Metadata["value"].(string); ok {
				name = value
			}
		}

		if match.Content != "" && match.Salience > memstore.MediumSalience {
			summaryParts = append(summaryParts, match.Content)
		}
	}

	var prof *ProfileData
	if name != "" || len(summaryParts) > 0 {
		if len(summaryParts) > 3 {
			summaryParts = summaryParts[:3]
		}
		prof = &ProfileData{
			Name:        name,
			Summary:     strings.Join(summaryParts, " "),
			PhoneNumber: callerID,
		}
	}

	return SearchResponse{
		Profile:  prof,
		Memories: memories,
	}
}
