package greeting_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/redialhq/redial/pkg/agents"
	"github.com/redialhq/redial/pkg/greeting"
	"github.com/redialhq/redial/pkg/greeting/provider"
	"github.com/redialhq/redial/pkg/profile"
)

// scriptedProvider returns canned responses in order, erroring past the end.
type scriptedProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, _ provider.Request) (string, error) {
	idx := p.calls
	p.calls++
	if idx < len(p.errs) && p.errs[idx] != nil {
		return "", p.errs[idx]
	}
	if idx < len(p.responses) {
		return p.responses[idx], nil
	}
	return "", errors.New("no scripted response")
}

const goodOutput = `{
	"next_greeting": "Hi Stefan! How did the oven repair turn out?",
	"key_topics": ["bakery", "oven repair", "weekend rush"],
	"sentiment": "satisfied",
	"conversation_summary": "Stefan called about a broken oven ahead of the weekend rush."
}`

var testInput = greeting.PromptInput{
	Agent: &agents.Config{
		Name:         "Margaret",
		SystemPrompt: "You are Margaret, a warm support companion. Keep answers short.",
	},
	Identity: &profile.CallerIdentity{
		Name:                  "Stefan",
		TotalInteractionCount: 3,
	},
	Transcript: "Agent: Hello!\nUser: Hi, my oven broke down again",
}

var _ = Describe("Synthesizer", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	It("produces relationship state from well-formed output", func() {
		p := &scriptedProvider{responses: []string{goodOutput}}
		s := greeting.NewSynthesizer(p, greeting.Options{}, logger)

		state, err := s.Synthesize(context.Background(), testInput, 1700000100)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.NextGreeting).To(Equal("Hi Stefan! How did the oven repair turn out?"))
		Expect(state.KeyTopics).To(Equal([]string{"bakery", "oven repair", "weekend rush"}))
		Expect(state.Sentiment).To(Equal(profile.SentimentSatisfied))
		Expect(state.LastCallTimestamp).To(Equal(int64(1700000100)))
		Expect(state.ConversationCount).To(Equal(1))
	})

	It("tolerates markdown fences around the JSON", func() {
		p := &scriptedProvider{responses: []string{"```json\n" + goodOutput + "\n```"}}
		s := greeting.NewSynthesizer(p, greeting.Options{}, logger)

		state, err := s.Synthesize(context.Background(), testInput, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.NextGreeting).To(ContainSubstring("Stefan"))
	})

	It("retries transient provider failures", func() {
		p := &scriptedProvider{
			errs:      []error{errors.New("rate limited"), nil},
			responses: []string{"", goodOutput},
		}
		s := greeting.NewSynthesizer(p, greeting.Options{}, logger)

		state, err := s.Synthesize(context.Background(), testInput, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).NotTo(BeNil())
		Expect(p.calls).To(Equal(2))
	})

	It("gives up after exhausting attempts", func() {
		boom := errors.New("provider down")
		p := &scriptedProvider{errs: []error{boom, boom, boom}}
		s := greeting.NewSynthesizer(p, greeting.Options{}, logger)

		state, err := s.Synthesize(context.Background(), testInput, 0)
		Expect(err).To(MatchError(ContainSubstring("after 3 attempts")))
		Expect(state).To(BeNil())
		Expect(p.calls).To(Equal(3))
	})

	It("rejects output without a greeting", func() {
		p := &scriptedProvider{responses: []string{`{"key_topics": ["a"]}`, `{"key_topics": ["b"]}`, `{"key_topics": ["c"]}`}}
		s := greeting.NewSynthesizer(p, greeting.Options{}, logger)

		_, err := s.Synthesize(context.Background(), testInput, 0)
		Expect(err).To(HaveOccurred())
	})

	It("clamps sentiment and topic lists", func() {
		output := `{
			"next_greeting": "Welcome back!",
			"key_topics": ["bakery", "you know", "", "ovens", "flour", "staffing", "delivery", "rent"],
			"sentiment": "elated",
			"conversation_summary": "..."
		}`
		p := &scriptedProvider{responses: []string{output}}
		s := greeting.NewSynthesizer(p, greeting.Options{}, logger)

		state, err := s.Synthesize(context.Background(), testInput, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Sentiment).To(Equal(profile.SentimentNeutral))
		Expect(state.KeyTopics).To(HaveLen(5))
		Expect(state.KeyTopics).NotTo(ContainElement("you know"))
	})

	It("increments the conversation count from the previous state", func() {
		in := testInput
		in.Previous = &profile.RelationshipState{ConversationCount: 4}

		p := &scriptedProvider{responses: []string{goodOutput}}
		s := greeting.NewSynthesizer(p, greeting.Options{}, logger)

		state, err := s.Synthesize(context.Background(), in, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.ConversationCount).To(Equal(5))
	})
})

var _ = Describe("Prompts", func() {
	It("states the agent's persona from its system prompt", func() {
		system := greeting.BuildSystemPrompt(testInput.Agent)
		Expect(system).To(ContainSubstring("You are Margaret, a warm support companion."))
		Expect(system).To(ContainSubstring(`"next_greeting"`))
		Expect(system).To(ContainSubstring("30 words"))
	})

	It("asks for the full sentiment vocabulary", func() {
		system := greeting.BuildSystemPrompt(testInput.Agent)
		for _, s := range []string{"engaged", "satisfied", "neutral", "frustrated", "confused"} {
			Expect(system).To(ContainSubstring(`"` + s + `"`))
		}
	})

	It("falls back to a generic persona without an agent", func() {
		system := greeting.BuildSystemPrompt(nil)
		Expect(system).To(ContainSubstring("helpful voice assistant"))
	})

	It("includes caller context and bounds the transcript", func() {
		in := testInput
		in.Transcript = strings.Repeat("User: lots of words here\n", 200)

		user := greeting.BuildUserPrompt(in)
		Expect(user).To(ContainSubstring("Caller name: Stefan"))
		Expect(user).To(ContainSubstring("Total calls with this caller: 3"))
		Expect(len(user)).To(BeNumerically("<", 2200))
	})
})

var _ = Describe("Fallback templates", func() {
	const context = "planning the bakery's weekend delivery schedule"

	DescribeTable("classification",
		func(name, ctx string, kind greeting.TemplateKind) {
			Expect(greeting.ClassifyTemplate(name, ctx)).To(Equal(kind))
		},
		Entry("name and context", "Stefan", context, greeting.KindPersonal),
		Entry("name only", "Stefan", "", greeting.KindNamed),
		Entry("context only", "", context, greeting.KindContextual),
		Entry("neither", "", "", greeting.KindGeneric),
		Entry("filler context counts as absent", "Stefan", "okay", greeting.KindNamed),
	)

	It("renders the personal template", func() {
		out := greeting.RenderFallback(greeting.KindPersonal, "Stefan", context)
		Expect(out).To(Equal("Hi Stefan! Last time we talked about planning the bakery's weekend delivery schedule. How have you been?"))
	})

	It("renders nothing for the generic kind", func() {
		Expect(greeting.RenderFallback(greeting.KindGeneric, "", "")).To(BeEmpty())
	})
})
