package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/redialhq/redial/pkg/profile"
	"github.com/redialhq/redial/pkg/profile/inmemory"
)

var _ = Describe("Store", func() {
	var (
		store *inmemory.Store
		ctx   context.Context
		now   time.Time
	)

	BeforeEach(func() {
		store = inmemory.NewStore()
		ctx = context.Background()
		now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	})

	Describe("Identity", func() {
		It("returns nil for an unseen caller", func() {
			identity, err := store.Identity(ctx, "+16125551234")
			Expect(err).NotTo(HaveOccurred())
			Expect(identity).To(BeNil())
		})
	})

	Describe("RecordCall", func() {
		It("seeds the identity on first call", func() {
			identity, err := store.RecordCall(ctx, "+16125551234", "Stefan", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(identity.Name).To(Equal("Stefan"))
			Expect(identity.FirstSeen).To(Equal(now))
			Expect(identity.TotalInteractionCount).To(Equal(1))
		})

		It("increments the interaction count on repeat calls", func() {
			_, err := store.RecordCall(ctx, "+16125551234", "Stefan", now)
			Expect(err).NotTo(HaveOccurred())

			identity, err := store.RecordCall(ctx, "+16125551234", "", now.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(identity.TotalInteractionCount).To(Equal(2))
			Expect(identity.FirstSeen).To(Equal(now))
		})

		It("never overwrites an established name", func() {
			_, err := store.RecordCall(ctx, "+16125551234", "Stefan", now)
			Expect(err).NotTo(HaveOccurred())

			identity, err := store.RecordCall(ctx, "+16125551234", "Bob", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(identity.Name).To(Equal("Stefan"))
		})

		It("fills a missing name from a later extraction", func() {
			_, err := store.RecordCall(ctx, "+16125551234", "", now)
			Expect(err).NotTo(HaveOccurred())

			identity, err := store.RecordCall(ctx, "+16125551234", "Stefan", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(identity.Name).To(Equal("Stefan"))
		})

	})

	Describe("State", func() {
		It("returns nil before any call is processed", func() {
			state, err := store.State(ctx, "agent_1", "+16125551234")
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("replaces the state wholesale on PutState", func() {
			first := profile.RelationshipState{
				NextGreeting:      "Welcome back, Stefan!",
				KeyTopics:         []string{"bakery", "billing"},
				Sentiment:         profile.SentimentSatisfied,
				ConversationCount: 1,
			}
			Expect(store.PutState(ctx, "agent_1", "+16125551234", first)).To(Succeed())

			second := profile.RelationshipState{
				NextGreeting:      "Hi Stefan, how did the oven repair go?",
				KeyTopics:         []string{"oven repair"},
				Sentiment:         profile.SentimentNeutral,
				ConversationCount: 2,
			}
			Expect(store.PutState(ctx, "agent_1", "+16125551234", second)).To(Succeed())

			state, err := store.State(ctx, "agent_1", "+16125551234")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.NextGreeting).To(Equal(second.NextGreeting))
			Expect(state.KeyTopics).To(Equal([]string{"oven repair"}))
			Expect(state.ConversationCount).To(Equal(2))
		})

		It("scopes relationship state per agent while identity stays shared", func() {
			_, err := store.RecordCall(ctx, "+16125551234", "Stefan", now)
			Expect(err).NotTo(HaveOccurred())

			Expect(store.PutState(ctx, "agent_1", "+16125551234", profile.RelationshipState{
				NextGreeting: "Hi Stefan!",
			})).To(Succeed())

			state, err := store.State(ctx, "agent_2", "+16125551234")
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())

			identity, err := store.Identity(ctx, "+16125551234")
			Expect(err).NotTo(HaveOccurred())
			Expect(identity.Name).To(Equal("Stefan"))
		})
	})
})

var _ = Describe("MergeName", func() {
	It("keeps the established name", func() {
		Expect(profile.MergeName("Stefan", "Bob")).To(Equal("Stefan"))
	})

	It("adopts the extracted name when none is established", func() {
		Expect(profile.MergeName("", "Stefan")).To(Equal("Stefan"))
		Expect(profile.MergeName("  ", "Stefan")).To(Equal("Stefan"))
	})
})

var _ = Describe("NormalizeSentiment", func() {
	It("clamps unknown values to neutral", func() {
		Expect(profile.NormalizeSentiment("ecstatic")).To(Equal(profile.SentimentNeutral))
		Expect(profile.NormalizeSentiment("")).To(Equal(profile.SentimentNeutral))
		Expect(profile.NormalizeSentiment(" Satisfied ")).To(Equal(profile.SentimentSatisfied))
	})

	It("passes every known sentiment through unchanged", func() {
		for _, s := range []string{
			profile.SentimentEngaged,
			profile.SentimentSatisfied,
			profile.SentimentNeutral,
			profile.SentimentFrustrated,
			profile.SentimentConfused,
		} {
			Expect(profile.NormalizeSentiment(s)).To(Equal(s))
		}
	})
})
