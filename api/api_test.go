package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/redialhq/redial/pkg/auth"
	"github.com/redialhq/redial/pkg/logger"
	"github.com/redialhq/redial/pkg/memstore"
	"github.com/redialhq/redial/pkg/profile"
	"github.com/redialhq/redial/pkg/profile/inmemory"
	"github.com/redialhq/redial/pkg/worker"
)

const (
	testCaller    = "+14155551234"
	testAgent     = "agent_123"
	testSecret    = "whsec_test"
	testSigHeader = "elevenlabs-signature"
)

type fakeMemstore struct {
	matches []memstore.Match
	summary *memstore.OwnerSummary
	err     error

	queryCalls   int
	summaryCalls int
}

func (f *fakeMemstore) Query(_ context.Context, _, _ string, _ int) ([]memstore.Match, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeMemstore) Add(_ context.Context, _ memstore.Record) error { return f.err }

func (f *fakeMemstore) Summary(_ context.Context, _ string) (*memstore.OwnerSummary, error) {
	f.summaryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

type fakeEnqueuer struct {
	jobs []worker.Job
	full bool
}

func (f *fakeEnqueuer) Enqueue(job worker.Job) bool {
	if f.full {
		return false
	}
	f.jobs = append(f.jobs, job)
	return true
}

// brokenProfiles fails every operation, standing in for a dead database.
type brokenProfiles struct{}

func (brokenProfiles) Identity(context.Context, string) (*profile.CallerIdentity, error) {
	return nil, errors.New("connection refused")
}

func (brokenProfiles) RecordCall(context.Context, string, string, time.Time) (*profile.CallerIdentity, error) {
	return nil, errors.New("connection refused")
}

func (brokenProfiles) State(context.Context, string, string) (*profile.RelationshipState, error) {
	return nil, errors.New("connection refused")
}

func (brokenProfiles) PutState(context.Context, string, string, profile.RelationshipState) error {
	return errors.New("connection refused")
}

func (brokenProfiles) Close() error { return nil }

func jsonRequest(method, path string, body any) *http.Request {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())
	req, err := http.NewRequest(method, path, bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(resp *http.Response, out any) []byte {
	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	if out != nil {
		Expect(json.Unmarshal(raw, out)).To(Succeed())
	}
	return raw
}

var _ = Describe("Gateway", func() {
	var (
		server   *Server
		profiles profile.Store
		memories *fakeMemstore
		pool     *fakeEnqueuer
		ctx      context.Context
	)

	BeforeEach(func() {
		profiles = inmemory.NewStore()
		memories = &fakeMemstore{}
		pool = &fakeEnqueuer{}
		ctx = context.Background()

		server = NewServer(
			Config{
				ListenAddr:      ":0",
				SignatureHeader: testSigHeader,
				PostCallSecret:  testSecret,
			},
			profiles,
			memories,
			pool,
			logger.Nop(),
		)
	})

	Describe("GET /health", func() {
		It("reports the service as healthy", func() {
			req, err := http.NewRequest(http.MethodGet, "/health", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var body map[string]string
			decodeBody(resp, &body)
			Expect(body["status"]).To(Equal("healthy"))
			Expect(body["service"]).To(Equal("redial"))
		})
	})

	Describe("POST /webhook/client-data", func() {
		initiate := func(callerID string) (*http.Response, []byte) {
			req := jsonRequest(http.MethodPost, "/webhook/client-data", InitiateRequest{
				CallerID: callerID,
				AgentID:  testAgent,
			})
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			raw := decodeBody(resp, nil)
			return resp, raw
		}

		Context("for an unseen caller", func() {
			It("returns empty dynamic variables and no config override", func() {
				resp, raw := initiate(testCaller)
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

				var body InitiateResponse
				Expect(json.Unmarshal(raw, &body)).To(Succeed())
				Expect(body.DynamicVariables).To(BeEmpty())
				Expect(body.DynamicVariables).NotTo(BeNil())

				// omitted entirely, not serialized as null or empty
				Expect(string(raw)).NotTo(ContainSubstring("conversation_config_override"))
			})
		})

		Context("for a caller with only a stored name", func() {
			BeforeEach(func() {
				_, err := profiles.RecordCall(ctx, testCaller, "Stefan", time.Now())
				Expect(err).NotTo(HaveOccurred())
			})

			It("greets them by name with the name-only template", func() {
				resp, raw := initiate(testCaller)
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

				var body InitiateResponse
				Expect(json.Unmarshal(raw, &body)).To(Succeed())
				Expect(body.ConversationConfigOverride).NotTo(BeNil())
				Expect(body.ConversationConfigOverride.Agent.FirstMessage).To(
					Equal("Hi Stefan! It's good to hear from you again. How have you been?"))
				Expect(body.DynamicVariables["user_name"]).To(Equal("Stefan"))
			})
		})

		Context("for a caller with a synthesized greeting", func() {
			BeforeEach(func() {
				_, err := profiles.RecordCall(ctx, testCaller, "Stefan", time.Now())
				Expect(err).NotTo(HaveOccurred())

				err = profiles.PutState(ctx, testAgent, testCaller, profile.RelationshipState{
					NextGreeting:        "Hey Stefan! Did the sourdough starter survive the week?",
					KeyTopics:           []string{"sourdough", "baking"},
					Sentiment:           profile.SentimentSatisfied,
					ConversationSummary: "Caller talked about learning to bake sourdough.",
					ConversationCount:   2,
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("serves the synthesized greeting as the first message", func() {
				resp, raw := initiate(testCaller)
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

				var body InitiateResponse
				Expect(json.Unmarshal(raw, &body)).To(Succeed())
				Expect(body.ConversationConfigOverride).NotTo(BeNil())
				Expect(body.ConversationConfigOverride.Agent.FirstMessage).To(
					ContainSubstring("sourdough starter"))
				Expect(body.DynamicVariables["user_name"]).To(Equal("Stefan"))
				Expect(body.DynamicVariables["user_sentiment"]).To(Equal(profile.SentimentSatisfied))
				Expect(body.DynamicVariables["key_topics"]).To(Equal("sourdough, baking"))
				Expect(body.DynamicVariables["last_call_summary"]).NotTo(BeEmpty())
			})

			It("skips the memory summary round trip", func() {
				initiate(testCaller)
				Expect(memories.summaryCalls).To(BeZero())
			})

			It("does not leak the greeting to a different agent", func() {
				req := jsonRequest(http.MethodPost, "/webhook/client-data", InitiateRequest{
					CallerID: testCaller,
					AgentID:  "agent_other",
				})
				resp, err := server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())

				var body InitiateResponse
				decodeBody(resp, &body)
				Expect(body.ConversationConfigOverride).NotTo(BeNil())
				// falls back to the name-only template for the other agent
				Expect(body.ConversationConfigOverride.Agent.FirstMessage).To(
					Equal("Hi Stefan! It's good to hear from you again. How have you been?"))
			})
		})

		Context("for a caller known only to the memory layer", func() {
			BeforeEach(func() {
				memories.summary = &memstore.OwnerSummary{
					TopContent: "planning a trip to Lisbon in the spring",
				}
			})

			It("uses the context-only template", func() {
				resp, raw := initiate(testCaller)
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

				var body InitiateResponse
				Expect(json.Unmarshal(raw, &body)).To(Succeed())
				Expect(body.ConversationConfigOverride).NotTo(BeNil())
				Expect(body.ConversationConfigOverride.Agent.FirstMessage).To(
					Equal("Welcome back! Last time we talked about planning a trip to Lisbon in the spring. How have you been?"))
			})
		})

		Context("when the profile store is down", func() {
			BeforeEach(func() {
				server = NewServer(
					Config{ListenAddr: ":0", SignatureHeader: testSigHeader, PostCallSecret: testSecret},
					brokenProfiles{},
					memories,
					pool,
					logger.Nop(),
				)
			})

			It("degrades to an empty response instead of failing the call", func() {
				resp, raw := initiate(testCaller)
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

				var body InitiateResponse
				Expect(json.Unmarshal(raw, &body)).To(Succeed())
				Expect(body.DynamicVariables).To(BeEmpty())
			})
		})

		Context("request validation", func() {
			It("rejects a malformed phone number", func() {
				resp, _ := initiate("not-a-number")
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			})

			It("rejects a missing agent id", func() {
				req := jsonRequest(http.MethodPost, "/webhook/client-data", InitiateRequest{
					CallerID: testCaller,
				})
				resp, err := server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			})
		})

		Context("when an api key is configured", func() {
			BeforeEach(func() {
				server = NewServer(
					Config{
						ListenAddr:      ":0",
						SignatureHeader: testSigHeader,
						PostCallSecret:  testSecret,
						ClientDataKey:   "wsec_key",
					},
					profiles,
					memories,
					pool,
					logger.Nop(),
				)
			})

			It("rejects requests without the key", func() {
				req := jsonRequest(http.MethodPost, "/webhook/client-data", InitiateRequest{
					CallerID: testCaller,
					AgentID:  testAgent,
				})
				resp, err := server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
			})

			It("accepts requests presenting the key", func() {
				req := jsonRequest(http.MethodPost, "/webhook/client-data", InitiateRequest{
					CallerID: testCaller,
					AgentID:  testAgent,
				})
				req.Header.Set("X-Api-Key", "wsec_key")
				resp, err := server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			})
		})
	})

	Describe("POST /webhook/search-data", func() {
		search := func(body any) (*http.Response, SearchResponse) {
			req := jsonRequest(http.MethodPost, "/webhook/search-data", body)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			var out SearchResponse
			if resp.StatusCode == fiber.StatusOK {
				decodeBody(resp, &out)
			}
			return resp, out
		}

		It("returns memories and an assembled profile", func() {
			memories.matches = []memstore.Match{
				{
					Content:  "User's first name is Stefan",
					Sector:   "semantic",
					Salience: 0.9,
					Metadata: map[string]any{"field": "first_name", "value": "Stefan"},
				},
				{Content: "I just moved here from Berlin", Sector: "episodic", Salience: 0.71},
				{Content: "mmm", Salience: 0.1},
			}

			resp, out := search(SearchRequest{Query: "who is this", UserID: testCaller})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			Expect(out.Memories).To(HaveLen(3))
			Expect(out.Memories[2].Sector).To(Equal("semantic"), "missing sector defaults")

			Expect(out.Profile).NotTo(BeNil())
			Expect(out.Profile.Name).To(Equal("Stefan"))
			Expect(out.Profile.PhoneNumber).To(Equal(testCaller))
			Expect(out.Profile.Summary).To(ContainSubstring("Stefan"))
			Expect(out.Profile.Summary).To(ContainSubstring("Berlin"))
		})

		It("omits the profile when nothing identifying matched", func() {
			memories.matches = []memstore.Match{
				{Content: "likes sourdough", Sector: "semantic", Salience: 0.5},
			}

			resp, out := search(SearchRequest{Query: "bread", UserID: testCaller})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(out.Profile).To(BeNil())
			Expect(out.Memories).To(HaveLen(1))
		})

		It("degrades to an empty result set when the store fails", func() {
			memories.err = errors.New("store offline")

			resp, out := search(SearchRequest{Query: "bread", UserID: testCaller})
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(out.Memories).To(BeEmpty())
			Expect(out.Memories).NotTo(BeNil())
		})

		It("rejects a missing query", func() {
			resp, _ := search(SearchRequest{UserID: testCaller})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects a missing user id", func() {
			resp, _ := search(SearchRequest{Query: "bread"})
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("POST /webhook/post-call", func() {
		completionBody := func() []byte {
			return []byte(fmt.Sprintf(`{
				"type": "post_call_transcription",
				"event_timestamp": %d,
				"data": {
					"agent_id": %q,
					"conversation_id": "conv_42",
					"status": "done",
					"transcript": [
						{"role": "user", "message": "Hi, my name is Stefan."}
					],
					"conversation_initiation_client_data": {
						"dynamic_variables": {"system__caller_id": %q}
					}
				}
			}`, time.Now().Unix(), testAgent, testCaller))
		}

		sign := func(body []byte, at time.Time) string {
			ts := at.Unix()
			return fmt.Sprintf("t=%d,v0=%s", ts, auth.ComputeSignature(testSecret, ts, body))
		}

		post := func(body []byte, header string) *http.Response {
			req, err := http.NewRequest(http.MethodPost, "/webhook/post-call", bytes.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			if header != "" {
				req.Header.Set(testSigHeader, header)
			}
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("acknowledges a signed completion and enqueues it", func() {
			body := completionBody()
			resp := post(body, sign(body, time.Now()))
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var ack AckResponse
			decodeBody(resp, &ack)
			Expect(ack.Status).To(Equal("received"))
			Expect(ack.Type).To(Equal("post_call_transcription"))
			Expect(ack.ConversationID).To(Equal("conv_42"))

			Expect(pool.jobs).To(HaveLen(1))
			Expect(pool.jobs[0].Event.Data.ConversationID).To(Equal("conv_42"))
		})

		It("rejects a tampered body", func() {
			body := completionBody()
			header := sign(body, time.Now())
			tampered := bytes.Replace(body, []byte("conv_42"), []byte("conv_43"), 1)

			resp := post(tampered, header)
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
			Expect(pool.jobs).To(BeEmpty())
		})

		It("rejects a missing signature header", func() {
			resp := post(completionBody(), "")
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
		})

		It("rejects a stale timestamp", func() {
			body := completionBody()
			resp := post(body, sign(body, time.Now().Add(-auth.TimestampTolerance-time.Minute)))
			Expect(resp.StatusCode).To(Equal(fiber.StatusUnauthorized))
		})

		It("rejects a signed but malformed payload", func() {
			body := []byte(`{"event_timestamp": 123}`)
			resp := post(body, sign(body, time.Now()))
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("returns 503 when the processing queue is full", func() {
			pool.full = true
			body := completionBody()
			resp := post(body, sign(body, time.Now()))
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})
})
