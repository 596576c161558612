package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/redialhq/redial/pkg/config"
)

func validConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Auth.PostCallSecret = "wsec_test"
	return cfg
}

var _ = Describe("Config", func() {
	Describe("InitViper", func() {
		It("applies defaults when no config file exists", func() {
			v, err := config.InitViper(GinkgoT().TempDir())
			Expect(err).NotTo(HaveOccurred())

			cfg, err := config.Load(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Gateway.Listen).To(Equal(":8090"))
			Expect(cfg.Gateway.SignatureHeader).To(Equal("elevenlabs-signature"))
			Expect(cfg.Memory.Timeout).To(Equal(uint(10)))
			Expect(cfg.Agents.CacheTTLHrs).To(Equal(uint(24)))
			Expect(cfg.Greeting.Temperature).To(Equal(0.7))
			Expect(cfg.Events.Provider).To(Equal("nop"))
		})

		It("prefers environment variables over defaults", func() {
			GinkgoT().Setenv("REDIAL_GATEWAY_LISTEN", ":9999")
			GinkgoT().Setenv("REDIAL_AUTH_POST_CALL_SECRET", "wsec_env")

			v, err := config.InitViper(GinkgoT().TempDir())
			Expect(err).NotTo(HaveOccurred())

			cfg, err := config.Load(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Gateway.Listen).To(Equal(":9999"))
			Expect(cfg.Auth.PostCallSecret).To(Equal("wsec_env"))
		})
	})

	Describe("Validate", func() {
		It("accepts a complete configuration", func() {
			Expect(validConfig().Validate()).To(Succeed())
		})

		It("names every missing key", func() {
			cfg := validConfig()
			cfg.Auth.PostCallSecret = ""
			cfg.Memory.Target = ""

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("auth.post_call_secret"))
			Expect(err.Error()).To(ContainSubstring("memory.target"))
		})

		It("requires a sqlite path for the sqlite driver", func() {
			cfg := validConfig()
			cfg.Storage.ProfileDriver = "sqlite"
			cfg.Storage.SQLitePath = ""

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("storage.sqlite_path"))
		})

		It("requires a postgres url for the postgres driver", func() {
			cfg := validConfig()
			cfg.Storage.ProfileDriver = "postgres"

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("storage.postgres_url"))
		})

		It("rejects unknown profile drivers", func() {
			cfg := validConfig()
			cfg.Storage.ProfileDriver = "dynamo"

			Expect(cfg.Validate()).To(MatchError(ContainSubstring("unknown profile driver")))
		})

		It("requires brokers for the kafka publisher", func() {
			cfg := validConfig()
			cfg.Events.Provider = "kafka"

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("events.brokers"))
		})
	})
})
