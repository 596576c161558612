// Package servecmder provides the serve command running the full redial service.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/redialhq/redial/api"
	redialmcp "github.com/redialhq/redial/api/mcp"
	"github.com/redialhq/redial/pkg/agents"
	"github.com/redialhq/redial/pkg/artifacts"
	"github.com/redialhq/redial/pkg/config"
	"github.com/redialhq/redial/pkg/eventstream"
	"github.com/redialhq/redial/pkg/eventstream/kafka"
	"github.com/redialhq/redial/pkg/eventstream/nop"
	"github.com/redialhq/redial/pkg/greeting"
	"github.com/redialhq/redial/pkg/greeting/provider"
	anthropicprovider "github.com/redialhq/redial/pkg/greeting/provider/anthropic"
	openaiprovider "github.com/redialhq/redial/pkg/greeting/provider/openai"
	"github.com/redialhq/redial/pkg/logger"
	"github.com/redialhq/redial/pkg/memstore"
	"github.com/redialhq/redial/pkg/profile"
	"github.com/redialhq/redial/pkg/profile/inmemory"
	"github.com/redialhq/redial/pkg/profile/postgres"
	"github.com/redialhq/redial/pkg/profile/sqlite"
	"github.com/redialhq/redial/pkg/worker"
)

type ServeCommander struct {
	configDir string
	debug     bool
	logger    *zap.Logger
}

const serveLongDesc string = `Run the redial service.

Starts the webhook gateway (conversation initiation, mid-call memory
search, post-call ingestion), the background processing workers, and the
MCP server, all on one process.`

const serveShortDesc string = "Run the redial service"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.configDir, "config-dir", "c", "", "Directory containing config.toml (default: working directory)")

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	profiles, err := c.newProfileStore(cfg)
	if err != nil {
		return err
	}
	defer profiles.Close()

	memories := memstore.NewClient(memstore.ClientConfig{
		Target:  cfg.Memory.Target,
		APIKey:  cfg.Memory.APIKey,
		Timeout: cfg.MemoryTimeout(),
	})

	artifactStore, err := artifacts.NewStore(cfg.Storage.PayloadRoot)
	if err != nil {
		return fmt.Errorf("creating artifact store: %w", err)
	}

	agentCache, err := c.newAgentCache(cfg)
	if err != nil {
		return err
	}

	synthesizer := c.newSynthesizer(cfg)

	publisher, err := c.newPublisher(cfg)
	if err != nil {
		return err
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Artifacts:   artifactStore,
		Profiles:    profiles,
		Memories:    memories,
		Agents:      agentCache,
		Synthesizer: synthesizer,
		Publisher:   publisher,
		NumWorkers:  cfg.Worker.NumWorkers,
		QueueSize:   cfg.Worker.QueueSize,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}

	server := api.NewServer(
		api.Config{
			ListenAddr:      cfg.Gateway.Listen,
			SignatureHeader: cfg.Gateway.SignatureHeader,
			PostCallSecret:  cfg.Auth.PostCallSecret,
			ClientDataKey:   cfg.Auth.ClientDataKey,
		},
		profiles,
		memories,
		pool,
		c.logger,
	)

	mcpServer, err := redialmcp.NewServer(redialmcp.Config{
		Memories: memories,
		Profiles: profiles,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}
	server.MountMCP(mcpServer.Handler())

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("gateway error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		pool.Close()
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	// Stop accepting webhooks, then drain the in-flight jobs.
	if err := server.Shutdown(); err != nil {
		c.logger.Warn("gateway shutdown failed", zap.Error(err))
	}
	pool.Close()

	return nil
}

func (c *ServeCommander) newProfileStore(cfg *config.Config) (profile.Store, error) {
	switch cfg.Storage.ProfileDriver {
	case "sqlite":
		store, err := sqlite.NewStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite profile store: %w", err)
		}
		c.logger.Info("using sqlite profile storage", zap.String("path", cfg.Storage.SQLitePath))
		return store, nil
	case "postgres":
		store, err := postgres.NewStore(context.Background(), cfg.Storage.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("creating postgres profile store: %w", err)
		}
		c.logger.Info("using postgres profile storage")
		return store, nil
	default:
		c.logger.Info("using in-memory profile storage")
		return inmemory.NewStore(), nil
	}
}

func (c *ServeCommander) newAgentCache(cfg *config.Config) (*agents.Cache, error) {
	if cfg.Agents.Target == "" || cfg.Agents.APIKey == "" {
		c.logger.Info("agent platform not configured, synthesis uses a generic persona")
		return nil, nil
	}

	client := agents.NewClient(
		cfg.Agents.Target,
		cfg.Agents.APIKey,
		time.Duration(cfg.Agents.FetchTimeout)*time.Second,
	)
	cache, err := agents.NewCache(client, cfg.AgentCacheTTL(), c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating agent cache: %w", err)
	}
	return cache, nil
}

func (c *ServeCommander) newSynthesizer(cfg *config.Config) *greeting.Synthesizer {
	if cfg.Greeting.APIKey == "" {
		c.logger.Info("greeting synthesis not configured, callers get template greetings")
		return nil
	}

	var p provider.Provider
	switch cfg.Greeting.Provider {
	case "anthropic":
		p = anthropicprovider.NewProvider(anthropicprovider.Config{
			APIKey:  cfg.Greeting.APIKey,
			Timeout: cfg.GreetingTimeout(),
		})
	default:
		p = openaiprovider.NewProvider(openaiprovider.Config{
			APIKey:  cfg.Greeting.APIKey,
			Timeout: cfg.GreetingTimeout(),
		})
	}

	c.logger.Info("greeting synthesis enabled", zap.String("provider", p.Name()))

	return greeting.NewSynthesizer(p, greeting.Options{
		Model:       cfg.Greeting.Model,
		MaxTokens:   int(cfg.Greeting.MaxTokens),
		Temperature: cfg.Greeting.Temperature,
	}, c.logger)
}

func (c *ServeCommander) newPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case "kafka":
		c.logger.Info("publishing call events to kafka",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
		return kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic), nil
	default:
		return nop.NewPublisher(), nil
	}
}
