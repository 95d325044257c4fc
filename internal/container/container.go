package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ciasx/adapters/executor"
	"ciasx/adapters/llm"
	"ciasx/adapters/llm/heuristic"
	"ciasx/adapters/memory"
	"ciasx/adapters/sqlstore"
	"ciasx/app"
	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/internal"
	"ciasx/internal/api"
	"ciasx/internal/config"
	"ciasx/internal/metrics"
	"ciasx/internal/planner"
	"ciasx/internal/scientist"
	"ciasx/internal/usage"
	"ciasx/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure; DB is nil for the memory backend
	DB         *sqlx.DB
	Repository ports.WorldModelRepository
	Registry   *prometheus.Registry

	// Loop collaborators
	Executor  ports.Executor
	Generator ports.ProposalGenerator
	Planner   *planner.Planner
	Metrics   *metrics.Collector
	Usage     *usage.Tracker

	// Inputs resolved from Paths
	DesignSpace experiment.DesignSpace
	Seeds       []experiment.Configuration

	SSEHub  *api.SSEHub
	Service *app.ScientistService
}

// New wires every component from cfg. Call Shutdown when done.
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if err := c.initRepository(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	if err := c.initInputs(); err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to load design inputs: %w", err)
	}
	if err := c.initLoop(); err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to initialize loop components: %w", err)
	}

	logger.Info("container initialized (database %s, generator %T)", cfg.Database.Driver, c.Generator)
	return c, nil
}

func (c *Container) initRepository(ctx context.Context) error {
	if c.Config.Database.Driver == "memory" {
		c.Repository = memory.NewRepository()
		return nil
	}
	repo, db, err := sqlstore.Open(ctx, c.Config.Database.Driver, c.Config.Database.URL, c.Logger)
	if err != nil {
		return err
	}
	c.Repository, c.DB = repo, db
	return nil
}

func (c *Container) initInputs() error {
	c.DesignSpace = experiment.DefaultDesignSpace()
	if path := c.Config.Paths.DesignSpaceFile; path != "" {
		ds, err := config.LoadDesignSpace(path)
		if err != nil {
			return err
		}
		c.DesignSpace = ds
	}

	c.Seeds = config.DefaultSeedConfigs()
	if path := c.Config.Paths.SeedConfigsFile; path != "" {
		seeds, err := config.LoadSeedConfigs(path)
		if err != nil {
			return err
		}
		c.Seeds = seeds
	}
	return nil
}

func (c *Container) initLoop() error {
	cfg := c.Config

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.NewCollector(c.Registry)
	c.Usage = usage.NewTracker(c.Registry, c.Logger)

	c.Executor = executor.NewSimulated(executor.Options{
		Seed:        cfg.Loop.Seed,
		FailureRate: cfg.Loop.ExecutorFailureRate,
		Logger:      c.Logger,
	})

	fallback := heuristic.NewGenerator()
	c.Generator = fallback
	if cfg.AI.OpenAIKey != "" {
		adapter, err := llm.NewProposalAdapter(llm.Config{
			Model:               cfg.AI.OpenAIModel,
			APIKey:              cfg.AI.OpenAIKey,
			BaseURL:             cfg.AI.BaseURL,
			Temperature:         cfg.AI.Temperature,
			MaxTokens:           cfg.AI.MaxTokens,
			RequestsPerSecond:   cfg.AI.RequestsPerSecond,
			Timeout:             cfg.AI.Timeout,
			FallbackToHeuristic: cfg.AI.Fallback,
		}, fallback, c.Logger)
		if err != nil {
			return err
		}
		c.Generator = adapter.WithUsageRecorder(c.Usage)
	} else {
		c.Logger.Info("no OPENAI_API_KEY set, using the heuristic proposal generator")
	}
	c.Planner = planner.New(c.Generator, planner.WithLogger(c.Logger))

	c.SSEHub = api.NewSSEHub(c.Logger)
	c.Service = app.NewScientistService(c.Repository, c.Executor, c.Planner, app.ServiceOptions{
		Loop: scientist.Options{
			MaxEmptyRounds:   cfg.Loop.MaxEmptyRounds,
			ExecutionTimeout: cfg.Loop.ExecutionTimeout,
			Parallelism:      cfg.Loop.Parallelism,
			Logger:           c.Logger,
		},
		Observers:   []ports.LoopObserver{c.Metrics},
		RunObserver: func(id core.RunID) ports.LoopObserver { return c.SSEHub.Observer(id) },
		Logger:      c.Logger,
	})
	return nil
}

// DefaultRunRequest builds a request from the configured budget and inputs
func (c *Container) DefaultRunRequest(name, objective string) app.RunRequest {
	return app.RunRequest{
		Name:        name,
		Objective:   objective,
		Budget:      c.Config.Loop.Budget,
		DesignSpace: c.DesignSpace.Clone(),
		Seeds:       append([]experiment.Configuration(nil), c.Seeds...),
	}
}

// Shutdown releases the database connection and stops the SSE hub
func (c *Container) Shutdown() {
	if c.SSEHub != nil {
		c.SSEHub.Close()
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("failed to close database: %v", err)
		}
	}
}
