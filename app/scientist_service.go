package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	wm "ciasx/domain/worldmodel"
	"ciasx/internal"
	"ciasx/internal/analysis"
	"ciasx/internal/config"
	"ciasx/internal/errors"
	"ciasx/internal/report"
	"ciasx/internal/scientist"
	"ciasx/internal/worldmodel"
	"ciasx/models"
	"ciasx/ports"
)

// RunRequest describes a design run to start. An empty design space or seed
// list selects the built-in defaults.
type RunRequest struct {
	Name        string                     `json:"name" validate:"required,max=200"`
	Objective   string                     `json:"objective" validate:"max=2000"`
	Budget      int                        `json:"budget" validate:"gte=0,lte=10000"`
	DesignSpace experiment.DesignSpace     `json:"design_space"`
	Seeds       []experiment.Configuration `json:"seeds"`
}

// ServiceOptions wires the loop settings and observers into the service.
type ServiceOptions struct {
	Loop scientist.Options
	// Observers see every run, e.g. the metrics collector.
	Observers []ports.LoopObserver
	// RunObserver, when set, builds an extra observer per run, e.g. an SSE publisher.
	RunObserver func(runID core.RunID) ports.LoopObserver
	Logger      *internal.Logger
}

// ScientistService creates, executes and reports on design runs.
type ScientistService struct {
	repo     ports.WorldModelRepository
	executor ports.Executor
	planner  scientist.Planner
	opts     ServiceOptions
	manager  *worldmodel.Manager
	validate *validator.Validate
	logger   *internal.Logger
}

// NewScientistService creates a scientist service
func NewScientistService(repo ports.WorldModelRepository, executor ports.Executor, planner scientist.Planner, opts ServiceOptions) *ScientistService {
	logger := opts.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	manager := opts.Loop.Manager
	if manager == nil {
		manager = worldmodel.NewManager()
	}
	return &ScientistService{
		repo:     repo,
		executor: executor,
		planner:  planner,
		opts:     opts,
		manager:  manager,
		validate: validator.New(),
		logger:   logger.With("scientist-service"),
	}
}

// CreateRun validates req and stores a new run in the INITIALIZING state.
// The returned seeds are the ones ExecuteRun should use.
func (s *ScientistService) CreateRun(ctx context.Context, req RunRequest) (*models.DesignRun, []experiment.Configuration, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, errors.ValidationError(err.Error())
	}

	designSpace := req.DesignSpace
	if len(designSpace) == 0 {
		designSpace = experiment.DefaultDesignSpace()
	}
	if err := designSpace.Validate(); err != nil {
		return nil, nil, errors.ValidationError(fmt.Sprintf("invalid design space: %v", err))
	}
	seeds := req.Seeds
	if len(seeds) == 0 {
		seeds = config.DefaultSeedConfigs()
	}

	run := models.NewDesignRun(req.Name, req.Objective, designSpace, req.Budget)
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, nil, err
	}
	s.logger.Info("created run %s (%q, budget %d, %d seeds)", run.ID, run.Name, run.BudgetMax, len(seeds))
	return run, seeds, nil
}

// ExecuteRun drives the loop for a created run and writes its terminal
// state. Records and round progress are persisted as the loop goes.
func (s *ScientistService) ExecuteRun(ctx context.Context, run *models.DesignRun, seeds []experiment.Configuration) (*scientist.Result, error) {
	// terminal state is written even when ctx is cancelled
	finalCtx := context.WithoutCancel(ctx)

	run.SetStatus(models.RunStatusRunning)
	if err := s.repo.UpdateRun(ctx, run); err != nil {
		return nil, err
	}

	recorder := newRunRecorder(s.repo, run, s.logger)
	observers := scientist.MultiObserver{recorder}
	observers = append(observers, s.opts.Observers...)
	if s.opts.RunObserver != nil {
		if o := s.opts.RunObserver(run.ID); o != nil {
			observers = append(observers, o)
		}
	}

	loopOpts := s.opts.Loop
	loopOpts.Observer = observers
	loopOpts.Manager = s.manager
	if loopOpts.Logger == nil {
		loopOpts.Logger = s.logger
	}

	loop, err := scientist.New(s.executor, s.planner, experiment.DesignSpace(run.DesignSpace), run.BudgetMax, loopOpts)
	if err != nil {
		return nil, s.failRun(finalCtx, run, err)
	}

	started := time.Now()
	result, err := loop.Run(ctx, seeds)
	if err != nil {
		return nil, s.failRun(finalCtx, run, err)
	}
	if recorder.err != nil {
		return nil, s.failRun(finalCtx, run, errors.Wrap(recorder.err, "failed to persist run progress"))
	}

	run.BudgetUsed = result.BudgetUsed
	run.Rounds = result.Rounds
	run.StopReason = result.StopReason
	run.Trends = models.JSONBStrings(append([]string(nil), result.Trends...))
	run.ParetoFront = idStrings(result.ParetoIDList())
	run.SetStatus(models.RunStatusCompleted)
	if err := s.repo.UpdateRun(finalCtx, run); err != nil {
		return nil, err
	}
	s.logger.Info("run %s completed in %s: %d experiments, pareto size %d (%s)",
		run.ID, time.Since(started).Round(time.Millisecond), result.BudgetUsed, len(result.ParetoIDs), result.StopReason)
	return result, nil
}

// Run creates and executes a run synchronously.
func (s *ScientistService) Run(ctx context.Context, req RunRequest) (*models.DesignRun, *scientist.Result, error) {
	run, seeds, err := s.CreateRun(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.ExecuteRun(ctx, run, seeds)
	return run, result, err
}

func (s *ScientistService) failRun(ctx context.Context, run *models.DesignRun, cause error) error {
	s.logger.Error("run %s failed: %v", run.ID, cause)
	run.Fail(cause)
	if err := s.repo.UpdateRun(ctx, run); err != nil {
		s.logger.Error("run %s: failed to store failure: %v", run.ID, err)
	}
	return cause
}

// GetRun returns a stored run
func (s *ScientistService) GetRun(ctx context.Context, id core.RunID) (*models.DesignRun, error) {
	return s.repo.GetRun(ctx, id)
}

// ListRuns returns the newest runs first
func (s *ScientistService) ListRuns(ctx context.Context, limit int) ([]*models.DesignRun, error) {
	return s.repo.ListRuns(ctx, limit)
}

// Records returns a run's records in insertion order
func (s *ScientistService) Records(ctx context.Context, id core.RunID) ([]experiment.Record, error) {
	return s.repo.ListRecords(ctx, id)
}

// LoadWorldModel rebuilds a run's world model, indices included, from storage.
func (s *ScientistService) LoadWorldModel(ctx context.Context, id core.RunID) (*wm.WorldModel, error) {
	records, err := s.repo.ListRecords(ctx, id)
	if err != nil {
		return nil, err
	}
	model := wm.New()
	if err := s.manager.Restore(model, records); err != nil {
		return nil, err
	}
	return model, nil
}

// Analyze builds the results analysis of a run. Runs still in progress are
// analyzed against their current records.
func (s *ScientistService) Analyze(ctx context.Context, id core.RunID) (*models.DesignRun, report.Analysis, error) {
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, report.Analysis{}, err
	}
	model, err := s.LoadWorldModel(ctx, id)
	if err != nil {
		return nil, report.Analysis{}, err
	}

	paretoIDs := make([]core.ID, 0, len(run.ParetoFront))
	for _, raw := range run.ParetoFront {
		paretoIDs = append(paretoIDs, core.ID(raw))
	}
	trends := []string(run.Trends)
	if run.Status != models.RunStatusCompleted {
		pareto, current := analysis.AnalysisStep(model)
		paretoIDs, trends = pareto.Sorted(), current
	}
	return run, report.Analyze(model.Records(), paretoIDs, trends), nil
}

func idStrings(ids []core.ID) models.JSONBStrings {
	out := make(models.JSONBStrings, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func nowUTC() time.Time { return time.Now().UTC() }
