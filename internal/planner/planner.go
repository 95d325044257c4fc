// Package planner decides which experiments to run next: it summarizes the
// world model, finds unexplored regions, asks a proposal generator for
// configurations and projects them into the design space.
package planner

import (
	"context"

	"ciasx/domain/experiment"
	"ciasx/internal"
	"ciasx/internal/errors"
	"ciasx/ports"
)

// ConfigValidator decides whether a projected configuration may run.
type ConfigValidator func(config experiment.Configuration, constraints map[string]float64) bool

// Planner turns a world-model summary into the next round of configurations.
type Planner struct {
	generator ports.ProposalGenerator
	validate  ConfigValidator
	logger    *internal.Logger
}

// Option configures a Planner
type Option func(*Planner)

// WithValidator replaces the accept-everything constraint check
func WithValidator(v ConfigValidator) Option {
	return func(p *Planner) { p.validate = v }
}

// WithLogger sets the logger
func WithLogger(l *internal.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// New creates a planner around an injected proposal generator
func New(generator ports.ProposalGenerator, opts ...Option) *Planner {
	p := &Planner{
		generator: generator,
		validate:  IsValidConfig,
		logger:    internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("planner")
	return p
}

// Step runs one planning round: gaps, prompt, generation, projection,
// filtering and truncation to budgetRemaining. Proposal order is kept, so the
// earliest proposals win on truncation. Generator failures come back as a
// PROPOSAL_FAILED error; context cancellation comes back unwrapped.
func (p *Planner) Step(ctx context.Context, summary Summary, designSpace experiment.DesignSpace, budgetRemaining int) ([]experiment.Configuration, error) {
	if budgetRemaining <= 0 {
		return nil, nil
	}

	gaps := IdentifyUnderexploredRegions(summary, designSpace)
	prompt := BuildPlannerPrompt(gaps, summary.Frontiers, summary.Constraints, budgetRemaining)
	p.logger.Debug("planner prompt for %d gaps, budget %d:\n%s", len(gaps), budgetRemaining, prompt)

	raw, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.HasCode(err, errors.CodeProposalFailed) {
			err = errors.ProposalFailed("proposal generation failed", err)
		}
		return nil, err
	}

	configs := make([]experiment.Configuration, 0, len(raw))
	for _, proposal := range raw {
		config := ProjectToDesignSpace(proposal, designSpace)
		if !p.validate(config, summary.Constraints) {
			p.logger.Debug("rejected proposal %s/%s by constraints", config.ReconFamily, config.UQScheme)
			continue
		}
		configs = append(configs, config)
	}
	if len(configs) > budgetRemaining {
		configs = configs[:budgetRemaining]
	}

	p.logger.Info("planned %d configurations from %d proposals (gaps: %v)", len(configs), len(raw), gaps)
	return configs, nil
}
