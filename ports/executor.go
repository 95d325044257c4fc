package ports

import (
	"context"

	"ciasx/domain/experiment"
)

// Executor runs one experiment campaign (train, calibrate, evaluate) for a
// configuration. Any error means the configuration produced no record.
type Executor interface {
	RunCampaign(ctx context.Context, config experiment.Configuration) (experiment.Metrics, experiment.Artifacts, error)
}

// ExecutorFunc adapts a function to Executor
type ExecutorFunc func(ctx context.Context, config experiment.Configuration) (experiment.Metrics, experiment.Artifacts, error)

func (f ExecutorFunc) RunCampaign(ctx context.Context, config experiment.Configuration) (experiment.Metrics, experiment.Artifacts, error) {
	return f(ctx, config)
}
