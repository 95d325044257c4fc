package scientist

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ciasx/domain/experiment"
	"ciasx/internal/errors"
)

// outcome is the result of one executor call, success or not.
type outcome struct {
	config    experiment.Configuration
	metrics   experiment.Metrics
	artifacts experiment.Artifacts
	err       error
	duration  time.Duration
}

// executeOne runs a single campaign under the optional per-call timeout.
// Timeouts and executor panics are reported as execution failures.
func (l *Loop) executeOne(ctx context.Context, config experiment.Configuration) outcome {
	start := time.Now()
	out := outcome{config: config}

	callCtx := ctx
	if l.opts.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, l.opts.ExecutionTimeout)
		defer cancel()
	}

	type result struct {
		metrics   experiment.Metrics
		artifacts experiment.Artifacts
		err       error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("executor panic: %v", r)}
			}
		}()
		m, a, err := l.executor.RunCampaign(callCtx, config)
		done <- result{metrics: m, artifacts: a, err: err}
	}()

	select {
	case r := <-done:
		out.metrics, out.artifacts, out.err = r.metrics, r.artifacts, r.err
	case <-callCtx.Done():
		out.err = callCtx.Err()
	}
	if out.err != nil {
		out.err = errors.ExecutionFailed(string(config.ReconFamily), out.err)
	}
	out.duration = time.Since(start)
	return out
}

// executeBatch runs configs and returns outcomes in input order. With
// Parallelism > 1 the calls overlap; a failing call never cancels its siblings.
func (l *Loop) executeBatch(ctx context.Context, configs []experiment.Configuration) []outcome {
	outcomes := make([]outcome, len(configs))
	g := new(errgroup.Group)
	g.SetLimit(l.opts.Parallelism)
	for i, config := range configs {
		i, config := i, config
		g.Go(func() error {
			outcomes[i] = l.executeOne(ctx, config)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
