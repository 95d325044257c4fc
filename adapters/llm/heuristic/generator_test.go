package heuristic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciasx/domain/experiment"
	"ciasx/internal/planner"
)

func TestGenerateFillsGaps(t *testing.T) {
	prompt := planner.BuildPlannerPrompt(
		[]string{"recon_family:Baseline-CNN", "uq_scheme:Ensemble", "uq_scheme:None"},
		nil, planner.DefaultConstraints(), 10)

	proposals, err := NewGenerator().Generate(context.Background(), prompt)
	require.NoError(t, err)

	require.Len(t, proposals, 3)
	assert.Equal(t, "Baseline-CNN", proposals[0]["recon_family"])
	assert.Equal(t, "Ensemble", proposals[0]["uq_scheme"])
	assert.Equal(t, "None", proposals[1]["uq_scheme"])
	assert.Equal(t, map[string]any{"n_models": 5}, proposals[0]["uq_params"])
}

func TestGenerateExploreVariations(t *testing.T) {
	prompt := planner.BuildPlannerPrompt([]string{planner.ExploreVariations}, nil, nil, 2)

	proposals, err := NewGenerator().Generate(context.Background(), prompt)
	require.NoError(t, err)

	require.Len(t, proposals, 2)
	assert.Equal(t, ReferenceProposals()[:2], proposals)
}

func TestGeneratedProposalsProjectCleanly(t *testing.T) {
	prompt := planner.BuildPlannerPrompt(
		[]string{"recon_family:CIAS-Core", "recon_family:CIAS-Core-ELP", "recon_family:Baseline-CNN"},
		nil, nil, 3)
	proposals, err := NewGenerator().Generate(context.Background(), prompt)
	require.NoError(t, err)

	ds := experiment.DefaultDesignSpace()
	for i, p := range proposals {
		cfg := planner.ProjectToDesignSpace(p, ds)
		assert.Equal(t, experiment.KnownReconFamilies[i], cfg.ReconFamily)
		assert.Equal(t, experiment.UQConformal, cfg.UQScheme)
		assert.NotEmpty(t, cfg.TrainConfig)
	}
}

func TestGenerateWithoutPromptStructure(t *testing.T) {
	proposals, err := NewGenerator().Generate(context.Background(), "free-form request")
	require.NoError(t, err)
	assert.Len(t, proposals, planner.MaxProposalsPerRound)
}
