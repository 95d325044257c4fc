package planner

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ciasx/domain/experiment"
	wm "ciasx/domain/worldmodel"
	"ciasx/internal"
	"ciasx/internal/errors"
	iwm "ciasx/internal/worldmodel"
	"ciasx/ports"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) ([]ports.RawProposal, error) {
	args := m.Called(ctx, prompt)
	proposals, _ := args.Get(0).([]ports.RawProposal)
	return proposals, args.Error(1)
}

func modelWith(t *testing.T, configs ...experiment.Configuration) *wm.WorldModel {
	t.Helper()
	model := wm.New()
	mgr := iwm.NewManager()
	for i, cfg := range configs {
		mgr.Update(model, cfg, experiment.Metrics{PSNR: 25 + float64(i)}, experiment.Artifacts{})
	}
	return model
}

func TestSummarizeEmptyWorldModel(t *testing.T) {
	summary := SummarizeWorldModel(wm.New())

	assert.Equal(t, 0, summary.TotalExperiments)
	assert.Equal(t, 0.0, summary.BestPSNR)
	assert.Empty(t, summary.ReconFamilies)
	assert.Empty(t, summary.UQSchemes)
	assert.Equal(t, []string{UnderexploredAll}, summary.Underexplored)
	assert.Equal(t, DefaultConstraints(), summary.Constraints)
}

func TestSummarizeWorldModel(t *testing.T) {
	model := modelWith(t,
		experiment.Configuration{ReconFamily: experiment.FamilyCIASCore, UQScheme: experiment.UQNone},
		experiment.Configuration{ReconFamily: experiment.FamilyCIASCoreELP, UQScheme: experiment.UQConformal},
		experiment.Configuration{ReconFamily: experiment.FamilyCIASCore, UQScheme: experiment.UQConformal},
	)

	summary := SummarizeWorldModel(model)

	assert.Equal(t, 3, summary.TotalExperiments)
	assert.Equal(t, 27.0, summary.BestPSNR)
	assert.Equal(t, experiment.FamilyCIASCore, summary.BestFamily)
	assert.InDelta(t, 26.0, summary.MeanPSNR, 1e-9)
	assert.Equal(t, 2, summary.ReconFamilies[experiment.FamilyCIASCore])
	assert.Equal(t, 2, summary.UQSchemes[experiment.UQConformal])
	assert.Nil(t, summary.Underexplored)
}

func TestIdentifyUnderexploredRegions(t *testing.T) {
	empty := SummarizeWorldModel(wm.New())
	assert.Equal(t, []string{
		"recon_family:CIAS-Core", "recon_family:CIAS-Core-ELP", "recon_family:Baseline-CNN",
		"uq_scheme:Conformal", "uq_scheme:Ensemble", "uq_scheme:None",
	}, IdentifyUnderexploredRegions(empty, nil))

	partial := Summary{
		ReconFamilies: map[experiment.ReconFamily]int{experiment.FamilyCIASCore: 1},
		UQSchemes:     map[experiment.UQScheme]int{experiment.UQNone: 1},
	}
	ds := experiment.DesignSpace{experiment.CategoryReconFamilies: {"CIAS-Core", "Baseline-CNN"}}
	assert.Equal(t, []string{"recon_family:Baseline-CNN", "uq_scheme:Conformal", "uq_scheme:Ensemble"},
		IdentifyUnderexploredRegions(partial, ds))

	full := Summary{
		ReconFamilies: map[experiment.ReconFamily]int{"CIAS-Core": 1, "CIAS-Core-ELP": 1, "Baseline-CNN": 1},
		UQSchemes:     map[experiment.UQScheme]int{"Conformal": 1, "Ensemble": 2, "None": 1},
	}
	assert.Equal(t, []string{ExploreVariations}, IdentifyUnderexploredRegions(full, experiment.DefaultDesignSpace()))
}

func TestBuildPlannerPromptIsDeterministic(t *testing.T) {
	constraints := map[string]float64{"min_coverage": 0.8, "max_latency": 100}
	prompt := BuildPlannerPrompt([]string{"recon_family:CIAS-Core", "uq_scheme:None"}, []string{"[(a, b)] trend"}, constraints, 2)

	want := "You are an AI experiment designer for snapshot compressive imaging (SCI).\n\n" +
		"Current state:\n" +
		"- Under-explored regions: recon_family:CIAS-Core, uq_scheme:None\n" +
		"- Pareto frontier: 1 configurations\n" +
		"  - [(a, b)] trend\n" +
		"- Constraints: {max_latency: 100, min_coverage: 0.8}\n" +
		"- Remaining budget: 2 experiments\n\n" +
		"Propose 2 new experiment configurations, prioritizing under-explored regions.\n" +
		"Each configuration should include: recon_family, uq_scheme, and relevant parameters.\n"
	assert.Equal(t, want, prompt)

	for i := 0; i < 5; i++ {
		assert.Equal(t, prompt, BuildPlannerPrompt([]string{"recon_family:CIAS-Core", "uq_scheme:None"}, []string{"[(a, b)] trend"}, constraints, 2))
	}
	assert.Contains(t, BuildPlannerPrompt(nil, nil, nil, 10), "Propose 3 new")
}

func TestProjectToDesignSpace(t *testing.T) {
	ds := experiment.DesignSpace{experiment.CategoryReconFamilies: {"CIAS-Core-ELP", "CIAS-Core"}}

	tests := []struct {
		name       string
		proposal   ports.RawProposal
		wantFamily experiment.ReconFamily
		wantScheme experiment.UQScheme
	}{
		{"valid", ports.RawProposal{"recon_family": "CIAS-Core", "uq_scheme": "Ensemble"}, "CIAS-Core", "Ensemble"},
		{"undeclared family", ports.RawProposal{"recon_family": "Baseline-CNN"}, "CIAS-Core-ELP", "None"},
		{"non-string family", ports.RawProposal{"recon_family": 7, "uq_scheme": 3}, "CIAS-Core-ELP", "None"},
		{"empty proposal", ports.RawProposal{}, "CIAS-Core-ELP", "None"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ProjectToDesignSpace(tt.proposal, ds)
			assert.Equal(t, tt.wantFamily, cfg.ReconFamily)
			assert.Equal(t, tt.wantScheme, cfg.UQScheme)
			assert.NotNil(t, cfg.ForwardConfig)
			assert.NotNil(t, cfg.ReconParams)
			assert.NotNil(t, cfg.UQParams)
			assert.NotNil(t, cfg.TrainConfig)
		})
	}

	cfg := ProjectToDesignSpace(ports.RawProposal{"recon_params": "deep", "train_config": map[string]any{"epochs": 3}}, nil)
	assert.Equal(t, experiment.FamilyCIASCore, cfg.ReconFamily)
	assert.Empty(t, cfg.ReconParams)
	assert.Equal(t, 3, cfg.TrainConfig["epochs"])
}

func threeProposals() []ports.RawProposal {
	return []ports.RawProposal{
		{"recon_family": "CIAS-Core-ELP", "uq_scheme": "Conformal"},
		{"recon_family": "CIAS-Core", "uq_scheme": "Ensemble"},
		{"recon_family": "Baseline-CNN", "uq_scheme": "None"},
	}
}

func TestStepTruncatesToBudget(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Remaining budget: 2 experiments")
	})).Return(threeProposals(), nil)

	p := New(gen, WithLogger(internal.Discard()))
	configs, err := p.Step(context.Background(), SummarizeWorldModel(wm.New()), experiment.DefaultDesignSpace(), 2)

	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, experiment.FamilyCIASCoreELP, configs[0].ReconFamily)
	assert.Equal(t, experiment.FamilyCIASCore, configs[1].ReconFamily)
	gen.AssertNumberOfCalls(t, "Generate", 1)
}

func TestStepBudgetCeiling(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return(threeProposals(), nil)
	p := New(gen, WithLogger(internal.Discard()))

	for budget := 0; budget <= 5; budget++ {
		configs, err := p.Step(context.Background(), Summary{}, experiment.DefaultDesignSpace(), budget)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(configs), budget)
	}
}

func TestStepAppliesValidator(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return(threeProposals(), nil)

	onlyUQ := func(cfg experiment.Configuration, _ map[string]float64) bool { return cfg.UQScheme.HasUQ() }
	p := New(gen, WithValidator(onlyUQ), WithLogger(internal.Discard()))

	configs, err := p.Step(context.Background(), Summary{}, experiment.DefaultDesignSpace(), 3)
	require.NoError(t, err)
	assert.Len(t, configs, 2)
}

func TestStepGeneratorFailure(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, stderrors.New("connection refused"))
	p := New(gen, WithLogger(internal.Discard()))

	configs, err := p.Step(context.Background(), Summary{}, experiment.DefaultDesignSpace(), 3)

	assert.Nil(t, configs)
	assert.Equal(t, errors.CodeProposalFailed, errors.GetCode(err))
}

func TestStepCancelledContext(t *testing.T) {
	gen := &mockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return(nil, stderrors.New("aborted"))
	p := New(gen, WithLogger(internal.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Step(ctx, Summary{}, experiment.DefaultDesignSpace(), 3)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestStepCarriesFrontiersIntoPrompt(t *testing.T) {
	var captured string
	gen := ports.GeneratorFunc(func(_ context.Context, prompt string) ([]ports.RawProposal, error) {
		captured = prompt
		return nil, nil
	})
	p := New(gen, WithLogger(internal.Discard()))

	summary := SummarizeWorldModel(modelWith(t, experiment.Configuration{ReconFamily: experiment.FamilyCIASCore, UQScheme: experiment.UQNone}))
	summary.Frontiers = []string{"[(CIAS-Core, None)] Pareto frontier contains 1 configurations."}
	configs, err := p.Step(context.Background(), summary, experiment.DefaultDesignSpace(), 4)

	require.NoError(t, err)
	assert.Empty(t, configs)
	assert.Contains(t, captured, "Pareto frontier: 1 configurations")
	assert.Contains(t, captured, "recon_family:Baseline-CNN")
	assert.NotContains(t, captured, "recon_family:CIAS-Core,")
}
