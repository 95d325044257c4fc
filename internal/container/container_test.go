package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciasx/adapters/llm"
	"ciasx/adapters/llm/heuristic"
	"ciasx/adapters/memory"
	"ciasx/adapters/sqlstore"
	"ciasx/domain/experiment"
	"ciasx/internal"
	"ciasx/internal/config"
	"ciasx/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("BUDGET", "4")
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestMemoryContainerRunsEndToEnd(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, testConfig(t), internal.Discard())
	require.NoError(t, err)
	defer c.Shutdown()

	assert.IsType(t, &memory.Repository{}, c.Repository)
	assert.IsType(t, &heuristic.Generator{}, c.Generator)
	assert.Nil(t, c.DB)

	run, result, err := c.Service.Run(ctx, c.DefaultRunRequest("container", ""))
	require.NoError(t, err)
	assert.Equal(t, 4, result.BudgetUsed)
	assert.Equal(t, models.RunStatusCompleted, run.Status)

	families, err := c.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "ciasx_experiments_total")
}

func TestSQLiteContainerAndInputFiles(t *testing.T) {
	dir := t.TempDir()
	spacePath := filepath.Join(dir, "space.yaml")
	require.NoError(t, os.WriteFile(spacePath, []byte("recon_families: [CIAS-Core]\nuq_schemes: [None]\n"), 0o644))

	cfg := testConfig(t)
	cfg.Database.Driver = "sqlite"
	cfg.Database.URL = filepath.Join(dir, "ciasx.db")
	cfg.Paths.DesignSpaceFile = spacePath
	cfg.AI.OpenAIKey = "sk-test"

	c, err := New(context.Background(), cfg, internal.Discard())
	require.NoError(t, err)
	defer c.Shutdown()

	assert.IsType(t, &sqlstore.Repository{}, c.Repository)
	assert.IsType(t, &llm.ProposalAdapter{}, c.Generator)
	assert.Equal(t, []experiment.ReconFamily{experiment.FamilyCIASCore}, c.DesignSpace.ReconFamilies())
}

func TestMissingDesignSpaceFileFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.DesignSpaceFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(context.Background(), cfg, internal.Discard())
	assert.Error(t, err)
}
