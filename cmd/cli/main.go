package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ciasx/adapters/sqlstore"
	"ciasx/domain/core"
	"ciasx/internal"
	"ciasx/internal/config"
	"ciasx/internal/container"
	"ciasx/internal/report"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "ciasx",
		Short:        "CIAS-X AI scientist loop: plan, execute and analyze imaging experiments",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newRunsCmd(),
		newReportCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadContainer(ctx context.Context, mutate func(*config.Config)) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return container.New(ctx, cfg, internal.NewDefaultLogger())
}

func newRunCmd() *cobra.Command {
	var name, objective, format, outDir string
	var budget, parallelism int
	var seed int64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scientist loop and print the results analysis",
		Long: `Run the scientist loop with the configured design space and seed
configurations, then print the final results analysis.

Configuration comes from the environment (see .env): DATABASE_DRIVER,
DATABASE_URL, OPENAI_API_KEY, BUDGET, DESIGN_SPACE_FILE, SEED_CONFIGS_FILE.
Without OPENAI_API_KEY proposals come from the heuristic generator.

Example: ciasx run --name baseline-sweep --budget 12 --format md --out ./reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(cmd.Context(), func(cfg *config.Config) {
				if cmd.Flags().Changed("budget") {
					cfg.Loop.Budget = budget
				}
				if cmd.Flags().Changed("seed") {
					cfg.Loop.Seed = seed
				}
				if cmd.Flags().Changed("parallelism") {
					cfg.Loop.Parallelism = parallelism
				}
			})
			if err != nil {
				return err
			}
			defer c.Shutdown()

			run, _, err := c.Service.Run(cmd.Context(), c.DefaultRunRequest(name, objective))
			if err != nil {
				return err
			}
			return writeReport(cmd.Context(), c, run.ID, format, outDir)
		},
	}

	cmd.Flags().StringVar(&name, "name", "cli-run", "Run name")
	cmd.Flags().StringVar(&objective, "objective", "", "Free-text research objective stored with the run")
	cmd.Flags().IntVar(&budget, "budget", 10, "Maximum number of successful experiments")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for the simulated executor")
	cmd.Flags().IntVar(&parallelism, "parallelism", 1, "Concurrent experiment executions per round")
	cmd.Flags().StringVar(&format, "format", "md", "Report format: md|html|json|xlsx")
	cmd.Flags().StringVar(&outDir, "out", "", "Write the report into this directory instead of stdout")
	return cmd
}

func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored design runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			runs, err := c.Service.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%-10s\t%d/%d\t%s\t%s\n",
					run.ID, run.Status, run.BudgetUsed, run.BudgetMax, run.CreatedAt.Format("2006-01-02 15:04"), run.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 for all)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var format, outDir string
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Render the results analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			c, err := loadContainer(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Shutdown()
			return writeReport(cmd.Context(), c, runID, format, outDir)
		},
	}
	cmd.Flags().StringVar(&format, "format", "md", "Report format: md|html|json|xlsx")
	cmd.Flags().StringVar(&outDir, "out", "", "Write the report into this directory instead of stdout")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema for DATABASE_DRIVER/DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return fmt.Errorf("nothing to migrate for the memory driver")
			}
			_, db, err := sqlstore.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.URL, internal.NewDefaultLogger())
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s database\n", cfg.Database.Driver)
			return nil
		},
	}
}

func writeReport(ctx context.Context, c *container.Container, runID core.RunID, format, outDir string) error {
	run, analysis, err := c.Service.Analyze(ctx, runID)
	if err != nil {
		return err
	}

	var body []byte
	switch strings.ToLower(format) {
	case "md", "markdown":
		body = []byte(report.Markdown(run, analysis))
	case "html":
		body = report.HTML(report.Markdown(run, analysis), run.Name)
	case "json":
		if body, err = json.MarshalIndent(map[string]interface{}{"run": run, "analysis": analysis}, "", "  "); err != nil {
			return err
		}
	case "xlsx":
		if outDir == "" {
			outDir = c.Config.Paths.ReportDir
		}
	default:
		return fmt.Errorf("unknown report format %q", format)
	}

	if outDir == "" {
		_, err := os.Stdout.Write(body)
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	ext := strings.ToLower(format)
	if ext == "markdown" {
		ext = "md"
	}
	path := filepath.Join(outDir, fmt.Sprintf("run_%s.%s", runID, ext))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if ext == "xlsx" {
		records, err := c.Service.Records(ctx, runID)
		if err != nil {
			return err
		}
		if err := report.WriteXLSX(f, records, analysis.ParetoIDs); err != nil {
			return err
		}
	} else if _, err := f.Write(body); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "report written to %s\n", path)
	return nil
}
