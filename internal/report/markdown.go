package report

import (
	"fmt"
	"strings"

	"ciasx/models"
)

// Markdown renders the analysis. run may be nil for ad-hoc analyses.
func Markdown(run *models.DesignRun, a Analysis) string {
	var b strings.Builder

	b.WriteString("# Final Results Analysis\n\n")
	if run != nil {
		fmt.Fprintf(&b, "- Run: %s (`%s`)\n", run.Name, run.ID)
		if run.Objective != "" {
			fmt.Fprintf(&b, "- Objective: %s\n", run.Objective)
		}
		fmt.Fprintf(&b, "- Status: %s\n", run.Status)
		fmt.Fprintf(&b, "- Budget: %d / %d experiments in %d rounds\n", run.BudgetUsed, run.BudgetMax, run.Rounds)
		if run.StopReason != "" {
			fmt.Fprintf(&b, "- Stop reason: %s\n", run.StopReason)
		}
		if run.Error != "" {
			fmt.Fprintf(&b, "- Error: %s\n", run.Error)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Pareto frontier configurations: %d\n\n", a.ParetoCount)

	if a.Best != nil {
		b.WriteString("## Best configuration\n\n")
		fmt.Fprintf(&b, "- Reconstruction family: %s\n", a.Best.Config.ReconFamily)
		fmt.Fprintf(&b, "- UQ scheme: %s\n", a.Best.Config.UQScheme)
		fmt.Fprintf(&b, "- PSNR: %.2f dB\n", a.Best.Metrics.PSNR)
		fmt.Fprintf(&b, "- Coverage: %.2f%%\n", a.Best.Metrics.Coverage*100)
		fmt.Fprintf(&b, "- Latency: %.1f ms\n\n", a.Best.Metrics.Latency)
	}

	if a.TotalExperiments == 0 {
		b.WriteString("No experiments were recorded.\n")
		return b.String()
	}

	b.WriteString("## Overall statistics\n\n")
	fmt.Fprintf(&b, "- Experiments: %d\n", a.TotalExperiments)
	fmt.Fprintf(&b, "- PSNR range: %.2f - %.2f dB\n", a.PSNRMin, a.PSNRMax)
	fmt.Fprintf(&b, "- Average PSNR: %.2f dB\n", a.PSNRMean)
	fmt.Fprintf(&b, "- Average coverage: %.2f%%\n\n", a.CoverageMean*100)

	b.WriteString("## Performance by reconstruction family\n\n")
	b.WriteString("| Family | Avg PSNR (dB) | Experiments |\n")
	b.WriteString("|---|---|---|\n")
	for _, f := range a.Families {
		fmt.Fprintf(&b, "| %s | %.2f | %d |\n", f.Family, f.MeanPSNR, f.Count)
	}

	if len(a.Trends) > 0 {
		b.WriteString("\n## Trends\n\n")
		for _, t := range a.Trends {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	return b.String()
}
