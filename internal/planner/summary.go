package planner

import (
	"gonum.org/v1/gonum/stat"

	"ciasx/domain/experiment"
	wm "ciasx/domain/worldmodel"
	"ciasx/internal/analysis"
)

// UnderexploredAll marks an empty world model: nothing has been tried yet.
const UnderexploredAll = "all"

// DefaultConstraints are the fixed policy thresholds handed to the generator.
func DefaultConstraints() map[string]float64 {
	return map[string]float64{"max_latency": 100, "min_coverage": 0.8}
}

// Summary is the planner's condensed view of the world model.
type Summary struct {
	TotalExperiments int                            `json:"total_experiments"`
	BestPSNR         float64                        `json:"best_psnr"`
	BestFamily       experiment.ReconFamily         `json:"best_config,omitempty"`
	MeanPSNR         float64                        `json:"avg_psnr"`
	ReconFamilies    map[experiment.ReconFamily]int `json:"recon_families"`
	UQSchemes        map[experiment.UQScheme]int    `json:"uq_schemes"`
	Constraints      map[string]float64             `json:"constraints"`
	// Frontiers carries the previous round's trend strings. Filled by the loop.
	Frontiers     []string `json:"frontiers"`
	ParetoSize    int      `json:"pareto_size"`
	Underexplored []string `json:"underexplored,omitempty"`
}

// SummarizeWorldModel reduces the world model to counts and PSNR statistics.
// An empty model yields zero counts and Underexplored = ["all"].
func SummarizeWorldModel(model *wm.WorldModel) Summary {
	summary := Summary{
		ReconFamilies: make(map[experiment.ReconFamily]int),
		UQSchemes:     make(map[experiment.UQScheme]int),
		Constraints:   DefaultConstraints(),
		Frontiers:     []string{},
	}

	records := model.Records()
	if len(records) == 0 {
		summary.Underexplored = []string{UnderexploredAll}
		return summary
	}

	psnr := make([]float64, len(records))
	for i, r := range records {
		psnr[i] = r.Metrics.PSNR
		summary.ReconFamilies[r.Config.ReconFamily]++
		summary.UQSchemes[r.Config.UQScheme]++
	}
	best, _ := analysis.BestByPSNR(records)

	summary.TotalExperiments = len(records)
	summary.BestPSNR = best.Metrics.PSNR
	summary.BestFamily = best.Config.ReconFamily
	summary.MeanPSNR = stat.Mean(psnr, nil)
	return summary
}
