// Package report turns a finished run into a results analysis and renders it
// as Markdown, HTML or an XLSX workbook.
package report

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/internal/analysis"
)

// FamilyStat is the PSNR summary of one reconstruction family
type FamilyStat struct {
	Family   experiment.ReconFamily `json:"family"`
	MeanPSNR float64                `json:"mean_psnr"`
	Count    int                    `json:"count"`
}

// Analysis is the final results digest of a run.
type Analysis struct {
	TotalExperiments int                `json:"total_experiments"`
	ParetoCount      int                `json:"pareto_count"`
	ParetoIDs        []core.ID          `json:"pareto_ids"`
	Best             *experiment.Record `json:"best,omitempty"`
	PSNRMin          float64            `json:"psnr_min"`
	PSNRMax          float64            `json:"psnr_max"`
	PSNRMean         float64            `json:"psnr_mean"`
	CoverageMean     float64            `json:"coverage_mean"`
	Families         []FamilyStat       `json:"families"`
	Trends           []string           `json:"trends"`
}

// Analyze summarizes records against the Pareto ids produced by the loop.
// Families are listed in order of first appearance.
func Analyze(records []experiment.Record, paretoIDs []core.ID, trends []string) Analysis {
	front := analysis.NewIDSet(paretoIDs...)
	a := Analysis{
		TotalExperiments: len(records),
		ParetoCount:      len(paretoIDs),
		ParetoIDs:        append([]core.ID(nil), paretoIDs...),
		Trends:           append([]string(nil), trends...),
	}

	var onFront []experiment.Record
	for _, r := range records {
		if front.Contains(r.ID) {
			onFront = append(onFront, r)
		}
	}
	if best, ok := analysis.BestByPSNR(onFront); ok {
		a.Best = &best
	}
	if len(records) == 0 {
		return a
	}

	psnr := make([]float64, len(records))
	coverage := make([]float64, len(records))
	a.PSNRMin, a.PSNRMax = math.Inf(1), math.Inf(-1)
	byFamily := make(map[experiment.ReconFamily][]float64)
	var order []experiment.ReconFamily
	for i, r := range records {
		psnr[i] = r.Metrics.PSNR
		coverage[i] = r.Metrics.Coverage
		a.PSNRMin = math.Min(a.PSNRMin, r.Metrics.PSNR)
		a.PSNRMax = math.Max(a.PSNRMax, r.Metrics.PSNR)

		family := r.Config.ReconFamily
		if _, seen := byFamily[family]; !seen {
			order = append(order, family)
		}
		byFamily[family] = append(byFamily[family], r.Metrics.PSNR)
	}
	a.PSNRMean = stat.Mean(psnr, nil)
	a.CoverageMean = stat.Mean(coverage, nil)

	for _, family := range order {
		values := byFamily[family]
		a.Families = append(a.Families, FamilyStat{
			Family:   family,
			MeanPSNR: stat.Mean(values, nil),
			Count:    len(values),
		})
	}
	return a
}
