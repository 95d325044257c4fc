package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"ciasx/domain/experiment"
)

// NoTrendsSentinel is returned when a group has no Pareto-optimal records.
const NoTrendsSentinel = "No significant trends found."

// BestByPSNR returns the record with the highest PSNR. On ties the first
// record in iteration order wins. ok is false for empty input.
func BestByPSNR(records []experiment.Record) (best experiment.Record, ok bool) {
	for i, r := range records {
		if i == 0 || r.Metrics.PSNR > best.Metrics.PSNR {
			best = r
		}
	}
	return best, len(records) > 0
}

// SummarizeTrends writes the digest for one group of records: Pareto count,
// mean PSNR of the Pareto records, the best of them by PSNR and, when
// nonzero, the mean calibration error.
func SummarizeTrends(records []experiment.Record, paretoIDs IDSet, calib CalibrationStats) string {
	var front []experiment.Record
	for _, r := range records {
		if paretoIDs.Contains(r.ID) {
			front = append(front, r)
		}
	}
	if len(front) == 0 {
		return NoTrendsSentinel
	}

	psnr := make([]float64, len(front))
	for i, r := range front {
		psnr[i] = r.Metrics.PSNR
	}
	best, _ := BestByPSNR(front)

	var b strings.Builder
	fmt.Fprintf(&b, "Pareto frontier contains %d configurations. ", len(front))
	fmt.Fprintf(&b, "Average PSNR: %.2f dB. ", stat.Mean(psnr, nil))
	fmt.Fprintf(&b, "Best config uses %s, PSNR=%.2f dB.", best.Config.ReconFamily, best.Metrics.PSNR)
	if calib.MeanError > 0 {
		fmt.Fprintf(&b, " Average calibration error: %.3f.", calib.MeanError)
	}
	return b.String()
}
