package analysis

import (
	"github.com/montanaflynn/stats"

	"ciasx/domain/experiment"
)

// CalibrationStats summarizes calibration error over the records that report one.
type CalibrationStats struct {
	MeanError float64
	MaxError  float64
	// MinError is nil when no record reported a calibration error.
	MinError *float64
	Count    int
}

// Map renders the stats as {mean_error, max_error, min_error}; min_error is
// left out when there was no data.
func (c CalibrationStats) Map() map[string]float64 {
	out := map[string]float64{
		"mean_error": c.MeanError,
		"max_error":  c.MaxError,
	}
	if c.MinError != nil {
		out["min_error"] = *c.MinError
	}
	return out
}

// ComputeCalibrationStats aggregates non-nil calibration errors. Records
// without one (UQ scheme "None") are skipped; no data yields zeros.
func ComputeCalibrationStats(records []experiment.Record) CalibrationStats {
	var errs stats.Float64Data
	for _, r := range records {
		if r.Metrics.CalibrationError != nil {
			errs = append(errs, *r.Metrics.CalibrationError)
		}
	}
	if len(errs) == 0 {
		return CalibrationStats{}
	}

	// stats only errors on empty input, which is excluded above
	mean, _ := errs.Mean()
	max, _ := errs.Max()
	min, _ := errs.Min()
	return CalibrationStats{
		MeanError: mean,
		MaxError:  max,
		MinError:  &min,
		Count:     len(errs),
	}
}
