package analysis

import (
	"ciasx/domain/experiment"
	wm "ciasx/domain/worldmodel"
)

// Stratum is the records sharing one (family, scheme) key.
type Stratum struct {
	Key     experiment.StratumKey
	Records []experiment.Record
}

// Strata partitions records by (family, scheme). Strata appear in the order
// their first record appears; records keep their relative order.
func Strata(records []experiment.Record) []Stratum {
	pos := make(map[experiment.StratumKey]int)
	var out []Stratum
	for _, r := range records {
		key := experiment.StratumOf(r)
		i, ok := pos[key]
		if !ok {
			i = len(out)
			pos[key] = i
			out = append(out, Stratum{Key: key})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out
}

// StratumResult is the analysis of one stratum.
type StratumResult struct {
	Key         experiment.StratumKey
	ParetoIDs   IDSet
	Calibration CalibrationStats
	Trend       string
}

// AnalyzeStrata runs the per-stratum analysis and returns one result per stratum.
func AnalyzeStrata(records []experiment.Record) []StratumResult {
	strata := Strata(records)
	results := make([]StratumResult, 0, len(strata))
	for _, s := range strata {
		front := ComputeParetoFront(s.Records, experiment.DefaultObjectives)
		calib := ComputeCalibrationStats(s.Records)
		results = append(results, StratumResult{
			Key:         s.Key,
			ParetoIDs:   front,
			Calibration: calib,
			Trend:       "[" + s.Key.String() + "] " + SummarizeTrends(s.Records, front, calib),
		})
	}
	return results
}

// AnalysisStep analyzes every stratum of the world model and returns the
// union of per-stratum Pareto ids plus one prefixed trend string per stratum.
func AnalysisStep(model *wm.WorldModel) (IDSet, []string) {
	all := make(IDSet)
	var trends []string
	for _, res := range AnalyzeStrata(model.Records()) {
		all.Union(res.ParetoIDs)
		trends = append(trends, res.Trend)
	}
	return all, trends
}
