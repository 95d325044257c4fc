package experiment

import (
	"time"

	"ciasx/domain/core"
)

// Objective names understood by Metrics.Objective
const (
	ObjectivePSNR             = "psnr"
	ObjectiveCoverage         = "coverage"
	ObjectiveLatency          = "latency"
	ObjectiveCalibrationError = "calibration_error"
)

// DefaultObjectives are the Pareto objectives used by the analysis step.
var DefaultObjectives = []string{ObjectivePSNR, ObjectiveCoverage}

// Configuration describes one experiment to run. It is a value object: it has
// no identity until wrapped in a Record.
type Configuration struct {
	ForwardConfig map[string]any `json:"forward_config" yaml:"forward_config"`
	ReconFamily   ReconFamily    `json:"recon_family" yaml:"recon_family"`
	ReconParams   map[string]any `json:"recon_params" yaml:"recon_params"`
	UQScheme      UQScheme       `json:"uq_scheme" yaml:"uq_scheme"`
	UQParams      map[string]any `json:"uq_params" yaml:"uq_params"`
	TrainConfig   map[string]any `json:"train_config" yaml:"train_config"`
}

// Metrics is the measured outcome of running a Configuration.
type Metrics struct {
	PSNR             float64            `json:"psnr"`     // reconstruction quality, dB (maximize)
	Coverage         float64            `json:"coverage"` // UQ coverage probability (maximize)
	Latency          float64            `json:"latency"`  // inference latency, ms (minimize)
	CalibrationError *float64           `json:"calibration_error,omitempty"`
	OtherMetrics     map[string]float64 `json:"other_metrics,omitempty"`
}

// Objective returns the named objective value. Missing objectives, including
// an absent calibration error, read as 0.
func (m Metrics) Objective(name string) float64 {
	switch name {
	case ObjectivePSNR:
		return m.PSNR
	case ObjectiveCoverage:
		return m.Coverage
	case ObjectiveLatency:
		return m.Latency
	case ObjectiveCalibrationError:
		if m.CalibrationError == nil {
			return 0
		}
		return *m.CalibrationError
	}
	return m.OtherMetrics[name]
}

// Artifacts are side outputs of an execution. The core never interprets them.
type Artifacts struct {
	Checkpoint  string         `json:"checkpoint"`
	UQParams    map[string]any `json:"uq_params"`
	TrainLog    string         `json:"train_log"`
	EvalSamples []string       `json:"eval_samples"`
	FigScripts  []string       `json:"fig_scripts"`
}

// Record is the immutable unit of world-model history. Corrections are new
// records, never edits.
type Record struct {
	ID        core.ID       `json:"id"`
	Config    Configuration `json:"config"`
	Metrics   Metrics       `json:"metrics"`
	Artifacts Artifacts     `json:"artifacts"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewRecord builds a record, assigning a fresh id when none is given. Parameter
// maps are deep-copied into canonical numeric form.
func NewRecord(id core.ID, config Configuration, metrics Metrics, artifacts Artifacts, at time.Time) Record {
	if id.IsEmpty() {
		id = core.NewID()
	}
	config.ForwardConfig = copyMap(config.ForwardConfig)
	config.ReconParams = copyMap(config.ReconParams)
	config.UQParams = copyMap(config.UQParams)
	config.TrainConfig = copyMap(config.TrainConfig)
	artifacts.UQParams = copyMap(artifacts.UQParams)
	return Record{
		ID:        id,
		Config:    config,
		Metrics:   metrics,
		Artifacts: artifacts,
		Timestamp: at,
	}
}

// StratumKey groups records sharing a (family, scheme) pair.
type StratumKey struct {
	Family ReconFamily
	Scheme UQScheme
}

// StratumOf returns the stratum key of a record
func StratumOf(r Record) StratumKey {
	return StratumKey{Family: r.Config.ReconFamily, Scheme: r.Config.UQScheme}
}

// String renders the key as "(family, scheme)"
func (k StratumKey) String() string {
	return "(" + string(k.Family) + ", " + string(k.Scheme) + ")"
}

// Float64 is a helper for building optional metric fields.
func Float64(v float64) *float64 {
	return &v
}
