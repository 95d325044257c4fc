package experiment

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"ciasx/domain/core"
)

// Structured-data export/import. ToMap and the matching FromMap functions are
// lossless for in-memory values: nested maps are deep-copied and nil stays nil.
// Numbers inside parameter maps are canonical: whole numbers are int, the rest
// float64. JSON cannot tell 9 from 9.0, so both sides of storage agree on int.

// ToMap exports the configuration field-for-field
func (c Configuration) ToMap() map[string]any {
	return map[string]any{
		"forward_config": copyMap(c.ForwardConfig),
		"recon_family":   string(c.ReconFamily),
		"recon_params":   copyMap(c.ReconParams),
		"uq_scheme":      string(c.UQScheme),
		"uq_params":      copyMap(c.UQParams),
		"train_config":   copyMap(c.TrainConfig),
	}
}

// ConfigurationFromMap imports a configuration exported by ToMap or decoded from JSON
func ConfigurationFromMap(m map[string]any) (Configuration, error) {
	var c Configuration
	var err error
	if c.ForwardConfig, err = mapField(m, "forward_config"); err != nil {
		return c, err
	}
	if c.ReconParams, err = mapField(m, "recon_params"); err != nil {
		return c, err
	}
	if c.UQParams, err = mapField(m, "uq_params"); err != nil {
		return c, err
	}
	if c.TrainConfig, err = mapField(m, "train_config"); err != nil {
		return c, err
	}
	family, err := stringField(m, "recon_family")
	if err != nil {
		return c, err
	}
	scheme, err := stringField(m, "uq_scheme")
	if err != nil {
		return c, err
	}
	c.ReconFamily = ReconFamily(family)
	c.UQScheme = UQScheme(scheme)
	return c, nil
}

// ToMap exports the metrics; calibration_error is nil when absent
func (m Metrics) ToMap() map[string]any {
	out := map[string]any{
		"psnr":              m.PSNR,
		"coverage":          m.Coverage,
		"latency":           m.Latency,
		"calibration_error": nil,
		"other_metrics":     copyFloatMap(m.OtherMetrics),
	}
	if m.CalibrationError != nil {
		out["calibration_error"] = *m.CalibrationError
	}
	return out
}

// MetricsFromMap imports metrics exported by ToMap or decoded from JSON
func MetricsFromMap(in map[string]any) (Metrics, error) {
	var m Metrics
	var err error
	if m.PSNR, err = floatField(in, "psnr"); err != nil {
		return m, err
	}
	if m.Coverage, err = floatField(in, "coverage"); err != nil {
		return m, err
	}
	if m.Latency, err = floatField(in, "latency"); err != nil {
		return m, err
	}
	if raw, ok := in["calibration_error"]; ok && raw != nil {
		v, ok := toFloat(raw)
		if !ok {
			return m, fmt.Errorf("calibration_error: expected number, got %T", raw)
		}
		m.CalibrationError = &v
	}
	switch other := in["other_metrics"].(type) {
	case nil:
	case map[string]float64:
		m.OtherMetrics = copyFloatMap(other)
	case map[string]any:
		m.OtherMetrics = make(map[string]float64, len(other))
		for k, raw := range other {
			v, ok := toFloat(raw)
			if !ok {
				return m, fmt.Errorf("other_metrics.%s: expected number, got %T", k, raw)
			}
			m.OtherMetrics[k] = v
		}
	default:
		return m, fmt.Errorf("other_metrics: expected mapping, got %T", other)
	}
	return m, nil
}

// ToMap exports the artifacts
func (a Artifacts) ToMap() map[string]any {
	return map[string]any{
		"checkpoint":   a.Checkpoint,
		"uq_params":    copyMap(a.UQParams),
		"train_log":    a.TrainLog,
		"eval_samples": copyStrings(a.EvalSamples),
		"fig_scripts":  copyStrings(a.FigScripts),
	}
}

// ArtifactsFromMap imports artifacts exported by ToMap or decoded from JSON
func ArtifactsFromMap(m map[string]any) (Artifacts, error) {
	var a Artifacts
	var err error
	if a.Checkpoint, err = stringField(m, "checkpoint"); err != nil {
		return a, err
	}
	if a.TrainLog, err = stringField(m, "train_log"); err != nil {
		return a, err
	}
	if a.UQParams, err = mapField(m, "uq_params"); err != nil {
		return a, err
	}
	if a.EvalSamples, err = stringsField(m, "eval_samples"); err != nil {
		return a, err
	}
	if a.FigScripts, err = stringsField(m, "fig_scripts"); err != nil {
		return a, err
	}
	return a, nil
}

// ToMap exports the record with nested entity maps
func (r Record) ToMap() map[string]any {
	return map[string]any{
		"id":        string(r.ID),
		"config":    r.Config.ToMap(),
		"metrics":   r.Metrics.ToMap(),
		"artifacts": r.Artifacts.ToMap(),
		"timestamp": r.Timestamp.Format(time.RFC3339Nano),
	}
}

// RecordFromMap imports a record exported by ToMap or decoded from JSON.
// A missing id is assigned, matching record construction.
func RecordFromMap(m map[string]any) (Record, error) {
	var r Record
	id, err := stringField(m, "id")
	if err != nil {
		return r, err
	}

	configMap, err := mapField(m, "config")
	if err != nil {
		return r, err
	}
	config, err := ConfigurationFromMap(configMap)
	if err != nil {
		return r, fmt.Errorf("config: %w", err)
	}

	metricsMap, err := mapField(m, "metrics")
	if err != nil {
		return r, err
	}
	metrics, err := MetricsFromMap(metricsMap)
	if err != nil {
		return r, fmt.Errorf("metrics: %w", err)
	}

	artifactsMap, err := mapField(m, "artifacts")
	if err != nil {
		return r, err
	}
	artifacts, err := ArtifactsFromMap(artifactsMap)
	if err != nil {
		return r, fmt.Errorf("artifacts: %w", err)
	}

	var at time.Time
	switch ts := m["timestamp"].(type) {
	case nil:
	case time.Time:
		at = ts
	case string:
		if ts != "" {
			if at, err = time.Parse(time.RFC3339Nano, ts); err != nil {
				return r, fmt.Errorf("timestamp: %w", err)
			}
		}
	default:
		return r, fmt.Errorf("timestamp: expected RFC3339 string, got %T", ts)
	}

	return NewRecord(core.ID(id), config, metrics, artifacts, at), nil
}

func mapField(m map[string]any, key string) (map[string]any, error) {
	switch v := m[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return copyMap(v), nil
	default:
		return nil, fmt.Errorf("%s: expected mapping, got %T", key, v)
	}
}

func stringField(m map[string]any, key string) (string, error) {
	switch v := m[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s: expected string, got %T", key, v)
	}
}

func floatField(m map[string]any, key string) (float64, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, nil
	}
	v, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("%s: expected number, got %T", key, raw)
	}
	return v, nil
}

func stringsField(m map[string]any, key string) ([]string, error) {
	switch v := m[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return copyStrings(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected string, got %T", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: expected list, got %T", key, v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return copyStrings(t)
	}
	if n, ok := canonicalNumber(v); ok {
		return n
	}
	return v
}

// maxExactInt is the largest magnitude a float64 holds without rounding.
const maxExactInt = 1 << 53

func canonicalNumber(v any) (any, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n >= math.MinInt && n <= math.MaxInt {
			return int(n), true
		}
		return float64(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		if n <= math.MaxInt {
			return int(n), true
		}
		return float64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return canonicalNumber(i)
		}
		parsed, err := n.Float64()
		if err != nil {
			return nil, false
		}
		f = parsed
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		return nil, false
	}
	if f == math.Trunc(f) && math.Abs(f) < maxExactInt {
		return int(f), true
	}
	return f, true
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
