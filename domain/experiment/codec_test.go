package experiment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciasx/domain/core"
)

func sampleRecord() Record {
	return NewRecord(
		core.ID("rec-1"),
		Configuration{
			ForwardConfig: map[string]any{"compression_ratio": 8, "mask": map[string]any{"kind": "random"}},
			ReconFamily:   FamilyCIASCoreELP,
			ReconParams:   map[string]any{"num_layers": 10, "hidden_dim": 128},
			UQScheme:      UQConformal,
			UQParams:      map[string]any{"alpha": 0.1},
			TrainConfig:   map[string]any{"epochs": 50, "lr": 0.001},
		},
		Metrics{PSNR: 29.5, Coverage: 0.9, Latency: 22, CalibrationError: Float64(0.04)},
		Artifacts{
			Checkpoint:  "checkpoint_deadbeef.pth",
			UQParams:    map[string]any{"threshold": 0.9},
			TrainLog:    "train_log_deadbeef.txt",
			EvalSamples: []string{"sample_0.png", "sample_1.png"},
			FigScripts:  []string{"figure_0.py"},
		},
		time.Date(2025, 3, 1, 12, 0, 0, 123, time.UTC),
	)
}

func TestRecordMapRoundTrip(t *testing.T) {
	original := sampleRecord()

	restored, err := RecordFromMap(original.ToMap())
	require.NoError(t, err)

	if diff := cmp.Diff(original, restored); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordMapRoundTripWithoutCalibration(t *testing.T) {
	original := sampleRecord()
	original.Config.UQScheme = UQNone
	original.Metrics.CalibrationError = nil
	original.Artifacts.EvalSamples = nil

	exported := original.ToMap()
	assert.Nil(t, exported["metrics"].(map[string]any)["calibration_error"])

	restored, err := RecordFromMap(exported)
	require.NoError(t, err)
	if diff := cmp.Diff(original, restored); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToMapDoesNotAlias(t *testing.T) {
	original := sampleRecord()
	exported := original.ToMap()

	cfg := exported["config"].(map[string]any)
	cfg["forward_config"].(map[string]any)["mask"].(map[string]any)["kind"] = "changed"

	assert.Equal(t, "random", original.Config.ForwardConfig["mask"].(map[string]any)["kind"])
}

func TestRecordFromJSONDecodedMap(t *testing.T) {
	original := sampleRecord()
	raw, err := json.Marshal(original.ToMap())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored, err := RecordFromMap(decoded)
	require.NoError(t, err)

	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.Config.ReconFamily, restored.Config.ReconFamily)
	assert.Equal(t, original.Metrics.PSNR, restored.Metrics.PSNR)
	require.NotNil(t, restored.Metrics.CalibrationError)
	assert.InDelta(t, 0.04, *restored.Metrics.CalibrationError, 1e-12)
	assert.Equal(t, original.Artifacts.EvalSamples, restored.Artifacts.EvalSamples)
	assert.True(t, original.Timestamp.Equal(restored.Timestamp))
	if diff := cmp.Diff(original.Config, restored.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 10, restored.Config.ReconParams["num_layers"])
}

func TestNewRecordCanonicalizesNumbers(t *testing.T) {
	r := NewRecord("", Configuration{
		ReconParams: map[string]any{
			"whole_float": 9.0,
			"int64":       int64(4),
			"json_int":    json.Number("12"),
			"json_float":  json.Number("0.25"),
			"fraction":    0.5,
			"flag":        true,
			"nested":      map[string]any{"depth": float32(3), "list": []any{2.0, 2.5}},
		},
	}, Metrics{}, Artifacts{UQParams: map[string]any{"n_models": 5.0}}, time.Time{})

	want := map[string]any{
		"whole_float": 9,
		"int64":       4,
		"json_int":    12,
		"json_float":  0.25,
		"fraction":    0.5,
		"flag":        true,
		"nested":      map[string]any{"depth": 3, "list": []any{2, 2.5}},
	}
	if diff := cmp.Diff(want, r.Config.ReconParams); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, r.Artifacts.UQParams["n_models"])
}

func TestRecordFromMapAssignsMissingID(t *testing.T) {
	m := sampleRecord().ToMap()
	delete(m, "id")

	restored, err := RecordFromMap(m)
	require.NoError(t, err)
	assert.False(t, restored.ID.IsEmpty())
}

func TestRecordFromMapRejectsWrongTypes(t *testing.T) {
	tests := []struct {
		name  string
		patch func(m map[string]any)
	}{
		{"config not a map", func(m map[string]any) { m["config"] = "nope" }},
		{"psnr not a number", func(m map[string]any) { m["metrics"].(map[string]any)["psnr"] = "high" }},
		{"samples not strings", func(m map[string]any) { m["artifacts"].(map[string]any)["eval_samples"] = []any{1} }},
		{"bad timestamp", func(m map[string]any) { m["timestamp"] = "yesterday" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleRecord().ToMap()
			tt.patch(m)
			_, err := RecordFromMap(m)
			assert.Error(t, err)
		})
	}
}

func TestMetricsObjective(t *testing.T) {
	m := Metrics{PSNR: 30, Coverage: 0.9, Latency: 12, OtherMetrics: map[string]float64{"ssim": 0.8}}

	assert.Equal(t, 30.0, m.Objective(ObjectivePSNR))
	assert.Equal(t, 0.9, m.Objective(ObjectiveCoverage))
	assert.Equal(t, 12.0, m.Objective(ObjectiveLatency))
	assert.Equal(t, 0.0, m.Objective(ObjectiveCalibrationError))
	assert.Equal(t, 0.8, m.Objective("ssim"))
	assert.Equal(t, 0.0, m.Objective("unknown"))
}
