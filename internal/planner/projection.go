package planner

import (
	"ciasx/domain/experiment"
	"ciasx/ports"
)

// ProjectToDesignSpace turns a raw proposal into a legal configuration. A
// family that is missing, not a string or not declared becomes the first
// declared family (the first registry family when none is declared). A
// missing or non-string scheme becomes "None". Parameter maps that are
// missing or not maps become empty.
func ProjectToDesignSpace(proposal ports.RawProposal, designSpace experiment.DesignSpace) experiment.Configuration {
	family, _ := proposal["recon_family"].(string)
	if !designSpace.HasReconFamily(experiment.ReconFamily(family)) {
		family = string(fallbackFamily(designSpace))
	}

	scheme, ok := proposal["uq_scheme"].(string)
	if !ok || scheme == "" {
		scheme = string(experiment.UQNone)
	}

	return experiment.Configuration{
		ForwardConfig: paramMap(proposal["forward_config"]),
		ReconFamily:   experiment.ReconFamily(family),
		ReconParams:   paramMap(proposal["recon_params"]),
		UQScheme:      experiment.UQScheme(scheme),
		UQParams:      paramMap(proposal["uq_params"]),
		TrainConfig:   paramMap(proposal["train_config"]),
	}
}

// IsValidConfig is the constraint hook. The default policy accepts every
// configuration; Planner.WithValidator installs a stricter one.
func IsValidConfig(experiment.Configuration, map[string]float64) bool {
	return true
}

func fallbackFamily(designSpace experiment.DesignSpace) experiment.ReconFamily {
	if declared := designSpace.ReconFamilies(); len(declared) > 0 {
		return declared[0]
	}
	return experiment.KnownReconFamilies[0]
}

func paramMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}
