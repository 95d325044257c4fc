// Package heuristic proposes experiments without a language model. It reads
// the gap list and requested count out of the planner prompt and fills the
// gaps with parameter templates.
package heuristic

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"ciasx/domain/experiment"
	"ciasx/internal/planner"
	"ciasx/ports"
)

var (
	regionsLine  = regexp.MustCompile(`(?m)^- Under-explored regions: (.*)$`)
	requestCount = regexp.MustCompile(`Propose (\d+) new`)
)

// Generator creates proposals using rules over the prompt's gap list
type Generator struct{}

// NewGenerator creates a new heuristic proposal generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate proposes one configuration per missing family and scheme, pairing
// them in order. With nothing missing it returns the reference exploration
// set. The result never exceeds the count the prompt asks for.
func (g *Generator) Generate(ctx context.Context, prompt string) ([]ports.RawProposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	families, schemes := parseGaps(prompt)
	want := parseCount(prompt)

	var proposals []ports.RawProposal
	n := max(len(families), len(schemes))
	for i := 0; i < n; i++ {
		family := experiment.KnownReconFamilies[i%len(experiment.KnownReconFamilies)]
		if i < len(families) {
			family = families[i]
		}
		scheme := experiment.UQConformal
		if i < len(schemes) {
			scheme = schemes[i]
		}
		proposals = append(proposals, Template(family, scheme))
	}
	for _, p := range ReferenceProposals() {
		if len(proposals) >= want {
			break
		}
		proposals = append(proposals, p)
	}
	if len(proposals) > want {
		proposals = proposals[:want]
	}
	return proposals, nil
}

// ReferenceProposals is the fixed exploration set used when no gap remains.
func ReferenceProposals() []ports.RawProposal {
	return []ports.RawProposal{
		Template(experiment.FamilyCIASCoreELP, experiment.UQConformal),
		Template(experiment.FamilyCIASCore, experiment.UQEnsemble),
		Template(experiment.FamilyBaselineCNN, experiment.UQNone),
	}
}

// Template builds a proposal with the default parameters for a family and scheme.
func Template(family experiment.ReconFamily, scheme experiment.UQScheme) ports.RawProposal {
	p := ports.RawProposal{
		"recon_family": string(family),
		"uq_scheme":    string(scheme),
	}
	switch family {
	case experiment.FamilyCIASCoreELP:
		p["recon_params"] = map[string]any{"num_layers": 10, "hidden_dim": 128}
		p["forward_config"] = map[string]any{"compression_ratio": 8}
		p["train_config"] = map[string]any{"epochs": 50, "lr": 0.001}
	case experiment.FamilyBaselineCNN:
		p["recon_params"] = map[string]any{"num_layers": 6}
		p["forward_config"] = map[string]any{"compression_ratio": 8}
		p["train_config"] = map[string]any{"epochs": 30, "lr": 0.001}
	default:
		p["recon_params"] = map[string]any{"num_layers": 8, "hidden_dim": 64}
		p["forward_config"] = map[string]any{"compression_ratio": 16}
		p["train_config"] = map[string]any{"epochs": 40, "lr": 0.0005}
	}
	switch scheme {
	case experiment.UQConformal:
		p["uq_params"] = map[string]any{"alpha": 0.1}
	case experiment.UQEnsemble:
		p["uq_params"] = map[string]any{"n_models": 5}
	default:
		p["uq_params"] = map[string]any{}
	}
	return p
}

func parseGaps(prompt string) ([]experiment.ReconFamily, []experiment.UQScheme) {
	m := regionsLine.FindStringSubmatch(prompt)
	if m == nil {
		return nil, nil
	}
	var families []experiment.ReconFamily
	var schemes []experiment.UQScheme
	for _, tag := range strings.Split(m[1], ", ") {
		prefix, value, ok := strings.Cut(strings.TrimSpace(tag), ":")
		if !ok || value == "" {
			continue
		}
		switch prefix {
		case planner.GapPrefixReconFamily:
			families = append(families, experiment.ReconFamily(value))
		case planner.GapPrefixUQScheme:
			schemes = append(schemes, experiment.UQScheme(value))
		}
	}
	return families, schemes
}

func parseCount(prompt string) int {
	m := requestCount.FindStringSubmatch(prompt)
	if m == nil {
		return planner.MaxProposalsPerRound
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return planner.MaxProposalsPerRound
	}
	return n
}
