package planner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxProposalsPerRound caps how many configurations the prompt asks for.
const MaxProposalsPerRound = 3

// BuildPlannerPrompt renders the generator prompt. Output depends only on the
// arguments; constraints are listed in sorted key order.
func BuildPlannerPrompt(gaps []string, frontiers []string, constraints map[string]float64, budget int) string {
	var b strings.Builder
	b.WriteString("You are an AI experiment designer for snapshot compressive imaging (SCI).\n\n")
	b.WriteString("Current state:\n")
	fmt.Fprintf(&b, "- Under-explored regions: %s\n", strings.Join(gaps, ", "))
	fmt.Fprintf(&b, "- Pareto frontier: %d configurations\n", len(frontiers))
	for _, f := range frontiers {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	fmt.Fprintf(&b, "- Constraints: %s\n", formatConstraints(constraints))
	fmt.Fprintf(&b, "- Remaining budget: %d experiments\n\n", budget)
	fmt.Fprintf(&b, "Propose %d new experiment configurations, prioritizing under-explored regions.\n", min(MaxProposalsPerRound, budget))
	b.WriteString("Each configuration should include: recon_family, uq_scheme, and relevant parameters.\n")
	return b.String()
}

func formatConstraints(constraints map[string]float64) string {
	keys := make([]string, 0, len(constraints))
	for k := range constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strconv.FormatFloat(constraints[k], 'g', -1, 64))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
