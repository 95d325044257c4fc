package planner

import (
	"ciasx/domain/experiment"
)

// Gap tags are "<prefix>:<value>".
const (
	GapPrefixReconFamily = "recon_family"
	GapPrefixUQScheme    = "uq_scheme"

	// ExploreVariations is returned when every reference tag has been tried.
	ExploreVariations = "explore_variations"
)

// IdentifyUnderexploredRegions lists "recon_family:<f>" for each reference
// family never tried and "uq_scheme:<s>" for each scheme never tried. The
// reference is the design space; a category it leaves empty falls back to
// the built-in registry. The result is never empty.
func IdentifyUnderexploredRegions(summary Summary, reference experiment.DesignSpace) []string {
	families := reference.ReconFamilies()
	if len(families) == 0 {
		families = experiment.KnownReconFamilies
	}
	schemes := reference.UQSchemes()
	if len(schemes) == 0 {
		schemes = experiment.KnownUQSchemes
	}

	var gaps []string
	for _, f := range families {
		if summary.ReconFamilies[f] == 0 {
			gaps = append(gaps, GapPrefixReconFamily+":"+string(f))
		}
	}
	for _, s := range schemes {
		if summary.UQSchemes[s] == 0 {
			gaps = append(gaps, GapPrefixUQScheme+":"+string(s))
		}
	}
	if len(gaps) == 0 {
		return []string{ExploreVariations}
	}
	return gaps
}
