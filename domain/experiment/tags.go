package experiment

// ReconFamily identifies a reconstruction architecture family.
// Unknown values are legal extensions; IsKnown reports registry membership.
type ReconFamily string

const (
	FamilyCIASCore    ReconFamily = "CIAS-Core"
	FamilyCIASCoreELP ReconFamily = "CIAS-Core-ELP"
	FamilyBaselineCNN ReconFamily = "Baseline-CNN"
)

// KnownReconFamilies is the registry of families the system ships with, in
// canonical order.
var KnownReconFamilies = []ReconFamily{FamilyCIASCore, FamilyCIASCoreELP, FamilyBaselineCNN}

// IsKnown reports whether the family is in the built-in registry
func (f ReconFamily) IsKnown() bool {
	for _, known := range KnownReconFamilies {
		if f == known {
			return true
		}
	}
	return false
}

func (f ReconFamily) String() string { return string(f) }

// UQScheme identifies an uncertainty-quantification scheme.
type UQScheme string

const (
	UQConformal UQScheme = "Conformal"
	UQEnsemble  UQScheme = "Ensemble"
	UQNone      UQScheme = "None"
)

// KnownUQSchemes is the registry of UQ schemes, in canonical order.
var KnownUQSchemes = []UQScheme{UQConformal, UQEnsemble, UQNone}

// IsKnown reports whether the scheme is in the built-in registry
func (s UQScheme) IsKnown() bool {
	for _, known := range KnownUQSchemes {
		if s == known {
			return true
		}
	}
	return false
}

// HasUQ is false only for the "None" scheme
func (s UQScheme) HasUQ() bool {
	return s != UQNone && s != ""
}

func (s UQScheme) String() string { return string(s) }
