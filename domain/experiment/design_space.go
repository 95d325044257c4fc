package experiment

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Design-space categories the planner reads.
const (
	CategoryReconFamilies = "recon_families"
	CategoryUQSchemes     = "uq_schemes"
)

var designSpaceValidate = validator.New()

// DesignSpace maps a category name to its allowed values. Categories other
// than recon_families and uq_schemes are carried but not interpreted.
type DesignSpace map[string][]string

// DefaultDesignSpace declares every registered family and scheme
func DefaultDesignSpace() DesignSpace {
	ds := DesignSpace{}
	for _, f := range KnownReconFamilies {
		ds[CategoryReconFamilies] = append(ds[CategoryReconFamilies], string(f))
	}
	for _, s := range KnownUQSchemes {
		ds[CategoryUQSchemes] = append(ds[CategoryUQSchemes], string(s))
	}
	return ds
}

// ReconFamilies returns the declared families in declaration order
func (d DesignSpace) ReconFamilies() []ReconFamily {
	values := d[CategoryReconFamilies]
	out := make([]ReconFamily, 0, len(values))
	for _, v := range values {
		out = append(out, ReconFamily(v))
	}
	return out
}

// UQSchemes returns the declared schemes in declaration order
func (d DesignSpace) UQSchemes() []UQScheme {
	values := d[CategoryUQSchemes]
	out := make([]UQScheme, 0, len(values))
	for _, v := range values {
		out = append(out, UQScheme(v))
	}
	return out
}

// HasReconFamily reports whether f is declared
func (d DesignSpace) HasReconFamily(f ReconFamily) bool {
	for _, v := range d[CategoryReconFamilies] {
		if v == string(f) {
			return true
		}
	}
	return false
}

// Categories returns the category names sorted
func (d DesignSpace) Categories() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies the design space
func (d DesignSpace) Clone() DesignSpace {
	if d == nil {
		return nil
	}
	out := make(DesignSpace, len(d))
	for k, v := range d {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Validate rejects empty category names and empty values.
func (d DesignSpace) Validate() error {
	if err := designSpaceValidate.Var(map[string][]string(d), "dive,keys,required,endkeys,dive,required"); err != nil {
		return fmt.Errorf("invalid design space: %w", err)
	}
	return nil
}
