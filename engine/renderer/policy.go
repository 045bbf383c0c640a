package renderer

import (
	"fmt"
	"strings"
)

// SkinningPolicy chooses between CPU skinning and vertex texture fetch skinning.
type SkinningPolicy int

const (
	// PolicyVTF always skins on the GPU from the skinning texture.
	PolicyVTF SkinningPolicy = iota

	// PolicyCPU always skins on the CPU and uploads vertices per instance.
	PolicyCPU

	// PolicyAuto skins on the CPU up to the configured instance threshold, on the GPU above it.
	PolicyAuto
)

// String returns the config name of the policy.
func (p SkinningPolicy) String() string {
	switch p {
	case PolicyVTF:
		return "vtf"
	case PolicyCPU:
		return "cpu"
	case PolicyAuto:
		return "auto"
	}
	return fmt.Sprintf("SkinningPolicy(%d)", int(p))
}

// ParseSkinningPolicy parses a config name into a SkinningPolicy.
//
// Parameters:
//   - s: "vtf", "cpu" or "auto", case insensitive
//
// Returns:
//   - SkinningPolicy: the parsed policy
//   - error: an error if the name is unknown
func ParseSkinningPolicy(s string) (SkinningPolicy, error) {
	switch strings.ToLower(s) {
	case "vtf", "gpu":
		return PolicyVTF, nil
	case "cpu":
		return PolicyCPU, nil
	case "auto":
		return PolicyAuto, nil
	}
	return 0, fmt.Errorf("unknown skinning policy %q", s)
}

// UseCPU reports whether the policy skins instanceCount instances on the CPU.
func (p SkinningPolicy) UseCPU(instanceCount, threshold int) bool {
	switch p {
	case PolicyCPU:
		return true
	case PolicyAuto:
		return instanceCount <= threshold
	}
	return false
}
