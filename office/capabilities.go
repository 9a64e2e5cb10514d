package office

import (
	"fmt"
	"strconv"
	"strings"
)

// Requirement sets probed by the pipeline.
const (
	SetPowerPointAPI = "PowerPointApi"
	SetWordAPI       = "WordApi"
	SetImageCoercion = "ImageCoercion"
)

// CapabilitySet records which host API tiers are available for one pipeline run.
// It is computed once by Probe and never modified afterwards.
type CapabilitySet struct {
	// Host is the host application type.
	Host HostType `json:"host"`
	// PowerPointAPI18 is the baseline shape API tier.
	PowerPointAPI18 bool `json:"powerpoint_api_1_8"`
	// PowerPointAPI110 is required for reliable per-shape image export.
	PowerPointAPI110 bool `json:"powerpoint_api_1_10"`
	// ImageCoercion12 backs the generic selection-as-image path.
	ImageCoercion12 bool `json:"image_coercion_1_2"`
	// WordAPI11 backs inline picture extraction and replacement.
	WordAPI11 bool `json:"word_api_1_1"`
}

// Probe reads the environment descriptors. It performs no I/O and never fails: an
// absent capability is reported as false.
//
// Arguments:
// - env: The host environment, may be nil.
//
// Returns:
// - The capability set for the current host.
func Probe(env Environment) CapabilitySet {
	if env == nil {
		return CapabilitySet{Host: HostUnknown}
	}
	return CapabilitySet{
		Host:             env.Host(),
		PowerPointAPI18:  env.IsSetSupported(SetPowerPointAPI, "1.8"),
		PowerPointAPI110: env.IsSetSupported(SetPowerPointAPI, "1.10"),
		ImageCoercion12:  env.IsSetSupported(SetImageCoercion, "1.2"),
		WordAPI11:        env.IsSetSupported(SetWordAPI, "1.1"),
	}
}

// RichestTier reports whether the host-specific tier for the host type is present.
func (c CapabilitySet) RichestTier() bool {
	switch c.Host {
	case HostPowerPoint:
		return c.PowerPointAPI110
	case HostWord:
		return c.WordAPI11
	default:
		return false
	}
}

// Summary lists the probe results, one per line, for diagnostic messages.
func (c CapabilitySet) Summary() string {
	return fmt.Sprintf("- %s 1.8: %t\n- %s 1.10: %t\n- %s 1.2: %t\n- %s 1.1: %t",
		SetPowerPointAPI, c.PowerPointAPI18,
		SetPowerPointAPI, c.PowerPointAPI110,
		SetImageCoercion, c.ImageCoercion12,
		SetWordAPI, c.WordAPI11)
}

// StaticEnvironment is an Environment backed by a fixed table of requirement sets,
// mapping set name to the highest supported version.
type StaticEnvironment struct {
	HostType HostType          `json:"host" yaml:"host"`
	Sets     map[string]string `json:"requirements" yaml:"requirements"`
}

// Host returns the configured host type.
func (e StaticEnvironment) Host() HostType {
	if e.HostType == "" {
		return HostUnknown
	}
	return e.HostType
}

// IsSetSupported compares the configured version of name against minVersion.
func (e StaticEnvironment) IsSetSupported(name, minVersion string) bool {
	for set, have := range e.Sets {
		if strings.EqualFold(set, name) {
			return VersionAtLeast(have, minVersion)
		}
	}
	return false
}

// VersionAtLeast compares dotted numeric versions segment by segment, so "1.10" is
// newer than "1.8". Missing segments count as zero; malformed versions never match.
func VersionAtLeast(have, want string) bool {
	h, ok := parseVersion(have)
	if !ok {
		return false
	}
	w, ok := parseVersion(want)
	if !ok {
		return false
	}
	for len(h) < len(w) {
		h = append(h, 0)
	}
	for len(w) < len(h) {
		w = append(w, 0)
	}
	for i := range h {
		if h[i] != w[i] {
			return h[i] > w[i]
		}
	}
	return true
}

func parseVersion(v string) ([]int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, false
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
