package common

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Version1 is the single-asset vault logic.
	Version1 = 1*1_000_000 + 0*1_000 + 0

	// Version2 is the multi-asset vault logic. It can be installed over
	// Version1 only.
	Version2 = 2*1_000_000 + 0*1_000 + 0
)

// MakeVersion packs semantic version numbers into a single comparable integer.
func MakeVersion(major, minor, patch int) int {
	return major*1_000_000 + minor*1_000 + patch
}

// FormatVersion returns dot-separated representation of the packed version.
func FormatVersion(v int) string {
	major := v / 1_000_000
	minor := v / 1_000 % 1_000
	patch := v % 1_000

	return strconv.Itoa(major) + "." + strconv.Itoa(minor) + "." + strconv.Itoa(patch)
}

// ParseVersion parses dot-separated version as returned by FormatVersion.
// Minor and patch numbers can be omitted.
func ParseVersion(s string) (int, error) {
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid version %q", s)
	}

	var nums [3]int
	for i := range parts {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 || (i > 0 && n >= 1_000) {
			return 0, fmt.Errorf("invalid version %q", s)
		}
		nums[i] = n
	}
	return MakeVersion(nums[0], nums[1], nums[2]), nil
}

// CheckVersion checks that logic of version from can be replaced by logic
// of version to which migrates data starting from version prev.
func CheckVersion(from, to, prev int) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrAlreadyUpdated, FormatVersion(to))
	}
	if from < prev || from > to {
		return fmt.Errorf("%w: expected >=%s and <%s, got %s",
			ErrVersionMismatch, FormatVersion(prev), FormatVersion(to), FormatVersion(from))
	}
	return nil
}
