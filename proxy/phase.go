package proxy

import "github.com/nspcc-dev/sharevault/common"

// Phase is a state of the upgrade machine.
type Phase uint8

const (
	PhaseV1Active Phase = iota
	PhaseUpgrading
	PhaseV2Active
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseV1Active:
		return "V1_ACTIVE"
	case PhaseUpgrading:
		return "UPGRADING"
	case PhaseV2Active:
		return "V2_ACTIVE"
	default:
		return "UNKNOWN"
	}
}

func phaseOf(version int) Phase {
	if version >= common.Version2 {
		return PhaseV2Active
	}
	return PhaseV1Active
}
