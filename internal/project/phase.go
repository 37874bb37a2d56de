package project

import "fmt"

// Phase is an ordered lifecycle stage. Comparison is by ordinal.
type Phase int

// Phases in lifecycle order.
const (
	PreConstruction Phase = iota
	Construction
	PostConstruction
	Maintenance
)

var phaseNames = [...]string{"PreConstruction", "Construction", "PostConstruction", "Maintenance"}

// Phases returns every phase in order.
func Phases() []Phase {
	return []Phase{PreConstruction, Construction, PostConstruction, Maintenance}
}

// Valid reports whether p is a declared phase.
func (p Phase) Valid() bool {
	return p >= PreConstruction && p <= Maintenance
}

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParsePhase returns the phase with the given name.
func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return 0, newError("", KindInvalidArgument, "unknown phase %q", name)
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	v, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Milestone is a discrete construction deliverable.
type Milestone int

// Milestones in declaration order.
const (
	Foundation Milestone = iota
	Framing
	Roofing
	Interior
	Handover

	milestoneCount = iota
)

var milestoneNames = [milestoneCount]string{"Foundation", "Framing", "Roofing", "Interior", "Handover"}

// Milestones returns every milestone in order.
func Milestones() []Milestone {
	return []Milestone{Foundation, Framing, Roofing, Interior, Handover}
}

// Valid reports whether m is a declared milestone.
func (m Milestone) Valid() bool {
	return m >= Foundation && m < milestoneCount
}

func (m Milestone) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Milestone(%d)", int(m))
	}
	return milestoneNames[m]
}

// ParseMilestone returns the milestone with the given name.
func ParseMilestone(name string) (Milestone, error) {
	for i, n := range milestoneNames {
		if n == name {
			return Milestone(i), nil
		}
	}
	return 0, newError("", KindInvalidArgument, "unknown milestone %q", name)
}
