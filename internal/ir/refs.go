package ir

import "strings"

// ActionRef is a typed reference to a concept action.
// Format: "Concept.action", e.g. "Project.approveBudget".
type ActionRef string

// Concept returns the concept half of the reference ("Project").
func (r ActionRef) Concept() string {
	concept, _, _ := strings.Cut(string(r), ".")
	return concept
}

// Action returns the action half of the reference ("approveBudget").
// A reference without a dot is treated as a bare action name.
func (r ActionRef) Action() string {
	concept, action, found := strings.Cut(string(r), ".")
	if !found {
		return concept
	}
	return action
}

// QualifyAction returns a full reference for action within concept. Names
// that are already qualified are returned unchanged.
func QualifyAction(concept, action string) ActionRef {
	if strings.Contains(action, ".") {
		return ActionRef(action)
	}
	return ActionRef(concept + "." + action)
}
