package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/buildgov/internal/ir"
)

// CompileConcept parses a CUE value into a ConceptSpec.
//
// The CUE value should be the concept struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileBytes(src)
//	spec, err := CompileConcept(v.LookupPath(cue.ParsePath("concept.Project")))
func CompileConcept(v cue.Value) (*ir.ConceptSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ConceptSpec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	purposeVal := v.LookupPath(cue.ParsePath("purpose"))
	if !purposeVal.Exists() {
		return nil, &CompileError{
			Field:   "purpose",
			Message: "purpose is required",
			Pos:     v.Pos(),
		}
	}
	purpose, err := purposeVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Purpose = purpose

	spec.StateSchema, err = parseStates(v)
	if err != nil {
		return nil, err
	}

	spec.Actions, err = parseActions(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Actions) == 0 {
		return nil, &CompileError{
			Field:   "action",
			Message: "at least one action is required",
			Pos:     v.Pos(),
		}
	}

	return spec, nil
}

// parseStates extracts the state components of the concept.
func parseStates(v cue.Value) ([]ir.StateSchema, error) {
	var states []ir.StateSchema

	stateVal := v.LookupPath(cue.ParsePath("state"))
	if !stateVal.Exists() {
		return states, nil
	}

	iter, err := stateVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		fields, err := parseTypedFields(iter.Value())
		if err != nil {
			return nil, err
		}
		states = append(states, ir.StateSchema{Name: iter.Label(), Fields: fields})
	}

	return states, nil
}

// parseActions extracts action signatures in declaration order.
func parseActions(v cue.Value) ([]ir.ActionSig, error) {
	var actions []ir.ActionSig

	actionVal := v.LookupPath(cue.ParsePath("action"))
	if !actionVal.Exists() {
		return actions, nil
	}

	iter, err := actionVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		action, err := parseAction(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}

	return actions, nil
}

func parseAction(name string, v cue.Value) (ir.ActionSig, error) {
	action := ir.ActionSig{Name: name}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		argsIter, err := argsVal.Fields()
		if err != nil {
			return action, formatCUEError(err)
		}
		for argsIter.Next() {
			argType, err := extractTypeName(argsIter.Value())
			if err != nil {
				return action, err
			}
			action.Args = append(action.Args, ir.NamedArg{Name: argsIter.Label(), Type: argType})
		}
	}

	requiresVal := v.LookupPath(cue.ParsePath("requires"))
	if requiresVal.Exists() {
		reqIter, err := requiresVal.List()
		if err != nil {
			return action, formatCUEError(err)
		}
		for reqIter.Next() {
			role, err := reqIter.Value().String()
			if err != nil {
				return action, formatCUEError(err)
			}
			action.Requires = append(action.Requires, role)
		}
	}

	outputsVal := v.LookupPath(cue.ParsePath("outputs"))
	if !outputsVal.Exists() {
		return action, &CompileError{
			Field:   fmt.Sprintf("action.%s.outputs", name),
			Message: "action outputs are required",
			Pos:     v.Pos(),
		}
	}

	outputIter, err := outputsVal.List()
	if err != nil {
		return action, formatCUEError(err)
	}
	for outputIter.Next() {
		outVal := outputIter.Value()

		caseName, err := outVal.LookupPath(cue.ParsePath("case")).String()
		if err != nil {
			return action, formatCUEError(err)
		}

		output := ir.OutputCase{Case: caseName, Fields: map[string]string{}}
		fieldsVal := outVal.LookupPath(cue.ParsePath("fields"))
		if fieldsVal.Exists() {
			if output.Fields, err = parseTypedFields(fieldsVal); err != nil {
				return action, err
			}
		}
		action.Outputs = append(action.Outputs, output)
	}

	return action, nil
}

// parseTypedFields maps each field of a struct to its IR type name.
func parseTypedFields(v cue.Value) (map[string]string, error) {
	fields := make(map[string]string)
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		typeName, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		fields[iter.Label()] = typeName
	}
	return fields, nil
}

// extractTypeName converts a CUE type to an IR type string.
// Floats are rejected: amounts are integers.
func extractTypeName(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return "string", nil
	case cue.IntKind:
		return "int", nil
	case cue.BoolKind:
		return "bool", nil
	case cue.ListKind:
		return "array", nil
	case cue.StructKind:
		return "object", nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden, use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError converts the first CUE error into a CompileError carrying
// its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
