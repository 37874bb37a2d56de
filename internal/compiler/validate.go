package compiler

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/buildgov/internal/ir"
	"github.com/roach88/buildgov/internal/project"
)

// Validation error codes (E100-E199)
const (
	ErrConceptPurposeEmpty = "E101" // purpose is required
	ErrConceptNoActions    = "E102" // at least one action required
	ErrActionNoOutputs     = "E103" // action must have outputs
	ErrInvalidFieldType    = "E104" // invalid type string
	ErrDuplicateName       = "E105" // duplicate action/state/case name
	ErrFloatTypeForbidden  = "E106" // float types not allowed
	ErrUnknownRole         = "E107" // requires names an unknown role
	ErrUnknownOutputCase   = "E108" // output case is neither Success nor an error kind
	ErrInvalidActionName   = "E109" // action name is not lowerCamelCase
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var knownRoles = []string{
	project.RoleAdministrator,
	project.RoleRegulator,
	project.RoleContractorOrApproved,
	project.RoleAnyone,
}

var actionNamePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)

// Validate checks a compiled concept. Returns all errors found.
func Validate(spec *ir.ConceptSpec) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(spec.Purpose) == "" {
		errs = append(errs, ValidationError{
			Field:   "purpose",
			Message: "purpose is required and must be non-empty",
			Code:    ErrConceptPurposeEmpty,
		})
	}

	if len(spec.Actions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "actions",
			Message: "at least one action is required",
			Code:    ErrConceptNoActions,
		})
	}

	actionNames := make(map[string]bool)
	for i, action := range spec.Actions {
		field := fmt.Sprintf("actions[%d]", i)

		if actionNames[action.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate action name: %q", action.Name),
				Code:    ErrDuplicateName,
			})
		}
		actionNames[action.Name] = true

		if !actionNamePattern.MatchString(action.Name) {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("action name %q must be lowerCamelCase", action.Name),
				Code:    ErrInvalidActionName,
			})
		}

		if len(action.Outputs) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".outputs",
				Message: fmt.Sprintf("action %q must have at least one output case", action.Name),
				Code:    ErrActionNoOutputs,
			})
		}

		for j, role := range action.Requires {
			if !slices.Contains(knownRoles, role) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.requires[%d]", field, j),
					Message: fmt.Sprintf("unknown role %q", role),
					Code:    ErrUnknownRole,
				})
			}
		}

		for j, arg := range action.Args {
			errs = append(errs, validateFieldType(arg.Type, fmt.Sprintf("%s.args[%d].type", field, j), arg.Name)...)
		}

		seenCases := make(map[string]bool)
		for j, out := range action.Outputs {
			caseField := fmt.Sprintf("%s.outputs[%d]", field, j)
			if seenCases[out.Case] {
				errs = append(errs, ValidationError{
					Field:   caseField + ".case",
					Message: fmt.Sprintf("duplicate output case: %q", out.Case),
					Code:    ErrDuplicateName,
				})
			}
			seenCases[out.Case] = true

			if out.Case != ir.CaseSuccess && !slices.Contains(project.Kinds, project.Kind(out.Case)) {
				errs = append(errs, ValidationError{
					Field:   caseField + ".case",
					Message: fmt.Sprintf("output case %q is not Success or a known error kind", out.Case),
					Code:    ErrUnknownOutputCase,
				})
			}

			for _, fieldName := range sortedKeys(out.Fields) {
				errs = append(errs, validateFieldType(out.Fields[fieldName], caseField+".fields."+fieldName, fieldName)...)
			}
		}
	}

	stateNames := make(map[string]bool)
	for i, state := range spec.StateSchema {
		if stateNames[state.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("state_schema[%d].name", i),
				Message: fmt.Sprintf("duplicate state name: %q", state.Name),
				Code:    ErrDuplicateName,
			})
		}
		stateNames[state.Name] = true

		for _, fieldName := range sortedKeys(state.Fields) {
			errs = append(errs, validateFieldType(state.Fields[fieldName], fmt.Sprintf("state_schema[%d].fields.%s", i, fieldName), fieldName)...)
		}
	}

	return errs
}

// validateFieldType reports invalid and float type names.
func validateFieldType(fieldType, fieldPath, fieldName string) []ValidationError {
	if isFloatType(fieldType) {
		return []ValidationError{{
			Field:   fieldPath,
			Message: fmt.Sprintf("float type forbidden for field %q, use int instead", fieldName),
			Code:    ErrFloatTypeForbidden,
		}}
	}
	if !ir.ValidTypes[fieldType] {
		return []ValidationError{{
			Field:   fieldPath,
			Message: fmt.Sprintf("invalid type %q for field %q", fieldType, fieldName),
			Code:    ErrInvalidFieldType,
		}}
	}
	return nil
}

func isFloatType(t string) bool {
	switch t {
	case "float", "float32", "float64", "number", "double":
		return true
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
