package ir

import "fmt"

// ValidTypes defines the allowed type strings for action args and output fields.
// There is no "float".
var ValidTypes = map[string]bool{
	"string": true,
	"int":    true,
	"bool":   true,
	"array":  true,
	"object": true,
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the signature itself. Returns all errors, not just the first.
func (a *ActionSig) Validate() []ValidationError {
	var errs []ValidationError

	if len(a.Outputs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "outputs",
			Message: "at least one output case is required",
		})
	}

	seenCases := make(map[string]bool)
	for i, out := range a.Outputs {
		if seenCases[out.Case] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("outputs[%d].case", i),
				Message: fmt.Sprintf("duplicate output case name: %q", out.Case),
			})
		}
		seenCases[out.Case] = true

		for fieldName, fieldType := range out.Fields {
			if !ValidTypes[fieldType] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("outputs[%d].fields.%s", i, fieldName),
					Message: fmt.Sprintf("invalid type %q", fieldType),
				})
			}
		}
	}

	seenArgs := make(map[string]bool)
	for i, arg := range a.Args {
		if seenArgs[arg.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("args[%d].name", i),
				Message: fmt.Sprintf("duplicate arg name: %q", arg.Name),
			})
		}
		seenArgs[arg.Name] = true
		if !ValidTypes[arg.Type] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("args[%d].type", i),
				Message: fmt.Sprintf("invalid type %q for arg %q", arg.Type, arg.Name),
			})
		}
	}

	return errs
}

// HasOutput reports whether the signature declares the named output case.
func (a ActionSig) HasOutput(name string) bool {
	for _, o := range a.Outputs {
		if o.Case == name {
			return true
		}
	}
	return false
}

// CheckArgs validates invocation args against the signature: every declared
// arg must be present with the declared type and no undeclared arg may appear.
func (a ActionSig) CheckArgs(args IRObject) []ValidationError {
	var errs []ValidationError
	declared := make(map[string]bool, len(a.Args))
	for _, arg := range a.Args {
		declared[arg.Name] = true
		v, ok := args[arg.Name]
		if !ok {
			errs = append(errs, ValidationError{Field: arg.Name, Message: "missing required arg"})
			continue
		}
		if got := TypeName(v); got != arg.Type {
			errs = append(errs, ValidationError{
				Field:   arg.Name,
				Message: fmt.Sprintf("expected %s, got %s", arg.Type, got),
			})
		}
	}
	for _, k := range args.SortedKeys() {
		if !declared[k] {
			errs = append(errs, ValidationError{Field: k, Message: "unknown arg"})
		}
	}
	return errs
}

// TypeName returns the signature type name of v.
func TypeName(v IRValue) string {
	switch v.(type) {
	case IRString:
		return "string"
	case IRInt:
		return "int"
	case IRBool:
		return "bool"
	case IRArray:
		return "array"
	case IRObject:
		return "object"
	case IRNull:
		return "null"
	default:
		return "unknown"
	}
}
