package compiler

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/buildgov/internal/ir"
)

// ProjectConceptSource is the built-in Project concept definition.
//
//go:embed project.cue
var ProjectConceptSource []byte

// ProjectConceptName is the concept path compiled from the source.
const ProjectConceptName = "Project"

// LoadProjectConcept compiles and validates the built-in Project concept.
func LoadProjectConcept() (*ir.ConceptSpec, error) {
	return Load(ProjectConceptSource, "project.cue", ProjectConceptName)
}

// LoadFile compiles and validates the named concept from a CUE file.
func LoadFile(path, concept string) (*ir.ConceptSpec, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read concept file: %w", err)
	}
	return Load(src, path, concept)
}

// Load compiles src and returns the concept at concept.<name>, failing if
// the result does not validate.
func Load(src []byte, filename, name string) (*ir.ConceptSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	conceptVal := v.LookupPath(cue.MakePath(cue.Str("concept"), cue.Str(name)))
	if !conceptVal.Exists() {
		return nil, &CompileError{
			Field:   "concept." + name,
			Message: "concept not found",
			Pos:     v.Pos(),
		}
	}

	spec, err := CompileConcept(conceptVal)
	if err != nil {
		return nil, err
	}

	if errs := Validate(spec); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("concept %s is invalid: %s", name, strings.Join(msgs, "; "))
	}
	return spec, nil
}
