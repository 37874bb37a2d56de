package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/buildgov/internal/compiler"
	"github.com/roach88/buildgov/internal/ir"
)

// DescribeOptions holds flags for the describe command.
type DescribeOptions struct {
	*RootOptions
	ConceptFile string
	ConceptName string
}

// DescribeResult is a compiled concept with its content hash.
type DescribeResult struct {
	SpecHash string          `json:"spec_hash"`
	Concept  *ir.ConceptSpec `json:"concept"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DescribeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Show the compiled Project concept",
		Long: `Compile and validate the Project concept and print its actions, their
arguments, the roles allowed to call them and their output cases.

By default the built-in concept is described. --concept compiles a CUE
file instead, which is useful when editing the concept definition.

Examples:
  buildgov describe
  buildgov describe --concept ./project.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConceptFile, "concept", "", "CUE file to compile instead of the built-in concept")
	cmd.Flags().StringVar(&opts.ConceptName, "name", compiler.ProjectConceptName, "concept name within --concept")

	return cmd
}

func runDescribe(opts *DescribeOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	var (
		spec *ir.ConceptSpec
		err  error
	)
	if opts.ConceptFile != "" {
		out.VerboseLog("compiling %s (concept %s)", opts.ConceptFile, opts.ConceptName)
		spec, err = compiler.LoadFile(opts.ConceptFile, opts.ConceptName)
	} else {
		spec, err = compiler.LoadProjectConcept()
	}
	if err != nil {
		return WrapExitError(ExitFailure, "concept does not compile", err)
	}

	hash, err := ir.SpecHash(*spec)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash concept", err)
	}

	result := DescribeResult{SpecHash: hash, Concept: spec}
	return out.Render(result, func(w io.Writer) {
		writeConcept(w, result)
	})
}

func writeConcept(w io.Writer, r DescribeResult) {
	spec := r.Concept
	fmt.Fprintf(w, "Concept: %s\n", spec.Name)
	if spec.Purpose != "" {
		fmt.Fprintf(w, "  %s\n", strings.TrimSpace(spec.Purpose))
	}
	fmt.Fprintf(w, "Spec hash: %s\n", r.SpecHash)

	if len(spec.StateSchema) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "State:")
		for _, s := range spec.StateSchema {
			fmt.Fprintf(w, "  %s { %s }\n", s.Name, formatFields(s.Fields))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Actions:")
	for _, a := range spec.Actions {
		args := make([]string, len(a.Args))
		for i, arg := range a.Args {
			args[i] = arg.Name + ": " + arg.Type
		}
		fmt.Fprintf(w, "  %s(%s)\n", a.Name, strings.Join(args, ", "))
		if len(a.Requires) > 0 {
			fmt.Fprintf(w, "    requires: %s\n", strings.Join(a.Requires, " | "))
		}
		cases := make([]string, len(a.Outputs))
		for i, o := range a.Outputs {
			cases[i] = o.Case
		}
		fmt.Fprintf(w, "    outputs:  %s\n", strings.Join(cases, ", "))
	}
}

func formatFields(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + fields[name]
	}
	return strings.Join(parts, ", ")
}
