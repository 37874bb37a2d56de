package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/buildgov/internal/engine"
	"github.com/roach88/buildgov/internal/store"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Administrator string
}

// CreateResult describes a newly created project.
type CreateResult struct {
	Database      string `json:"database"`
	Administrator string `json:"administrator"`
	SpecHash      string `json:"spec_hash"`
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project in a new database",
		Long: `Create a project administered by the given identity.

The database is created if it does not exist. A database holds exactly one
project; creating a second one fails.

Examples:
  buildgov create --db ./site.db --admin alice`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Administrator, "admin", "", "administrator identity (required)")
	_ = cmd.MarkFlagRequired("admin")

	return cmd
}

func runCreate(opts *CreateOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	out := opts.formatter(cmd)

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	eng, err := engine.Create(ctx, st, opts.Administrator)
	if errors.Is(err, store.ErrProjectExists) {
		_ = out.Error(CodeProjectExists, "database already holds a project", map[string]string{"database": opts.Config.Database})
		return WrapExitError(ExitCommandError, "project already exists", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create project", err)
	}
	exportMetrics(opts.RootOptions, eng)

	result := CreateResult{
		Database:      opts.Config.Database,
		Administrator: opts.Administrator,
		SpecHash:      eng.SpecHash(),
	}
	return out.Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "Created project in %s\n", result.Database)
		fmt.Fprintf(w, "  Administrator: %s\n", result.Administrator)
		fmt.Fprintf(w, "  Spec hash:     %s\n", result.SpecHash)
	})
}
