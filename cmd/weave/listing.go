package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weave/internal/driver"
	"weave/internal/listing"
	"weave/internal/recipe"
	"weave/internal/trace"
	"weave/internal/version"
)

func newListingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listing [recipe.toml]",
		Short: "Print the pseudo-source of each module with the IR opcodes stamped on every line",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listingExecution,
	}
	cmd.Flags().String("module", "", "only list this module")
	cmd.Flags().Int("width", 0, "truncate source lines to this many columns (0 = no limit)")
	return cmd
}

func listingExecution(cmd *cobra.Command, args []string) error {
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	only, err := cmd.Flags().GetString("module")
	if err != nil {
		return fmt.Errorf("failed to get module flag: %w", err)
	}
	width, err := cmd.Flags().GetInt("width")
	if err != nil {
		return fmt.Errorf("failed to get width flag: %w", err)
	}

	r, err := loadRecipe(args)
	if err != nil {
		return err
	}
	if only != "" {
		m, ok := r.Module(only)
		if !ok {
			return fmt.Errorf("%s: no module named %q", r.Path, only)
		}
		r = &recipe.Recipe{Path: r.Path, Root: r.Root, Modules: []recipe.Module{m}}
	}

	ctx := cmd.Context()
	arts, err := driver.BuildRecipe(ctx, r, driver.Options{
		Producer: version.Producer(),
		Tracer:   trace.FromContext(ctx),
	})
	if err != nil {
		dumpRing(cmd, "listing failed")
		return err
	}

	opts := listing.Options{Color: useColor(cmd, os.Stdout), Width: width}
	out := cmd.OutOrStdout()
	for i, art := range arts {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := listing.Render(out, art, opts); err != nil {
			return err
		}
	}
	return nil
}
