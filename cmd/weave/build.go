package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"weave/codegen"
	"weave/internal/driver"
	"weave/internal/observ"
	"weave/internal/trace"
	"weave/internal/version"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [recipe.toml]",
		Short: "Build every module of a recipe and write .ll, pseudo-source and line tables",
		Args:  cobra.MaximumNArgs(1),
		RunE:  buildExecution,
	}
	cmd.Flags().StringP("output", "o", "", "output directory (default: <recipe dir>/build)")
	cmd.Flags().Int("jobs", 0, "modules built in parallel (0 = GOMAXPROCS)")
	cmd.Flags().Bool("timings", false, "print per-module build timings")
	cmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	return cmd
}

func buildExecution(cmd *cobra.Command, args []string) error {
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

	outDir, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	uiMode, err := parseTriState("ui", uiValue)
	if err != nil {
		return err
	}

	r, err := loadRecipe(args)
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = filepath.Join(r.Root, "build")
	}

	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
	}
	ctx := cmd.Context()
	opts := driver.Options{
		Jobs:     jobs,
		Producer: version.Producer(),
		Tracer:   trace.FromContext(ctx),
		Timer:    timer,
	}
	var arts []*codegen.Artifact
	if !quiet(cmd) && uiMode.enabled(os.Stdout) {
		arts, err = runBuildWithUI(ctx, cmd.OutOrStdout(), "build "+filepath.Base(r.Path), r, opts)
	} else {
		arts, err = driver.BuildRecipe(ctx, r, opts)
	}
	if err != nil {
		dumpRing(cmd, "build failed")
		return err
	}

	out := cmd.OutOrStdout()
	for _, art := range arts {
		written, err := driver.WriteArtifact(outDir, art)
		if err != nil {
			return err
		}
		if !quiet(cmd) {
			fmt.Fprintf(out, "%s %s -> %s (%d function(s), %d line(s))\n",
				color.GreenString("built"), art.Name, written.IR, len(art.Functions), len(art.Lines.Lines()))
		}
	}
	if timer != nil {
		fmt.Fprint(out, timer.Summary())
	}
	return nil
}
