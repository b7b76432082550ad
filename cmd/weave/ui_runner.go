package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"weave/codegen"
	"weave/internal/driver"
	"weave/internal/recipe"
	"weave/internal/ui"
)

type buildOutcome struct {
	arts []*codegen.Artifact
	err  error
}

// runBuildWithUI runs BuildRecipe on its own goroutine while a progress
// view renders its events to out.
func runBuildWithUI(ctx context.Context, out io.Writer, title string, r *recipe.Recipe, opts driver.Options) ([]*codegen.Artifact, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		opts.Progress = driver.ChannelSink{Ch: events}
		arts, err := driver.BuildRecipe(ctx, r, opts)
		outcomeCh <- buildOutcome{arts: arts, err: err}
		close(events)
	}()

	names := make([]string, 0, len(r.Modules))
	for _, m := range r.Modules {
		names = append(names, m.Name)
	}
	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep the workers unblocked once nobody renders
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.arts, uiErr
	}
	return outcome.arts, outcome.err
}
