package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"sierracasm/internal/buildpipeline"
	"sierracasm/internal/ui"
)

type buildOutcome struct {
	result buildpipeline.Result
	err    error
}

// runBuildWithUI runs the batch while a progress view consumes its events.
func runBuildWithUI(ctx context.Context, title string, req buildpipeline.Request) (buildpipeline.Result, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	req.Progress = buildpipeline.ChannelSink{Ch: events}
	go func() {
		res, err := buildpipeline.Build(ctx, &req)
		outcomeCh <- buildOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, req.Files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// Keep the pipeline from blocking on a full channel.
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
