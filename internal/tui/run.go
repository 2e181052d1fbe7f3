package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wonhada/parcopy/internal/engine"
)

// Run drives a single copy operation through the progress model until it
// completes. The engine copy itself runs on a background goroutine;
// ctrl+c in the model cancels the ctx this function derives internally,
// and Run does not return until that goroutine has actually finished —
// so the engine's own cancellation cleanup (incomplete-file removal) has
// always run by the time the caller regains control. A cancelled copy
// that reported no other error returns ctx's error.
func Run(parent context.Context, eng *engine.CopyEngine, src, dst string) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- eng.Copy(ctx, src, dst)
	}()

	m := New(src, dst, eng.Stats, done, cancel)
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		<-done // still wait for the copy to settle before surfacing the UI error
		return err
	}

	fm := finalModel.(Model)
	if !fm.finished {
		// the program loop exited before doneMsg arrived (e.g. the host
		// process itself is shutting down); block for the engine's
		// cleanup to complete rather than returning with a copy still
		// in flight.
		fm.err = <-done
	}
	if fm.err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return fm.err
}
