package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 100 * time.Millisecond

// watchProgram runs build once and again after every change to path, until
// interrupted. The directory is watched so that editors replacing the file
// by rename are noticed.
func watchProgram(cmd *cobra.Command, path string, build func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	build()
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", path)
	return watchLoop(ctx, w, abs, func() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s changed, recompiling\n", path)
		build()
	})
}

func watchLoop(ctx context.Context, w *fsnotify.Watcher, abs string, onChange func()) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		case <-fire:
			fire = nil
			onChange()
		}
	}
}
