// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"sync"

	bar "github.com/charmbracelet/bubbles/progress"

	"github.com/jeranaias/enomcrypt/internal/progress"
)

// progressView draws tracker snapshots as a single redrawn progress line.
type progressView struct {
	mu    sync.Mutex
	w     io.Writer
	model bar.Model
	done  bool
}

func newProgressView(w io.Writer, width int) *progressView {
	barWidth := width - 24
	if barWidth < 10 {
		barWidth = 10
	}
	return &progressView{
		w: w,
		model: bar.New(
			bar.WithDefaultGradient(),
			bar.WithWidth(barWidth),
			bar.WithColorProfile(GetColorProfile()),
		),
	}
}

// Emit implements progress.Observer.
func (v *progressView) Emit(s progress.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.done {
		return
	}
	fmt.Fprintf(v.w, "\r%s %d/%d", v.model.ViewAs(s.Percentage/100), s.Current, s.Total)
	if s.Final {
		fmt.Fprintln(v.w)
		v.done = true
	}
}

// observer returns the progress observer for a run, or nil when the bar
// would interleave with logs or JSON.
func (a *App) observer() progress.Observer {
	if a.jsonOut || a.cfg.Verbose || !isTerminal(a.Stderr) {
		return nil
	}
	return newProgressView(a.Stderr, terminalWidth(a.Stderr))
}
