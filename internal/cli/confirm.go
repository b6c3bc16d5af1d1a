// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - The proceed prompt shown before a run touches any file.
//
// Confirmation flow:
//  1. --yes skips the prompt
//  2. --json and --no-prompt skip the prompt
//  3. A non-TTY stdin skips the prompt
//  4. Otherwise the run summary is shown and the user answers y/N

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/enomcrypt/internal/engine"
	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/util"
)

// runSummary is what a run is about to do.
type runSummary struct {
	Operation model.Operation
	Source    string
	Target    string
	Files     int
	Size      string
	Cipher    string
	KDF       string
	Threads   int
	Disposal  string
	Anonymize bool
	DryRun    bool
}

// summarize describes opts. Counts come from a scan of the source; a source
// that cannot be read is left for the engine to report.
func summarize(opts engine.Options, single bool) runSummary {
	s := runSummary{
		Operation: opts.Operation,
		Source:    opts.SourceRoot,
		Target:    opts.TargetRoot,
		Files:     -1,
		Size:      "unknown",
		Cipher:    "AES-256-" + opts.Mode.String(),
		KDF:       opts.KDF.String(),
		Threads:   opts.Threads,
		Disposal:  "kept",
		Anonymize: opts.Anonymize,
		DryRun:    opts.DryRun,
	}
	if abs, err := filepath.Abs(opts.SourceRoot); err == nil {
		s.Source = abs
	}
	if s.Target == "" {
		s.Target = "alongside the source"
	}
	switch {
	case opts.Shred != nil:
		s.Disposal = "shredded"
	case opts.DeleteSource:
		s.Disposal = "deleted"
	}

	if single {
		s.Threads = 1
		if info, err := os.Stat(s.Source); err == nil && info.Mode().IsRegular() {
			s.Files = 1
			s.Size = util.HumanBytes(uint64(info.Size()))
		}
		return s
	}
	if info, err := engine.Scan(s.Source); err == nil {
		s.Files = info.Files
		s.Size = info.HumanSize
	}
	return s
}

func (s runSummary) render(w io.Writer) {
	files := "unknown"
	if s.Files >= 0 {
		files = fmt.Sprint(s.Files)
	}

	fmt.Fprintln(w, TitleStyle.Render("About to "+s.Operation.String()))
	fmt.Fprintln(w, RenderSeparator(40))
	fmt.Fprintln(w, RenderField("Source", s.Source))
	fmt.Fprintln(w, RenderField("Target", s.Target))
	fmt.Fprintln(w, RenderField("Files", files))
	fmt.Fprintln(w, RenderField("Total size", s.Size))
	fmt.Fprintln(w, RenderField("Cipher", s.Cipher))
	fmt.Fprintln(w, RenderField("KDF", s.KDF))
	fmt.Fprintln(w, RenderField("Threads", fmt.Sprint(s.Threads)))
	fmt.Fprintln(w, RenderField("Source files", s.Disposal))
	fmt.Fprintln(w, RenderField("Anonymize", RenderYesNo(s.Anonymize)))
	fmt.Fprintln(w, RenderField("Dry run", RenderYesNo(s.DryRun)))
	if s.Disposal != "kept" && !s.DryRun {
		fmt.Fprintln(w, WarningStyle.Render("Source files are removed once their output is written."))
	}
}

// interactive reports whether the proceed prompt can be answered on stdin.
func (a *App) interactive() bool {
	if a.canPrompt != nil {
		return a.canPrompt(a.Stdin)
	}
	return CanPrompt(a.Stdin)
}

// confirmRun shows the run summary on stderr and asks to proceed. It
// returns true without asking when yes, --json or noPrompt is set or stdin
// is not a terminal.
func (a *App) confirmRun(opts engine.Options, single, yes, noPrompt bool) (bool, error) {
	if yes || a.jsonOut || noPrompt || !a.interactive() {
		return true, nil
	}

	summarize(opts, single).render(a.Stderr)
	fmt.Fprint(a.Stderr, "\nDo you wish to proceed? [y/N]: ")

	input, err := bufio.NewReader(a.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}
