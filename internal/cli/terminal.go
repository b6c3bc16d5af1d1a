// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for enomcrypt.
//
// Prompts and the progress bar need a terminal. Colors follow stdout and
// the NO_COLOR / FORCE_COLOR variables.

package cli

import (
	"io"
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// fallbackWidth is used when the stream is not a terminal.
const fallbackWidth = 80

// isTerminal reports whether the stream is an *os.File attached to a terminal.
func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// CanPrompt reports whether credentials and confirmations can be read from in.
func CanPrompt(in io.Reader) bool {
	return isTerminal(in)
}

// terminalWidth returns the column count of the terminal behind stream.
func terminalWidth(stream any) int {
	if f, ok := stream.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return fallbackWidth
}

var colors = sync.OnceValue(func() bool {
	switch {
	case os.Getenv("NO_COLOR") != "":
		return false
	case os.Getenv("FORCE_COLOR") != "":
		return true
	default:
		return isTerminal(os.Stdout)
	}
})

// ColorsEnabled reports whether styled output should carry color. NO_COLOR
// wins over FORCE_COLOR; without either, stdout must be a terminal.
func ColorsEnabled() bool {
	return colors()
}

// GetColorProfile returns the termenv profile lipgloss and the progress bar
// render with: Ascii when colors are off.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
