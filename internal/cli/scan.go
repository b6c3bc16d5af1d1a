// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// scan.go - The scan command: operational info about a tree, no key needed.
//
// Command: scan <directory>
//
// Examples:
//   enomcrypt scan ~/Documents
//   enomcrypt scan ./backup --json

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/enomcrypt/internal/engine"
	"github.com/jeranaias/enomcrypt/internal/walk"
)

// scanView is the JSON form of a scan.
type scanView struct {
	Root      string `json:"root"`
	Files     int    `json:"files"`
	Folders   int    `json:"folders"`
	Encrypted int    `json:"encrypted"`
	TotalSize uint64 `json:"total_size"`
	HumanSize string `json:"human_size"`
	OS        string `json:"os"`
	Allowed   bool   `json:"allowed"`
	Refusal   string `json:"refusal,omitempty"`
}

func (a *App) scanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <directory>",
		Short: "Count files, folders and bytes under a directory",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(args[0])
		},
	}
}

func (a *App) runScan(root string) error {
	info, err := engine.Scan(root)
	if err != nil {
		return err
	}

	view := scanView{
		Root:      info.Root,
		Files:     info.Files,
		Folders:   info.Folders,
		Encrypted: info.Encrypted,
		TotalSize: info.TotalSize,
		HumanSize: info.HumanSize,
		OS:        info.OS,
		Allowed:   true,
	}
	if err := walk.CheckAllowed(info.Root); err != nil {
		view.Allowed = false
		view.Refusal = err.Error()
	}

	if a.jsonOut {
		return NewJSONResponse("scan", view).Print(a.Stdout)
	}

	w := a.Stdout
	fmt.Fprintln(w, TitleStyle.Render("Scan of "+view.Root))
	fmt.Fprintln(w, RenderSeparator(40))
	fmt.Fprintln(w, RenderField("Files", fmt.Sprint(view.Files)))
	fmt.Fprintln(w, RenderField("Folders", fmt.Sprint(view.Folders)))
	fmt.Fprintln(w, RenderField("Encrypted", fmt.Sprint(view.Encrypted)))
	fmt.Fprintln(w, RenderField("Total size", view.HumanSize))
	fmt.Fprintln(w, RenderField("OS", view.OS))
	fmt.Fprintln(w, RenderField("Allowed", RenderYesNo(view.Allowed)))
	if view.Refusal != "" {
		fmt.Fprintln(w, WarningStyle.Render(view.Refusal))
	}
	return nil
}
