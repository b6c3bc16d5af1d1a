// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/util"
	"github.com/jeranaias/enomcrypt/internal/walk"
)

// ScanInfo is the operational summary of a tree, gathered without any key.
type ScanInfo struct {
	Root      string
	Files     int
	Folders   int // directories below the root
	Encrypted int // files already carrying the encrypted marker
	TotalSize uint64
	HumanSize string
	OS        string
}

// Scan walks root and summarizes it. Nothing is written.
func Scan(root string) (*ScanInfo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	coll, err := walk.Collect(abs)
	if err != nil {
		return nil, err
	}

	info := &ScanInfo{
		Root:      abs,
		Files:     len(coll.Files),
		Folders:   len(coll.Dirs) - 1,
		TotalSize: coll.TotalSize,
		HumanSize: util.HumanBytes(coll.TotalSize),
		OS:        runtime.GOOS,
	}
	for _, f := range coll.Files {
		if strings.HasSuffix(f, model.EncryptedExt) {
			info.Encrypted++
		}
	}
	return info, nil
}
