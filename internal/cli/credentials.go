// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// credentials.go - Password and salt input for enomcrypt runs.
//
// SECURITY: Credentials are read into byte slices that the engine zeroes
// when the run ends. They are never placed in flags or the environment.

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/jeranaias/enomcrypt/internal/engine"
	"github.com/jeranaias/enomcrypt/internal/security"
)

// ErrPasswordMismatch is returned when the confirmation prompt differs.
var ErrPasswordMismatch = errors.New("passwords do not match")

// readPasswordFile reads a credentials file: the password on the first line
// and the salt on the second. Both are required.
func readPasswordFile(path string) (engine.Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Credentials{}, fmt.Errorf("failed to read password file: %w", err)
	}
	defer security.ZeroBytes(data)

	lines := bytes.SplitN(data, []byte("\n"), 3)
	if len(lines) < 2 {
		return engine.Credentials{}, fmt.Errorf("%w: password file %s needs the password on line 1 and the salt on line 2", engine.ErrMissingCredentials, path)
	}
	password := bytes.TrimRight(lines[0], "\r")
	salt := bytes.TrimRight(lines[1], "\r")
	if len(password) == 0 || len(salt) == 0 {
		return engine.Credentials{}, fmt.Errorf("%w: password file %s has an empty password or salt line", engine.ErrMissingCredentials, path)
	}

	return engine.Credentials{
		Password: bytes.Clone(password),
		Salt:     bytes.Clone(salt),
	}, nil
}

// promptCredentials asks for the password (twice when confirm is set) and
// the salt on the terminal behind in. Prompts go to out.
func promptCredentials(in *os.File, out io.Writer, confirm bool) (engine.Credentials, error) {
	fd := int(in.Fd())

	password, err := promptSecret(fd, out, "Password: ")
	if err != nil {
		return engine.Credentials{}, err
	}
	if confirm {
		again, err := promptSecret(fd, out, "Confirm password: ")
		if err != nil {
			security.ZeroBytes(password)
			return engine.Credentials{}, err
		}
		match := bytes.Equal(password, again)
		security.ZeroBytes(again)
		if !match {
			security.ZeroBytes(password)
			return engine.Credentials{}, ErrPasswordMismatch
		}
	}

	salt, err := promptSecret(fd, out, "Salt: ")
	if err != nil {
		security.ZeroBytes(password)
		return engine.Credentials{}, err
	}

	return engine.Credentials{Password: password, Salt: salt}, nil
}

func promptSecret(fd int, out io.Writer, label string) ([]byte, error) {
	fmt.Fprint(out, label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", label[:len(label)-2], err)
	}
	return secret, nil
}

// credentials resolves the run credentials: the password file when given,
// otherwise an interactive prompt. Without either the run cannot start.
func (a *App) credentials(passwordFile string, noPrompt, confirm bool) (engine.Credentials, error) {
	if passwordFile != "" {
		return readPasswordFile(passwordFile)
	}
	if noPrompt || !CanPrompt(a.Stdin) {
		return engine.Credentials{}, engine.ErrMissingCredentials
	}
	return promptCredentials(a.Stdin.(*os.File), a.Stderr, confirm)
}
