// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// run_cmd.go - The dir and file commands.
//
// Command: dir <encrypt|decrypt> <directory>
// Command: file <encrypt|decrypt> <file>
//
// Examples:
//   enomcrypt dir encrypt ~/Documents --target /mnt/backup/docs
//   enomcrypt dir decrypt /mnt/backup/docs --target ~/restored
//   enomcrypt dir encrypt ./photos --delete --anon --manifest ./photos.db
//   enomcrypt dir encrypt ./old --mode ecb --kdf pbkdf2 --iterations 60000
//   enomcrypt file encrypt ./report.pdf --shred
//   enomcrypt dir encrypt ./projects --dry-run
//   enomcrypt dir encrypt ./projects --yes --password-file ~/.enomcrypt/creds

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jeranaias/enomcrypt/internal/config"
	"github.com/jeranaias/enomcrypt/internal/engine"
	"github.com/jeranaias/enomcrypt/internal/manifest"
	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/pipeline"
	"github.com/jeranaias/enomcrypt/internal/report"
)

// runFlags are the flags shared by dir and file.
type runFlags struct {
	mode       string
	kdf        string
	iterations uint32
	threads    int
	target     string

	deleteSource    bool
	shred           bool
	shredIterations int
	renameTimes     int

	anon     bool
	manifest string
	dryRun   bool

	passwordFile string
	noPrompt     bool
	yes          bool
}

func (f *runFlags) register(fs *pflag.FlagSet, withThreads bool) {
	fs.StringVarP(&f.mode, "mode", "m", "", "cipher mode: gcm or ecb (ecb has no integrity check)")
	fs.StringVar(&f.kdf, "kdf", "", "key derivation: argon2id or pbkdf2")
	fs.Uint32Var(&f.iterations, "iterations", 0, "KDF iterations (0 uses the KDF default)")
	if withThreads {
		fs.IntVarP(&f.threads, "threads", "t", 0, "worker count (0 uses the configured value)")
	}
	fs.StringVarP(&f.target, "target", "o", "", "target directory (default: alongside the source)")

	fs.BoolVar(&f.deleteSource, "delete", false, "delete each source file after its output is written")
	fs.BoolVar(&f.shred, "shred", false, "overwrite, rename and delete each source file after its output is written")
	fs.IntVar(&f.shredIterations, "shred-iterations", 0, "random overwrite passes for --shred")
	fs.IntVar(&f.renameTimes, "rename-times", 0, "random renames for --shred")

	fs.BoolVar(&f.anon, "anon", false, "replace encrypted file names with random identifiers")
	fs.StringVar(&f.manifest, "manifest", "", "SQLite manifest recording anonymized names")
	fs.BoolVarP(&f.dryRun, "dry-run", "n", false, "process files in memory without writing or deleting anything")

	fs.StringVar(&f.passwordFile, "password-file", "", "file with the password on line 1 and the salt on line 2")
	fs.BoolVar(&f.noPrompt, "no-prompt", false, "never prompt for credentials or confirmation")
	fs.BoolVarP(&f.yes, "yes", "y", false, "proceed without the confirmation prompt")
}

func (a *App) dirCommand() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "dir <encrypt|decrypt> <directory>",
		Short: "Encrypt or decrypt every file under a directory",
		Long: `Encrypt or decrypt every file under a directory, recreating the directory
structure under the target. Encrypted files carry the .enom suffix.

System locations are refused, and a tree that already holds .enom files is
refused for encryption.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOperation(cmd, f, args[0], args[1], false)
		},
	}
	f.register(cmd.Flags(), true)
	return cmd
}

func (a *App) fileCommand() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "file <encrypt|decrypt> <file>",
		Short: "Encrypt or decrypt a single file",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOperation(cmd, f, args[0], args[1], true)
		},
	}
	f.register(cmd.Flags(), false)
	return cmd
}

// buildOptions merges flags over the configuration.
func buildOptions(fs *pflag.FlagSet, f *runFlags, cfg *config.Config, opName, source string) (engine.Options, error) {
	op, err := model.ParseOperation(opName)
	if err != nil {
		return engine.Options{}, &ValidationError{Field: "operation", Value: opName, Reason: "must be encrypt or decrypt", Example: "enomcrypt dir encrypt ./docs"}
	}

	modeName := cfg.Mode
	if fs.Changed("mode") {
		modeName = f.mode
	}
	mode, err := model.ParseMode(modeName)
	if err != nil {
		return engine.Options{}, &ValidationError{Field: "mode", Value: modeName, Reason: "must be gcm or ecb"}
	}

	kdfName := cfg.KDF
	if fs.Changed("kdf") {
		kdfName = f.kdf
	}
	kdf, err := model.ParseKDF(kdfName)
	if err != nil {
		return engine.Options{}, &ValidationError{Field: "kdf", Value: kdfName, Reason: "must be argon2id or pbkdf2"}
	}

	opts := engine.Options{
		Operation:    op,
		Mode:         mode,
		KDF:          kdf,
		Iterations:   cfg.Iterations,
		Threads:      cfg.Threads,
		SourceRoot:   source,
		TargetRoot:   f.target,
		DeleteSource: f.deleteSource,
		Anonymize:    f.anon,
		DryRun:       f.dryRun,
		Verbose:      cfg.Verbose,
	}
	if fs.Changed("iterations") {
		opts.Iterations = f.iterations
	}
	if fs.Changed("threads") && f.threads != 0 {
		opts.Threads = f.threads
	}

	if f.shred || cfg.Shred.Enabled {
		shred := &pipeline.ShredOptions{
			RandomIterations: cfg.Shred.RandomIterations,
			RenameTimes:      cfg.Shred.RenameTimes,
		}
		if fs.Changed("shred-iterations") {
			shred.RandomIterations = f.shredIterations
		}
		if fs.Changed("rename-times") {
			shred.RenameTimes = f.renameTimes
		}
		opts.Shred = shred
	}

	if opts.Anonymize && op == model.Decrypt {
		return engine.Options{}, &ValidationError{Field: "anon", Reason: "only applies to encrypt; decrypt restores names from --manifest"}
	}
	return opts, nil
}

// runOperation resolves options and credentials, runs the engine and
// displays the result.
func (a *App) runOperation(cmd *cobra.Command, f *runFlags, opName, source string, single bool) error {
	opts, err := buildOptions(cmd.Flags(), f, a.cfg, opName, source)
	if err != nil {
		return err
	}

	proceed, err := a.confirmRun(opts, single, f.yes, f.noPrompt)
	if err != nil {
		return err
	}
	if !proceed {
		fmt.Fprintln(a.Stderr, DimStyle.Render("Cancelled. No files were touched."))
		return nil
	}

	manifestPath := a.cfg.Manifest.Path
	if f.manifest != "" {
		manifestPath = f.manifest
	}

	engineOpts := []engine.Option{
		engine.WithLogger(a.log),
	}
	if obs := a.observer(); obs != nil {
		engineOpts = append(engineOpts, engine.WithObserver(obs))
	}
	if manifestPath != "" && (opts.Anonymize || opts.Operation == model.Decrypt) {
		store, err := manifest.Open(manifestPath)
		if err != nil {
			return err
		}
		defer store.Close()
		engineOpts = append(engineOpts, engine.WithNameBook(store))
	}

	if opts.Mode == model.ECB {
		a.log.Warn(report.ECBNote)
	}

	creds, err := a.credentials(f.passwordFile, f.noPrompt, opts.Operation == model.Encrypt)
	if err != nil {
		return err
	}

	eng := engine.New(engineOpts...)
	var result *report.Result
	if single {
		result, err = eng.RunFile(opts, creds)
	} else {
		result, err = eng.Run(opts, creds)
	}
	if err != nil {
		// Key residue is reported alongside a finished run.
		if result != nil {
			a.printResult(cmd.Name(), result)
		}
		return err
	}

	a.printResult(cmd.Name(), result)
	if !result.Success {
		return &PartialFailureError{Failed: result.FailedCount, Total: result.Total()}
	}
	return nil
}

// =============================================================================
// RESULT OUTPUT
// =============================================================================

// resultView is the JSON form of a run result.
type resultView struct {
	Success         bool          `json:"success"`
	Message         string        `json:"message"`
	Operation       string        `json:"operation"`
	Mode            string        `json:"mode"`
	DryRun          bool          `json:"dry_run"`
	SuccessCount    uint64        `json:"success_count"`
	FailedCount     uint64        `json:"failed_count"`
	SkippedCount    uint64        `json:"skipped_count"`
	Bytes           uint64        `json:"bytes"`
	ElapsedMS       int64         `json:"elapsed_ms"`
	Throughput      float64       `json:"bytes_per_second"`
	Notes           []string      `json:"notes,omitempty"`
	Failures        []failureView `json:"failures,omitempty"`
	DisposeFailures []failureView `json:"dispose_failures,omitempty"`
}

type failureView struct {
	Source string `json:"source"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error"`
}

func newResultView(r *report.Result) resultView {
	v := resultView{
		Success:      r.Success,
		Message:      r.Message,
		Operation:    r.Operation.String(),
		Mode:         r.Mode.String(),
		DryRun:       r.DryRun,
		SuccessCount: r.SuccessCount,
		FailedCount:  r.FailedCount,
		SkippedCount: r.SkippedCount,
		Bytes:        r.Bytes,
		ElapsedMS:    r.Elapsed.Milliseconds(),
		Throughput:   r.Throughput,
		Notes:        r.Notes,
	}
	for _, o := range r.Failures {
		v.Failures = append(v.Failures, failureView{Source: o.Source, Target: o.Target, Error: errString(o.Err)})
	}
	for _, o := range r.DisposeFailures {
		v.DisposeFailures = append(v.DisposeFailures, failureView{Source: o.Source, Error: errString(o.DisposeErr)})
	}
	return v
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// maxListedFailures caps the per-file failure lines in text output.
const maxListedFailures = 20

func (a *App) printResult(command string, r *report.Result) {
	if a.jsonOut {
		resp := NewJSONResponse(command, newResultView(r))
		resp.Success = r.Success
		resp.Print(a.Stdout)
		return
	}

	w := a.Stdout
	title := fmt.Sprintf("%s complete", capitalize(r.Operation.String()))
	if r.DryRun {
		title = "Dry run complete"
	}
	if r.Success {
		fmt.Fprintln(w, SuccessStyle.Render(title))
	} else {
		fmt.Fprintln(w, ErrorStyle.Render(title+" with failures"))
	}
	fmt.Fprintln(w, RenderSeparator(40))
	fmt.Fprintln(w, RenderField("Succeeded", fmt.Sprint(r.SuccessCount)))
	fmt.Fprintln(w, RenderField("Failed", fmt.Sprint(r.FailedCount)))
	if r.SkippedCount > 0 {
		fmt.Fprintln(w, RenderField("Skipped", fmt.Sprint(r.SkippedCount)))
	}
	fmt.Fprintln(w, RenderField("Cipher", "AES-256-"+r.Mode.String()))

	for i, o := range r.Failures {
		if i == maxListedFailures {
			fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("... and %d more", len(r.Failures)-maxListedFailures)))
			break
		}
		fmt.Fprintf(w, "%s %s: %v\n", ErrorStyle.Render("FAILED"), o.Source, o.Err)
	}
	for _, o := range r.DisposeFailures {
		fmt.Fprintf(w, "%s %s: %v\n", WarningStyle.Render("KEPT"), o.Source, o.DisposeErr)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Message)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
