package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gobeaver/whatfile"
)

// detectOptions are the flags of the detect command
type detectOptions struct {
	*globalOptions
	asJSON    bool
	recursive bool
	strict    bool
	checksum  whatfile.ChecksumAlgorithm
	fallback  bool
	workers   int
	include   []string
	exclude   []string
}

func newDetectCommand(global *globalOptions) *cobra.Command {
	opts := &detectOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "detect [flags] path...",
		Short: "Detect the type of files.",
		Long: `
Detect the type of every file named on the command line. Directories
are expanded to the files they contain, use --recursive to descend into
subdirectories and --include/--exclude to filter by glob. A path of "-"
reads standard input.

For each file one line is printed with its size, detected mime type and
extension. Files whose name claims a different type are marked. With
--strict the exit code is 2 when any file is mismatched.

    $ whatfile detect report.pdf photo.png
    report.pdf (1.2 MiB): application/pdf .pdf
    photo.png (88 KiB): image/jpeg .jpg (named .png)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.asJSON, "json", false, "Output one JSON report per line")
	flags.BoolVarP(&opts.recursive, "recursive", "R", false, "Recurse into directories")
	flags.BoolVar(&opts.strict, "strict", false, "Exit with code 2 if any extension does not match the content")
	flags.Var(&opts.checksum, "checksum", "Add a checksum: md5|sha1|sha256|sha512|crc32|xxhash")
	flags.BoolVar(&opts.fallback, "fallback", false, "Try the generic mimetype database when nothing else matches")
	flags.IntVarP(&opts.workers, "workers", "j", 0, "Number of files to inspect in parallel (default from config)")
	flags.StringSliceVar(&opts.include, "include", nil, "Only inspect files matching these globs")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "Skip files matching these globs")
	return cmd
}

func runDetect(cmd *cobra.Command, opts *detectOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("checksum") {
		cfg.Checksum = string(opts.checksum)
	}
	if flags.Changed("fallback") {
		cfg.Fallback = opts.fallback
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("include") {
		cfg.Include = strings.Join(opts.include, ",")
	}
	if flags.Changed("exclude") {
		cfg.Exclude = strings.Join(opts.exclude, ",")
	}

	inspector, err := whatfile.New(cfg, whatfile.WithLogger(logger(cmd, cfg)))
	if err != nil {
		return err
	}
	sel, err := whatfile.SelectorFromConfig(cfg)
	if err != nil {
		return err
	}

	var (
		reports []*whatfile.Report
		paths   []string
	)
	for _, arg := range args {
		if arg == "-" {
			r, _ := inspector.InspectReader(ctx, "-", cmd.InOrStdin(), -1)
			reports = append(reports, r)
			continue
		}
		paths = append(paths, arg)
	}
	if len(paths) > 0 {
		expanded, err := whatfile.Walk(ctx, sel, paths, opts.recursive)
		if err != nil {
			return err
		}
		batch, err := inspector.InspectAll(ctx, expanded)
		reports = append(reports, batch...)
		if err != nil {
			return err
		}
	}

	return printReports(cmd.OutOrStdout(), reports, opts)
}

// printReports writes the reports and turns failures and, in strict mode,
// mismatches into the exit status
func printReports(out io.Writer, reports []*whatfile.Report, opts *detectOptions) error {
	var failed, mismatched int
	enc := json.NewEncoder(out)
	for _, r := range reports {
		switch {
		case r.Status == whatfile.StatusError:
			failed++
		case r.Mismatch:
			mismatched++
		}

		if opts.asJSON {
			if err := enc.Encode(r); err != nil {
				return err
			}
			continue
		}
		line := r.Summary()
		if r.Checksum != "" {
			line += fmt.Sprintf(" %s:%s", r.ChecksumAlgorithm, r.Checksum)
		}
		fmt.Fprintln(out, line)
	}

	switch {
	case failed > 0:
		return &exitError{code: exitFailure, err: fmt.Errorf("failed to inspect %d of %d files", failed, len(reports))}
	case opts.strict && mismatched > 0:
		return &exitError{code: exitMismatch, err: errors.New(plural(mismatched, "file does", "files do") + " not match the extension")}
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
