package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gobeaver/whatfile"
	"github.com/gobeaver/whatfile/dropzone"
)

// cacheTTL is how long watch remembers the result for a file version
const cacheTTL = 10 * time.Minute

func newWatchCommand(global *globalOptions) *cobra.Command {
	var (
		asJSON    bool
		recursive bool
		settle    time.Duration
		checksum  whatfile.ChecksumAlgorithm
		include   []string
		exclude   []string
	)

	cmd := &cobra.Command{
		Use:   "watch [flags] dir",
		Short: "Detect the type of files as they arrive in a directory.",
		Long: `
Watch a directory and print a report for every file created or
rewritten in it, once the file has been quiet for the settle period.
Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("checksum") {
				cfg.Checksum = string(checksum)
			}
			if cmd.Flags().Changed("include") {
				cfg.Include = strings.Join(include, ",")
			}
			if cmd.Flags().Changed("exclude") {
				cfg.Exclude = strings.Join(exclude, ",")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			// editors and copies often touch a file again without changing it
			cache := whatfile.NewMemoryCache()
			cache.CleanupEvery(ctx, cacheTTL)

			log := logger(cmd, cfg)
			inspector, err := whatfile.New(cfg,
				whatfile.WithLogger(log),
				whatfile.WithCache(cache, cacheTTL),
			)
			if err != nil {
				return err
			}
			sel, err := whatfile.SelectorFromConfig(cfg)
			if err != nil {
				return err
			}

			w := dropzone.New(args[0], inspector,
				dropzone.WithSelector(sel),
				dropzone.WithRecursive(recursive),
				dropzone.WithSettle(settle),
				dropzone.WithLogger(log),
			)
			reports, err := w.Watch(ctx)
			if err != nil {
				return err
			}
			log.Logf(args[0], "watching for new files")

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			for r := range reports {
				if asJSON {
					if err := enc.Encode(r); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintln(out, r.Summary())
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&asJSON, "json", false, "Output one JSON report per line")
	flags.BoolVarP(&recursive, "recursive", "R", false, "Watch subdirectories too")
	flags.DurationVar(&settle, "settle", dropzone.DefaultSettle, "Wait this long after the last write before inspecting")
	flags.Var(&checksum, "checksum", "Add a checksum: md5|sha1|sha256|sha512|crc32|xxhash")
	flags.StringSliceVar(&include, "include", nil, "Only inspect files matching these globs")
	flags.StringSliceVar(&exclude, "exclude", nil, "Skip files matching these globs")
	return cmd
}
