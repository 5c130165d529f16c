package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gobeaver/whatfile/detector"
)

func newFormatsCommand() *cobra.Command {
	var (
		category string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the formats that can be detected.",
		Long: `
List every extension and mime type the built-in detectors can report,
sorted by extension. Use --category to restrict the list to image,
audio, video, font, text or application types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var types []detector.Type
			for _, t := range detector.Formats() {
				if category == "" || t.Category() == category {
					types = append(types, t)
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(types)
			}
			for _, t := range types {
				fmt.Fprintf(out, "%-8s %s\n", t.Extension, t.MIME)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list formats of this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
