package main

import (
	"github.com/spf13/cobra"

	"pearldb/pkg/build"
	"pearldb/pkg/logger"
)

var (
	skipParts     []string
	pcaComponents int
)

var buildCmd = &cobra.Command{
	Use:   "build [parts-root] [output-dir]",
	Short: "Build a document database from a fragment tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := build.Run(cmd.Context(), build.Params{
			Root:          args[0],
			Output:        args[1],
			SkipParts:     skipParts,
			PCAComponents: pcaComponents,
		})
		if err != nil {
			return err
		}
		logger.Info(
			"database built",
			"parts", stats.Parts,
			"documents", stats.Documents,
			"duplicates", stats.Duplicates,
			"untitled", stats.Untitled,
			"embeddings", stats.Embeddings,
		)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringSliceVar(&skipParts, "skip-parts", nil, "composite directories to leave out of the database")
	buildCmd.Flags().IntVar(&pcaComponents, "pca-components", build.DefaultComponents, "principal components kept for embeddings")
	rootCmd.AddCommand(buildCmd)
}
