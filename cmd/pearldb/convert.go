package main

import (
	"github.com/spf13/cobra"

	"pearldb/pkg/logger"
	"pearldb/pkg/statpearls"
)

var convertCmd = &cobra.Command{
	Use:   "convert [nxml-dir] [output-dir]",
	Short: "Convert a StatPearls NXML dump into a fragment tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := statpearls.Convert(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		logger.Info(
			"conversion finished",
			"files", stats.Files,
			"articles", stats.Articles,
			"sections", stats.Sections,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
}
