package main

import (
	"github.com/spf13/cobra"

	"pearldb/internal/util"
	"pearldb/pkg/embed"
	"pearldb/pkg/embed/ollama"
	"pearldb/pkg/embed/openai"
	"pearldb/pkg/logger"
)

var (
	batchSize   int
	concurrency int
)

var embedCmd = &cobra.Command{
	Use:   "embed [parts-root]",
	Short: "Store an embedding vector beside every document in a fragment tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEmbedClient()
		if err != nil {
			return err
		}

		stats, err := embed.Run(cmd.Context(), client, embed.Params{
			Root:        args[0],
			BatchSize:   batchSize,
			Concurrency: concurrency,
			MaxTokens:   util.GetEnvInt("EMBED_MAX_TOKENS", embed.DefaultMaxTokens),
			Encoding:    util.GetEnvString("EMBED_ENCODING", embed.DefaultEncoding),
		})
		if err != nil {
			return err
		}
		logger.Info(
			"embeddings stored",
			"parts", stats.Parts,
			"pending", stats.Pending,
			"embedded", stats.Embedded,
			"failed", stats.Failed,
		)
		return nil
	},
}

func newEmbedClient() (embed.Client, error) {
	adapter := util.GetEnv("EMBED_ADAPTER")

	switch adapter {
	case "ollama":
		return ollama.New(ollama.Params{
			Model: util.GetEnv("EMBED_MODEL"),
			URL:   util.GetEnv("EMBED_URL"),
			Key:   util.GetEnv("EMBED_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvInt("EMBED_MAX_CONCURRENT", 4)),
		})
	default:
		return openai.New(openai.Params{
			Model: util.GetEnv("EMBED_MODEL"),
			URL:   util.GetEnv("EMBED_URL"),
			Key:   util.GetEnv("EMBED_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvInt("EMBED_MAX_CONCURRENT", 4)),
		}), nil
	}
}

func init() {
	embedCmd.Flags().IntVar(&batchSize, "batch-size", embed.DefaultBatchSize, "documents per embedding request")
	embedCmd.Flags().IntVar(&concurrency, "concurrency", 2, "concurrent embedding requests")
	rootCmd.AddCommand(embedCmd)
}
