package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pearldb/internal/util"
	"pearldb/pkg/logger"
	"pearldb/pkg/logger/console"
)

var rootCmd = &cobra.Command{
	Use:   "pearldb",
	Short: "Build content-addressed document databases from fragment trees",

	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Fatal("command failed", "err", err)
	}
}
