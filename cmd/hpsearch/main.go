package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hpsearch: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hpsearch",
		Short: "hpsearch operator CLI",
		Long: `hpsearch CLI inspects and loads data without going through the HTTP API:
classify files, ingest them as datasets, seed or bulk-load documents, and run the
test suite or the binaries during development.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newClassifyCmd(),
		newIngestCmd(),
		newSeedCmd(),
		newLoadCSVCmd(),
		newTestCmd(),
		newRunCmd(),
	)
	return cmd
}
