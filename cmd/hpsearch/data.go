package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/hpsearch/internal/config"
	"github.com/dharsanguruparan/hpsearch/internal/database"
	"github.com/dharsanguruparan/hpsearch/internal/decode"
	"github.com/dharsanguruparan/hpsearch/internal/ingest"
	"github.com/dharsanguruparan/hpsearch/internal/repository"
)

type classifyOutput struct {
	Format       ingest.FormatGuess    `json:"format_detected"`
	DataType     ingest.DataType       `json:"data_type"`
	TotalRecords int                   `json:"total_records"`
	Records      []ingest.ParsedRecord `json:"sample_records"`
}

func newClassifyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "classify FILE",
		Short: "Detect the format of FILE and print the first parsed records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			text, err := readText(args[0])
			if err != nil {
				return err
			}
			guess, records := ingest.Analyze(text, cfg.Ingest)
			out := classifyOutput{
				Format:       guess,
				DataType:     ingest.DataTypeFor(guess.Kind),
				TotalRecords: len(records),
				Records:      records[:min(max(limit, 0), len(records))],
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of records to print")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Ingest FILE into Postgres as a new dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text, err := readText(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[0])
			}
			cfg, pool, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			ingester := ingest.NewIngester(repository.NewDatasetRepository(pool), cfg.Ingest)
			result, err := ingester.Ingest(ctx, text, name)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Dataset name (defaults to the file name)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			n, err := repository.NewDocumentRepository(pool).Insert(ctx, repository.SampleDocuments)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d of %d sample documents\n", n, len(repository.SampleDocuments))
			return nil
		},
	}
}

func newLoadCSVCmd() *cobra.Command {
	var cols repository.CSVColumns
	cmd := &cobra.Command{
		Use:   "load-csv FILE",
		Short: "Bulk-load documents from a headed CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()
			docs, err := repository.DocumentsFromCSV(f, cols)
			if err != nil {
				return err
			}
			_, pool, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			n, err := repository.NewDocumentRepository(pool).Insert(ctx, docs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d of %d documents (%d already present)\n", n, len(docs), len(docs)-n)
			return nil
		},
	}
	cmd.Flags().StringVar(&cols.Content, "content-col", "content", "Column holding document text")
	cmd.Flags().StringVar(&cols.Tags, "tags-col", "tags", "Column holding space-separated tags")
	cmd.Flags().StringVar(&cols.ID, "id-col", "", "Column holding document ids")
	cmd.Flags().Int64Var(&cols.StartID, "start-id", 1, "First id when --id-col is not set")
	return cmd
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return decode.Text(data, path)
}

func openDatabase(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return cfg, pool, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
