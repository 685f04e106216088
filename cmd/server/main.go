package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/dharsanguruparan/hpsearch/internal/api"
	"github.com/dharsanguruparan/hpsearch/internal/config"
	"github.com/dharsanguruparan/hpsearch/internal/database"
	"github.com/dharsanguruparan/hpsearch/internal/ingest"
	"github.com/dharsanguruparan/hpsearch/internal/kvstore"
	"github.com/dharsanguruparan/hpsearch/internal/ranking"
	"github.com/dharsanguruparan/hpsearch/internal/repository"
	"github.com/dharsanguruparan/hpsearch/internal/s3storage"
	"github.com/dharsanguruparan/hpsearch/internal/search"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	docs := repository.NewDocumentRepository(pool)
	datasets := repository.NewDatasetRepository(pool)
	if cfg.SeedSamples {
		n, err := docs.Insert(ctx, repository.SampleDocuments)
		if err != nil {
			log.Fatalf("seed documents: %v", err)
		}
		log.Printf("seeded %d sample documents", n)
	}

	cache, err := kvstore.New[int64, repository.Document](cfg.CacheSize)
	if err != nil {
		log.Fatalf("init cache: %v", err)
	}
	searcher := search.NewService(docs, datasets, cache, ranking.NewSoftmax())
	warmed, err := searcher.Warm(ctx)
	if err != nil {
		log.Fatalf("warm cache: %v", err)
	}
	log.Printf("loaded %d documents into cache", warmed)

	deps := api.Deps{
		Search:   searcher,
		Ingester: ingest.NewIngester(datasets, cfg.Ingest),
		Datasets: datasets,
	}
	if cfg.AsyncEnabled() {
		store, err := s3storage.New(cfg)
		if err != nil {
			log.Fatalf("init storage: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatalf("ensure bucket: %v", err)
		}
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		deps.Archive = store
		deps.Queue = client
		log.Printf("async ingestion enabled (redis %s, bucket %s)", cfg.RedisAddr, cfg.RawBucket)
	}

	srv := api.New(cfg, deps)
	if err := srv.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
