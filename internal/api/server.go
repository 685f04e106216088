package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/dharsanguruparan/hpsearch/internal/config"
	"github.com/dharsanguruparan/hpsearch/internal/ingest"
	"github.com/dharsanguruparan/hpsearch/internal/queue"
	"github.com/dharsanguruparan/hpsearch/internal/repository"
	"github.com/dharsanguruparan/hpsearch/internal/search"
)

const (
	defaultRecordLimit = 100
	maxRecordLimit     = 1000
)

// Searcher is implemented by *search.Service.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Response, error)
	Document(ctx context.Context, id int64) (*repository.Document, error)
	Documents(ctx context.Context) ([]repository.Document, error)
}

// DatasetIngester is implemented by *ingest.Ingester.
type DatasetIngester interface {
	Ingest(ctx context.Context, raw, name string) (*ingest.Result, error)
}

// DatasetReader is implemented by *repository.DatasetRepository.
type DatasetReader interface {
	List(ctx context.Context) ([]repository.Dataset, error)
	Get(ctx context.Context, id int64) (*repository.Dataset, error)
	Records(ctx context.Context, datasetID int64, limit, offset int) ([]repository.Record, error)
}

// Archiver stores raw uploads for the worker. *s3storage.Storage satisfies it.
type Archiver interface {
	UploadRaw(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// Deps groups the collaborators of the HTTP layer. Archive and Queue are
// optional; without them async uploads are rejected.
type Deps struct {
	Search   Searcher
	Ingester DatasetIngester
	Datasets DatasetReader
	Archive  Archiver
	Queue    queue.Enqueuer
}

// Server exposes search, document and dataset endpoints.
type Server struct {
	cfg     *config.Config
	deps    Deps
	handler http.Handler
	server  *http.Server
	once    sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps) *Server {
	return &Server{cfg: cfg, deps: deps}
}

// Handler returns the routed handler wrapped in CORS and logging middleware.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /{$}", s.handleRoot)
		mux.HandleFunc("GET /healthz", s.handleHealth)
		mux.HandleFunc("POST /search", s.handleSearch)
		mux.HandleFunc("GET /documents", s.handleDocuments)
		mux.HandleFunc("GET /documents/{id}", s.handleDocument)
		mux.HandleFunc("POST /upload", s.handleUpload)
		mux.HandleFunc("GET /datasets", s.handleDatasets)
		mux.HandleFunc("GET /datasets/{id}", s.handleDataset)
		mux.HandleFunc("GET /datasets/{id}/records", s.handleRecords)
		s.handler = corsMiddleware(s.cfg.CORSOrigins, loggingMiddleware(mux))
	})
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("api listening on %s", s.cfg.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "hpsearch",
		"status":  "running",
		"async":   s.asyncEnabled(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q search.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		respondError(w, badRequest("invalid JSON body"))
		return
	}
	resp, err := s.deps.Search.Search(r.Context(), q)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Search.Documents(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	doc, err := s.deps.Search.Document(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.deps.Datasets.List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, datasets)
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	ds, err := s.deps.Datasets.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ds)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultRecordLimit)
	if err != nil {
		respondError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, err)
		return
	}
	limit = min(max(limit, 1), maxRecordLimit)
	ctx := r.Context()
	if _, err := s.deps.Datasets.Get(ctx, id); err != nil {
		respondError(w, err)
		return
	}
	records, err := s.deps.Datasets.Records(ctx, id, limit, max(offset, 0))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (s *Server) asyncEnabled() bool {
	return s.deps.Archive != nil && s.deps.Queue != nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id")
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid " + key)
	}
	return v, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowAll := slices.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && (allowAll || slices.Contains(origins, origin)) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
