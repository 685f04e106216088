package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/hpsearch/internal/decode"
	"github.com/dharsanguruparan/hpsearch/internal/ingest"
	"github.com/dharsanguruparan/hpsearch/internal/queue"
)

// multipartOverhead is allowed on top of MaxUploadSize for boundaries and
// the small form fields.
const multipartOverhead = 1 << 20

type uploadForm struct {
	file     []byte
	filename string
	text     string
	name     string
	async    bool
}

// payload returns the bytes to ingest and the name they are archived under.
// A non-empty file wins over text_data.
func (f *uploadForm) payload() ([]byte, string) {
	if len(f.file) > 0 {
		name := filepath.Base(f.filename)
		if name == "." || name == string(filepath.Separator) {
			name = "upload"
		}
		return f.file, name
	}
	return []byte(f.text), "text_data.txt"
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize+multipartOverhead)
	form, err := s.readUploadForm(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if form.async {
		s.handleAsyncUpload(w, r, form)
		return
	}
	var text string
	if data, filename := form.payload(); len(data) > 0 {
		text, err = decode.Text(data, filename)
		if err != nil {
			respondError(w, err)
			return
		}
	}
	result, err := s.deps.Ingester.Ingest(r.Context(), text, form.name)
	if err != nil {
		respondError(w, err)
		return
	}
	log.Printf("dataset %d %q ingested (%d records, %s)", result.DatasetID, result.Name, result.TotalRecords, result.Format.Kind)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAsyncUpload(w http.ResponseWriter, r *http.Request, form *uploadForm) {
	if !s.asyncEnabled() {
		respondError(w, badRequest("async ingestion is not configured"))
		return
	}
	data, filename := form.payload()
	if len(bytes.TrimSpace(data)) == 0 {
		respondError(w, ingest.ErrNoInput)
		return
	}
	name := strings.TrimSpace(form.name)
	if name == "" {
		respondError(w, ingest.ErrMissingName)
		return
	}
	ctx := r.Context()
	uploadID := uuid.NewString()
	objectKey := fmt.Sprintf("uploads/%s/%s", uploadID, filename)
	contentType := http.DetectContentType(data[:min(len(data), 512)])
	if err := s.deps.Archive.UploadRaw(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		log.Printf("archive upload %s failed: %v", uploadID, err)
		respondError(w, err)
		return
	}
	payload := queue.IngestPayload{
		UploadID:    uploadID,
		ObjectKey:   objectKey,
		FileName:    filename,
		DatasetName: name,
	}
	if err := queue.EnqueueIngest(ctx, s.deps.Queue, payload); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"upload_id":  uploadID,
		"object_key": objectKey,
		"status":     "queued",
	})
}

func (s *Server) readUploadForm(r *http.Request) (*uploadForm, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, badRequest("expecting multipart form")
	}
	form := &uploadForm{}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return nil, multipartError(err)
		}
		err = s.readPart(part, form)
		part.Close()
		if err != nil {
			return nil, err
		}
	}
}

func (s *Server) readPart(part *multipart.Part, form *uploadForm) error {
	switch part.FormName() {
	case "file":
		data, err := readLimited(part, s.cfg.MaxUploadSize)
		if err != nil {
			return err
		}
		form.file = data
		form.filename = part.FileName()
	case "text_data":
		data, err := readLimited(part, s.cfg.MaxUploadSize)
		if err != nil {
			return err
		}
		form.text = string(data)
	case "dataset_name":
		data, err := readLimited(part, 1024)
		if err != nil {
			return err
		}
		form.name = string(data)
	case "async":
		data, err := readLimited(part, 16)
		if err != nil {
			return err
		}
		async, err := strconv.ParseBool(strings.TrimSpace(string(data)))
		if err != nil {
			return badRequest("invalid async flag")
		}
		form.async = async
	}
	return nil
}

func readLimited(part *multipart.Part, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return nil, multipartError(err)
	}
	if int64(len(data)) > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	return data, nil
}

func multipartError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return &apiError{Code: http.StatusBadRequest, Message: "malformed multipart body", Err: err}
}
