package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/ggitteam/salesops/internal/config"
	"github.com/ggitteam/salesops/internal/dashboard"
	"github.com/ggitteam/salesops/internal/export"
	"github.com/ggitteam/salesops/internal/genealogy"
	"github.com/ggitteam/salesops/internal/model"
	"github.com/ggitteam/salesops/internal/parse"
	"github.com/ggitteam/salesops/internal/queue"
	"github.com/ggitteam/salesops/internal/repository"
	"github.com/ggitteam/salesops/internal/s3storage"
	"github.com/ggitteam/salesops/internal/session"
)

const recentUploadLimit = 8

// Server exposes HTTP endpoints for workbook uploads, previews, persisted
// row views, the dashboard and the genealogy proxies.
type Server struct {
	cfg       *config.Config
	repo      *repository.SalesRepository
	store     *s3storage.Storage
	queue     *asynq.Client
	genealogy *genealogy.Client
	server    *http.Server
	once      sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, repo *repository.SalesRepository, store *s3storage.Storage, queueClient *asynq.Client, gen *genealogy.Client) *Server {
	return &Server{
		cfg:       cfg,
		repo:      repo,
		store:     store,
		queue:     queueClient,
		genealogy: gen,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", s.handleHealth)
		mux.HandleFunc("/uploads", s.handleUploads)
		mux.HandleFunc("/uploads/", s.handleUploadByID)
		mux.HandleFunc("/preview", s.handlePreview)
		mux.HandleFunc("/rows", s.handleRows)
		mux.HandleFunc("/rows/export", s.handleRowsExport)
		mux.HandleFunc("/rows/", s.handleRowItems)
		mux.HandleFunc("/dashboard", s.handleDashboard)
		mux.HandleFunc("/genealogy/upline", s.handleUpline)
		mux.HandleFunc("/genealogy/downline", s.handleDownline)
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: corsMiddleware(loggingMiddleware(mux)),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	log.Info().Str("address", s.cfg.Address).Msg("API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpload(w, r)
	case http.MethodGet:
		uploads, err := s.repo.RecentUploads(r.Context(), recentUploadLimit)
		if err != nil {
			http.Error(w, "failed to load uploads", http.StatusInternalServerError)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"uploads": uploads})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUploadByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/uploads/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	upload, err := s.repo.GetUpload(r.Context(), id)
	if err != nil {
		http.Error(w, "upload not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, upload)
}

// handleUpload stores the workbook, creates the upload batch and enqueues the
// import. The actual parse and persist happens on the worker.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filename, data, err := s.readWorkbook(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	upload, err := s.repo.CreateUpload(ctx, filename, 0)
	if err != nil {
		http.Error(w, "failed to store metadata", http.StatusInternalServerError)
		return
	}
	objectKey := fmt.Sprintf("uploads/%s/%s", upload.ID, filepath.Base(filename))
	if err := s.store.UploadWorkbook(ctx, objectKey, bytes.NewReader(data), int64(len(data))); err != nil {
		log.Error().Err(err).Msg("Workbook upload to storage failed")
		http.Error(w, "failed to store file", http.StatusInternalServerError)
		return
	}
	payload := queue.ImportPayload{
		UploadID:  upload.ID,
		ObjectKey: objectKey,
		Filename:  filename,
		Sheet:     r.FormValue("sheet"),
	}
	if err := queue.EnqueueImport(ctx, s.queue, payload); err != nil {
		http.Error(w, "failed to queue job", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     upload.ID,
		"status": string(model.StatusQueued),
	})
}

// handlePreview parses the workbook synchronously and returns the canonical
// rows with their warnings. Nothing is persisted.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	filename, data, err := s.readWorkbook(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := parse.ExtractRows(bytes.NewReader(data), r.FormValue("sheet"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// The sheet list lets the caller re-submit with a specific sheet selected.
	sheets, err := parse.SheetNames(bytes.NewReader(data))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess := session.New()
	sess.SetPreview(rows)
	if err := applyFilters(sess, r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	visible := sess.Visible()
	respondJSON(w, http.StatusOK, map[string]any{
		"filename":     filename,
		"sheets":       sheets,
		"rowCount":     len(rows),
		"warningCount": parse.WarningCount(rows),
		"rows":         visible,
		"cards":        sess.Cards(),
	})
}

func (s *Server) loadPersisted(r *http.Request, from, to time.Time) (*session.Session, error) {
	// The date bounds are applied server-side; the search term is applied on
	// the session like the preview path.
	var start, end time.Time
	if !from.IsZero() {
		start = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	}
	if !to.IsZero() {
		end = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
	}
	rows, err := s.repo.ListRows(r.Context(), start, end)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	items := s.repo.ItemsForRows(r.Context(), ids)

	sess := session.New()
	sess.SetPersisted(rows, items)
	sess.SetSearch(r.URL.Query().Get("q"))
	return sess, nil
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.loadPersisted(r, from, to)
	if err != nil {
		http.Error(w, "failed to load rows", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"rows":  sess.Visible(),
		"cards": sess.Cards(),
	})
}

func (s *Server) handleRowsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.loadPersisted(r, from, to)
	if err != nil {
		http.Error(w, "failed to load rows", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sales-upload.csv"`)
	if err := export.WriteCSV(w, model.SaleColumns, sess.Visible()); err != nil {
		log.Error().Err(err).Msg("CSV export failed")
	}
}

// handleRowItems serves the stored line items of a single row, for drilling
// into one transaction without refetching the whole view.
func (s *Server) handleRowItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := rowItemsID(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	items, err := s.repo.ItemsForRow(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load items", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"rowId": id,
		"items": items,
	})
}

// rowItemsID extracts the row id from a /rows/{id}/items path.
func rowItemsID(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/rows/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/items")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	from, to, err := dateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.loadPersisted(r, from, to)
	if err != nil {
		http.Error(w, "failed to load rows", http.StatusInternalServerError)
		return
	}
	rows := sess.Visible()
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	items := s.repo.ItemsForRows(r.Context(), ids)
	uploads, err := s.repo.RecentUploads(r.Context(), recentUploadLimit)
	if err != nil {
		http.Error(w, "failed to load uploads", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, dashboard.Build(rows, items, uploads))
}

func (s *Server) handleUpline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	nodes, err := s.genealogy.Upline(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		http.Error(w, "failed to load upline data", http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": nodes, "total": len(nodes)})
}

func (s *Server) handleDownline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	nodes, err := s.genealogy.Downline(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		http.Error(w, "failed to load downline data", http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": nodes, "total": len(nodes)})
}

// readWorkbook pulls the uploaded spreadsheet out of the multipart form,
// capped at the configured size limit.
func (s *Server) readWorkbook(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+1024)
	if err := r.ParseMultipartForm(s.cfg.MaxFileSize); err != nil {
		return "", nil, errors.New("expecting multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.New("missing file field")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty file")
	}
	filename := workbookFilename(header)
	if !strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return "", nil, errors.New("only .xlsx workbooks supported")
	}
	return filename, data, nil
}

func workbookFilename(header *multipart.FileHeader) string {
	if header != nil && header.Filename != "" {
		return header.Filename
	}
	return "upload.xlsx"
}

func applyFilters(sess *session.Session, r *http.Request) error {
	from, to, err := dateRange(r)
	if err != nil {
		return err
	}
	sess.SetDateRange(from, to)
	sess.SetSearch(r.URL.Query().Get("q"))
	return nil
}

func dateRange(r *http.Request) (from, to time.Time, err error) {
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", v)
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err = time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", v)
		}
	}
	return from, to, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
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
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
