package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kladovka/internal/bulk"
	"kladovka/internal/config"
	"kladovka/internal/database"
	"kladovka/internal/metrics"
	"kladovka/internal/models"
	"kladovka/internal/qr"
	"kladovka/internal/repository"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the inventory operations as a JSON/file API.
type HTTPServer struct {
	cfg     config.ServerConfig
	exports config.ExportConfig
	db      *database.DB
	codes   *qr.Generator
	labels  repository.LabelRepository
	backups *database.BackupService
	logger  *zerolog.Logger
	server  *http.Server
}

func NewHTTPServer(
	cfg config.ServerConfig,
	exports config.ExportConfig,
	db *database.DB,
	codes *qr.Generator,
	labels repository.LabelRepository,
	backups *database.BackupService,
	logger *zerolog.Logger,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, exports: exports, db: db, codes: codes, labels: labels, backups: backups, logger: logger}

	mux.HandleFunc("/api/v1/items", srv.handleItems)
	mux.HandleFunc("/api/v1/items/", srv.handleItemSubtree)
	mux.HandleFunc("/api/v1/import", srv.handleImport)
	mux.HandleFunc("/api/v1/export", srv.handleExportCSV)
	mux.HandleFunc("/api/v1/export.xlsx", srv.handleExportExcel)
	mux.HandleFunc("/api/v1/template", srv.handleTemplate)
	mux.HandleFunc("/api/v1/backup", srv.handleBackup)
	mux.HandleFunc("/api/v1/restore", srv.handleRestore)
	mux.HandleFunc("/api/v1/stats", srv.handleStats)
	mux.HandleFunc("/healthz", srv.handleHealth)

	limiter := NewLimiter(cfg.RateLimit)
	handler := loggingMiddleware(logger, limiter.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listItems(w, r)
	case http.MethodPost:
		s.createItem(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listItems(w http.ResponseWriter, r *http.Request) {
	filter := models.ItemFilter{
		Text:     strings.TrimSpace(r.URL.Query().Get("q")),
		Location: strings.TrimSpace(r.URL.Query().Get("location")),
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}

	items, err := s.db.SearchItems(r.Context(), filter)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *HTTPServer) createItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Location    string `json:"location"`
		Quantity    int64  `json:"quantity"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	item := models.Item{
		Name:        body.Name,
		Description: body.Description,
		Category:    body.Category,
		Location:    body.Location,
		Quantity:    body.Quantity,
	}
	if err := s.db.CreateItem(r.Context(), &item, ""); err != nil {
		s.writeDBError(w, err)
		return
	}

	metrics.IncItemsCreated()
	writeJSON(w, http.StatusCreated, item)
}

// handleItemSubtree routes /api/v1/items/{id}[/history|/stock|/label].
func (s *HTTPServer) handleItemSubtree(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/items/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	id := strings.TrimSpace(parts[0])
	if id == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.getItem(w, r, id)
		case http.MethodDelete:
			s.deleteItem(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "history":
			s.itemHistory(w, r, id)
			return
		case "stock":
			s.changeStock(w, r, id)
			return
		case "label":
			s.itemLabel(w, r, id)
			return
		}
	}

	writeError(w, http.StatusNotFound, "not found")
}

func (s *HTTPServer) getItem(w http.ResponseWriter, r *http.Request, id string) {
	item, err := s.db.GetItem(r.Context(), id)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) deleteItem(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.db.DeleteItem(r.Context(), id); err != nil {
		s.writeDBError(w, err)
		return
	}
	if s.labels != nil {
		if err := s.labels.DeleteLabels(r.Context(), id); err != nil {
			s.logger.Warn().Err(err).Str("item_id", id).Msg("failed to purge cached labels")
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *HTTPServer) itemHistory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if _, err := s.db.GetItem(r.Context(), id); err != nil {
		s.writeDBError(w, err)
		return
	}

	history, err := s.db.GetHistory(r.Context(), id)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	if history == nil {
		history = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": history})
}

func (s *HTTPServer) changeStock(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Action   string `json:"action"`
		Quantity int64  `json:"quantity"`
		Location string `json:"location"`
		Notes    string `json:"notes"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	newQty, txn, err := s.db.ApplyStockChange(r.Context(), id, body.Action, body.Quantity, body.Location, body.Notes)
	if err != nil {
		s.writeDBError(w, err)
		return
	}

	metrics.IncStockChange(body.Action)
	writeJSON(w, http.StatusOK, map[string]any{
		"new_quantity": newQty,
		"transaction":  txn,
	})
}

func (s *HTTPServer) itemLabel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	size := qr.DefaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 64 || parsed > 2048 {
			writeError(w, http.StatusBadRequest, "size must be an integer between 64 and 2048")
			return
		}
		size = parsed
	}

	if _, err := s.db.GetItem(r.Context(), id); err != nil {
		s.writeDBError(w, err)
		return
	}

	var png []byte
	if s.labels != nil {
		cached, err := s.labels.GetLabel(r.Context(), id, size)
		if err != nil {
			s.logger.Warn().Err(err).Str("item_id", id).Msg("label cache read failed")
		}
		png = cached
	}

	if png == nil {
		rendered, err := s.codes.PNG(id, size)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		png = rendered
		if s.labels != nil {
			if err := s.labels.SetLabel(r.Context(), id, size, png); err != nil {
				s.logger.Warn().Err(err).Str("item_id", id).Msg("label cache write failed")
			}
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	src, err := uploadBody(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer src.Close()

	result, err := bulk.Import(r.Context(), s.db, src)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	metrics.AddImportRows("added", result.Added)
	metrics.AddImportRows("failed", result.ErrorCount)
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory_export.csv"`)

	out := io.Writer(w)
	if f := s.exportCopy(fmt.Sprintf("inventory_export_%s.csv", time.Now().Format("20060102_150405"))); f != nil {
		defer f.Close()
		out = io.MultiWriter(w, f)
	}
	if err := bulk.ExportCSV(r.Context(), s.db, out); err != nil {
		s.logger.Error().Err(err).Msg("csv export failed")
	}
}

func (s *HTTPServer) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory_export.xlsx"`)

	out := io.Writer(w)
	if f := s.exportCopy(fmt.Sprintf("inventory_export_%s.xlsx", time.Now().Format("20060102_150405"))); f != nil {
		defer f.Close()
		out = io.MultiWriter(w, f)
	}
	if err := bulk.ExportExcel(r.Context(), s.db, out); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
	}
}

// exportCopy opens a file in the exports directory so generated exports also
// land on disk. Returns nil when the copy cannot be kept; the download itself
// must not fail because of it.
func (s *HTTPServer) exportCopy(name string) *os.File {
	if s.exports.Path == "" {
		return nil
	}
	if err := os.MkdirAll(s.exports.Path, 0o755); err != nil {
		s.logger.Warn().Err(err).Str("path", s.exports.Path).Msg("failed to create exports directory")
		return nil
	}
	f, err := os.Create(filepath.Join(s.exports.Path, name))
	if err != nil {
		s.logger.Warn().Err(err).Str("file", name).Msg("failed to keep export copy")
		return nil
	}
	return f
}

func (s *HTTPServer) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory_template.csv"`)
	if err := bulk.Template(w); err != nil {
		s.logger.Error().Err(err).Msg("template download failed")
	}
}

func (s *HTTPServer) handleBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filename := fmt.Sprintf("inventory_backup_%s.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.backups.WriteArchive(r.Context(), w); err != nil {
		metrics.IncBackup("error")
		s.logger.Error().Err(err).Msg("backup failed")
		return
	}
	metrics.IncBackup("ok")
}

func (s *HTTPServer) handleRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	src, err := uploadBody(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer src.Close()

	if err := s.backups.Restore(r.Context(), src); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The store file was replaced under the pool; reconnect before serving.
	if err := s.db.Reconnect(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"restored": true})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDBError maps storage errors to HTTP status codes.
func (s *HTTPServer) writeDBError(w http.ResponseWriter, err error) {
	var validationErr *database.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, database.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// uploadBody returns the uploaded file for multipart requests, or the raw
// request body otherwise.
func uploadBody(r *http.Request, field string) (io.ReadCloser, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile(field)
		if err != nil {
			return nil, fmt.Errorf("no file selected")
		}
		return file, nil
	}
	return r.Body, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
