// Package server exposes the resolution pipeline and the curation panel
// over HTTP. All parsing, auth-header checks, and upload validation live
// here; the resolver stays transport-agnostic.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	"BarcodeScanner/internal/config"
	"BarcodeScanner/internal/domain"
	"BarcodeScanner/internal/usecase"
)

const (
	apiKeyHeader   = "X-API-Key"
	adminKeyHeader = "X-API-Admin-Key"
)

var allowedExtensions = []string{".jpeg", ".jpg", ".png", ".webp"}

// Handler serves the scanner API and the admin panel.
type Handler struct {
	resolver *usecase.Resolver
	logger   *slog.Logger

	apiKey    string
	adminKey  string
	maxUpload int64
	staticDir string
}

// New assembles the router: scanner routes behind the client API key,
// panel routes behind the admin key, and static image serving.
func New(resolver *usecase.Resolver, cfg config.Config, logger *slog.Logger) http.Handler {
	h := &Handler{
		resolver:  resolver,
		logger:    logger,
		apiKey:    cfg.Server.APIKey,
		adminKey:  cfg.Server.AdminKey,
		maxUpload: int64(cfg.Media.MaxUploadMB) << 20,
		staticDir: cfg.Media.Dir,
	}

	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.requireKey(apiKeyHeader, h.apiKey))
		r.Get("/find/{barcode}", h.handleFind)
		r.Post("/update", h.handleUpdate)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireKey(adminKeyHeader, h.adminKey))
		r.Get("/products", h.handleList)
		r.Get("/products/{barcode}", h.handleGet)
		r.Patch("/products/{barcode}", h.handlePatch)
		r.Delete("/products/{barcode}", h.handleDelete)
		r.Post("/products/batch", h.handleBatchImport)
		r.Post("/reprocess/{barcode}", h.handleReprocess)
	})

	r.Handle("/static/images/*", http.StripPrefix("/static/images/",
		http.FileServer(http.Dir(h.staticDir))))

	return r
}

func (h *Handler) requireKey(header, expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" || r.Header.Get(header) != expected {
				h.respondError(w, http.StatusForbidden, "forbidden: invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) handleFind(w http.ResponseWriter, r *http.Request) {
	product, err := h.resolver.Resolve(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		h.respondResolverError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(2 * h.maxUpload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	code := r.FormValue("barcode")
	files := r.MultipartForm.File["images"]

	images := make([][]byte, 0, len(files))
	for _, header := range files {
		data, status, msg := h.readUpload(header)
		if msg != "" {
			h.respondError(w, status, msg)
			return
		}
		images = append(images, data)
	}

	product, err := h.resolver.ResolveFromImages(r.Context(), code, images)
	if err != nil {
		h.respondResolverError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handler) readUpload(header *multipart.FileHeader) ([]byte, int, string) {
	if header.Size > h.maxUpload {
		return nil, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file %s too large, limit %d MB", header.Filename, h.maxUpload>>20)
	}
	if !hasAllowedExtension(header.Filename) {
		return nil, http.StatusBadRequest,
			fmt.Sprintf("unsupported file format %s, allowed: jpeg, jpg, png, webp", header.Filename)
	}

	file, err := header.Open()
	if err != nil {
		return nil, http.StatusBadRequest, "cannot read uploaded file"
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil || int64(len(data)) > h.maxUpload {
		return nil, http.StatusBadRequest, "cannot read uploaded file"
	}
	return data, 0, ""
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		products []domain.Product
		err      error
	)
	if tag := r.URL.Query().Get("tag"); tag != "" {
		products, err = h.resolver.ListByTag(r.Context(), tag)
	} else {
		products, err = h.resolver.List(r.Context())
	}
	if err != nil {
		h.respondResolverError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	h.respondJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.resolver.Get(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		h.respondResolverError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	var update domain.ProductUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid update payload")
		return
	}

	product, err := h.resolver.Update(r.Context(), chi.URLParam(r, "barcode"), update)
	if err != nil {
		h.respondResolverError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.Delete(r.Context(), chi.URLParam(r, "barcode")); err != nil {
		h.respondResolverError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBatchImport(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Barcodes []string `json:"barcodes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid batch payload")
		return
	}

	h.respondJSON(w, http.StatusOK, h.resolver.BatchImport(r.Context(), payload.Barcodes))
}

func (h *Handler) handleReprocess(w http.ResponseWriter, r *http.Request) {
	product, err := h.resolver.Reprocess(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		h.respondResolverError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, product)
}

func (h *Handler) respondResolverError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidBarcode),
		errors.Is(err, usecase.ErrImagePair),
		errors.Is(err, usecase.ErrBadImage):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrConflict):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		if h.logger != nil {
			h.logger.Error("request failed", "error", err)
		}
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && h.logger != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, detail string) {
	h.respondJSON(w, status, map[string]string{"detail": detail})
}

func hasAllowedExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
