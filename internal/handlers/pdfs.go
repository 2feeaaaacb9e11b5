package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"preventivo/internal/httpx"
	"preventivo/internal/models"
	"preventivo/internal/pricing"
	"preventivo/internal/services"
	"preventivo/internal/storage"
)

type PDFHandler struct {
	DB     *gorm.DB
	Quotes *services.QuoteService
	Store  *storage.Store
}

func NewPDFHandler(db *gorm.DB, quotes *services.QuoteService, store *storage.Store) *PDFHandler {
	return &PDFHandler{DB: db, Quotes: quotes, Store: store}
}

// CreateQuote renders a contract PDF for a document.
func (h *PDFHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Type         string `json:"type"`
		RevisionName string `json:"revisionName"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	docType := services.DocTypeQuote
	if input.Type == string(services.DocTypeOrder) {
		docType = services.DocTypeOrder
	}
	file, err := h.Quotes.CreateQuote(r.Context(), r.PathValue("hash"), docType, input.RevisionName)
	if err != nil {
		var verr *pricing.ValidationError
		switch {
		case errors.Is(err, services.ErrNotFound):
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		case errors.As(err, &verr):
			httpx.JSONError(w, http.StatusBadRequest, "invalid_products", verr.Error())
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "pdf_render_failed", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, file)
}

func (h *PDFHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.Store.ListPDFs()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_pdfs", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, files)
}

func (h *PDFHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := h.Store.Read(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "read_failed", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		_ = err
	}
}

// Delete removes the stored file and its tracking row.
func (h *PDFHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := h.Store.Delete(name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if err := h.DB.Where("name = ?", name).Delete(&models.PDFFile{}).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"deleted": name})
}

// Stats reports disk usage of stored PDFs bucketed by file age.
func (h *PDFHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.PDFStats(time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "stats_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
