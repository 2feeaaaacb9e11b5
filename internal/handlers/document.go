package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"preventivo/internal/httpx"
	"preventivo/internal/mailer"
	"preventivo/internal/services"
	"preventivo/internal/status"
)

type DocumentHandler struct {
	Docs     *services.DocumentService
	Analysis *services.AnalysisService
	Mailer   mailer.Mailer
	BaseURL  string
}

func NewDocumentHandler(docs *services.DocumentService, analysis *services.AnalysisService, m mailer.Mailer, baseURL string) *DocumentHandler {
	return &DocumentHandler{Docs: docs, Analysis: analysis, Mailer: m, BaseURL: baseURL}
}

// writeDocError maps service errors onto HTTP status codes shared by all
// document endpoints.
func writeDocError(w http.ResponseWriter, err error) {
	var conflict *services.ConflictError
	var transition *status.TransitionError
	switch {
	case errors.As(err, &transition):
		httpx.JSONError(w, http.StatusConflict, "illegal_transition", map[string]string{
			"from": string(transition.From), "to": string(transition.To),
		})
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrExpired):
		httpx.JSONError(w, http.StatusGone, "link_expired", nil)
	case errors.Is(err, services.ErrReadOnly):
		httpx.JSONError(w, http.StatusForbidden, "document_read_only", nil)
	case errors.Is(err, services.ErrInvalidOTP):
		httpx.JSONError(w, http.StatusForbidden, "invalid_otp", nil)
	case errors.As(err, &conflict):
		httpx.JSONError(w, http.StatusConflict, "version_conflict", map[string]int{
			"expected": conflict.Expected, "got": conflict.Got,
		})
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateDocumentInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Company == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"company": "required"})
		return
	}
	doc, err := h.Docs.Create(input)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "document_create_failed", nil)
		return
	}
	// Share-link delivery is best-effort: the document exists either way and
	// the link can be re-sent from the UI.
	if doc.ClientEmail != "" {
		link := h.BaseURL + "/d/" + doc.Hash
		if err := h.Mailer.SendShareLink(r.Context(), doc.ClientEmail, link); err != nil {
			slog.Warn("share link mail failed", "hash", doc.Hash, "error", err)
		}
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	docs, total, err := h.Docs.List(r.URL.Query().Get("company"), limit, offset)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_documents", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": docs, "total": total, "limit": limit, "offset": offset})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Docs.GetByHash(r.PathValue("hash"))
	if err != nil {
		writeDocError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Save(w http.ResponseWriter, r *http.Request) {
	var input services.SaveInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Actor.Type == "" {
		input.Actor.Type = services.ActorEmployee
	}
	res, err := h.Docs.Save(r.PathValue("hash"), input)
	if err != nil {
		writeDocError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var input struct {
		IDs []uint `json:"ids"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if len(input.IDs) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"ids": "required"})
		return
	}
	deleted, err := h.Docs.Delete(input.IDs)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// SendOTP emails the confirmation code to the client and moves a draft
// document to sent.
func (h *DocumentHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	doc, err := h.Docs.GetByHash(hash)
	if err != nil {
		writeDocError(w, err)
		return
	}
	if doc.ClientEmail == "" {
		httpx.JSONError(w, http.StatusBadRequest, "client_email_missing", nil)
		return
	}
	if err := h.Mailer.SendOTP(r.Context(), doc.ClientEmail, doc.OTP); err != nil {
		httpx.JSONError(w, http.StatusBadGateway, "otp_send_failed", nil)
		return
	}
	doc, err = h.Docs.MarkOTPSent(hash)
	if err != nil {
		writeDocError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Reject(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Docs.Reject(r.PathValue("hash"))
	if err != nil {
		writeDocError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

// Analyze asks the content generator for a short commercial summary.
func (h *DocumentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.Analysis == nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "analysis_not_configured", nil)
		return
	}
	summary, err := h.Analysis.AnalyzeDocument(r.Context(), r.PathValue("hash"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeDocError(w, err)
			return
		}
		httpx.JSONError(w, http.StatusBadGateway, "analysis_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"summary": summary})
}
