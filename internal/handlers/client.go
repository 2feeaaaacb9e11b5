package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"preventivo/internal/httpx"
	"preventivo/internal/models"
)

type ClientHandler struct {
	DB *gorm.DB
}

func NewClientHandler(db *gorm.DB) *ClientHandler { return &ClientHandler{DB: db} }

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
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
	dbq := h.DB.Model(&models.Client{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where(
			"lower(company_name) LIKE ? OR lower(email) LIKE ? OR lower(fiscal_code) LIKE ? OR lower(vat_number) LIKE ?",
			like, like, like, like,
		)
	}
	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	var clients []models.Client
	if err := dbq.Order("company_name asc").Limit(limit).Offset(offset).Find(&clients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_clients", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": clients, "total": total, "limit": limit, "offset": offset})
}

// duplicateField reports the first identifying field an existing client
// already uses. The check is soft: no unique indexes back it, matching the
// interactive "did you mean" flow in the admin UI.
func (h *ClientHandler) duplicateField(c *models.Client, excludeID uint) (string, error) {
	checks := []struct {
		field string
		value string
	}{
		{"fiscal_code", c.FiscalCode},
		{"vat_number", c.VATNumber},
		{"company_name", c.CompanyName},
		{"email", c.Email},
	}
	for _, chk := range checks {
		if chk.value == "" {
			continue
		}
		var count int64
		q := h.DB.Model(&models.Client{}).Where(chk.field+" = ?", chk.value)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count > 0 {
			return chk.field, nil
		}
	}
	return "", nil
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var c models.Client
	if err := httpx.Decode(r, &c); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	c.ID = 0
	if c.CompanyName == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"companyName": "required"})
		return
	}
	field, err := h.duplicateField(&c, 0)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "client_create_failed", nil)
		return
	}
	if field != "" {
		httpx.JSONError(w, http.StatusConflict, "client_already_exists", map[string]string{"field": field})
		return
	}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "client_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var c models.Client
	if err := h.DB.First(&c, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var existing models.Client
	if err := h.DB.First(&existing, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var c models.Client
	if err := httpx.Decode(r, &c); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	field, err := h.duplicateField(&c, existing.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "client_update_failed", nil)
		return
	}
	if field != "" {
		httpx.JSONError(w, http.StatusConflict, "client_already_exists", map[string]string{"field": field})
		return
	}
	if err := h.DB.Save(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "client_update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	res := h.DB.Delete(&models.Client{}, id)
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
