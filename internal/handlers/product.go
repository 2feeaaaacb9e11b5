package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"preventivo/internal/httpx"
	"preventivo/internal/models"
	"preventivo/internal/storage"
)

// maxImageSize caps product image uploads at 5 MiB.
const maxImageSize = 5 << 20

type ProductHandler struct {
	DB    *gorm.DB
	Store *storage.Store
}

func NewProductHandler(db *gorm.DB, store *storage.Store) *ProductHandler {
	return &ProductHandler{DB: db, Store: store}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	dbq := h.DB.Model(&models.Product{})
	if company := r.URL.Query().Get("company"); company != "" {
		dbq = dbq.Where("company = ?", company)
	}
	if category := r.URL.Query().Get("category"); category != "" {
		dbq = dbq.Where("category = ?", category)
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		dbq = dbq.Where("lower(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	var products []models.Product
	if err := dbq.Order("name asc").Find(&products).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_products", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := httpx.Decode(r, &p); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	p.ID = 0
	if p.Name == "" || p.Price < 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{
			"name": "required", "price": "must be non-negative",
		})
		return
	}
	p.NormalizeComponents()
	if err := h.DB.Create(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "product_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var existing models.Product
	if err := h.DB.First(&existing, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var p models.Product
	if err := httpx.Decode(r, &p); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	if p.ImageURL == "" {
		p.ImageURL = existing.ImageURL
	}
	p.NormalizeComponents()
	if err := h.DB.Save(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "product_update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Delete soft-deletes the product and removes its stored image, if any.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err := h.DB.Delete(&p).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	if p.ImageURL != "" {
		if err := h.Store.Delete(filepath.Base(p.ImageURL)); err != nil && !errors.Is(err, storage.ErrNotFound) {
			// The row is gone; a stale image file is not worth failing over.
			_ = err
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// UploadImage accepts a multipart image and associates it with the product.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var p models.Product
	if err := h.DB.First(&p, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_multipart", nil)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "image_missing", nil)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		httpx.JSONError(w, http.StatusBadRequest, "unsupported_image_type", nil)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "image_read_failed", nil)
		return
	}

	name := fmt.Sprintf("product-%d%s", p.ID, ext)
	if _, err := h.Store.Save(name, data); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "image_save_failed", nil)
		return
	}
	p.ImageURL = "/files/" + name
	if err := h.DB.Model(&p).Update("image_url", p.ImageURL).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "product_update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
