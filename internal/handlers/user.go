package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"preventivo/internal/auth"
	"preventivo/internal/httpx"
	"preventivo/internal/models"
)

type UserHandler struct {
	DB     *gorm.DB
	Secret []byte
}

func NewUserHandler(db *gorm.DB, secret []byte) *UserHandler {
	return &UserHandler{DB: db, Secret: secret}
}

// currentUser loads the authenticated user from the request context.
func (h *UserHandler) currentUser(r *http.Request) (*models.User, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	var u models.User
	if err := h.DB.First(&u, uid).Error; err != nil {
		return nil, false
	}
	return &u, true
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var u models.User
	err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !u.CheckPassword(input.Password)) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "login_failed", nil)
		return
	}
	token, err := auth.GenerateToken(h.Secret, u.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "login_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"token": token, "user": u})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(r)
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "unauthorized", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

// Create registers a new employee. Only admins may call it.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok || !actor.IsAdmin() {
		httpx.JSONError(w, http.StatusForbidden, "admin_required", nil)
		return
	}
	var input struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Company   string `json:"company"`
		Role      string `json:"role"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || len(input.Password) < 8 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{
			"email": "required", "password": "min 8 chars",
		})
		return
	}
	role := input.Role
	if role != models.RoleAdmin {
		role = models.RoleEmployee
	}
	u := models.User{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Company:   input.Company,
		Role:      role,
	}
	if err := u.SetPassword(input.Password); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "user_create_failed", nil)
		return
	}
	if err := h.DB.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "email_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "user_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok || !actor.IsAdmin() {
		httpx.JSONError(w, http.StatusForbidden, "admin_required", nil)
		return
	}
	var users []models.User
	if err := h.DB.Order("id asc").Find(&users).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_users", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(r)
	if !ok || !actor.IsAdmin() {
		httpx.JSONError(w, http.StatusForbidden, "admin_required", nil)
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if uint(id) == actor.ID {
		httpx.JSONError(w, http.StatusBadRequest, "cannot_delete_self", nil)
		return
	}
	res := h.DB.Delete(&models.User{}, id)
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
