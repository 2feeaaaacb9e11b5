package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"preventivo/internal/auth"
	"preventivo/internal/mailer"
	"preventivo/internal/models"
	"preventivo/internal/services"
	"preventivo/internal/status"
	"preventivo/internal/storage"
)

var testSecret = []byte("test-secret")

type recordingMailer struct {
	shareTo, otpTo string
	otp            string
}

func (m *recordingMailer) SendShareLink(_ context.Context, to, link string) error {
	m.shareTo = to
	return nil
}

func (m *recordingMailer) SendOTP(_ context.Context, to, otp string) error {
	m.otpTo, m.otp = to, otp
	return nil
}

type stubRenderer struct{}

func (stubRenderer) RenderPDF(_ context.Context, _ string) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

type testEnv struct {
	db     *gorm.DB
	mux    http.Handler
	mail   *recordingMailer
	docs   *services.DocumentService
	token  string
	userID uint
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Client{}, &models.Product{},
		&models.Document{}, &models.Revision{}, &models.PDFFile{}, &models.ChangeRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	admin := models.User{Email: "admin@example.com", Role: models.RoleAdmin}
	if err := admin.SetPassword("password123"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	token, err := auth.GenerateToken(testSecret, admin.ID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	mail := &recordingMailer{}
	var _ mailer.Mailer = mail

	docs := services.NewDocumentService(db)
	quotes := services.NewQuoteService(db, stubRenderer{}, store)

	api := &API{
		Users:      NewUserHandler(db, testSecret),
		Clients:    NewClientHandler(db),
		Products:   NewProductHandler(db, store),
		Documents:  NewDocumentHandler(docs, nil, mail, "http://example.com"),
		PDFs:       NewPDFHandler(db, quotes, store),
		ClientView: NewClientViewHandler(docs, quotes),
	}
	mux := http.NewServeMux()
	api.Register(mux, auth.RequireAuth)

	handler := auth.Middleware(testSecret, nil)(mux)

	return &testEnv{db: db, mux: handler, mail: mail, docs: docs, token: token, userID: admin.ID}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestLoginAndMe(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/login", map[string]string{
		"email": "admin@example.com", "password": "password123",
	}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	out := decodeBody[map[string]any](t, rec)
	if out["token"] == "" {
		t.Error("no token in login response")
	}

	rec = e.do(t, http.MethodPost, "/api/login", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	}, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/me", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}
	me := decodeBody[models.User](t, rec)
	if me.Email != "admin@example.com" {
		t.Errorf("me email = %q", me.Email)
	}

	rec = e.do(t, http.MethodGet, "/api/me", nil, false)
	if rec.Code != http.StatusForbidden {
		t.Errorf("unauthenticated me: %d", rec.Code)
	}
}

func TestClientCRUD(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/clients", map[string]string{
		"companyName": "Beta Spa", "vatNumber": "IT123", "email": "beta@example.com",
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[models.Client](t, rec)

	// Same VAT number is flagged as a duplicate even with a new name.
	rec = e.do(t, http.MethodPost, "/api/clients", map[string]string{
		"companyName": "Other Srl", "vatNumber": "IT123",
	}, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate vat: %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPut, fmt.Sprintf("/api/clients/%d", created.ID), map[string]string{
		"companyName": "Beta Spa", "vatNumber": "IT123", "city": "Milano",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[models.Client](t, rec)
	if updated.City != "Milano" {
		t.Errorf("city = %q", updated.City)
	}

	rec = e.do(t, http.MethodGet, "/api/clients?q=beta", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	list := decodeBody[map[string]any](t, rec)
	if list["total"].(float64) != 1 {
		t.Errorf("total = %v", list["total"])
	}

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/api/clients/%d", created.ID), nil, true)
	if rec.Code != http.StatusOK {
		t.Errorf("delete: %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/clients/%d", created.ID), nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestProductCreateNormalizesComponents(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Engine", "price": 100.0,
		"components": []map[string]any{{"name": "Mount Kit", "price": 10.0}},
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	p := decodeBody[models.Product](t, rec)
	if len(p.Components) != 1 {
		t.Fatalf("components = %d", len(p.Components))
	}
	if p.Components[0].ID == "" {
		t.Error("component id not generated")
	}
	if p.Components[0].Quantity != 1 {
		t.Errorf("quantity = %v, want default 1", p.Components[0].Quantity)
	}

	rec = e.do(t, http.MethodPost, "/api/products", map[string]any{"price": 10.0}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("nameless product: %d", rec.Code)
	}
}

func newTestDocument(t *testing.T, e *testEnv, data string) map[string]any {
	t.Helper()
	body := map[string]any{
		"clientEmail": "client@example.com",
		"company":     "Acme Srl",
	}
	if data != "" {
		body["data"] = json.RawMessage(data)
	}
	rec := e.do(t, http.MethodPost, "/api/documents", body, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create document: %d %s", rec.Code, rec.Body.String())
	}
	return decodeBody[map[string]any](t, rec)
}

func TestDocumentEndpoints(t *testing.T) {
	e := newTestEnv(t)
	doc := newTestDocument(t, e, `{"addedProducts":[{"name":"Engine","price":100,"components":[]}]}`)
	hash := doc["hash"].(string)

	if e.mail.shareTo != "client@example.com" {
		t.Errorf("share link sent to %q", e.mail.shareTo)
	}
	if _, ok := doc["otp"]; ok {
		t.Error("otp leaked in create response")
	}

	rec := e.do(t, http.MethodGet, "/api/documents/"+hash, nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}

	rec = e.do(t, http.MethodPut, "/api/documents/"+hash, map[string]any{
		"note":    "updated terms",
		"version": 1,
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
	save := decodeBody[map[string]any](t, rec)
	if save["success"] != true {
		t.Errorf("save result = %v", save)
	}

	// Stale version is a conflict, not a silent overwrite.
	rec = e.do(t, http.MethodPut, "/api/documents/"+hash, map[string]any{
		"note":    "stale",
		"version": 1,
	}, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("stale save: %d %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/api/documents/"+hash+"/send-otp", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("send otp: %d %s", rec.Code, rec.Body.String())
	}
	if e.mail.otpTo != "client@example.com" || e.mail.otp == "" {
		t.Errorf("otp mail: to=%q otp=%q", e.mail.otpTo, e.mail.otp)
	}
	sent := decodeBody[map[string]any](t, rec)
	if sent["state"] != string(status.Sent) || sent["otpSent"] != true {
		t.Errorf("after send-otp: %v", sent)
	}

	rec = e.do(t, http.MethodGet, "/api/documents/deadbeef", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown hash: %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/documents/"+hash, nil, false)
	if rec.Code != http.StatusForbidden {
		t.Errorf("unauthenticated get: %d", rec.Code)
	}
}

func TestDocumentReject(t *testing.T) {
	e := newTestEnv(t)
	doc := newTestDocument(t, e, "")
	hash := doc["hash"].(string)

	// Draft documents cannot be rejected yet.
	rec := e.do(t, http.MethodPost, "/api/documents/"+hash+"/reject", nil, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("reject from draft: %d %s", rec.Code, rec.Body.String())
	}

	if rec := e.do(t, http.MethodPost, "/api/documents/"+hash+"/send-otp", nil, true); rec.Code != http.StatusOK {
		t.Fatalf("send otp: %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/api/documents/"+hash+"/reject", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: %d %s", rec.Code, rec.Body.String())
	}
	out := decodeBody[map[string]any](t, rec)
	if out["state"] != string(status.Rejected) {
		t.Errorf("state = %v", out["state"])
	}
}

func TestCreateQuotePDF(t *testing.T) {
	e := newTestEnv(t)
	doc := newTestDocument(t, e, `{
		"selectedClient": {"companyName": "Beta Spa"},
		"addedProducts": [{"name": "Engine", "price": 100, "components": []}]
	}`)
	hash := doc["hash"].(string)

	rec := e.do(t, http.MethodPost, "/api/documents/"+hash+"/pdf", map[string]string{
		"type": "quote", "revisionName": "rev-1",
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create pdf: %d %s", rec.Code, rec.Body.String())
	}
	file := decodeBody[map[string]any](t, rec)
	name := file["name"].(string)
	if !strings.HasSuffix(name, "-ACM-Q.pdf") {
		t.Errorf("pdf name = %q", name)
	}

	rec = e.do(t, http.MethodGet, "/api/pdfs", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("list pdfs: %d", rec.Code)
	}
	files := decodeBody[[]map[string]any](t, rec)
	if len(files) != 1 {
		t.Fatalf("pdf count = %d", len(files))
	}

	rec = e.do(t, http.MethodGet, "/api/pdfs/"+name, nil, true)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("download: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = e.do(t, http.MethodGet, "/api/pdfs/stats", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d", rec.Code)
	}
	stats := decodeBody[storage.Stats](t, rec)
	if stats.TotalFiles != 1 {
		t.Errorf("stats total = %d", stats.TotalFiles)
	}

	rec = e.do(t, http.MethodDelete, "/api/pdfs/"+name, nil, true)
	if rec.Code != http.StatusOK {
		t.Errorf("delete pdf: %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/pdfs/"+name, nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("download after delete: %d", rec.Code)
	}
}

func TestClientViewFlow(t *testing.T) {
	e := newTestEnv(t)
	doc := newTestDocument(t, e, `{"addedProducts":[{"name":"Engine","price":100,"components":[]}]}`)
	hash := doc["hash"].(string)

	if rec := e.do(t, http.MethodPost, "/api/documents/"+hash+"/send-otp", nil, true); rec.Code != http.StatusOK {
		t.Fatalf("send otp: %d", rec.Code)
	}

	// Opening the link renders the page and marks the document viewed.
	rec := e.do(t, http.MethodGet, "/d/"+hash, nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("view: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Engine") {
		t.Error("view page missing product line")
	}
	got, err := e.docs.GetByHash(hash)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.State != status.Viewed {
		t.Errorf("state after view = %s", got.State)
	}

	// Client-side save marks the ball back in the employee's court.
	rec = e.do(t, http.MethodPost, "/d/"+hash+"/save", map[string]any{
		"note":    "please adjust delivery",
		"version": got.Version,
	}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("client save: %d %s", rec.Code, rec.Body.String())
	}
	got, _ = e.docs.GetByHash(hash)
	if !got.YourTurn {
		t.Error("client save did not set yourTurn")
	}

	// Wrong OTP is refused with an HTML error page.
	req := httptest.NewRequest(http.MethodPost, "/d/"+hash+"/confirm", strings.NewReader("otp=wrong"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("bad otp confirm: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/d/"+hash+"/confirm", strings.NewReader("otp="+e.mail.otp))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Thank you") {
		t.Error("confirm page missing acknowledgement")
	}

	got, _ = e.docs.GetByHash(hash)
	if got.State != status.Finalized || !got.ReadOnly || got.DateOfSignature == nil {
		t.Errorf("after confirm: state=%s readonly=%v signature=%v", got.State, got.ReadOnly, got.DateOfSignature)
	}

	// Finalized documents refuse further client edits.
	rec = e.do(t, http.MethodPost, "/d/"+hash+"/save", map[string]any{
		"note":    "too late",
		"version": got.Version,
	}, false)
	if rec.Code != http.StatusForbidden {
		t.Errorf("save after finalize: %d", rec.Code)
	}
}

func TestClientViewExpiredLink(t *testing.T) {
	e := newTestEnv(t)
	doc := newTestDocument(t, e, `{"addedProducts":[{"name":"Engine","price":100,"components":[]}]}`)
	hash := doc["hash"].(string)

	if rec := e.do(t, http.MethodPost, "/api/documents/"+hash+"/send-otp", nil, true); rec.Code != http.StatusOK {
		t.Fatalf("send otp: %d", rec.Code)
	}
	past := time.Now().Add(-24 * time.Hour)
	if err := e.db.Model(&models.Document{}).Where("hash = ?", hash).Update("expires_at", past).Error; err != nil {
		t.Fatalf("age document: %v", err)
	}

	rec := e.do(t, http.MethodGet, "/d/"+hash, nil, false)
	if rec.Code != http.StatusGone {
		t.Fatalf("expired view: %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "Engine") {
		t.Error("expired link leaked document content")
	}

	// Employees still read the document through the API.
	rec = e.do(t, http.MethodGet, "/api/documents/"+hash, nil, true)
	if rec.Code != http.StatusOK {
		t.Errorf("employee read of expired document: %d", rec.Code)
	}
}

func TestUserAdminEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/users", map[string]string{
		"email": "new@example.com", "password": "longenough", "role": "employee",
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: %d %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[models.User](t, rec)

	rec = e.do(t, http.MethodPost, "/api/users", map[string]string{
		"email": "new@example.com", "password": "longenough",
	}, true)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate email: %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/users", nil, true)
	users := decodeBody[[]models.User](t, rec)
	if len(users) != 2 {
		t.Errorf("user count = %d", len(users))
	}

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", e.userID), nil, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self delete: %d", rec.Code)
	}
	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", created.ID), nil, true)
	if rec.Code != http.StatusOK {
		t.Errorf("delete: %d", rec.Code)
	}
}
