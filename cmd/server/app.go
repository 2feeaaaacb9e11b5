package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"preventivo/internal/auth"
	"preventivo/internal/config"
	"preventivo/internal/handlers"
	"preventivo/internal/mailer"
	"preventivo/internal/middleware"
	"preventivo/internal/models"
	"preventivo/internal/pdf"
	"preventivo/internal/services"
	"preventivo/internal/storage"
)

// App wires the handlers, middleware and static assets into one handler.
type App struct {
	handler http.Handler
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func NewApp(cfg config.Config, conn *gorm.DB, renderer pdf.Renderer, store *storage.Store, mail mailer.Mailer, generator services.ContentGenerator) (*App, error) {
	docs := services.NewDocumentService(conn)
	quotes := services.NewQuoteService(conn, renderer, store)
	var analysis *services.AnalysisService
	if generator != nil {
		analysis = services.NewAnalysisService(docs, quotes, generator)
	}

	api := &handlers.API{
		Users:      handlers.NewUserHandler(conn, []byte(cfg.Auth.JWTSecret)),
		Clients:    handlers.NewClientHandler(conn),
		Products:   handlers.NewProductHandler(conn, store),
		Documents:  handlers.NewDocumentHandler(docs, analysis, mail, cfg.SMTP.BaseURL),
		PDFs:       handlers.NewPDFHandler(conn, quotes, store),
		ClientView: handlers.NewClientViewHandler(docs, quotes),
	}

	mux := http.NewServeMux()
	api.Register(mux, auth.RequireAuth)

	reg := prometheus.NewRegistry()
	metrics, err := middleware.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Product images and generated PDFs served straight from the store.
	mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(store.Dir()))))

	// Admin SPA with index fallback for client-side routes.
	mux.Handle("/", spaHandler(cfg.Server.StaticDir))

	verifier := func(ctx context.Context, uid uint) bool {
		var count int64
		if err := conn.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	}

	var handler http.Handler = mux
	handler = auth.Middleware([]byte(cfg.Auth.JWTSecret), verifier)(handler)
	handler = middleware.Logging(handler)
	handler = metrics.Handler(handler)
	handler = middleware.RequestID(handler)
	return &App{handler: handler}, nil
}

// spaHandler serves static assets and falls back to index.html so the
// browser-side router owns unknown paths.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
