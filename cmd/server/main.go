package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"preventivo/internal/config"
	"preventivo/internal/db"
	"preventivo/internal/mailer"
	"preventivo/internal/pdf"
	"preventivo/internal/services"
	"preventivo/internal/storage"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB migrations and the admin seed, then exit")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if cfg.App.Migrations || *migrateOnlyFlag || *seedOnlyFlag {
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if *migrateOnlyFlag {
		log.Println("migrations completed; exiting as requested")
		return
	}
	if err := db.Seed(conn); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	if *seedOnlyFlag {
		log.Println("seed completed; exiting as requested")
		return
	}

	store, err := storage.NewStore(cfg.PDF.Dir)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	renderer, err := pdf.NewChromeRenderer(context.Background(), cfg.PDF.ChromePath)
	if err != nil {
		log.Fatalf("pdf renderer init failed: %v", err)
	}
	defer renderer.Close()

	var mail mailer.Mailer = mailer.Nop{}
	if cfg.SMTP.Host != "" && !cfg.App.Dev {
		smtp, err := mailer.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			log.Fatalf("smtp init failed: %v", err)
		}
		mail = smtp
	} else {
		log.Println("smtp not configured or dev mode, outgoing mail disabled")
	}

	var generator services.ContentGenerator
	if cfg.AI.GeminiAPIKey != "" {
		gen, err := services.NewGeminiGenerator(context.Background(), cfg.AI.GeminiAPIKey, cfg.AI.Model)
		if err != nil {
			log.Fatalf("gemini init failed: %v", err)
		}
		defer gen.Close()
		generator = gen
	}

	app, err := NewApp(cfg, conn, renderer, store, mail, generator)
	if err != nil {
		log.Fatalf("app init failed: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	log.Println("server stopped")
}
