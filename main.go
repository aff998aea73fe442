package main

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"

	"github.com/Zachkp/portfolio-ai/internal/gemini"
)

//go:embed templates/*.html
var templatesFS embed.FS

const requestIDKey = "requestID"

type server struct {
	catalog *Catalog
	ai      *aiHandler
	admin   *adminHandler
	aiReady bool
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	llm := gemini.NewClient(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GeminiTimeout,
	})
	if !llm.Configured() {
		color.Yellow("WARNING: GEMINI_API_KEY is not set; AI endpoints will answer with an error.")
	}

	admin, err := newAdminHandler(store, cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}
	if !admin.loginEnabled() {
		color.Yellow("WARNING: ADMIN_PASSWORD is not set; admin login is disabled.")
	}
	go admin.cleanup(ctx)

	catalog := NewCatalog(defaultProjects)
	s := &server{
		catalog: catalog,
		ai:      newAIHandler(llm, cfg.SystemPrompt, catalog, store, admin.hasher.Hash),
		admin:   admin,
		aiReady: llm.Configured(),
	}

	r, err := s.router()
	if err != nil {
		log.Fatalf("template init failed: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
	admin.wait()
}

func (s *server) router() (*gin.Engine, error) {
	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := gin.Default()
	r.SetHTMLTemplate(tmpl)
	r.Use(requestIDMiddleware())
	r.Use(s.admin.trackingMiddleware())

	for _, dir := range []string{"images", "static"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			r.Static("/"+dir, "./"+dir)
		}
	}

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"aboutMeContent": AboutMe,
			"projects":       s.catalog.All(),
			"aiEnabled":      s.aiReady,
		})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ai": s.aiReady})
	})

	s.ai.register(r)
	s.admin.register(r)
	return r, nil
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
