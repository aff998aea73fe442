package main

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/portfolio-ai/internal/gemini"
	"github.com/Zachkp/portfolio-ai/internal/prompt"
)

const maxBodyBytes = 64 << 10

// Completer is the completion backend the proxy forwards to.
type Completer interface {
	Generate(ctx context.Context, req gemini.Request) (string, error)
}

type aiHandler struct {
	llm     Completer
	chat    *prompt.Template
	catalog *Catalog
	store   *Store
	hashIP  func(ip string) string
}

func newAIHandler(llm Completer, systemPrompt string, catalog *Catalog, store *Store, hashIP func(string) string) *aiHandler {
	return &aiHandler{
		llm:     llm,
		chat:    prompt.ProjectChat(systemPrompt),
		catalog: catalog,
		store:   store,
		hashIP:  hashIP,
	}
}

type aiRequest struct {
	ProjectTitle   string `json:"projectTitle"`
	ProjectDetails string `json:"projectDetails"`
	UserInput      string `json:"userInput"`
}

type caseStudyRequest struct {
	ProjectTitle   string `json:"projectTitle"`
	ProjectDetails string `json:"projectDetails"`
	Format         string `json:"format"`
}

type caseStudy struct {
	Challenge string `json:"challenge"`
	Solution  string `json:"solution"`
	Outcome   string `json:"outcome"`
}

func (h *aiHandler) register(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/ai", h.handleProxy)
	api.POST("/case-study", h.handleCaseStudy)

	r.POST("/projects/:slug/case-study", h.handleCaseStudyFragment)
	r.POST("/projects/:slug/ask", h.handleAskFragment)
}

// handleProxy forwards {projectTitle, projectDetails, userInput} as a
// system+user prompt pair and relays {reply}.
func (h *aiHandler) handleProxy(c *gin.Context) {
	var req aiRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	reply, err := h.complete(c, "/api/ai", req.ProjectTitle, h.chat, prompt.Input{
		Title:    req.ProjectTitle,
		Details:  req.ProjectDetails,
		Question: req.UserInput,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, proxyError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (h *aiHandler) handleCaseStudy(c *gin.Context) {
	var req caseStudyRequest
	if err := bindJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.ProjectDetails) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": prompt.ErrEmptyProject.Error()})
		return
	}

	in := prompt.Input{Title: req.ProjectTitle, Details: req.ProjectDetails}
	if strings.EqualFold(req.Format, "json") {
		text, err := h.complete(c, "/api/case-study", req.ProjectTitle, prompt.CaseStudyJSON, in)
		if err != nil {
			c.JSON(http.StatusInternalServerError, proxyError(err))
			return
		}
		var cs caseStudy
		if err := json.Unmarshal([]byte(text), &cs); err != nil {
			log.Printf("[%s] case study JSON did not decode: %v", requestID(c), err)
			c.JSON(http.StatusInternalServerError, proxyError(gemini.ErrMalformedResponse))
			return
		}
		c.JSON(http.StatusOK, gin.H{"caseStudy": cs})
		return
	}

	text, err := h.complete(c, "/api/case-study", req.ProjectTitle, prompt.CaseStudy, in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, proxyError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": prompt.Sanitize(text)})
}

// HTMX fragments answer 200 on upstream failure so the error text is swapped
// into the modal.
func (h *aiHandler) handleCaseStudyFragment(c *gin.Context) {
	project, ok := h.catalog.Find(c.Param("slug"))
	if !ok {
		c.HTML(http.StatusNotFound, "case-study-error.html", gin.H{
			"error": "Sorry, that project could not be found.",
		})
		return
	}

	text, err := h.complete(c, "/projects/case-study", project.Title, prompt.CaseStudy, prompt.Input{
		Title:   project.Title,
		Details: project.Details,
	})
	if err != nil {
		c.HTML(http.StatusOK, "case-study-error.html", gin.H{
			"error":  "Sorry, there was an error generating the case study. Please try again later.",
			"detail": userMessage(err),
		})
		return
	}

	c.HTML(http.StatusOK, "case-study.html", gin.H{
		"title": "AI Case Study: " + project.Title,
		"body":  template.HTML(prompt.Sanitize(text)),
	})
}

func (h *aiHandler) handleAskFragment(c *gin.Context) {
	project, ok := h.catalog.Find(c.Param("slug"))
	if !ok {
		c.HTML(http.StatusNotFound, "chat-error.html", gin.H{
			"error": "Sorry, that project could not be found.",
		})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	question := strings.TrimSpace(c.PostForm("question"))
	if question == "" {
		c.HTML(http.StatusOK, "chat-error.html", gin.H{
			"error": "Please enter a question.",
		})
		return
	}

	reply, err := h.complete(c, "/projects/ask", project.Title, h.chat, prompt.Input{
		Title:    project.Title,
		Details:  project.Details,
		Question: question,
	})
	if err != nil {
		c.HTML(http.StatusOK, "chat-error.html", gin.H{
			"error":  "Sorry, the assistant could not answer right now.",
			"detail": userMessage(err),
		})
		return
	}

	c.HTML(http.StatusOK, "chat-reply.html", gin.H{
		"question": question,
		"reply":    reply,
	})
}

// complete builds the prompt, calls the backend once and records the outcome.
func (h *aiHandler) complete(c *gin.Context, endpoint, project string, tmpl *prompt.Template, in prompt.Input) (string, error) {
	start := time.Now()
	req, err := tmpl.Build(in)
	if err == nil {
		var text string
		text, err = h.llm.Generate(c.Request.Context(), req)
		if err == nil {
			h.record(c, endpoint, project, start, nil)
			return text, nil
		}
	}

	log.Printf("[%s] AI request to %s failed: %v", requestID(c), endpoint, err)
	h.record(c, endpoint, project, start, err)
	return "", err
}

func (h *aiHandler) record(c *gin.Context, endpoint, project string, start time.Time, callErr error) {
	if h.store == nil {
		return
	}
	entry := AIRequestLog{
		RequestID: requestID(c),
		HashedIP:  h.hashIP(c.ClientIP()),
		Endpoint:  endpoint,
		Project:   strings.TrimSpace(project),
		Status:    statusOK,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if callErr != nil {
		entry.Status = statusError
		entry.Error = userMessage(callErr)
	}
	// The request context may already be cancelled by a departed client.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.store.RecordAIRequest(ctx, entry); err != nil {
		log.Printf("Error recording AI request: %v", err)
	}
}

func bindJSON(c *gin.Context, dst any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	return c.ShouldBindJSON(dst)
}

// proxyError is the {error, detail} body returned with a 500.
func proxyError(err error) gin.H {
	var apiErr *gemini.APIError
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		return gin.H{"error": "Missing API key"}
	case errors.As(err, &apiErr):
		return gin.H{"error": "Gemini API error", "detail": apiErr.Message}
	case errors.Is(err, gemini.ErrMalformedResponse):
		return gin.H{"error": "AI request failed", "detail": gemini.ErrMalformedResponse.Error()}
	case errors.Is(err, prompt.ErrEmptyProject):
		return gin.H{"error": "AI request failed", "detail": err.Error()}
	default:
		return gin.H{"error": "AI request failed"}
	}
}

// userMessage is the short error text shown to visitors and kept in the log.
func userMessage(err error) string {
	var apiErr *gemini.APIError
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		return "The AI assistant is not configured."
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, gemini.ErrMalformedResponse), errors.Is(err, prompt.ErrEmptyProject):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI request timed out."
	default:
		return "AI request failed"
	}
}
