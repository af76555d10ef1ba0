package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
	"github.com/TobiSchelling/TradeCheck/internal/database"
	"github.com/TobiSchelling/TradeCheck/internal/insights"
	"github.com/TobiSchelling/TradeCheck/internal/pipeline"
	"github.com/TobiSchelling/TradeCheck/internal/report"
	"github.com/TobiSchelling/TradeCheck/internal/workflow"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

const (
	maxBodyBytes         = 1 << 20
	dashboardValidations = 10
)

// ValidationLog lists recorded validations. *database.DB implements it.
type ValidationLog interface {
	RecentValidations(limit int) ([]database.Validation, error)
}

// Server is the HTTP server for call ingestion and the insight dashboard.
type Server struct {
	pipeline *pipeline.Pipeline
	agg      *insights.Aggregator
	history  ValidationLog
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server. history may be nil.
func New(p *pipeline.Pipeline, agg *insights.Aggregator, history ValidationLog) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone so "title" and "content" can be redefined.
	pageNames := []string{"index.html", "state.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{pipeline: p, agg: agg, history: history, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /states/{state}", s.handleStatePage)

	s.mux.HandleFunc("POST /api/calls", s.handleCreateCall)
	s.mux.HandleFunc("POST /api/validate", s.handleValidate)
	s.mux.HandleFunc("GET /api/aggregate", s.handleAggregate)
	s.mux.HandleFunc("GET /api/states", s.handleStates)
	s.mux.HandleFunc("GET /api/states/{state}", s.handleState)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ins, err := s.agg.Aggregate()
	if err != nil {
		log.Printf("Aggregate failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	states, err := s.agg.States()
	if err != nil {
		log.Printf("State summary failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var validations []database.Validation
	if s.history != nil {
		validations, err = s.history.RecentValidations(dashboardValidations)
		if err != nil {
			log.Printf("Listing validations failed: %v", err)
		}
	}

	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)

	s.render(w, "index.html", map[string]any{
		"Report": report.Markdown(report.Input{
			Insights:    ins,
			States:      states,
			Validations: validations,
			GeneratedAt: time.Now(),
		}),
		"States": names,
	})
}

func (s *Server) handleStatePage(w http.ResponseWriter, r *http.Request) {
	state, err := s.agg.State(r.PathValue("state"))
	if err != nil {
		log.Printf("State lookup failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if state == nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, "state.html", map[string]any{"State": state})
}

type callRequest struct {
	Transcript string          `json:"transcript"`
	Metadata   json.RawMessage `json:"metadata"`
	Products   []string        `json:"products"`
}

func (s *Server) handleCreateCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "No input provided")
		return
	}

	meta, err := parseMetadata(req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.pipeline.Ingest(r.Context(), calls.Transcript{
		Text:       req.Transcript,
		Metadata:   meta,
		ReceivedAt: time.Now().UTC(),
	}, req.Products)
	if err != nil && out == nil {
		log.Printf("Ingest failed: %v", err)
		writeError(w, http.StatusInternalServerError, "could not store call")
		return
	}
	if err != nil {
		log.Printf("Call %s stored, validation not recorded: %v", out.Record.ID, err)
	}
	writeJSON(w, http.StatusCreated, out)
}

type validateRequest struct {
	SellerID string          `json:"seller_identifier"`
	Products []string        `json:"products"`
	Workflow json.RawMessage `json:"workflow"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sellerID, products := req.SellerID, req.Products
	if len(req.Workflow) > 0 {
		out, err := workflow.Parse(rawText(req.Workflow))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid workflow output: %v", err))
			return
		}
		if strings.TrimSpace(sellerID) == "" {
			sellerID = out.SellerID
		}
		if len(products) == 0 {
			products = out.ConversationProducts()
		}
	}

	res, err := s.pipeline.Validate(r.Context(), sellerID, products)
	if err != nil && res == nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		log.Printf("Validation not recorded: %v", err)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	ins, err := s.agg.Aggregate()
	if err != nil {
		log.Printf("Aggregate failed: %v", err)
		writeError(w, http.StatusInternalServerError, "could not read calls")
		return
	}
	writeJSON(w, http.StatusOK, ins)
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	states, err := s.agg.States()
	if err != nil {
		log.Printf("State summary failed: %v", err)
		writeError(w, http.StatusInternalServerError, "could not read calls")
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.agg.State(r.PathValue("state"))
	if err != nil {
		log.Printf("State lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "could not read calls")
		return
	}
	if state == nil {
		writeError(w, http.StatusNotFound, "State not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// parseMetadata accepts either a JSON object or a string holding JSON or a
// tab-separated header/value block.
func parseMetadata(raw json.RawMessage) (calls.Metadata, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return calls.Metadata{}, nil
	}
	if raw[0] == '{' {
		var m calls.Metadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return calls.Metadata{}, fmt.Errorf("invalid metadata: %w", err)
		}
		return m, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return calls.Metadata{}, errors.New("metadata must be an object or a string")
	}
	return calls.ParseMetadata(text), nil
}

// rawText unwraps a JSON string, so workflow output can be posted either
// as JSON or as the text the workflow returned.
func rawText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(p *pipeline.Pipeline, agg *insights.Aggregator, history ValidationLog, port int) error {
	srv, err := New(p, agg, history)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
