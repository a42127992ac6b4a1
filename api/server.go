// Package api exposes the compliance-query pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/fabfab/ncc-advisor/query"
)

// Server wires HTTP handlers to the query service. CORS and auth
// pass-through are boundary configuration; the pipeline never sees them.
type Server struct {
	svc           *query.Service
	logger        *log.Logger
	allowedOrigin string
	handler       http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type queryContext struct {
	BuildingClass    string `json:"building_class"`
	State            string `json:"state"`
	ConstructionType string `json:"construction_type"`
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type queryRequest struct {
	Question    string       `json:"question"`
	Context     queryContext `json:"context"`
	ChatHistory []chatTurn   `json:"chat_history"`
}

type queryReference struct {
	Section string `json:"section"`
	Title   string `json:"title"`
}

type queryResponse struct {
	Answer     string           `json:"answer"`
	References []queryReference `json:"references"`
}

// New constructs a Server around the given query service.
func New(svc *query.Service, allowedOrigin string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{svc: svc, logger: logger, allowedOrigin: allowedOrigin}
	s.handler = s.cors(s.routes())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/query", s.handleQuery)
	return mux
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.allowedOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	resp, err := s.svc.Ask(r.Context(), toQueryRequest(req))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, query.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toQueryResponse(resp))
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}

func toQueryRequest(req queryRequest) query.Request {
	history := make([]query.ChatTurn, len(req.ChatHistory))
	for i, turn := range req.ChatHistory {
		history[i] = query.ChatTurn{Role: turn.Role, Content: turn.Content}
	}

	return query.Request{
		Question: req.Question,
		Context: query.ProjectContext{
			BuildingClass:    req.Context.BuildingClass,
			Jurisdiction:     req.Context.State,
			ConstructionType: req.Context.ConstructionType,
		},
		History: history,
	}
}

func toQueryResponse(resp query.Response) queryResponse {
	references := make([]queryReference, len(resp.References))
	for i, ref := range resp.References {
		references[i] = queryReference{Section: ref.Section, Title: ref.Title}
	}

	return queryResponse{Answer: resp.Answer, References: references}
}
