// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/todoapi/internal/domain/model"
	"github.com/okian/todoapi/pkg/logger"
	"github.com/okian/todoapi/pkg/metrics"
)

// Route names and metric endpoint labels.
const (
	routeGetTodo = "GetTodo"

	endpointTodoList = "todo_list"
	endpointTodoItem = "todo_item"
	endpointHealth   = "healthz"
	endpointStats    = "stats"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	TodoDependencies
	StatsProvider
	ReadinessProvider
}

// TodoItem is the resource shape served under /api/todo.
type TodoItem = model.TodoItem

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	todoHandler   *TodoHandler
	logger        logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.Get()
	}
	log = log.Named("http")
	return &Server{
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
		todoHandler:   NewTodoHandler(deps, log),
		logger:        log,
	}
}

// Register attaches all HTTP routes and middleware to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.Use(RequestIDMiddleware, AccessLogMiddleware(s.logger))

	h := s.todoHandler
	h.router = r

	r.HandleFunc("/api/todo", MetricsMiddleware(h.HandleList, endpointTodoList)).Methods(http.MethodGet)
	r.HandleFunc("/api/todo", MetricsMiddleware(h.HandleCreate, endpointTodoList)).Methods(http.MethodPost)
	r.HandleFunc("/api/todo/{id}", MetricsMiddleware(h.HandleGet, endpointTodoItem)).Methods(http.MethodGet).Name(routeGetTodo)
	r.HandleFunc("/api/todo/{id}", MetricsMiddleware(h.HandleUpdate, endpointTodoItem)).Methods(http.MethodPut)
	r.HandleFunc("/api/todo/{id}", MetricsMiddleware(h.HandleDelete, endpointTodoItem)).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, endpointHealth)).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, endpointStats)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
