package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/storage"
	"github.com/sandeepkv93/todod/internal/store"
	"go.uber.org/zap"
)

const (
	codeBadRequest   = "BAD_REQUEST"
	codeValidation   = "VALIDATION_ERROR"
	codeNotFound     = "NOT_FOUND"
	codeUnauthorized = "UNAUTHORIZED"
	codeInternal     = "INTERNAL"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ToggleRequest struct {
	Completed bool `json:"completed"`
}

// IDsRequest carries ids for bulk delete and reorder.
type IDsRequest struct {
	IDs []string `json:"ids"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{
		Status:   model.StatusFilter(q.Get("status")),
		Category: q.Get("category"),
	}
	if raw := q.Get("priority"); raw != "" && raw != string(model.PriorityAll) {
		p, err := model.ParsePriority(raw)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), "priority")
			return
		}
		filter.Priority = p
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		s.respondError(w, r, http.StatusBadRequest, codeValidation, "unknown status filter", "status")
		return
	}

	tasks, err := s.backend.GetTodos(r.Context(), filter)
	if err != nil {
		s.handleError(w, r, "list todos", err)
		return
	}
	s.respondJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request) {
	var in model.TaskInput
	if !s.decode(w, r, &in) {
		return
	}
	task, err := s.backend.CreateTodo(r.Context(), in)
	if err != nil {
		s.handleError(w, r, "create todo", err)
		return
	}
	s.logger.Info("todo created", zap.String("task_id", task.ID))
	s.respondJSON(w, http.StatusCreated, task)
}

func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in model.TaskInput
	if !s.decode(w, r, &in) {
		return
	}
	task, err := s.backend.UpdateTodo(r.Context(), id, in)
	if err != nil {
		s.handleError(w, r, "update todo", err)
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteTodo(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleError(w, r, "delete todo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleTodo(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.backend.ToggleTodo(r.Context(), chi.URLParam(r, "id"), req.Completed)
	if err != nil {
		s.handleError(w, r, "toggle todo", err)
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		s.respondError(w, r, http.StatusBadRequest, codeValidation, "at least one id is required", "ids")
		return
	}
	if err := s.backend.BulkDelete(r.Context(), req.IDs); err != nil {
		s.handleError(w, r, "bulk delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reorder(w http.ResponseWriter, r *http.Request) {
	var req IDsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.backend.ReorderTodos(r.Context(), req.IDs); err != nil {
		s.handleError(w, r, "reorder todos", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.backend.GetCategories(r.Context())
	if err != nil {
		s.handleError(w, r, "get categories", err)
		return
	}
	s.respondJSON(w, http.StatusOK, CategoriesResponse{Categories: cats})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.backend.GetStats(r.Context())
	if err != nil {
		s.handleError(w, r, "get stats", err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.respondError(w, r, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error(), "")
		return false
	}
	return true
}

// handleError maps collaborator errors onto status codes.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var fe *model.FieldError
	switch {
	case errors.As(err, &fe):
		s.respondError(w, r, http.StatusBadRequest, codeValidation, fe.Err.Error(), fe.Field)
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, codeNotFound, err.Error(), "")
	default:
		s.logger.Error("request failed",
			zap.String("op", op),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		s.respondError(w, r, http.StatusInternalServerError, codeInternal, op+" failed", "")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("encode response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code, message, field string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		Field:     field,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
