package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tbxark/convoform/agent"
	"github.com/tbxark/convoform/envelope"
)

const maxBodyBytes = 1 << 20

type Server struct {
	router *chi.Mux
	flow   *agent.FormFlow
	logger *slog.Logger
}

func NewServer(flow *agent.FormFlow, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		flow:   flow,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1/conversations", func(r chi.Router) {
		r.Post("/", s.createConversation)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getConversation)
			r.Delete("/", s.deleteConversation)
			r.Post("/messages", s.postMessage)
		})
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

type createConversationRequest struct {
	Prefill map[string]string `json:"prefill,omitempty"`
}

type conversationResponse struct {
	ID    string       `json:"id"`
	State *agent.State `json:"state"`
}

type messageRequest struct {
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := uuid.NewString()
	state, err := s.flow.Start(agent.WithStateKey(r.Context(), id), req.Prefill)
	if err != nil {
		s.logger.Error("Failed to start conversation", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversationResponse{ID: id, State: state})
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok, err := s.flow.Snapshot(agent.WithStateKey(r.Context(), id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("conversation not found"))
		return
	}
	writeJSON(w, http.StatusOK, conversationResponse{ID: id, State: state})
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.flow.Reset(agent.WithStateKey(r.Context(), chi.URLParam(r, "id"))); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// postMessage runs one turn and streams the reply in the data stream format.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := agent.WithStateKey(r.Context(), id)

	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, ok, err := s.flow.Snapshot(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	} else if !ok {
		writeError(w, http.StatusNotFound, errors.New("conversation not found"))
		return
	}

	resp, err := s.flow.Invoke(ctx, &agent.Request{UserInput: req.Message})
	switch {
	case errors.Is(err, agent.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, agent.ErrConversationFinished):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		s.logger.Error("Turn failed", "conversation", id, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer resp.Envelope.Close()

	w.Header().Set("Content-Type", envelope.ContentType)
	w.Header().Set(envelope.StreamHeader, envelope.StreamHeaderValue)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if _, err := resp.Envelope.WriteTo(w); err != nil {
		s.logger.Warn("Reply stream ended early", "conversation", id, "error", err)
	}
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return sonic.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
