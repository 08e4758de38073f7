package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// InvocationRequest is the payload AgentCore posts to /invocations.
type InvocationRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"user_id"`
}

// Server exposes the AgentCore runtime contract: GET /ping for health,
// POST /invocations streaming events as SSE, plus a websocket at /ws for
// frontends that hold a connection open.
type Server struct {
	engine   *Engine
	addr     string
	upgrader websocket.Upgrader
}

func NewServer(engine *Engine, addr string) *Server {
	return &Server{
		engine: engine,
		addr:   addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Cognito JWT auth happens at the AgentCore front door,
			// origin checks add nothing behind it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/invocations", s.handleInvocations)
	mux.HandleFunc("/ws", s.handleWebsocket)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("agent server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "Healthy"})
}

func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req InvocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"type":"error","data":"Error: Invalid request format."}`, http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.engine.Respond(r.Context(), req.UserID, req.Prompt, func(event Event) {
		data, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Msg("encoding event failed")
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	})
}

// handleWebsocket serves multiple prompts over one connection. Each inbound
// JSON message gets the same event stream the SSE endpoint produces.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var req InvocationRequest
		if err := conn.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		s.engine.Respond(r.Context(), req.UserID, req.Prompt, func(event Event) {
			if err := conn.WriteJSON(event); err != nil {
				log.Warn().Err(err).Msg("websocket write failed")
			}
		})
	}
}
