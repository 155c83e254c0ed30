// Package terminal is the play server: it serves BASIC games to browsers
// over WebSocket, one interpreter per connection.
package terminal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/antibyte/pixelbasic/pkg/auth"
	"github.com/antibyte/pixelbasic/pkg/basic"
	"github.com/antibyte/pixelbasic/pkg/configuration"
	"github.com/antibyte/pixelbasic/pkg/logger"
	"github.com/antibyte/pixelbasic/pkg/resources"
	"github.com/antibyte/pixelbasic/pkg/shared"
	"github.com/antibyte/pixelbasic/pkg/store"

	"github.com/gorilla/websocket"
)

// ProgramStore is the part of the program library the server needs.
type ProgramStore interface {
	Load(name string) (*store.Program, error)
	List() ([]store.Program, error)
	Save(name, source string) (bool, error)
}

// Server hält den Zustand des Play-Servers
type Server struct {
	sessions  *resources.SessionManager
	programs  ProgramStore
	clients   *ClientManager
	upgrader  websocket.Upgrader
	validator *JSONValidator
	opts      basic.Options
	tickRate  int
}

// NewServer creates a play server. Interpreter options and tick rate come
// from settings.cfg.
func NewServer(sessions *resources.SessionManager, programs ProgramStore) *Server {
	maxProgram := configuration.GetInt("Store", "max_program_kb", 256) * 1024
	return &Server{
		sessions: sessions,
		programs: programs,
		clients:  NewClientManager(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		validator: NewJSONValidator(int(getMaxMessageSize()), maxProgram),
		opts:      basic.OptionsFromConfig(),
		tickRate:  configuration.GetInt("Server", "tick_rate", 30),
	}
}

// Routes returns the HTTP handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", auth.NewTokenHandler(s.sessions))
	mux.HandleFunc("/api/token/validate", auth.HandleTokenValidation)
	mux.HandleFunc("GET /api/programs", s.handleListPrograms)
	mux.HandleFunc("POST /api/programs", auth.RequireSessionToken(s.handleSaveProgram))
	mux.HandleFunc("GET /api/programs/{name}", s.handleGetProgram)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("/ws", auth.RequireSessionToken(s.HandleWebSocket))
	return mux
}

// Shutdown closes every open connection.
func (s *Server) Shutdown() {
	s.clients.CloseAll()
}

// ClientCount returns the number of open connections.
func (s *Server) ClientCount() int { return s.clients.GetClientCount() }

// HandleWebSocket upgrades an authenticated request and starts the game
// for the session in its token.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := s.sessions.Get(claims.SessionID); err != nil {
		http.Error(w, "session expired", http.StatusUnauthorized)
		return
	}
	program := r.URL.Query().Get("program")
	if program == "" {
		program = claims.Program
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(logger.AreaWebSocket, "upgrade failed for session %s: %v", claims.SessionID, err)
		return
	}

	client := newClient(s, conn, claims.SessionID)
	if err := s.sessions.Attach(claims.SessionID, client.Close); err != nil {
		logger.Warn(logger.AreaSession, "attach refused: %v", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		conn.Close()
		return
	}
	s.clients.AddClient(claims.SessionID, client)
	logger.Info(logger.AreaWebSocket, "session %s connected from %s (program %q)", claims.SessionID, r.RemoteAddr, program)

	client.sendMessage(shared.Message{Type: shared.MessageTypeSession, SessionID: claims.SessionID})
	if program != "" {
		if p, err := s.programs.Load(program); err != nil {
			client.sendMessage(shared.Message{Type: shared.MessageTypeError, Content: err.Error()})
		} else {
			client.requestLoad(p.Source)
		}
	}

	go client.writePump()
	go client.runGame(s.tickRate)
	client.readPump()
}

func (s *Server) cleanupClient(c *Client) {
	c.Close()
	s.clients.RemoveClient(c.sessionID, c)
	s.sessions.Detach(c.sessionID)
	logger.Info(logger.AreaWebSocket, "session %s disconnected", c.sessionID)
}

type programInfo struct {
	Name      string `json:"name"`
	Lines     int    `json:"lines"`
	Checksum  string `json:"checksum"`
	UpdatedAt int64  `json:"updatedAt"`
	Source    string `json:"source,omitempty"`
}

type saveRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Saved   bool   `json:"saved,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	list, err := s.programs.List()
	if err != nil {
		logger.Error(logger.AreaStore, "listing programs: %v", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "store unavailable"})
		return
	}
	out := make([]programInfo, 0, len(list))
	for _, p := range list {
		out = append(out, programInfo{Name: p.Name, Lines: p.Lines, Checksum: p.Checksum, UpdatedAt: p.UpdatedAt.Unix()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.programs.Load(r.PathValue("name"))
	if errors.Is(err, store.ErrProgramNotFound) {
		writeJSON(w, http.StatusNotFound, apiResponse{Message: err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, programInfo{
		Name: p.Name, Lines: p.Lines, Checksum: p.Checksum, UpdatedAt: p.UpdatedAt.Unix(), Source: p.Source,
	})
}

func (s *Server) handleSaveProgram(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	body := http.MaxBytesReader(w, r.Body, int64(s.validator.MaxProgramBytes)+4096)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "invalid request body"})
		return
	}
	saved, err := s.programs.Save(strings.TrimSpace(req.Name), req.Source)
	if err != nil {
		status := http.StatusInternalServerError
		if _, isBasic := basic.AsBASICError(err); isBasic ||
			errors.Is(err, store.ErrInvalidName) || errors.Is(err, store.ErrProgramTooLarge) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, apiResponse{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Saved: saved})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		resources.Stats
		Clients int `json:"clients"`
	}{s.sessions.GetStats(), s.clients.GetClientCount()})
}
