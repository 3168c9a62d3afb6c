package monitor

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"concentrese/internal/concentrese/game"
	"concentrese/internal/concentrese/store"
)

// Server is the admin/observation HTTP surface: match state snapshots,
// the websocket event feed, and the match lifecycle actions (start,
// reset, turn control, player registration).
type Server struct {
	coord   *game.Coordinator
	players *store.PlayerStore
	hub     *Hub
	log     *zap.Logger
}

func NewServer(coord *game.Coordinator, players *store.PlayerStore, hub *Hub, logger *zap.Logger) *Server {
	return &Server{coord: coord, players: players, hub: hub, log: logger}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/api/start", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/api/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/api/advance", s.handleAdvance).Methods(http.MethodPost)
	r.HandleFunc("/api/turn", s.handleSetTurn).Methods(http.MethodPost)
	r.HandleFunc("/api/players", s.handleRegisterPlayer).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.hub.ServeWS)
	return r
}

// ListenAndServe blocks serving the monitor API.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("monitor activo", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.StartGame(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "iniciado"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.coord.ResetGame()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reiniciado"})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.coord.AdvanceTurn()
	writeJSON(w, http.StatusOK, map[string]int{"activeTurn": s.coord.ActiveTurn()})
}

func (s *Server) handleSetTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Turn int `json:"turn"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.coord.SetTurn(req.Turn); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"activeTurn": req.Turn})
}

func (s *Server) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	if s.players == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("registro de jugadores no disponible"))
		return
	}

	var req struct {
		Name     string `json:"name"`
		Cedula   string `json:"cedula"`
		Username string `json:"username"`
		Secret   string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Username == "" || req.Secret == "" {
		writeError(w, http.StatusBadRequest, errors.New("username y secret son obligatorios"))
		return
	}

	p := store.Player{Name: req.Name, Cedula: req.Cedula, Username: req.Username}
	if err := s.players.Insert(p, req.Secret); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
