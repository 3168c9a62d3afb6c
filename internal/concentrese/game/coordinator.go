// Package game implements the Concéntrese session engine: the per-client
// protocol sessions, the shared turn coordinator, and the TCP listener
// that binds them together.
package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"concentrese/internal/concentrese/board"
	"concentrese/internal/concentrese/protocol"
)

// ErrUserConnected is returned when a username is already logged in.
var ErrUserConnected = errors.New("usuario ya conectado")

// DefaultMismatchDelay is how long both cards stay revealed after a
// mismatch, so clients can show them before they flip back.
const DefaultMismatchDelay = 3 * time.Second

// Config carries the coordinator's collaborators and policies.
type Config struct {
	Logger *zap.Logger
	Sink   EventSink
	// Shutdown runs when only one player remains connected, since a
	// one-player match cannot continue. main wires this to os.Exit,
	// tests wire a recorder.
	Shutdown func()
	// MismatchDelay overrides DefaultMismatchDelay; zero selects the
	// default.
	MismatchDelay time.Duration
}

// Coordinator owns all state shared between sessions: the board, the
// registry of live sessions, the set of logged-in usernames, and the
// active turn. Every mutation of that state is serialized through its
// mutex; sessions never touch the board directly.
type Coordinator struct {
	log           *zap.Logger
	sink          EventSink
	shutdown      func()
	mismatchDelay time.Duration

	mu          sync.Mutex
	board       *board.Board
	sessions    []*Session
	usernames   map[string]bool
	turnCounter int
	activeTurn  int
	finished    bool
}

func NewCoordinator(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	delay := cfg.MismatchDelay
	if delay <= 0 {
		delay = DefaultMismatchDelay
	}
	return &Coordinator{
		log:           logger,
		sink:          cfg.Sink,
		shutdown:      cfg.Shutdown,
		mismatchDelay: delay,
		board:         board.New(),
		usernames:     make(map[string]bool),
		activeTurn:    1,
	}
}

// MismatchDelay returns the configured post-mismatch reveal delay.
func (c *Coordinator) MismatchDelay() time.Duration {
	return c.mismatchDelay
}

// Register adds a freshly accepted session to the registry.
func (c *Coordinator) Register(s *Session) {
	c.mu.Lock()
	c.sessions = append(c.sessions, s)
	total := len(c.sessions)
	c.mu.Unlock()

	c.log.Info("cliente agregado",
		zap.String("session", s.ID()),
		zap.String("addr", s.RemoteAddr()),
		zap.Int("total", total))
	c.publish(Event{Type: EventPlayerConnected, Detail: s.RemoteAddr()})
}

// Unregister removes a session after its connection drops, frees its
// username, and force-advances the turn if the session held it. When a
// single player is left the shutdown policy fires.
func (c *Coordinator) Unregister(s *Session) {
	c.mu.Lock()
	idx := -1
	for i, ss := range c.sessions {
		if ss == s {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.mu.Unlock()
		return
	}
	c.sessions = append(c.sessions[:idx], c.sessions[idx+1:]...)

	user := s.Username()
	if user != "" {
		delete(c.usernames, user)
	}

	var plans []pushPlan
	if t := s.TurnNumber(); t > 0 && t == c.activeTurn {
		plans = c.advanceLocked()
	}
	remaining := len(c.sessions)
	c.mu.Unlock()

	c.log.Info("cliente removido",
		zap.String("session", s.ID()),
		zap.String("usuario", user),
		zap.Int("restantes", remaining))
	c.fanOut(plans)
	c.publish(Event{Type: EventPlayerDisconnected, Player: user})

	if remaining == 1 {
		c.log.Error("solo queda un jugador conectado, deteniendo el servidor")
		if c.shutdown != nil {
			c.shutdown()
		}
	}
}

// ClaimUsername registers a username as connected and assigns the next
// turn number. Turn numbers are unique for the process lifetime.
func (c *Coordinator) ClaimUsername(username string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.usernames[username] {
		return 0, ErrUserConnected
	}
	c.usernames[username] = true
	c.turnCounter++
	return c.turnCounter, nil
}

// IsUserConnected reports whether the username is currently logged in.
func (c *Coordinator) IsUserConnected(username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usernames[username]
}

// ActiveTurn returns the turn number currently allowed to play.
func (c *Coordinator) ActiveTurn() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeTurn
}

// Finished reports whether the match has ended.
func (c *Coordinator) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// ValueAt delegates a board lookup. Coordinates are 0-based.
func (c *Coordinator) ValueAt(x, y int) string {
	return c.board.ValueAt(x, y)
}

// AdvanceTurn moves the active turn to the next connected player in
// turn-number order, wrapping from the highest back to the lowest, and
// notifies every session. With no authenticated sessions it is a no-op.
func (c *Coordinator) AdvanceTurn() {
	c.mu.Lock()
	plans := c.advanceLocked()
	c.mu.Unlock()
	c.fanOut(plans)
}

// advanceLocked computes and applies the next active turn, returning the
// notifications to deliver once the lock is released.
func (c *Coordinator) advanceLocked() []pushPlan {
	next := c.nextTurnLocked()
	if next == 0 {
		return nil
	}
	c.activeTurn = next
	c.log.Info("turno activo actualizado", zap.Int("turno", next))
	c.publish(Event{Type: EventTurnChanged, Turn: next})
	return c.turnNoticesLocked()
}

// nextTurnLocked scans for the smallest turn number strictly greater than
// the active turn, wrapping to the smallest overall. Sessions that have
// not authenticated yet (turn 0) are not part of the rotation.
func (c *Coordinator) nextTurnLocked() int {
	nextAbove, lowest := 0, 0
	for _, s := range c.sessions {
		t := s.TurnNumber()
		if t == 0 {
			continue
		}
		if t > c.activeTurn && (nextAbove == 0 || t < nextAbove) {
			nextAbove = t
		}
		if lowest == 0 || t < lowest {
			lowest = t
		}
	}
	if nextAbove != 0 {
		return nextAbove
	}
	return lowest
}

// lowestTurnLocked returns the smallest held turn number, or 0 when no
// session has authenticated.
func (c *Coordinator) lowestTurnLocked() int {
	lowest := 0
	for _, s := range c.sessions {
		if t := s.TurnNumber(); t > 0 && (lowest == 0 || t < lowest) {
			lowest = t
		}
	}
	return lowest
}

// turnNoticesLocked builds the fan-out for a turn change: every session
// learns the new active turn, and its holder is prompted to play.
func (c *Coordinator) turnNoticesLocked() []pushPlan {
	plans := make([]pushPlan, 0, len(c.sessions))
	for _, s := range c.sessions {
		frames := []string{protocol.Build(protocol.PushTurn, strconv.Itoa(c.activeTurn))}
		if s.TurnNumber() == c.activeTurn {
			frames = append(frames, protocol.PushPrompt)
		}
		plans = append(plans, pushPlan{s, frames})
	}
	return plans
}

// Play resolves a completed two-card selection against the board. The
// verify-and-mark sequence runs atomically with respect to other
// sessions' plays. When the final pair falls, the game-over broadcast
// fires here, exactly once.
func (c *Coordinator) Play(x1, y1 int, v1 string, x2, y2 int, v2 string) (matched, gameOver bool) {
	c.mu.Lock()
	matched = c.board.VerifyPair(x1, y1, v1, x2, y2, v2)
	pairs := c.board.PairsFound()
	var plans []pushPlan
	if matched && c.board.FullyMatched() && !c.finished {
		c.finished = true
		gameOver = true
		for _, s := range c.sessions {
			plans = append(plans, pushPlan{s, []string{protocol.PushGameOver}})
		}
	}
	c.mu.Unlock()

	if matched {
		c.log.Info("pareja encontrada",
			zap.Int("parejas", pairs),
			zap.Int("total", board.TotalPairs))
		c.publish(Event{Type: EventPairFound, PairsFound: pairs, TotalPairs: board.TotalPairs})
	}
	if gameOver {
		summary := c.WinnerSummary()
		c.log.Info("juego terminado", zap.String("resultado", summary))
		c.fanOut(plans)
		c.publish(Event{Type: EventGameOver, Detail: summary})
	}
	return matched, gameOver
}

// WinnerSummary finds the highest accuracy among logged-in players and
// formats the winner(s), listing every player tied at the top.
func (c *Coordinator) WinnerSummary() string {
	players := c.authedSessions()
	if len(players) == 0 {
		return "No hay jugadores conectados"
	}

	best := -1
	var winners []*Session
	for _, s := range players {
		_, _, pct := s.Stats()
		switch {
		case pct > best:
			best = pct
			winners = []*Session{s}
		case pct == best:
			winners = append(winners, s)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Ganador(es) con un porcentaje de acierto del %d%%:\n", best)
	for _, w := range winners {
		attempts, matches, _ := w.Stats()
		fmt.Fprintf(&sb, "- %s (usuario: %s) intentos: %d parejas: %d\n",
			w.DisplayName(), w.Username(), attempts, matches)
	}
	return sb.String()
}

// StartGame prompts the active player to begin. A match needs at least
// two logged-in players.
func (c *Coordinator) StartGame() error {
	c.mu.Lock()
	if c.loggedInLocked() < 2 {
		c.mu.Unlock()
		return errors.New("se necesitan al menos 2 jugadores conectados")
	}
	plans := c.turnNoticesLocked()
	turn := c.activeTurn
	c.mu.Unlock()

	c.log.Info("juego iniciado", zap.Int("turno", turn))
	c.fanOut(plans)
	c.publish(Event{Type: EventGameStarted, Turn: turn})
	return nil
}

// ResetGame reshuffles the board, clears the game-over latch, hands the
// active turn to the lowest connected player (1 when nobody holds a
// turn), and announces the restart. Player statistics survive until the
// player's next login.
func (c *Coordinator) ResetGame() {
	c.mu.Lock()
	c.board.Reset()
	c.finished = false
	c.activeTurn = 1
	if low := c.lowestTurnLocked(); low > 0 {
		c.activeTurn = low
	}
	turn := c.activeTurn
	plans := make([]pushPlan, 0, len(c.sessions))
	for _, s := range c.sessions {
		plans = append(plans, pushPlan{s, []string{protocol.PushReset}})
	}
	plans = append(plans, c.turnNoticesLocked()...)
	c.mu.Unlock()

	c.log.Info("juego reiniciado", zap.Int("turno", turn))
	c.fanOut(plans)
	c.publish(Event{Type: EventGameReset, Turn: turn})
}

// SetTurn hands the active turn to a specific turn number, for manual
// administration. Only positive turn numbers are accepted.
func (c *Coordinator) SetTurn(turn int) error {
	if turn <= 0 {
		return errors.New("el numero de turno debe ser mayor a 0")
	}
	c.mu.Lock()
	c.activeTurn = turn
	plans := c.turnNoticesLocked()
	c.mu.Unlock()

	c.log.Info("turno establecido manualmente", zap.Int("turno", turn))
	c.publish(Event{Type: EventTurnChanged, Turn: turn})
	c.fanOut(plans)
	return nil
}

func (c *Coordinator) loggedInLocked() int {
	n := 0
	for _, s := range c.sessions {
		if s.TurnNumber() > 0 {
			n++
		}
	}
	return n
}

func (c *Coordinator) authedSessions() []*Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		if s.TurnNumber() > 0 {
			out = append(out, s)
		}
	}
	return out
}

// pushPlan pairs a session with the frames to deliver to it. Plans are
// built under the coordinator lock and delivered after it is released so
// a slow connection cannot stall the engine.
type pushPlan struct {
	s      *Session
	frames []string
}

// fanOut delivers queued notifications best-effort: a failure for one
// session is logged and does not block delivery to the others.
func (c *Coordinator) fanOut(plans []pushPlan) {
	for _, p := range plans {
		for _, frame := range p.frames {
			if err := p.s.push(frame); err != nil {
				c.log.Warn("notificando a sesion",
					zap.String("session", p.s.ID()),
					zap.Error(err))
			}
		}
	}
}

func (c *Coordinator) publish(e Event) {
	if c.sink != nil {
		c.sink.Publish(e)
	}
}

// PlayerSummary is one player's slice of the monitor snapshot.
type PlayerSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Turn     int    `json:"turn"`
	Attempts int    `json:"attempts"`
	Matches  int    `json:"matches"`
	Accuracy int    `json:"accuracy"`
}

// Summary is the monitor's point-in-time view of the match.
type Summary struct {
	ActiveTurn int             `json:"activeTurn"`
	PairsFound int             `json:"pairsFound"`
	TotalPairs int             `json:"totalPairs"`
	Finished   bool            `json:"finished"`
	Players    []PlayerSummary `json:"players"`
}

// Snapshot returns the current match state for the monitor API.
func (c *Coordinator) Snapshot() Summary {
	c.mu.Lock()
	sessions := make([]*Session, len(c.sessions))
	copy(sessions, c.sessions)
	sum := Summary{
		ActiveTurn: c.activeTurn,
		PairsFound: c.board.PairsFound(),
		TotalPairs: board.TotalPairs,
		Finished:   c.finished,
	}
	c.mu.Unlock()

	for _, s := range sessions {
		turn := s.TurnNumber()
		if turn == 0 {
			continue
		}
		attempts, matches, pct := s.Stats()
		sum.Players = append(sum.Players, PlayerSummary{
			ID:       s.ID(),
			Name:     s.DisplayName(),
			Username: s.Username(),
			Turn:     turn,
			Attempts: attempts,
			Matches:  matches,
			Accuracy: pct,
		})
	}
	return sum
}
