package game

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"concentrese/internal/concentrese/board"
	"concentrese/internal/concentrese/protocol"
	"concentrese/internal/concentrese/store"
)

// writeWait bounds how long a single frame write may block.
const writeWait = 10 * time.Second

// Credentials answers the two lookups the login flow needs. The Postgres
// store implements it; tests use an in-memory map.
type Credentials interface {
	FindByUsername(username string) (*store.Player, error)
	Verify(username, secret string) (bool, error)
}

// Session handles one client connection: it runs the command loop,
// holds the player identity once authenticated, and tracks the player's
// running statistics. Stats are mutated only by the session's own
// goroutine; the small mutex covers cross-goroutine reads from the
// coordinator and monitor.
type Session struct {
	id    string
	conn  net.Conn
	coord *Coordinator
	creds Credentials
	log   *zap.Logger

	writeMu sync.Mutex

	mu         sync.Mutex
	player     *store.Player
	username   string
	turnNumber int
	attempts   int
	matches    int
}

func NewSession(conn net.Conn, coord *Coordinator, creds Credentials, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:    id,
		conn:  conn,
		coord: coord,
		creds: creds,
		log:   logger.With(zap.String("session", id)),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) RemoteAddr() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.RemoteAddr().String()
}

// TurnNumber returns the assigned turn, or 0 before authentication.
func (s *Session) TurnNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnNumber
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// DisplayName prefers the player's real name, then the username, then
// the remote address for sessions that never logged in.
func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		return s.player.Name
	}
	if s.username != "" {
		return s.username
	}
	return s.RemoteAddr()
}

// Stats returns attempts, matches, and the rounded accuracy percentage.
// Accuracy is 0 before the first attempt.
func (s *Session) Stats() (attempts, matches, accuracy int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts, s.matches, accuracyPct(s.attempts, s.matches)
}

func accuracyPct(attempts, matches int) int {
	if attempts == 0 {
		return 0
	}
	return int(math.Round(float64(matches) / float64(attempts) * 100))
}

// Run is the session's command loop. It blocks on network reads between
// commands and exits on the first I/O failure, which is the only
// disconnect detection there is. Cleanup always unregisters the session.
func (s *Session) Run() {
	defer func() {
		s.conn.Close()
		s.log.Info("cliente desconectado", zap.String("usuario", s.Username()))
		s.coord.Unregister(s)
	}()

	for {
		frame, err := protocol.ReadFrame(s.conn)
		if err != nil {
			return
		}
		cmd, args := protocol.Parse(frame)

		switch cmd {
		case protocol.CmdLogin:
			s.handleLogin(args)
		case protocol.CmdQueryTurn:
			s.handleTurnQuery()
		case protocol.CmdPlay:
			if err := s.handlePlay(args); err != nil {
				return
			}
		case protocol.CmdStats:
			s.handleStatsRequest()
		case protocol.CmdWinner:
			s.handleWinnerRequest()
		default:
			s.log.Warn("comando desconocido", zap.String("comando", cmd))
		}
	}
}

// handleLogin resolves one authentication attempt. Store failures are
// reported as an invalid login, never as a transport fault.
func (s *Session) handleLogin(args []string) {
	if len(args) < 2 {
		s.send(protocol.LoginInvalid)
		return
	}
	user, secret := args[0], args[1]

	if s.TurnNumber() > 0 || s.coord.IsUserConnected(user) {
		s.log.Info("login rechazado: usuario ya conectado", zap.String("usuario", user))
		s.send(protocol.LoginTaken)
		return
	}

	ok, err := s.creds.Verify(user, secret)
	if err != nil {
		s.log.Error("verificando credenciales", zap.String("usuario", user), zap.Error(err))
		s.send(protocol.LoginInvalid)
		return
	}
	if !ok {
		s.log.Info("login fallido: credenciales incorrectas", zap.String("usuario", user))
		s.send(protocol.LoginInvalid)
		return
	}

	record, err := s.creds.FindByUsername(user)
	if err != nil {
		s.log.Error("buscando jugador", zap.String("usuario", user), zap.Error(err))
		s.send(protocol.LoginInvalid)
		return
	}

	turn, err := s.coord.ClaimUsername(user)
	if err != nil {
		s.send(protocol.LoginTaken)
		return
	}

	s.mu.Lock()
	s.player = record
	s.username = user
	s.turnNumber = turn
	s.attempts = 0
	s.matches = 0
	s.mu.Unlock()

	s.send(protocol.LoginOK)
	s.send(strconv.Itoa(turn))

	s.log.Info("login exitoso",
		zap.String("usuario", user),
		zap.String("nombre", record.Name),
		zap.Int("turno", turn))
	s.coord.publish(Event{Type: EventLogin, Player: user, Turn: turn})
}

// handleTurnQuery answers with the coordinator's active turn. When it is
// this session's own turn, a stats refresh goes to the monitor feed;
// that push is observational and never required for correctness.
func (s *Session) handleTurnQuery() {
	turn := s.coord.ActiveTurn()
	if turn == s.TurnNumber() {
		s.publishStats()
	}
	s.send(strconv.Itoa(turn))
}

// handlePlay resolves a two-card play: the first coordinates arrive as
// the command argument, the second in a follow-up frame the session
// blocks on. Only I/O failures propagate; bad input fails the play and
// keeps the session alive.
func (s *Session) handlePlay(args []string) error {
	if s.coord.Finished() {
		s.send(protocol.Build(protocol.PlayMiss, "el juego ya termino"))
		return nil
	}
	if s.coord.ActiveTurn() != s.TurnNumber() {
		s.log.Info("jugada fuera de turno", zap.String("usuario", s.Username()))
		s.send(protocol.Build(protocol.PlayMiss, "fuera de turno"))
		return nil
	}

	x1, y1, err := parseCoords(args)
	if err != nil {
		s.failPlay("escribio letras en vez de numeros")
		return nil
	}
	v1 := s.coord.ValueAt(x1-1, y1-1)
	s.publishCard(EventCardSelected, x1, y1, v1)

	frame, err := protocol.ReadFrame(s.conn)
	if err != nil {
		return err
	}
	cmd, args2 := protocol.Parse(frame)
	if cmd != protocol.CmdPlay {
		s.failPlay("se esperaba la segunda carta")
		return nil
	}
	x2, y2, err := parseCoords(args2)
	if err != nil {
		s.failPlay("escribio letras en vez de numeros")
		return nil
	}
	v2 := s.coord.ValueAt(x2-1, y2-1)
	s.publishCard(EventCardSelected, x2, y2, v2)

	// The play is now complete: exactly one attempt, whatever the outcome.
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()

	if v1 == "" || v2 == "" {
		s.publishCard(EventCardDeselected, x1, y1, v1)
		s.publishCard(EventCardDeselected, x2, y2, v2)
		s.publishStats()
		s.failPlay("estas coordenadas estaban fuera del rango")
		return nil
	}

	matched, gameOver := s.coord.Play(x1-1, y1-1, v1, x2-1, y2-1, v2)
	if matched {
		s.mu.Lock()
		s.matches++
		s.mu.Unlock()
		s.publishStats()

		s.log.Info("acierto",
			zap.String("usuario", s.Username()),
			zap.Int("turno", s.TurnNumber()))
		s.send(protocol.PlayHit)
		// The player keeps the turn unless that was the final pair.
		if !gameOver {
			s.send(protocol.PushPrompt)
		}
		return nil
	}

	// Both cards stay revealed for a moment so clients can show them.
	// Only this session's goroutine waits.
	time.Sleep(s.coord.MismatchDelay())
	s.publishCard(EventCardDeselected, x1, y1, v1)
	s.publishCard(EventCardDeselected, x2, y2, v2)
	s.publishStats()
	s.failPlay("no son parejas")
	return nil
}

// failPlay reports a failed play and hands the turn to the next player.
func (s *Session) failPlay(reason string) {
	s.log.Info("fallo",
		zap.String("usuario", s.Username()),
		zap.String("razon", reason))
	s.send(protocol.Build(protocol.PlayMiss, reason))
	s.coord.publish(Event{Type: EventPlayFailed, Player: s.Username(), Detail: reason})
	s.coord.AdvanceTurn()
}

func (s *Session) handleStatsRequest() {
	attempts, matches, pct := s.Stats()
	s.send(fmt.Sprintf("%d,%d,%d", attempts, matches, pct))
}

func (s *Session) handleWinnerRequest() {
	s.send(s.coord.WinnerSummary())
}

func parseCoords(args []string) (x, y int, err error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("se esperaban 2 coordenadas, llegaron %d", len(args))
	}
	x, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, err
	}
	y, err = strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// publishCard emits a select/deselect event for in-range cells only.
func (s *Session) publishCard(eventType string, x, y int, value string) {
	if value == "" {
		return
	}
	s.coord.publish(Event{Type: eventType, Player: s.Username(), X: x, Y: y})
}

func (s *Session) publishStats() {
	attempts, matches, pct := s.Stats()
	s.coord.publish(Event{
		Type:       EventStats,
		Player:     s.Username(),
		Turn:       s.TurnNumber(),
		Attempts:   attempts,
		Matches:    matches,
		Accuracy:   pct,
		PairsFound: s.coord.board.PairsFound(),
		TotalPairs: board.TotalPairs,
	})
}

// send writes a frame, logging delivery failures. The session keeps
// processing; a broken connection surfaces on the next read.
func (s *Session) send(frame string) {
	if err := s.push(frame); err != nil {
		s.log.Warn("enviando frame", zap.String("frame", frame), zap.Error(err))
	}
}

// push writes one frame to the client. It is the single write path for
// both replies and coordinator broadcasts; the mutex keeps frames whole.
func (s *Session) push(frame string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return protocol.WriteFrame(s.conn, frame)
}
